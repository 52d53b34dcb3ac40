package decoder

import (
	"bytes"
	"image"
	_ "image/jpeg" // register JPEG decoding with image.Decode
	_ "image/png"  // register PNG decoding with image.Decode

	"github.com/nfnt/resize"
)

// maxCoverDimension bounds the decoded cover so a large embedded picture
// doesn't blow up terminal-rendering memory; images above this are
// downscaled, preserving aspect ratio.
const maxCoverDimension = 512

// GetCoverImage decodes and returns the file's embedded cover art, lazily on
// first call, caching the result for the life of the Decoder. A file with no
// embedded picture, or one decode can't make sense of, returns an Image with
// Format == FormatNone.
func (d *Decoder) GetCoverImage() Image {
	d.coverOnce.Do(func() {
		var flacSrc *flacSource
		if fs, ok := d.src.(*flacSource); ok {
			flacSrc = fs
		}
		raw := readCoverBytes(d.path, flacSrc)
		if raw == nil {
			return
		}
		d.cover = decodeCover(raw.data)
	})
	return d.cover
}

// decodeCover turns still-encoded JPEG/PNG picture bytes into a pixel
// buffer, downscaling if needed. The corpus carries no third-party full
// image codec, so this one spot uses the standard library's image/jpeg and
// image/png decoders (see DESIGN.md).
func decodeCover(data []byte) Image {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{Format: FormatNone}
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxCoverDimension || h > maxCoverDimension {
		img = resize.Thumbnail(maxCoverDimension, maxCoverDimension, img, resize.Lanczos3)
		bounds = img.Bounds()
		w, h = bounds.Dx(), bounds.Dy()
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rgba.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	return Image{
		Pixels: rgba.Pix,
		Width:  w,
		Height: h,
		Format: FormatRGBA8Straight,
	}
}
