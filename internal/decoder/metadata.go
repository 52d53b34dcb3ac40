package decoder

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
)

// Metadata holds the three string fields the Control Plane exposes via
// get_metadata; absent fields are empty strings, never an error.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// coverBytes is the raw, still-encoded (JPEG/PNG) cover picture extracted
// from a file's tags, before decodeCover turns it into pixels.
type coverBytes struct {
	data     []byte
	mimeType string
}

// GetMetadata returns the string_view for key ("title", "artist", "album"),
// decoding tags lazily on first call and caching the result. Unknown keys
// return "".
func (d *Decoder) GetMetadata(key string) string {
	d.metaOnce.Do(func() { d.meta = readMetadata(d.path) })
	switch key {
	case "title":
		return d.meta.Title
	case "artist":
		return d.meta.Artist
	case "album":
		return d.meta.Album
	default:
		return ""
	}
}

// readMetadata reads tags with format-appropriate libraries, falling back to
// the file's display name for the title when no tag (or an empty title tag)
// is present. Album/artist stay empty on fallback — this is the source
// behavior spec.md documents and keeps.
func readMetadata(path string) Metadata {
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".mp3" {
		if tagv, err := id3v2.Open(path, id3v2.Options{Parse: true}); err == nil {
			defer tagv.Close()
			m := Metadata{
				Title:  strings.TrimSpace(tagv.Title()),
				Artist: strings.TrimSpace(tagv.Artist()),
				Album:  strings.TrimSpace(tagv.Album()),
			}
			if m.Title != "" {
				return m
			}
		}
	} else {
		if f, err := os.Open(path); err == nil {
			defer f.Close()
			if m, err := tag.ReadFrom(f); err == nil && strings.TrimSpace(m.Title()) != "" {
				return Metadata{
					Title:  strings.TrimSpace(m.Title()),
					Artist: strings.TrimSpace(m.Artist()),
					Album:  strings.TrimSpace(m.Album()),
				}
			}
		}
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return Metadata{Title: name}
}

// readCoverBytes extracts the still-encoded embedded picture for path, or
// nil if the file carries none. MP3 goes through ID3v2 APIC frames; FLAC
// uses the PICTURE metadata block already parsed by flacSource; everything
// else goes through dhowden/tag's format-agnostic picture accessor.
func readCoverBytes(path string, flacSrc *flacSource) *coverBytes {
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".flac" && flacSrc != nil {
		if pic := flacSrc.Picture(); pic != nil && len(pic.Data) > 0 {
			return &coverBytes{data: pic.Data, mimeType: pic.MIME}
		}
		return nil
	}

	if ext == ".mp3" {
		tagv, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err != nil {
			return nil
		}
		defer tagv.Close()
		frames := tagv.GetFrames(tagv.CommonID("Attached picture"))
		for _, f := range frames {
			pic, ok := f.(id3v2.PictureFrame)
			if !ok || len(pic.Picture) == 0 {
				continue
			}
			return &coverBytes{data: pic.Picture, mimeType: pic.MimeType}
		}
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil
	}
	return &coverBytes{data: pic.Data, mimeType: pic.MIMEType}
}
