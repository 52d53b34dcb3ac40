package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/climp/internal/decoder"
)

// bytesPerPixel returns the stride for img.Format, or 0 for formats this
// renderer doesn't understand (treated the same as "no cover").
func bytesPerPixel(f decoder.PixelFormat) int {
	switch f {
	case decoder.FormatRGB8:
		return 3
	case decoder.FormatRGBA8Straight, decoder.FormatRGBA8Premultiplied:
		return 4
	default:
		return 0
	}
}

// renderCover downsamples img to a cols x (rows*2) grid and renders it as
// half-block characters (▀, foreground = top pixel, background = bottom
// pixel) so a terminal cell carries two vertical source pixels — the
// standard trick for doubling a text terminal's effective vertical
// resolution for block-art images. Returns "" for a FormatNone image or one
// this renderer can't decode.
func renderCover(img decoder.Image, cols, rows int) string {
	stride := bytesPerPixel(img.Format)
	if stride == 0 || img.Width <= 0 || img.Height <= 0 || cols <= 0 || rows <= 0 {
		return ""
	}

	at := func(x, y int) (r, g, b uint8) {
		if x < 0 {
			x = 0
		}
		if x >= img.Width {
			x = img.Width - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= img.Height {
			y = img.Height - 1
		}
		i := (y*img.Width + x) * stride
		if i+2 >= len(img.Pixels) {
			return 0, 0, 0
		}
		return img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2]
	}

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			srcX := col * img.Width / cols
			topY := (row * 2) * img.Height / (rows * 2)
			botY := (row*2 + 1) * img.Height / (rows * 2)

			tr, tg, tb := at(srcX, topY)
			br, bg, bb := at(srcX, botY)

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(hexColor(tr, tg, tb))).
				Background(lipgloss.Color(hexColor(br, bg, bb)))
			sb.WriteString(style.Render("▀"))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func hexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
