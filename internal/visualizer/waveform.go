package visualizer

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
)

// Waveform renders a single mono trace with spring smoothing, fed by the
// Mixer's mono scope tap.
type Waveform struct {
	spring  harmonica.Spring
	pos     []float64
	vel     []float64
	output  string
	profile colorProfile
}

// NewWaveform creates a new waveform visualizer.
func NewWaveform() *Waveform {
	return &Waveform{
		spring:  harmonica.NewSpring(harmonica.FPS(20), 14.0, 0.8),
		profile: currentColorProfile(),
	}
}

func (w *Waveform) Name() string { return "waveform" }

func (w *Waveform) resize(n int) {
	if len(w.pos) == n {
		return
	}
	w.pos = make([]float64, n)
	w.vel = make([]float64, n)
}

func (w *Waveform) step(i int, target float64) float64 {
	p, v := w.spring.Update(w.pos[i], w.vel[i], target)
	w.pos[i] = p
	w.vel[i] = v
	return p
}

func (w *Waveform) Update(samples []float32, width, height int) {
	if len(samples) < 2 || width < 4 || height < 1 {
		w.output = ""
		return
	}

	cols := width - 2
	if cols < 8 {
		cols = 8
	}
	w.resize(cols)

	spf := float64(len(samples)) / float64(cols)
	for c := range cols {
		lo := int(float64(c) * spf)
		hi := int(float64(c+1) * spf)
		if lo < 0 {
			lo = 0
		}
		if hi > len(samples) {
			hi = len(samples)
		}
		if hi <= lo {
			continue
		}

		var sum float64
		count := 0
		for i := lo; i < hi; i++ {
			sum += float64(samples[i])
			count++
		}
		if count == 0 {
			continue
		}
		w.step(c, sum/float64(count))
	}

	mask := make([][]uint8, height)
	for r := range height {
		mask[r] = make([]uint8, cols)
	}

	mid := height / 2
	if mid >= 0 && mid < height {
		for c := range cols {
			mask[mid][c] = 2
		}
	}

	prevY := ampToRow(w.pos[0], height)
	for c := 1; c < cols; c++ {
		y := ampToRow(w.pos[c], height)
		drawLineMask(mask, c-1, prevY, c, y, 1)
		prevY = y
	}

	var out strings.Builder
	color := newANSIState()
	den := cols - 1
	if den < 1 {
		den = 1
	}

	for r := range height {
		if r > 0 {
			out.WriteByte('\n')
		}
		for c := range cols {
			switch mask[r][c] {
			case 1:
				if w.profile != colorNone {
					col := rgbFromHSV(0.53+0.04*math.Sin(float64(c)*0.22), 0.7, 0.95)
					color.set(&out, col)
				}
				out.WriteRune('●')
			case 2:
				if w.profile != colorNone {
					fade := 0.15 + 0.15*float64(c)/float64(den)
					color.set(&out, rgbFromHSV(0.6, 0.2, fade))
				}
				out.WriteRune('·')
			default:
				out.WriteByte(' ')
			}
		}
		color.reset(&out)
	}

	w.output = out.String()
}

func ampToRow(amp float64, height int) int {
	if height <= 1 {
		return 0
	}
	amp = clamp01((amp + 1) / 2)
	span := height - 1
	row := int(math.Round((1 - amp) * float64(span)))
	if row < 0 {
		row = 0
	}
	if row >= height {
		row = height - 1
	}
	return row
}

func drawLineMask(mask [][]uint8, x0, y0, x1, y1 int, bit uint8) {
	maxY := len(mask)
	if maxY == 0 {
		return
	}
	maxX := len(mask[0])

	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy

	for {
		if y0 >= 0 && y0 < maxY && x0 >= 0 && x0 < maxX {
			if mask[y0][x0] == 0 || mask[y0][x0] == 2 {
				mask[y0][x0] = bit
			}
		}

		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (w *Waveform) View() string {
	return w.output
}
