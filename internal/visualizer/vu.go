package visualizer

import (
	"fmt"
	"math"
	"strings"
)

// VUMeter renders a single-channel RMS level meter with peak hold, fed by
// the Mixer's mono scope tap (there is no channel-separated signal to
// split into left/right).
type VUMeter struct {
	rms    float64
	peak   float64
	output string
}

// NewVUMeter creates a new VU meter visualizer.
func NewVUMeter() *VUMeter {
	return &VUMeter{}
}

func (v *VUMeter) Name() string { return "vu meter" }

func (v *VUMeter) Update(samples []float32, width, height int) {
	if len(samples) == 0 {
		return
	}

	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	// Smooth
	const attack = 0.6
	const release = 0.15
	if rms > v.rms {
		v.rms = v.rms*(1-attack) + rms*attack
	} else {
		v.rms = v.rms*(1-release) + rms*release
	}

	// Peak hold with decay
	const peakDecay = 0.02
	if v.rms > v.peak {
		v.peak = v.rms
	} else {
		v.peak -= peakDecay
		if v.peak < 0 {
			v.peak = 0
		}
	}

	barWidth := width - 6 // "lvl" prefix + margin
	if barWidth < 10 {
		barWidth = 10
	}
	bar := renderVUBar(v.rms, v.peak, barWidth)

	var sb strings.Builder
	if height >= 3 {
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("lvl %s", bar))
	if height >= 2 {
		sb.WriteString("\n")
	}

	v.output = sb.String()
}

// rmsToLevel converts an RMS value to a 0.0–1.0 bar level using a
// logarithmic (dB) scale. This compresses the dynamic range so bass-heavy
// tracks don't constantly peg the meter at max.
func rmsToLevel(rms float64) float64 {
	const dbFloor = -40.0 // silence threshold
	if rms < 1e-6 {
		return 0
	}
	db := 20.0 * math.Log10(rms)
	if db < dbFloor {
		return 0
	}
	level := (db - dbFloor) / -dbFloor
	if level > 1.0 {
		level = 1.0
	}
	return level
}

func renderVUBar(rms, peak float64, width int) string {
	level := rmsToLevel(rms)
	peakLevel := rmsToLevel(peak)

	filled := int(level * float64(width))
	peakPos := int(peakLevel * float64(width))
	if peakPos >= width {
		peakPos = width - 1
	}

	bar := make([]rune, width)
	profile := currentColorProfile()
	var sb strings.Builder
	color := newANSIState()
	for i := range width {
		if i < filled {
			bar[i] = '█'
		} else if i == peakPos && peakPos > 0 {
			bar[i] = '│'
		} else {
			bar[i] = '─'
		}
	}

	if profile == colorNone {
		return string(bar)
	}

	for i, ch := range bar {
		switch {
		case ch == '│':
			color.set(&sb, colorRGB{R: 255, G: 252, B: 210})
		case i < width*6/10:
			color.set(&sb, colorRGB{R: 60, G: 224, B: 116})
		case i < width*8/10:
			color.set(&sb, colorRGB{R: 240, G: 198, B: 72})
		default:
			color.set(&sb, colorRGB{R: 242, G: 96, B: 86})
		}
		sb.WriteRune(ch)
	}
	color.reset(&sb)
	return sb.String()
}

func (v *VUMeter) View() string {
	return v.output
}
