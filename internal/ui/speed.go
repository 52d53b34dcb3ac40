package ui

import "fmt"

// speedSteps generalizes climp's original SpeedMode (1x/2x/0.5x, a
// frame-drop trick) into multipliers applied to the Mixer's device sample
// rate via Control.SetRate, per SPEC_FULL.md's change_sample_rate/
// restore_sample_rate operations.
var speedSteps = []float64{1.0, 1.25, 1.5, 2.0, 0.5, 0.75}

// speedLabel renders the multiplier for the status line; 1x is blank so the
// common case doesn't clutter the line.
func speedLabel(mult float64) string {
	if mult == 1.0 {
		return ""
	}
	return fmt.Sprintf("%gx", mult)
}
