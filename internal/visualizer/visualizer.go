// Package visualizer renders the Mixer's mono scope tap (C4's
// Scope/GetScope) as terminal ASCII/ANSI art. It is an optional
// consumer of already-popped samples, never the authoritative
// playback pipeline, and only ever sees a mono downmix — the scope tap
// never carries channel-separated data.
package visualizer

// Visualizer renders a window of mono samples in [-1, 1] as ASCII art.
// Update is called once per redraw tick with the most recent scope
// samples; View returns the last rendered frame.
type Visualizer interface {
	Name() string
	Update(samples []float32, width, height int)
	View() string
}

// Modes returns the available visualizer modes, cycled in this order by
// the UI's "v" key.
func Modes() []Visualizer {
	return []Visualizer{
		NewVUMeter(),
		NewSpectrum(),
		NewWaveform(),
	}
}
