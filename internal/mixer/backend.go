package mixer

import "io"

// Backend is the capability trait the Mixer drives; concrete audio-device
// drivers are out of this engine's scope (spec §1), so the Mixer's state
// machine only ever talks to this trait. One concrete implementation ships
// (otoBackend); swapping it for another device library means implementing
// this interface, not touching mixer.go.
type Backend interface {
	// Configure (re)opens the device at sampleRate/channels, tearing down
	// any previous configuration. Called on Init and whenever the song
	// about to play has a different native rate/channel count than the
	// previously open one.
	Configure(sampleRate, channels int) error
	// NewPlayer wraps r — the Mixer's own Read, the real-time callback —
	// in a backend-owned player, created suspended.
	NewPlayer(r io.Reader) BackendPlayer
	Close() error
}

// BackendPlayer is the minimal per-song playback handle the Mixer drives.
type BackendPlayer interface {
	Play()
	Pause()
	Close() error
}
