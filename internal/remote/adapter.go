// Package remote implements the Remote-Control Adapter (C7): it polls a
// host-provided bus for incoming method calls, translates them into
// Control Plane commands, and emits property-change notifications when
// observable state changes, per §4.7.
package remote

import "github.com/olivier-w/climp/internal/control"

// Adapter is the platform-specific remote-control surface. Run blocks
// until Close is called (the Linux adapter also returns once the Control
// Plane quits, and retries bus failures rather than returning on them);
// the Control Plane's Done() channel is what actually ends the process,
// so Run returning is not itself fatal.
type Adapter interface {
	Run()
	Close() error
}

// New returns the platform's remote-control adapter bound to plane. On
// platforms with no adapter it returns a no-op so callers never need to
// special-case it.
func New(plane *control.Plane) Adapter {
	return newPlatformAdapter(plane)
}
