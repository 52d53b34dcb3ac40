//go:build !linux

package remote

import (
	"sync"

	"github.com/olivier-w/climp/internal/control"
)

// noopAdapter satisfies Adapter on platforms with no remote-control bus
// wired yet, so the Control Plane never has to special-case platform.
type noopAdapter struct {
	once sync.Once
	done chan struct{}
}

func newPlatformAdapter(*control.Plane) Adapter {
	return &noopAdapter{done: make(chan struct{})}
}

func (a *noopAdapter) Run() { <-a.done }

func (a *noopAdapter) Close() error {
	a.once.Do(func() { close(a.done) })
	return nil
}
