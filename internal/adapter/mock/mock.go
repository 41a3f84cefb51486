// Package mock provides an in-memory loopback Adapter for tests and local
// development without hardware, grounded on the teacher's
// internal/adapter/mock/mock_adapter.go test-double idiom.
package mock

import (
	"context"
	"sync"

	"github.com/dotbot-project/fleet-controller/internal/adapter"
	"github.com/dotbot-project/fleet-controller/internal/protocol"
)

// Adapter is a test double: Send records frames instead of transmitting
// them, and Inject lets a test feed an inbound frame as if it arrived over
// the wire.
type Adapter struct {
	mu      sync.Mutex
	onFrame func(protocol.Frame)
	started bool
	sent    []protocol.Frame
}

// New returns a ready, unstarted mock adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Start(_ context.Context, onFrame func(protocol.Frame)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFrame = onFrame
	a.started = true
	return nil
}

func (a *Adapter) Send(_ context.Context, frame protocol.Frame) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return adapter.ErrNotStarted
	}
	a.sent = append(a.sent, frame)
	return nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = false
	return nil
}

// Inject delivers frame to the registered onFrame callback as if it had
// arrived over the link. It is a no-op before Start.
func (a *Adapter) Inject(frame protocol.Frame) {
	a.mu.Lock()
	onFrame := a.onFrame
	a.mu.Unlock()
	if onFrame != nil {
		onFrame(frame)
	}
}

// Sent returns a defensive copy of every frame passed to Send so far.
func (a *Adapter) Sent() []protocol.Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]protocol.Frame, len(a.sent))
	copy(out, a.sent)
	return out
}
