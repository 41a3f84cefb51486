// Package notify fans out controller state changes to connected clients
// (WebSocket hub, MQTT bridge, audit sink), grounded on the teacher's
// internal/server/hub.go register/unregister/broadcast idiom but narrowed
// to a plain mutex-guarded listener set owned by the controller.
package notify

import (
	"sync"

	"github.com/dotbot-project/fleet-controller/internal/robot"
)

// Kind distinguishes a full-state refresh from a field-level update, per
// spec.md §4.3 step 7.
type Kind uint8

const (
	// Reload signals a categorical change: a new robot appeared, or a
	// status/application/mode field changed.
	Reload Kind = iota
	// Update signals a field-level change (position, battery) on an
	// already-known robot.
	Update
)

func (k Kind) String() string {
	if k == Reload {
		return "reload"
	}
	return "update"
}

// Notification is one fan-out event. Record is a snapshot, never a live
// pointer into the registry.
type Notification struct {
	Kind    Kind
	Address robot.Address
	Record  robot.Record
}

// Listener receives notifications. Implementations must not block for long;
// the hub delivers to every listener concurrently but does not retry or
// queue past what the listener's own channel buffers.
type Listener func(Notification)

// Hub holds the controller's listener set and fans out notifications
// concurrently, with no ordering guarantee across listeners (spec.md §5).
type Hub struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewHub returns an empty listener set.
func NewHub() *Hub {
	return &Hub{listeners: make(map[int]Listener)}
}

// Add registers a listener and returns a token for Remove.
func (h *Hub) Add(l Listener) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = l
	return id
}

// Remove unregisters a listener previously returned by Add.
func (h *Hub) Remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, id)
}

// Publish delivers n to every current listener concurrently. It returns once
// every listener has been invoked; listeners that need to do slow work
// should hand off to their own goroutine or buffered channel instead of
// blocking here.
func (h *Hub) Publish(n Notification) {
	h.mu.RLock()
	targets := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		targets = append(targets, l)
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	wg.Add(len(targets))
	for _, l := range targets {
		go func(l Listener) {
			defer wg.Done()
			l(n)
		}(l)
	}
	wg.Wait()
}
