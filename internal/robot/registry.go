package robot

import (
	"sort"
	"sync"
	"time"
)

// Filter narrows a List call. A zero value matches everything.
type Filter struct {
	Application    *ApplicationType
	Mode           *ControlMode
	Status         *Status
	SwarmID        string
	MaxPositions   int // 0 means unlimited
}

func (f Filter) matches(r *Record) bool {
	if f.Application != nil && r.Application != *f.Application {
		return false
	}
	if f.Mode != nil && r.Mode != *f.Mode {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.SwarmID != "" && r.SwarmID != f.SwarmID {
		return false
	}
	return true
}

// Registry is the address-keyed map of known robots. It is the sole owner of
// its map: every read and write goes through a method here, guarded by mu, so
// the controller never needs to reason about races against the registry
// itself (invariant U). This mirrors the teacher's robot.Manager — a single
// mutex-protected map — rather than routing registry access through an actor
// goroutine; the mutex gives the same single-writer guarantee with less
// machinery.
type Registry struct {
	mu      sync.RWMutex
	records map[Address]*Record
	swarmID string
}

// NewRegistry returns an empty registry that stamps every record it creates
// with swarmID, the way original_source/dotbot/main.py applies its fixed
// --swarm-id config value uniformly rather than deriving it from the wire.
func NewRegistry(swarmID string) *Registry {
	return &Registry{records: make(map[Address]*Record), swarmID: swarmID}
}

// Get returns the record for addr, or false if it is unknown.
func (reg *Registry) Get(addr Address) (*Record, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.records[addr]
	return r, ok
}

// GetOrCreate returns the existing record for addr, or creates one with
// Application set from the advertisement and returns (record, true) when it
// is new.
func (reg *Registry) GetOrCreate(addr Address, app ApplicationType, now time.Time) (record *Record, created bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.records[addr]; ok {
		return r, false
	}
	r := &Record{
		Address:            addr,
		Application:        app,
		SwarmID:            reg.swarmID,
		Mode:               Manual,
		Status:             Active,
		LastSeen:           now,
		WaypointsThreshold: 40,
	}
	reg.records[addr] = r
	return r, true
}

// Mutate runs fn against the record at addr while holding the write lock,
// returning false if the address is unknown. Callers use this for every
// inbound-frame or command field update so no caller can observe a partial
// write.
func (reg *Registry) Mutate(addr Address, fn func(*Record)) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.records[addr]
	if !ok {
		return false
	}
	fn(r)
	return true
}

// List returns a sorted, filtered snapshot. Each returned Record is a copy;
// callers may not mutate the registry through it.
func (reg *Registry) List(f Filter) []Record {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]Record, 0, len(reg.records))
	for _, r := range reg.records {
		if !f.matches(r) {
			continue
		}
		cp := *r
		hist := r.PositionHistory()
		if f.MaxPositions > 0 && len(hist) > f.MaxPositions {
			hist = hist[len(hist)-f.MaxPositions:]
		}
		cp.positionHistory = hist
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Sweep applies DeriveStatus to every record and reports whether any status
// changed (triggers a single RELOAD notification upstream).
func (reg *Registry) Sweep(now time.Time) (changed bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, r := range reg.records {
		next := DeriveStatus(now, r.LastSeen)
		if next != r.Status {
			r.Status = next
			changed = true
		}
	}
	return changed
}
