package robot

import (
	"testing"
	"time"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	reg := NewRegistry("0000")
	now := time.Now()

	r1, created := reg.GetOrCreate(0x4242, DotBot, now)
	if !created {
		t.Fatalf("expected first GetOrCreate to create a record")
	}
	r2, created := reg.GetOrCreate(0x4242, SailBot, now)
	if created {
		t.Fatalf("expected second GetOrCreate to find the existing record")
	}
	if r1 != r2 {
		t.Fatalf("expected the same record instance for the same address")
	}
	if r2.Application != DotBot {
		t.Fatalf("GetOrCreate must not overwrite application kind on lookup")
	}
}

func TestListIsSortedAndStable(t *testing.T) {
	reg := NewRegistry("0000")
	now := time.Now()
	reg.GetOrCreate(0x03, DotBot, now)
	reg.GetOrCreate(0x01, DotBot, now)
	reg.GetOrCreate(0x02, DotBot, now)

	first := reg.List(Filter{})
	second := reg.List(Filter{})
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 records, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Address != second[i].Address {
			t.Fatalf("List must return a stable order across calls")
		}
	}
	if first[0].Address != 0x01 || first[1].Address != 0x02 || first[2].Address != 0x03 {
		t.Fatalf("List must be sorted by address, got %v", first)
	}
}

func TestSweepDerivesStatusAndReportsChange(t *testing.T) {
	reg := NewRegistry("0000")
	base := time.Now()
	reg.GetOrCreate(0x4242, DotBot, base)

	if changed := reg.Sweep(base); changed {
		t.Fatalf("status should not change immediately after creation")
	}

	later := base.Add(6 * time.Second)
	if changed := reg.Sweep(later); !changed {
		t.Fatalf("expected a status change after the inactive delay")
	}
	r, _ := reg.Get(0x4242)
	if r.Status != Inactive {
		t.Fatalf("expected Inactive, got %v", r.Status)
	}

	lost := base.Add(61 * time.Second)
	if changed := reg.Sweep(lost); !changed {
		t.Fatalf("expected a status change after the lost delay")
	}
	r, _ = reg.Get(0x4242)
	if r.Status != Lost {
		t.Fatalf("expected Lost, got %v", r.Status)
	}
}

func TestClearPositionHistory(t *testing.T) {
	reg := NewRegistry("0000")
	now := time.Now()
	reg.GetOrCreate(0x4242, DotBot, now)
	reg.Mutate(0x4242, func(r *Record) {
		for i := 0; i < 5; i++ {
			r.AppendPosition(Position{Kind: PositionLH2, LH2: LH2Position{X: float64(i)}})
		}
	})
	r, _ := reg.Get(0x4242)
	if len(r.PositionHistory()) != 5 {
		t.Fatalf("expected 5 history entries")
	}
	reg.Mutate(0x4242, func(r *Record) { r.ClearPositionHistory() })
	r, _ = reg.Get(0x4242)
	if len(r.PositionHistory()) != 0 {
		t.Fatalf("expected history cleared, got %d entries", len(r.PositionHistory()))
	}
}

func TestPositionHistoryBound(t *testing.T) {
	reg := NewRegistry("0000")
	now := time.Now()
	reg.GetOrCreate(0x4242, DotBot, now)
	reg.Mutate(0x4242, func(r *Record) {
		for i := 0; i < MaxPositionHistory+10; i++ {
			r.AppendPosition(Position{Kind: PositionLH2, LH2: LH2Position{X: float64(i)}})
		}
	})
	r, _ := reg.Get(0x4242)
	if len(r.PositionHistory()) != MaxPositionHistory {
		t.Fatalf("expected history capped at %d, got %d", MaxPositionHistory, len(r.PositionHistory()))
	}
}
