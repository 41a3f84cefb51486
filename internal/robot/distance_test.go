package robot

import "testing"

func TestLh2DistanceGatesAdmission(t *testing.T) {
	last := Position{Kind: PositionLH2, LH2: LH2Position{X: 0.500, Y: 0.500}}
	close := Position{Kind: PositionLH2, LH2: LH2Position{X: 0.504, Y: 0.500}}
	d := Distance(last, close)
	if d >= LH2DistanceThreshold {
		t.Fatalf("expected distance below threshold, got %f", d)
	}
}

func TestGpsDistanceRoughlyMatchesHaversine(t *testing.T) {
	// Paris (Inria) to a point ~111m north (about 0.001 degrees latitude).
	a := Position{Kind: PositionGPS, GPS: GPSPosition{Latitude: 48.8323, Longitude: 2.4127}}
	b := Position{Kind: PositionGPS, GPS: GPSPosition{Latitude: 48.8333, Longitude: 2.4127}}
	d := Distance(a, b)
	if d < 100 || d > 120 {
		t.Fatalf("expected ~111m, got %f", d)
	}
}

func TestRecordTryAppendPosition(t *testing.T) {
	r := &Record{}
	admitted := r.TryAppendPosition(Position{Kind: PositionLH2, LH2: LH2Position{X: 0.5, Y: 0.5}}, LH2DistanceThreshold, Distance)
	if !admitted {
		t.Fatalf("first sample must always be admitted")
	}
	admitted = r.TryAppendPosition(Position{Kind: PositionLH2, LH2: LH2Position{X: 0.504, Y: 0.5}}, LH2DistanceThreshold, Distance)
	if admitted {
		t.Fatalf("sample within threshold should be rejected")
	}
	if len(r.PositionHistory()) != 1 {
		t.Fatalf("expected exactly 1 stored sample, got %d", len(r.PositionHistory()))
	}
}
