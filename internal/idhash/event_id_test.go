package idhash

import (
	"testing"

	"tokenwatch/internal/domain"
)

func TestComputeEventID_Deterministic(t *testing.T) {
	id1 := ComputeEventID("MintA", domain.SourcePumpPortal, 1700000000000)
	id2 := ComputeEventID("MintA", domain.SourcePumpPortal, 1700000000000)

	if id1 != id2 {
		t.Errorf("expected deterministic ID, got %s and %s", id1, id2)
	}

	if len(id1) != 64 {
		t.Errorf("expected 64-character hex hash, got %d characters", len(id1))
	}
}

func TestComputeEventID_DistinctInputs(t *testing.T) {
	base := ComputeEventID("MintA", domain.SourcePumpPortal, 1700000000000)

	tests := []struct {
		name string
		id   string
	}{
		{"different mint", ComputeEventID("MintB", domain.SourcePumpPortal, 1700000000000)},
		{"different source", ComputeEventID("MintA", domain.SourceReplay, 1700000000000)},
		{"different timestamp", ComputeEventID("MintA", domain.SourcePumpPortal, 1700000000001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.id == base {
				t.Errorf("expected distinct ID for %s", tt.name)
			}
		})
	}
}

func TestComputeAlertID_BucketCollapsesWindow(t *testing.T) {
	a := ComputeAlertID("MintA", domain.AlertRugRisk, 42, "slack")
	b := ComputeAlertID("MintA", domain.AlertRugRisk, 42, "slack")
	c := ComputeAlertID("MintA", domain.AlertRugRisk, 43, "slack")

	if a != b {
		t.Error("same window bucket must produce the same alert ID")
	}
	if a == c {
		t.Error("different window buckets must produce different alert IDs")
	}
}
