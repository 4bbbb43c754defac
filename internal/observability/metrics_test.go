package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Registered once; promauto panics on re-registration in the same process.
var metrics = NewMetrics("testns")

func TestNilReceiverRecordsAreNoOps(t *testing.T) {
	var m *Metrics
	m.RecordEventReceived()
	m.RecordEventFiltered("low_liquidity")
	m.RecordEventSubmitted(1700000000)
	m.SetQueueDepth(5)
	m.RecordUnitOutcome("ok", 0.1)
	m.RecordAlertDelivered("slack")
	m.ObserveDBQuery("token_events_insert", 0.01, errors.New("boom"))
	m.RecordStreamReconnect()
}

func TestRecordStreamReconnect(t *testing.T) {
	before := testutil.ToFloat64(metrics.StreamReconnects)
	metrics.RecordStreamReconnect()
	metrics.RecordStreamReconnect()
	if got := testutil.ToFloat64(metrics.StreamReconnects); got != before+2 {
		t.Errorf("StreamReconnects = %v, want %v", got, before+2)
	}
}

func TestObserveDBQuery(t *testing.T) {
	metrics.ObserveDBQuery("alerts_insert", 0.002, nil)
	if got := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("alerts_insert")); got != 0 {
		t.Errorf("DBQueryErrors after success = %v, want 0", got)
	}

	metrics.ObserveDBQuery("alerts_insert", 0.002, errors.New("connection reset"))
	if got := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("alerts_insert")); got != 1 {
		t.Errorf("DBQueryErrors after failure = %v, want 1", got)
	}

	if n := testutil.CollectAndCount(metrics.DBQueryDuration); n == 0 {
		t.Error("DBQueryDuration recorded no samples")
	}
}
