package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.Heartbeat()
	m.NearbyReturned(2)
	m.Decision("matched")
	m.CycleFull()
	m.Push("sent")
	m.Reveal("decision")
}

func TestHandlerExposesCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.Heartbeat()
	m.Decision("waiting")
	m.Reveal("senders")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		"tapin_heartbeats_total 1",
		`tapin_decisions_total{outcome="waiting"} 1`,
		`tapin_reveals_total{policy="senders"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
