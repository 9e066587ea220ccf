package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("asks_total", "Total questions asked")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("counter: got %d", c.Value())
	}

	g := r.Gauge("inflight", "")
	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Errorf("gauge: got %d", g.Value())
	}

	// Same name returns the same metric.
	if r.Counter("asks_total", "") != c {
		t.Error("counter not deduplicated")
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("requests_total", "status", "200")
	want := `requests_total{status="200"}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if WithLabels("x", "odd") != "x" {
		t.Error("odd label pairs should be ignored")
	}
}

func TestRenderCounters(t *testing.T) {
	r := New()
	r.Counter(WithLabels("requests_total", "status", "200"), "Total requests").Add(5)
	r.Counter(WithLabels("requests_total", "status", "500"), "Total requests").Inc()

	out := r.Render()
	for _, want := range []string{
		"# TYPE requests_total counter",
		`requests_total{status="200"} 5`,
		`requests_total{status="500"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q in:\n%s", want, out)
		}
	}
	// The header must appear once even with two label combinations.
	if strings.Count(out, "# TYPE requests_total") != 1 {
		t.Errorf("duplicated TYPE header:\n%s", out)
	}
}

func TestRenderHistogram(t *testing.T) {
	r := New()
	h := r.Histogram("ask_duration_seconds", "Ask latency", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(100)

	out := r.Render()
	for _, want := range []string{
		"# TYPE ask_duration_seconds histogram",
		`ask_duration_seconds_bucket{le="0.1"} 1`,
		`ask_duration_seconds_bucket{le="1"} 2`,
		`ask_duration_seconds_bucket{le="10"} 2`,
		`ask_duration_seconds_bucket{le="+Inf"} 3`,
		"ask_duration_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q in:\n%s", want, out)
		}
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("ok_total", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok_total 1") {
		t.Errorf("body: %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type: %s", ct)
	}
}
