package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestMiddleware(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/ok", "/bad", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP compositor_errors_total Total number of HTTP responses with error status (4xx or 5xx)
# TYPE compositor_errors_total counter
compositor_errors_total 1
# HELP compositor_requests_total Total number of HTTP requests received
# TYPE compositor_requests_total counter
compositor_requests_total 3
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"compositor_requests_total", "compositor_errors_total"); err != nil {
		t.Error(err)
	}
}

func TestHandler_updatesGauges(t *testing.T) {
	m := New()
	m.IncEventsIgnored("cursormove")
	m.IncEventsIgnored("cursormove")

	rec := httptest.NewRecorder()
	m.Handler(func() { m.SetOpenTimelines(3) }).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "compositor_open_timelines 3") {
		t.Errorf("gauge not refreshed before scrape:\n%s", body)
	}
	if !strings.Contains(body, `compositor_events_ignored_total{type="cursormove"} 2`) {
		t.Errorf("missing ignored events:\n%s", body)
	}
}
