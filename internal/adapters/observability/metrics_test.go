package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tripquote/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so the vectors show up
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveDraft("memory", "save")
	observability.ObserveWizard("next")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"tripquote_http_requests_total",
		`tripquote_draft_events_total{backend="memory",event="save"}`,
		`tripquote_wizard_transitions_total{action="next"}`,
		"tripquote_open_sessions",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}
