package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPathCollapsesIdentifiers(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"/healthz": "/healthz",
		"/api/v1/applications/8c1f0f9e-2d7a-4f7e-9a55-0c4f5b1f8e21/submit": "/api/v1/applications/:id/submit",
		"/api/v1/teams/42/roster": "/api/v1/teams/:id/roster",
	}
	for in, want := range cases {
		if got := canonicalPath(in); got != want {
			t.Errorf("canonicalPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInstrumentHandlerUsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(InstrumentHandler)
	router.HandleFunc("/api/v1/trials/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/trials/{id}", "418"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trials/abc", nil))

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/trials/{id}", "418"))
	if after-before != 1 {
		t.Fatalf("expected one request recorded under template, got delta %v", after-before)
	}
}

func TestDomainCountersExposed(t *testing.T) {
	RecordLogin("failure")
	RecordApplicationTransition("", "DRAFT")
	RecordTrialCompletion("RECOMMENDED")
	RecordUpload("PHOTO", 2048)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{
		"clubhouse_auth_logins_total",
		`clubhouse_applications_transitions_total{from="none",to="DRAFT"}`,
		"clubhouse_trials_completed_total",
		"clubhouse_documents_uploads_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
