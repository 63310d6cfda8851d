// ABOUTME: Tests for the report pipeline Prometheus metrics.
// ABOUTME: Verifies recorded values appear in the /metrics exposition output.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics handler status = %d, want %d", w.Code, http.StatusOK)
	}
	return w.Body.String()
}

func TestRecorderExposesRunOutcomes(t *testing.T) {
	r := NewRecorder()
	r.RecordRun("success", 1.5)
	r.RecordRun("success", 0.3)
	r.RecordRun("error", 0.1)

	body := scrape(t, r)
	if !strings.Contains(body, `cvreport_runs_total{outcome="success"} 2`) {
		t.Errorf("missing success run count in output:\n%s", body)
	}
	if !strings.Contains(body, `cvreport_runs_total{outcome="error"} 1`) {
		t.Errorf("missing error run count in output:\n%s", body)
	}
	if !strings.Contains(body, "cvreport_run_duration_seconds_count 3") {
		t.Errorf("missing run duration observations in output:\n%s", body)
	}
}

func TestRecorderExposesStageVolumes(t *testing.T) {
	r := NewRecorder()
	r.RecordStages(120, 47, 310, 85, 12)

	body := scrape(t, r)
	checks := []string{
		`cvreport_inventory_records{stage="raw"} 120`,
		`cvreport_inventory_records{stage="cleansed"} 47`,
		"cvreport_scan_findings 310",
		"cvreport_matched_pairs 85",
		"cvreport_report_rows 12",
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in output:\n%s", want, body)
		}
	}
}

func TestRecorderExposesLastRunTimestamp(t *testing.T) {
	r := NewRecorder()
	r.SetLastRunTimestamp(1700000000)

	body := scrape(t, r)
	if !strings.Contains(body, "cvreport_last_run_timestamp 1.7e+09") {
		t.Errorf("missing last run timestamp in output:\n%s", body)
	}
}

func TestRecorderHandlerOnlyServesOwnMetrics(t *testing.T) {
	r := NewRecorder()
	body := scrape(t, r)
	if strings.Contains(body, "go_goroutines") {
		t.Errorf("handler exposes default runtime metrics, want private registry only")
	}
}
