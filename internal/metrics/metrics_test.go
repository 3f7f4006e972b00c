package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は収集済みメトリクスから名前で検索する。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordPageFetched_IncrementsCounter はページ取得カウンタが増加することを検証する。
func TestRecordPageFetched_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPageFetched()
	c.RecordPageFetched()
	c.RecordPageFetched()

	mf := findMetricFamily(t, reg, "archive_cms_pages_fetched_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 3 {
		t.Errorf("pages_fetched_total = %v, want 3", val)
	}
}

// TestRecordAggregation_ObservesHistogramAndGauge は集約の所要時間とアイテム数が記録されることを検証する。
func TestRecordAggregation_ObservesHistogramAndGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAggregation(100*time.Millisecond, 200)
	c.RecordAggregation(2*time.Second, 237)

	h := findMetricFamily(t, reg, "archive_aggregation_duration_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}

	g := findMetricFamily(t, reg, "archive_catalog_items").GetMetric()[0].GetGauge()
	if g.GetValue() != 237 {
		t.Errorf("catalog_items = %v, want 237", g.GetValue())
	}

	ok := findMetricFamily(t, reg, "archive_aggregation_success_total").GetMetric()[0].GetCounter()
	if ok.GetValue() != 2 {
		t.Errorf("aggregation_success_total = %v, want 2", ok.GetValue())
	}
}

// TestRecordAggregationFailure_LabelsReason は失敗理由ごとにカウントされることを検証する。
func TestRecordAggregationFailure_LabelsReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAggregationFailure("page")
	c.RecordAggregationFailure("page")
	c.RecordAggregationFailure("master_ref")

	mf := findMetricFamily(t, reg, "archive_aggregation_fail_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	if got["page"] != 2 || got["master_ref"] != 1 {
		t.Errorf("aggregation_fail_total = %v, want page=2 master_ref=1", got)
	}
}

// TestRecordFilterFailureAndStale はタグ絞り込みの失敗と破棄が記録されることを検証する。
func TestRecordFilterFailureAndStale(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFilterFailure()
	c.RecordStaleResponse()
	c.RecordStaleResponse()

	if val := findMetricFamily(t, reg, "archive_filter_fail_total").GetMetric()[0].GetCounter().GetValue(); val != 1 {
		t.Errorf("filter_fail_total = %v, want 1", val)
	}
	if val := findMetricFamily(t, reg, "archive_filter_stale_total").GetMetric()[0].GetCounter().GetValue(); val != 2 {
		t.Errorf("filter_stale_total = %v, want 2", val)
	}
}

// TestRecordVerifyOutcome_LabelsResult は検証結果がラベル別に記録されることを検証する。
func TestRecordVerifyOutcome_LabelsResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordVerifyOutcome(true)
	c.RecordVerifyOutcome(false)
	c.RecordVerifyOutcome(false)

	mf := findMetricFamily(t, reg, "archive_verify_total")
	for _, m := range mf.GetMetric() {
		label := m.GetLabel()[0].GetValue()
		val := m.GetCounter().GetValue()
		switch label {
		case "success":
			if val != 1 {
				t.Errorf("verify_total{result=success} = %v, want 1", val)
			}
		case "failure":
			if val != 2 {
				t.Errorf("verify_total{result=failure} = %v, want 2", val)
			}
		default:
			t.Errorf("unexpected label value: %s", label)
		}
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスコード別にカウントされることを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	mf := findMetricFamily(t, reg, "archive_http_status_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		label := m.GetLabel()[0].GetValue()
		val := m.GetCounter().GetValue()
		switch label {
		case "200":
			if val != 2 {
				t.Errorf("http_status_total{status_code=200} = %v, want 2", val)
			}
		case "404":
			if val != 1 {
				t.Errorf("http_status_total{status_code=404} = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected label value: %s", label)
		}
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPageFetched()
	c.RecordAggregation(500*time.Millisecond, 10)
	c.RecordHTTPStatus(200)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body, _ := io.ReadAll(w.Body)
	for _, name := range []string{
		"archive_cms_pages_fetched_total",
		"archive_aggregation_duration_seconds",
		"archive_http_status_total",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("response should contain %s", name)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はインターフェース準拠を検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	var _ MetricsCollector = (*Collector)(nil)
	var _ MetricsCollector = NopCollector{}
}

// TestMultipleCollectors_IndependentRegistries は別レジストリのCollectorが独立していることを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	_ = NewCollector(reg2)

	c1.RecordPageFetched()

	mf := findMetricFamily(t, reg2, "archive_cms_pages_fetched_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 0 {
		t.Errorf("reg2 pages_fetched_total = %v, want 0", val)
	}
}
