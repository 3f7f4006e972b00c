// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// カタログ集約、一覧コントローラ、パスワード検証、HTTP層から利用する。
type MetricsCollector interface {
	RecordPageFetched()
	RecordAggregation(duration time.Duration, items int)
	RecordAggregationFailure(reason string)
	RecordFilterFailure()
	RecordStaleResponse()
	RecordVerifyOutcome(success bool)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	pagesFetched    prometheus.Counter
	aggregations    prometheus.Counter
	aggregationFail *prometheus.CounterVec
	aggregationTime prometheus.Histogram
	catalogItems    prometheus.Gauge
	filterFail      prometheus.Counter
	staleResponses  prometheus.Counter
	verifyOutcomes  *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "archive_cms_pages_fetched_total",
			Help: "CMSから取得したページの合計数",
		}),
		aggregations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "archive_aggregation_success_total",
			Help: "カタログ集約成功の合計数",
		}),
		aggregationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_aggregation_fail_total",
			Help: "カタログ集約失敗の合計数",
		}, []string{"reason"}),
		aggregationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "archive_aggregation_duration_seconds",
			Help:    "カタログ集約の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		catalogItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "archive_catalog_items",
			Help: "直近の集約で得られたアイテム数",
		}),
		filterFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "archive_filter_fail_total",
			Help: "タグ絞り込み取得失敗の合計数",
		}),
		staleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "archive_filter_stale_total",
			Help: "破棄された古いタグ絞り込みレスポンスの合計数",
		}),
		verifyOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_verify_total",
			Help: "パスワード検証の結果別件数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.pagesFetched,
		c.aggregations,
		c.aggregationFail,
		c.aggregationTime,
		c.catalogItems,
		c.filterFail,
		c.staleResponses,
		c.verifyOutcomes,
		c.httpStatus,
	)

	return c
}

// RecordPageFetched はCMSページの取得を記録する。
func (c *Collector) RecordPageFetched() {
	c.pagesFetched.Inc()
}

// RecordAggregation は集約の成功と所要時間、アイテム数を記録する。
func (c *Collector) RecordAggregation(duration time.Duration, items int) {
	c.aggregations.Inc()
	c.aggregationTime.Observe(duration.Seconds())
	c.catalogItems.Set(float64(items))
}

// RecordAggregationFailure は集約失敗を記録する。
func (c *Collector) RecordAggregationFailure(reason string) {
	c.aggregationFail.WithLabelValues(reason).Inc()
}

// RecordFilterFailure はタグ絞り込み取得の失敗を記録する。
func (c *Collector) RecordFilterFailure() {
	c.filterFail.Inc()
}

// RecordStaleResponse は破棄した古いレスポンスを記録する。
func (c *Collector) RecordStaleResponse() {
	c.staleResponses.Inc()
}

// RecordVerifyOutcome はパスワード検証の結果を記録する。
func (c *Collector) RecordVerifyOutcome(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.verifyOutcomes.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないMetricsCollector。
// メトリクスを公開しないサブコマンド（worker, set-password）で使用する。
type NopCollector struct{}

func (NopCollector) RecordPageFetched() {}
func (NopCollector) RecordAggregation(time.Duration, int) {}
func (NopCollector) RecordAggregationFailure(string) {}
func (NopCollector) RecordFilterFailure() {}
func (NopCollector) RecordStaleResponse() {}
func (NopCollector) RecordVerifyOutcome(bool) {}
func (NopCollector) RecordHTTPStatus(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
