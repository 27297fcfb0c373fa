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
// ミドルウェア、サービス層、インポーターから利用する。
type MetricsCollector interface {
	RecordFavoriteAdded(kind string)
	RecordFavoriteRemoved(kind string)
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
	RecordImportedRecords(kind string, count int)
	RecordImportFailure(kind string, reason string)
	RecordImportLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	favoritesAdded   *prometheus.CounterVec
	favoritesRemoved *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	importedRecords  *prometheus.CounterVec
	importFail       *prometheus.CounterVec
	importLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		favoritesAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "starfav_favorites_added_total",
			Help: "対象種別ごとのお気に入り追加数",
		}, []string{"kind"}),
		favoritesRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "starfav_favorites_removed_total",
			Help: "対象種別ごとのお気に入り削除数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "starfav_http_requests_total",
			Help: "HTTPメソッド・ステータスコード別のレスポンス数",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "starfav_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		importedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "starfav_import_records_total",
			Help: "インポートで保存された参照データの件数",
		}, []string{"kind"}),
		importFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "starfav_import_fail_total",
			Help: "インポート失敗の合計数",
		}, []string{"kind", "reason"}),
		importLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "starfav_import_latency_seconds",
			Help:    "インポート1回あたりの所要時間（秒）",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
	}

	reg.MustRegister(
		c.favoritesAdded,
		c.favoritesRemoved,
		c.httpStatus,
		c.httpLatency,
		c.importedRecords,
		c.importFail,
		c.importLatency,
	)

	return c
}

// RecordFavoriteAdded はお気に入り追加を記録する。
func (c *Collector) RecordFavoriteAdded(kind string) {
	c.favoritesAdded.WithLabelValues(kind).Inc()
}

// RecordFavoriteRemoved はお気に入り削除を記録する。
func (c *Collector) RecordFavoriteRemoved(kind string) {
	c.favoritesRemoved.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest はHTTPレスポンスのステータスコードと処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpStatus.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordImportedRecords はインポートで保存した件数を記録する。
func (c *Collector) RecordImportedRecords(kind string, count int) {
	c.importedRecords.WithLabelValues(kind).Add(float64(count))
}

// RecordImportFailure はインポート失敗を記録する。
func (c *Collector) RecordImportFailure(kind string, reason string) {
	c.importFail.WithLabelValues(kind, reason).Inc()
}

// RecordImportLatency はインポート1回の所要時間を記録する。
func (c *Collector) RecordImportLatency(duration time.Duration) {
	c.importLatency.Observe(duration.Seconds())
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// worker単体起動時など、メインのルーターを持たないプロセスで使う。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
