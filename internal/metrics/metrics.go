// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ロゴ取得結果のラベル値。
const (
	LogoResultFound    = "found"
	LogoResultNotFound = "not_found"
	LogoResultError    = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ワーカー、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordPostCreated(kind string)
	RecordDecodeFallback(kind string)
	RecordBoycottJoin()
	RecordLogoResolution(result string)
	RecordLogoLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	postsCreated    *prometheus.CounterVec
	decodeFallbacks *prometheus.CounterVec
	boycottJoins    prometheus.Counter
	logoResolutions *prometheus.CounterVec
	logoLatency     prometheus.Histogram
	httpStatus      *prometheus.CounterVec
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethicheck_posts_created_total",
			Help: "種別ごとの投稿作成数",
		}, []string{"kind"}),
		decodeFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethicheck_post_decode_fallback_total",
			Help: "構造化ブロックを復元できずプレーン表示にフォールバックした投稿数",
		}, []string{"kind"}),
		boycottJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethicheck_boycott_joins_total",
			Help: "ボイコット参加の合計数",
		}),
		logoResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethicheck_logo_resolutions_total",
			Help: "結果別の企業ロゴ取得数",
		}, []string{"result"}),
		logoLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ethicheck_logo_fetch_latency_seconds",
			Help:    "企業サイト取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethicheck_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.postsCreated,
		c.decodeFallbacks,
		c.boycottJoins,
		c.logoResolutions,
		c.logoLatency,
		c.httpStatus,
	)

	return c
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated(kind string) {
	c.postsCreated.WithLabelValues(kind).Inc()
}

// RecordDecodeFallback はデコード時のフォールバックを記録する。
func (c *Collector) RecordDecodeFallback(kind string) {
	c.decodeFallbacks.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordBoycottJoin() {
	c.boycottJoins.Inc()
}

// RecordLogoResolution はロゴ取得結果を記録する。resultはLogoResult*のいずれか。
func (c *Collector) RecordLogoResolution(result string) {
	c.logoResolutions.WithLabelValues(result).Inc()
}

func (c *Collector) RecordLogoLatency(duration time.Duration) {
	c.logoLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordPostCreated(string)        {}
func (NopCollector) RecordDecodeFallback(string)     {}
func (NopCollector) RecordBoycottJoin()              {}
func (NopCollector) RecordLogoResolution(string)     {}
func (NopCollector) RecordLogoLatency(time.Duration) {}
func (NopCollector) RecordHTTPStatus(int)            {}
