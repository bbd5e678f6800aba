// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "musicomply"

// 認証イベントの種別と結果。
const (
	AuthEventRegister = "register"
	AuthEventLogin    = "login"
	AuthEventLogout   = "logout"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// フィード取得の結果。
const (
	FetchOutcomeSuccess    = "success"
	FetchOutcomeFetchError = "fetch_error"
	FetchOutcomeParseError = "parse_error"
)

// Collector はPrometheusメトリクスを収集する実装。
// ハンドラ、ミドルウェア、バックグラウンドワーカーから共有される。
type Collector struct {
	authEvents      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	sessionsSwept   prometheus.Counter
	feedFetches     *prometheus.CounterVec
	feedLatency     prometheus.Histogram
	resourcesSynced *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "認証イベント（登録・ログイン・ログアウト）の結果別件数",
		}, []string{"event", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "ルート・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTPリクエストの処理時間（秒）",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "定期掃除で削除された期限切れセッション数",
		}),
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_feed_fetch_total",
			Help:      "リソースフィード取得の結果別件数",
		}, []string{"outcome"}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resource_feed_fetch_latency_seconds",
			Help:      "リソースフィード取得のレイテンシ（秒）",
			Buckets:   prometheus.DefBuckets,
		}),
		resourcesSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_synced_total",
			Help:      "フィード取り込みで作成・更新されたリソース数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.authEvents,
		c.httpRequests,
		c.httpDuration,
		c.sessionsSwept,
		c.feedFetches,
		c.feedLatency,
		c.resourcesSynced,
	)

	return c
}

// RecordAuthEvent は認証イベントの結果を記録する。
func (c *Collector) RecordAuthEvent(event, outcome string) {
	c.authEvents.WithLabelValues(event, outcome).Inc()
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeはパスそのものではなくルーティングパターンを渡す。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSessionsSwept は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// RecordFeedFetch はフィード取得の結果とレイテンシを記録する。
func (c *Collector) RecordFeedFetch(outcome string, duration time.Duration) {
	c.feedFetches.WithLabelValues(outcome).Inc()
	c.feedLatency.Observe(duration.Seconds())
}

// RecordResourcesSynced はフィード取り込みで作成・更新したリソース数を記録する。
func (c *Collector) RecordResourcesSynced(created, updated int) {
	c.resourcesSynced.WithLabelValues("created").Add(float64(created))
	c.resourcesSynced.WithLabelValues("updated").Add(float64(updated))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
