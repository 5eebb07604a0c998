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
// ジョブサービス・ワーカー・ミドルウェアから利用する。
type MetricsCollector interface {
	RecordJobDispatched(kind string)
	RecordJobCompleted(kind string)
	RecordJobFailed(kind string)
	RecordJobReaped(kind string)
	RecordEngineLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	jobsDispatched *prometheus.CounterVec
	jobsCompleted  *prometheus.CounterVec
	jobsFailed     *prometheus.CounterVec
	jobsReaped     *prometheus.CounterVec
	engineLatency  prometheus.Histogram
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nester_jobs_dispatched_total",
			Help: "エンジンへディスパッチしたジョブの合計数（種別ごと）",
		}, []string{"kind"}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nester_jobs_completed_total",
			Help: "完了コールバックで終端化したジョブの合計数（種別ごと）",
		}, []string{"kind"}),
		jobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nester_jobs_failed_total",
			Help: "失敗コールバックで終端化したジョブの合計数（種別ごと）",
		}, []string{"kind"}),
		jobsReaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nester_jobs_reaped_total",
			Help: "コールバック未達によりリーパーがerrorへ強制遷移させたジョブ数",
		}, []string{"kind"}),
		engineLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nester_engine_dispatch_latency_seconds",
			Help:    "ワークフローエンジンのディスパッチ呼び出しレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nester_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.jobsDispatched,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobsReaped,
		c.engineLatency,
		c.httpStatus,
	)

	return c
}

// RecordJobDispatched はジョブのディスパッチを記録する。
func (c *Collector) RecordJobDispatched(kind string) {
	c.jobsDispatched.WithLabelValues(kind).Inc()
}

// RecordJobCompleted はジョブの正常完了を記録する。
func (c *Collector) RecordJobCompleted(kind string) {
	c.jobsCompleted.WithLabelValues(kind).Inc()
}

// RecordJobFailed はジョブの失敗を記録する。
func (c *Collector) RecordJobFailed(kind string) {
	c.jobsFailed.WithLabelValues(kind).Inc()
}

// RecordJobReaped はリーパーによる強制終端化を記録する。
func (c *Collector) RecordJobReaped(kind string) {
	c.jobsReaped.WithLabelValues(kind).Inc()
}

// RecordEngineLatency はエンジン呼び出しのレイテンシを記録する。
func (c *Collector) RecordEngineLatency(duration time.Duration) {
	c.engineLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

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
