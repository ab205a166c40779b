// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// Bind 指标
	bindsTotal       *prometheus.CounterVec
	bindDuration     *prometheus.HistogramVec
	persistFailures  *prometheus.CounterVec
	resumeWarnings   prometheus.Counter

	// Provider 指标
	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec

	// Sink 指标
	metricPointsTotal *prometheus.CounterVec
	sinkErrorsTotal   *prometheus.CounterVec

	// Rollout 指标
	rolloutsSaved *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// Bind 指标
	c.bindsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "binds_total",
			Help:      "Total number of run bind attempts",
		},
		[]string{"provider", "outcome"}, // outcome: created-new, resumed, failed
	)

	c.bindDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bind_duration_seconds",
			Help:      "Run bind duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	c.persistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Total number of run id record writes that failed after a successful open",
		},
		[]string{"provider"},
	)

	c.resumeWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resume_warnings_total",
			Help:      "Total number of binds where resumption was expected but no record was found",
		},
	)

	// Provider 指标
	c.providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of tracking service requests",
		},
		[]string{"provider", "operation", "status"},
	)

	c.providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Tracking service request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)

	// Sink 指标
	c.metricPointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_points_total",
			Help:      "Total number of scalar metric points written",
		},
		[]string{"sink"},
	)

	c.sinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Total number of sink write errors",
		},
		[]string{"sink"},
	)

	// Rollout 指标
	c.rolloutsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollouts_saved_total",
			Help:      "Total number of rollout records saved",
		},
		[]string{"selection"}, // selection: best, worst, random, only
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🔗 Bind 指标记录
// =============================================================================

// RecordBind 记录一次绑定
func (c *Collector) RecordBind(provider, outcome string, duration time.Duration) {
	c.bindsTotal.WithLabelValues(provider, outcome).Inc()
	c.bindDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordPersistFailure 记录保存 run id 失败
func (c *Collector) RecordPersistFailure(provider string) {
	c.persistFailures.WithLabelValues(provider).Inc()
}

// RecordResumeWarning 记录缺失记录的恢复告警
func (c *Collector) RecordResumeWarning() {
	c.resumeWarnings.Inc()
}

// =============================================================================
// 🌐 Provider 指标记录
// =============================================================================

// RecordProviderRequest 记录一次服务请求
func (c *Collector) RecordProviderRequest(provider, operation, status string, duration time.Duration) {
	c.providerRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	c.providerRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// =============================================================================
// 📈 Sink 指标记录
// =============================================================================

// RecordMetricPoints 记录写入的指标点数
func (c *Collector) RecordMetricPoints(sink string, count int) {
	c.metricPointsTotal.WithLabelValues(sink).Add(float64(count))
}

// RecordSinkError 记录 sink 写入失败
func (c *Collector) RecordSinkError(sink string) {
	c.sinkErrorsTotal.WithLabelValues(sink).Inc()
}

// =============================================================================
// 🎲 Rollout 指标记录
// =============================================================================

// RecordRolloutSaved 记录保存的 rollout
func (c *Collector) RecordRolloutSaved(selection string) {
	c.rolloutsSaved.WithLabelValues(selection).Inc()
}
