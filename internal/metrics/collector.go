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

// Collector 编排运行指标收集器
type Collector struct {
	// 运行级指标
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	attemptsUsed *prometheus.HistogramVec

	// 标记指标
	reasksTotal *prometheus.CounterVec

	// LLM 调用指标
	llmCallsTotal *prometheus.CounterVec
	llmTokensUsed *prometheus.CounterVec

	// 流水线阶段指标
	stageDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 运行级指标
	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of orchestration runs",
		},
		[]string{"status"}, // resolved, unresolved, error
	)

	c.runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Orchestration run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)

	c.attemptsUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempts_per_run",
			Help:      "Number of attempts consumed per run",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
		},
		[]string{"status"},
	)

	// 标记指标
	c.reasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasks_total",
			Help:      "Total number of reask markers produced",
		},
		[]string{"kind"}, // field, non_parseable
	)

	// LLM 调用指标
	c.llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Total number of LLM calls",
		},
		[]string{"hinted", "status"},
	)

	c.llmTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"type"}, // prompt, response
	)

	// 流水线阶段指标
	c.stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"}, // prepare, call, parse, validate, introspect
	)

	return c
}

// =============================================================================
// 📝 记录方法
// =============================================================================

// RecordRun 记录一次运行结束
func (c *Collector) RecordRun(status string, attempts int, duration time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	c.attemptsUsed.WithLabelValues(status).Observe(float64(attempts))
}

// RecordReasks 记录一轮产出的标记
func (c *Collector) RecordReasks(kind string, count int) {
	if c == nil || count == 0 {
		return
	}
	c.reasksTotal.WithLabelValues(kind).Add(float64(count))
}

// RecordLLMCall 记录一次模型调用
func (c *Collector) RecordLLMCall(hinted bool, status string, promptTokens, responseTokens int) {
	if c == nil {
		return
	}
	label := "false"
	if hinted {
		label = "true"
	}
	c.llmCallsTotal.WithLabelValues(label, status).Inc()
	if promptTokens > 0 {
		c.llmTokensUsed.WithLabelValues("prompt").Add(float64(promptTokens))
	}
	if responseTokens > 0 {
		c.llmTokensUsed.WithLabelValues("response").Add(float64(responseTokens))
	}
}

// RecordStage 记录流水线阶段耗时
func (c *Collector) RecordStage(stage string, duration time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}
