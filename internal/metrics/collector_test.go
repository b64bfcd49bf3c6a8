package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.runsTotal)
	assert.NotNil(t, collector.runDuration)
	assert.NotNil(t, collector.attemptsUsed)
	assert.NotNil(t, collector.reasksTotal)
	assert.NotNil(t, collector.llmCallsTotal)
	assert.NotNil(t, collector.llmTokensUsed)
	assert.NotNil(t, collector.stageDuration)
}

func TestCollector_RecordRun(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordRun("resolved", 2, 500*time.Millisecond)
	collector.RecordRun("unresolved", 4, 2*time.Second)

	count := testutil.CollectAndCount(collector.runsTotal)
	assert.Greater(t, count, 0)

	durCount := testutil.CollectAndCount(collector.runDuration)
	assert.Greater(t, durCount, 0)
}

func TestCollector_RecordReasks(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordReasks("field", 3)
	collector.RecordReasks("non_parseable", 1)
	// count 为 0 时不记录
	collector.RecordReasks("field", 0)

	count := testutil.CollectAndCount(collector.reasksTotal)
	assert.Greater(t, count, 0)
}

func TestCollector_RecordLLMCall(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordLLMCall(true, "success", 100, 50)
	collector.RecordLLMCall(false, "error", 0, 0)

	callCount := testutil.CollectAndCount(collector.llmCallsTotal)
	assert.Greater(t, callCount, 0)

	tokenCount := testutil.CollectAndCount(collector.llmTokensUsed)
	assert.Greater(t, tokenCount, 0)
}

func TestCollector_RecordStage(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordStage("prepare", time.Millisecond)
	collector.RecordStage("call", 300*time.Millisecond)
	collector.RecordStage("validate", 10*time.Millisecond)

	count := testutil.CollectAndCount(collector.stageDuration)
	assert.Greater(t, count, 0)
}

func TestCollector_NilSafe(t *testing.T) {
	var collector *Collector

	// nil 收集器上的记录方法不应 panic
	assert.NotPanics(t, func() {
		collector.RecordRun("resolved", 1, time.Second)
		collector.RecordReasks("field", 2)
		collector.RecordLLMCall(true, "success", 10, 5)
		collector.RecordStage("parse", time.Millisecond)
	})
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			collector.RecordRun("resolved", 1, 100*time.Millisecond)
			collector.RecordLLMCall(true, "success", 100, 50)
			collector.RecordStage("call", 50*time.Millisecond)
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	runCount := testutil.CollectAndCount(collector.runsTotal)
	assert.Greater(t, runCount, 0)

	llmCount := testutil.CollectAndCount(collector.llmCallsTotal)
	assert.Greater(t, llmCount, 0)
}
