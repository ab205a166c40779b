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
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.bindsTotal)
	assert.NotNil(t, collector.bindDuration)
	assert.NotNil(t, collector.persistFailures)
	assert.NotNil(t, collector.providerRequestsTotal)
	assert.NotNil(t, collector.metricPointsTotal)
}

func TestCollector_RecordBind(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordBind("mlflow", "created-new", 120*time.Millisecond)
	collector.RecordBind("mlflow", "resumed", 80*time.Millisecond)

	count := testutil.CollectAndCount(collector.bindsTotal)
	assert.Greater(t, count, 0)
}

func TestCollector_RecordPersistFailure(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordPersistFailure("wandb")
	collector.RecordPersistFailure("wandb")

	value := testutil.ToFloat64(collector.persistFailures.WithLabelValues("wandb"))
	assert.Equal(t, 2.0, value)
}

func TestCollector_RecordMetricPoints(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordMetricPoints("jsonl", 5)
	collector.RecordMetricPoints("jsonl", 3)

	value := testutil.ToFloat64(collector.metricPointsTotal.WithLabelValues("jsonl"))
	assert.Equal(t, 8.0, value)
}

func TestCollector_RecordRolloutSaved(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordRolloutSaved("best")
	collector.RecordRolloutSaved("worst")

	count := testutil.CollectAndCount(collector.rolloutsSaved)
	assert.Greater(t, count, 0)
}
