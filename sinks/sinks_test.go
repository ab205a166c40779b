package sinks_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/trackflow/sinks"
	"github.com/BaSui01/trackflow/testutil/mocks"
	"github.com/BaSui01/trackflow/types"
)

// ===========================
// 🖥️ ConsoleSink 测试
// ===========================

func TestConsoleSink_LogsOneLinePerStep(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := sinks.NewConsoleSink(zap.New(core))

	err := sink.Log(context.Background(), 7, types.Metrics{
		"loss":     0.25,
		"accuracy": 0.9,
	})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	entries := logs.FilterMessage("metrics").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, int64(7), fields["step"])
	assert.Equal(t, 0.25, fields["loss"])
	assert.Equal(t, 0.9, fields["accuracy"])
	assert.NotContains(t, fields, "run_id")
}

func TestConsoleSink_TagsRunIDFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := sinks.NewConsoleSink(zap.New(core))

	ctx := types.WithRunID(context.Background(), "run-77")
	require.NoError(t, sink.Log(ctx, 1, types.Metrics{"loss": 0.5}))

	entries := logs.FilterMessage("metrics").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-77", entries[0].ContextMap()["run_id"])
}

// ===========================
// 📄 JSONLSink 测试
// ===========================

func TestJSONLSink_AppendsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	sink, err := sinks.NewJSONLSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Log(context.Background(), 0, types.Metrics{"loss": 1.5}))
	require.NoError(t, sink.Log(context.Background(), 1, types.Metrics{"loss": 1.2}))
	require.NoError(t, sink.Close())

	points := readJSONL(t, path)
	require.Len(t, points, 2)

	assert.Equal(t, int64(0), points[0].Step)
	assert.Equal(t, 1.5, points[0].Metrics["loss"])
	assert.False(t, points[0].Timestamp.IsZero())

	assert.Equal(t, int64(1), points[1].Step)
	assert.Equal(t, 1.2, points[1].Metrics["loss"])
}

func TestJSONLSink_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "metrics.jsonl")
	sink, err := sinks.NewJSONLSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Log(context.Background(), 0, types.Metrics{"reward": 3.0}))
	require.NoError(t, sink.Close())

	records := readJSONL(t, path)
	require.Len(t, records, 1)
}

func TestJSONLSink_AppendAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")

	first, err := sinks.NewJSONLSink(path)
	require.NoError(t, err)
	require.NoError(t, first.Log(context.Background(), 0, types.Metrics{"loss": 2.0}))
	require.NoError(t, first.Close())

	second, err := sinks.NewJSONLSink(path)
	require.NoError(t, err)
	require.NoError(t, second.Log(context.Background(), 1, types.Metrics{"loss": 1.8}))
	require.NoError(t, second.Close())

	records := readJSONL(t, path)
	require.Len(t, records, 2)
}

func TestJSONLSink_LogAfterCloseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	sink, err := sinks.NewJSONLSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	err = sink.Log(context.Background(), 0, types.Metrics{"loss": 1.0})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrStoreClosed))

	// 重复关闭无副作用
	require.NoError(t, sink.Close())
}

// ===========================
// 🔗 SessionSink 测试
// ===========================

func TestSessionSink_ForwardsToSession(t *testing.T) {
	tracker := mocks.NewMockTracker()
	handle, err := tracker.OpenNew(context.Background(), types.RunConfig{Project: "demo"})
	require.NoError(t, err)

	sink := sinks.NewSessionSink(handle.Session)
	require.NoError(t, sink.Log(context.Background(), 3, types.Metrics{"loss": 0.5}))
	require.NoError(t, sink.Close())

	logged := tracker.Logged()
	require.Len(t, logged, 1)
	assert.Equal(t, int64(3), logged[0].Step)
	assert.Equal(t, 0.5, logged[0].Metrics["loss"])
	assert.True(t, tracker.Finished())
}

// ===========================
// 📡 MultiSink 测试
// ===========================

type failingSink struct {
	closed bool
}

func (f *failingSink) Name() string { return "failing" }

func (f *failingSink) Log(ctx context.Context, step int64, metrics types.Metrics) error {
	return errors.New("destination unreachable")
}

func (f *failingSink) Close() error {
	f.closed = true
	return nil
}

func TestMultiSink_FansOutToAllSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	jsonlSink, err := sinks.NewJSONLSink(path)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	consoleSink := sinks.NewConsoleSink(zap.New(core))

	multi := sinks.NewMultiSink(zap.NewNop(), []sinks.Sink{consoleSink, jsonlSink})
	require.NoError(t, multi.Log(context.Background(), 5, types.Metrics{"loss": 0.1}))
	require.NoError(t, multi.Close())

	assert.Len(t, logs.FilterMessage("metrics").All(), 1)
	assert.Len(t, readJSONL(t, path), 1)
}

func TestMultiSink_FailureDoesNotStopOtherSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	jsonlSink, err := sinks.NewJSONLSink(path)
	require.NoError(t, err)

	failing := &failingSink{}
	multi := sinks.NewMultiSink(zap.NewNop(), []sinks.Sink{failing, jsonlSink})

	err = multi.Log(context.Background(), 0, types.Metrics{"loss": 0.3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")

	// 失败的 sink 不影响后续 sink 写入
	records := readJSONL(t, path)
	require.Len(t, records, 1)

	require.NoError(t, multi.Close())
	assert.True(t, failing.closed)
}

// --- 辅助 ---

func readJSONL(t *testing.T, path string) []types.MetricPoint {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []types.MetricPoint
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var point types.MetricPoint
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &point))
		out = append(out, point)
	}
	require.NoError(t, scanner.Err())
	return out
}
