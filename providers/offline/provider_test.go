package offline_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/providers"
	"github.com/BaSui01/trackflow/providers/offline"
	"github.com/BaSui01/trackflow/types"
)

func newTestProvider(t *testing.T) (*offline.OfflineProvider, string) {
	t.Helper()
	dir := t.TempDir()
	return offline.NewOfflineProvider(providers.OfflineConfig{Dir: dir}, zap.NewNop()), dir
}

func TestOfflineProvider_OpenNewCreatesRunDirectory(t *testing.T) {
	provider, dir := newTestProvider(t)

	handle, err := provider.OpenNew(context.Background(), types.RunConfig{Project: "demo"})
	require.NoError(t, err)
	require.NotEmpty(t, handle.ID)
	assert.True(t, strings.HasPrefix(handle.URL, "file://"))

	data, err := os.ReadFile(filepath.Join(dir, handle.ID, "run.json"))
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, handle.ID, record["id"])
}

func TestOfflineProvider_SessionWritesMetricsFile(t *testing.T) {
	provider, dir := newTestProvider(t)

	handle, err := provider.OpenNew(context.Background(), types.RunConfig{Project: "demo"})
	require.NoError(t, err)

	require.NoError(t, handle.Session.LogMetrics(context.Background(), 0, types.Metrics{"loss": 2.5}))
	require.NoError(t, handle.Session.LogMetrics(context.Background(), 1, types.Metrics{"loss": 2.1}))
	require.NoError(t, handle.Session.Finish(context.Background()))

	f, err := os.Open(filepath.Join(dir, handle.ID, "metrics.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 2, lines)
}

func TestOfflineProvider_OpenExistingResumesDirectory(t *testing.T) {
	provider, dir := newTestProvider(t)

	first, err := provider.OpenNew(context.Background(), types.RunConfig{Project: "demo"})
	require.NoError(t, err)
	require.NoError(t, first.Session.LogMetrics(context.Background(), 0, types.Metrics{"loss": 1.0}))
	require.NoError(t, first.Session.Finish(context.Background()))

	resumed, err := provider.OpenExisting(context.Background(), first.ID, types.RunConfig{Project: "demo"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, resumed.ID)

	require.NoError(t, resumed.Session.LogMetrics(context.Background(), 1, types.Metrics{"loss": 0.9}))
	require.NoError(t, resumed.Session.Finish(context.Background()))

	// 指标文件跨恢复追加
	data, err := os.ReadFile(filepath.Join(dir, first.ID, "metrics.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	// run.json 记录恢复时间
	recordData, err := os.ReadFile(filepath.Join(dir, first.ID, "run.json"))
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(recordData, &record))
	assert.NotEmpty(t, record["resumed_at"])
}

func TestOfflineProvider_OpenExistingMissingDirAssignsFreshID(t *testing.T) {
	provider, _ := newTestProvider(t)

	handle, err := provider.OpenExisting(context.Background(), "no-such-run", types.RunConfig{Project: "demo"})
	require.NoError(t, err)
	assert.NotEqual(t, "no-such-run", handle.ID)
}

func TestOfflineProvider_Name(t *testing.T) {
	provider, _ := newTestProvider(t)
	assert.Equal(t, "offline", provider.Name())
}
