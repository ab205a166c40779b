package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	return mux
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	return cfg
}

func TestManager_StartAndServe(t *testing.T) {
	m := NewManager(testHandler(), testConfig(), zap.NewNop())
	require.NoError(t, m.Start())
	defer m.Shutdown(context.Background())

	assert.True(t, m.IsRunning())
	assert.NotContains(t, m.Addr(), ":0")

	resp, err := http.Get("http://" + m.Addr() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestManager_DoubleStartFails(t *testing.T) {
	m := NewManager(testHandler(), testConfig(), zap.NewNop())
	require.NoError(t, m.Start())
	defer m.Shutdown(context.Background())

	require.Error(t, m.Start())
}

func TestManager_ShutdownStopsServer(t *testing.T) {
	m := NewManager(testHandler(), testConfig(), zap.NewNop())
	require.NoError(t, m.Start())
	addr := m.Addr()

	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())

	client := &http.Client{Timeout: 500 * time.Millisecond}
	_, err := client.Get("http://" + addr + "/healthz")
	assert.Error(t, err)

	// 重复关闭无副作用
	require.NoError(t, m.Shutdown(context.Background()))

	// 关闭后无法重新启动
	require.Error(t, m.Start())
}

func TestManager_IsRunningBeforeStart(t *testing.T) {
	m := NewManager(testHandler(), testConfig(), zap.NewNop())
	assert.False(t, m.IsRunning())
}
