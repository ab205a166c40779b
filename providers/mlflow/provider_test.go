package mlflow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/providers"
	"github.com/BaSui01/trackflow/providers/mlflow"
	"github.com/BaSui01/trackflow/types"
)

// fakeMLflow 模拟 MLflow Tracking Server 的一小部分 REST API
type fakeMLflow struct {
	mu          sync.Mutex
	experiments map[string]string // name -> id
	runs        map[string]string // run_id -> status
	batches     []map[string]any
	nextExpID   int
	nextRunID   int
}

func newFakeMLflow() *fakeMLflow {
	return &fakeMLflow{
		experiments: map[string]string{},
		runs:        map[string]string{},
		nextExpID:   1,
		nextRunID:   1,
	}
}

func (f *fakeMLflow) notFound(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"error_code": "RESOURCE_DOES_NOT_EXIST",
		"message":    msg,
	})
}

func (f *fakeMLflow) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/2.0/mlflow/experiments/get-by-name", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := r.URL.Query().Get("experiment_name")
		id, ok := f.experiments[name]
		if !ok {
			f.notFound(w, "experiment not found")
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"experiment": map[string]string{"experiment_id": id, "name": name},
		})
	})

	mux.HandleFunc("POST /api/2.0/mlflow/experiments/create", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		id := "exp-" + strconv.Itoa(f.nextExpID)
		f.nextExpID++
		f.experiments[body["name"]] = id
		json.NewEncoder(w).Encode(map[string]string{"experiment_id": id})
	})

	mux.HandleFunc("POST /api/2.0/mlflow/runs/create", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		id := "run-" + strconv.Itoa(f.nextRunID)
		f.nextRunID++
		f.runs[id] = "RUNNING"
		json.NewEncoder(w).Encode(map[string]any{
			"run": map[string]any{
				"info": map[string]any{
					"run_id":        id,
					"experiment_id": body["experiment_id"],
					"status":        "RUNNING",
				},
			},
		})
	})

	mux.HandleFunc("GET /api/2.0/mlflow/runs/get", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.URL.Query().Get("run_id")
		status, ok := f.runs[id]
		if !ok {
			f.notFound(w, "run not found")
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"run": map[string]any{
				"info": map[string]any{
					"run_id":        id,
					"experiment_id": "exp-1",
					"status":        status,
				},
			},
		})
	})

	mux.HandleFunc("POST /api/2.0/mlflow/runs/update", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		id, _ := body["run_id"].(string)
		status, _ := body["status"].(string)
		if _, ok := f.runs[id]; !ok {
			f.notFound(w, "run not found")
			return
		}
		f.runs[id] = status
		json.NewEncoder(w).Encode(map[string]any{})
	})

	mux.HandleFunc("POST /api/2.0/mlflow/runs/log-batch", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.batches = append(f.batches, body)
		json.NewEncoder(w).Encode(map[string]any{})
	})

	return mux
}

func newTestProvider(t *testing.T, fake *fakeMLflow) *mlflow.MLflowProvider {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	return mlflow.NewMLflowProvider(providers.MLflowConfig{
		TrackingURI: server.URL,
	}, zap.NewNop())
}

func TestMLflowProvider_OpenNewCreatesExperimentAndRun(t *testing.T) {
	fake := newFakeMLflow()
	provider := newTestProvider(t, fake)

	handle, err := provider.OpenNew(context.Background(), types.RunConfig{Project: "demo"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", handle.ID)
	assert.Contains(t, handle.URL, "exp-1")

	// experiment 按名称创建且可复用
	assert.Equal(t, "exp-1", fake.experiments["demo"])

	handle2, err := provider.OpenNew(context.Background(), types.RunConfig{Project: "demo"})
	require.NoError(t, err)
	assert.Equal(t, "run-2", handle2.ID)
	assert.Len(t, fake.experiments, 1)
}

func TestMLflowProvider_OpenExistingResumesRun(t *testing.T) {
	fake := newFakeMLflow()
	fake.runs["run-7"] = "FINISHED"
	provider := newTestProvider(t, fake)

	handle, err := provider.OpenExisting(context.Background(), "run-7", types.RunConfig{Project: "demo"})
	require.NoError(t, err)
	assert.Equal(t, "run-7", handle.ID)

	// 恢复时状态被置回 RUNNING
	assert.Equal(t, "RUNNING", fake.runs["run-7"])
}

func TestMLflowProvider_OpenExistingMissingRunCreatesNew(t *testing.T) {
	fake := newFakeMLflow()
	provider := newTestProvider(t, fake)

	handle, err := provider.OpenExisting(context.Background(), "run-deleted", types.RunConfig{Project: "demo"})
	require.NoError(t, err)
	assert.NotEqual(t, "run-deleted", handle.ID)
	assert.Equal(t, "run-1", handle.ID)
}

func TestMLflowProvider_SessionLogsBatch(t *testing.T) {
	fake := newFakeMLflow()
	provider := newTestProvider(t, fake)

	handle, err := provider.OpenNew(context.Background(), types.RunConfig{Project: "demo"})
	require.NoError(t, err)

	err = handle.Session.LogMetrics(context.Background(), 3, types.Metrics{"loss": 1.25})
	require.NoError(t, err)

	require.Len(t, fake.batches, 1)
	batchMetrics := fake.batches[0]["metrics"].([]any)
	require.Len(t, batchMetrics, 1)
	point := batchMetrics[0].(map[string]any)
	assert.Equal(t, "loss", point["key"])
	assert.Equal(t, 1.25, point["value"])
	assert.Equal(t, float64(3), point["step"])
}

func TestMLflowProvider_FinishMarksRunFinished(t *testing.T) {
	fake := newFakeMLflow()
	provider := newTestProvider(t, fake)

	handle, err := provider.OpenNew(context.Background(), types.RunConfig{Project: "demo"})
	require.NoError(t, err)

	require.NoError(t, handle.Session.Finish(context.Background()))
	assert.Equal(t, "FINISHED", fake.runs[handle.ID])
}

func TestMLflowProvider_ServerDownIsServiceUnavailable(t *testing.T) {
	provider := mlflow.NewMLflowProvider(providers.MLflowConfig{
		TrackingURI: "http://127.0.0.1:1", // 无服务监听
	}, zap.NewNop())

	_, err := provider.OpenNew(context.Background(), types.RunConfig{Project: "demo"})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrServiceUnavailable))
	assert.True(t, types.IsRetryable(err))
}
