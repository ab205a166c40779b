package mlflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/internal/metrics"
	"github.com/BaSui01/trackflow/providers"
	"github.com/BaSui01/trackflow/track"
	"github.com/BaSui01/trackflow/types"
)

// MLflowProvider 实现 MLflow Tracking Server 的 track.Client。
// MLflow 与 W&B 有显著差异:
// 1. 运行隶属于 experiment,打开前需先解析或创建 experiment
// 2. 没有 resume=allow 语义——恢复需先 runs/get 查询,
//    运行不存在时退回新建,使对外行为与 W&B 一致
// 3. 指标通过 runs/log-batch 批量上报
type MLflowProvider struct {
	cfg       providers.MLflowConfig
	client    *http.Client
	logger    *zap.Logger
	collector *metrics.Collector
}

// Option 配置 MLflowProvider 的可选协作对象。
type Option func(*MLflowProvider)

// WithCollector 注入指标收集器。
func WithCollector(c *metrics.Collector) Option {
	return func(p *MLflowProvider) { p.collector = c }
}

// NewMLflowProvider 创建 MLflow Provider。
func NewMLflowProvider(cfg providers.MLflowConfig, logger *zap.Logger, opts ...Option) *MLflowProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	if cfg.TrackingURI == "" {
		cfg.TrackingURI = "http://localhost:5000"
	}

	p := &MLflowProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(zap.String("provider", "mlflow")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *MLflowProvider) Name() string { return "mlflow" }

// MLflow REST API 的请求/响应结构
type mlflowExperiment struct {
	ExperimentID string `json:"experiment_id"`
	Name         string `json:"name"`
}

type mlflowTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type mlflowRunInfo struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id"`
	Status       string `json:"status"`
	ArtifactURI  string `json:"artifact_uri,omitempty"`
}

type mlflowRun struct {
	Info mlflowRunInfo `json:"info"`
}

type mlflowMetric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

type mlflowErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// OpenNew 在 project 对应的 experiment 下新建运行。
func (p *MLflowProvider) OpenNew(ctx context.Context, cfg types.RunConfig) (*track.RunHandle, error) {
	experimentID, err := p.ensureExperiment(ctx, cfg.Project)
	if err != nil {
		return nil, err
	}
	return p.createRun(ctx, experimentID, cfg)
}

// OpenExisting 查询既有运行并恢复。运行已被删除或不存在时退回新建,
// 返回服务端实际使用的标识符。
func (p *MLflowProvider) OpenExisting(ctx context.Context, id string, cfg types.RunConfig) (*track.RunHandle, error) {
	run, err := p.getRun(ctx, id)
	if err != nil {
		if types.IsErrorCode(err, types.ErrRunNotFound) {
			p.logger.Info("requested run not found, creating a new one",
				zap.String("requested", id),
			)
			return p.OpenNew(ctx, cfg)
		}
		return nil, err
	}

	// 恢复:将运行状态置回 RUNNING
	if err := p.updateRun(ctx, run.Info.RunID, "RUNNING", 0); err != nil {
		return nil, err
	}

	return &track.RunHandle{
		ID:      run.Info.RunID,
		URL:     p.runURL(run.Info.ExperimentID, run.Info.RunID),
		Session: &mlflowSession{provider: p, runID: run.Info.RunID},
	}, nil
}

// ensureExperiment 解析 experiment 名称,不存在时创建。
func (p *MLflowProvider) ensureExperiment(ctx context.Context, name string) (string, error) {
	var getResp struct {
		Experiment mlflowExperiment `json:"experiment"`
	}
	query := url.Values{"experiment_name": {name}}
	err := p.doJSON(ctx, "get_experiment", http.MethodGet,
		"/api/2.0/mlflow/experiments/get-by-name?"+query.Encode(), nil, &getResp)
	if err == nil {
		return getResp.Experiment.ExperimentID, nil
	}
	if !types.IsErrorCode(err, types.ErrRunNotFound) {
		return "", err
	}

	var createResp struct {
		ExperimentID string `json:"experiment_id"`
	}
	createReq := map[string]string{"name": name}
	if err := p.doJSON(ctx, "create_experiment", http.MethodPost,
		"/api/2.0/mlflow/experiments/create", createReq, &createResp); err != nil {
		return "", err
	}
	return createResp.ExperimentID, nil
}

func (p *MLflowProvider) createRun(ctx context.Context, experimentID string, cfg types.RunConfig) (*track.RunHandle, error) {
	tags := make([]mlflowTag, 0, len(cfg.Tags)+2)
	for _, t := range cfg.Tags {
		tags = append(tags, mlflowTag{Key: "trackflow.tag." + t, Value: "true"})
	}
	if cfg.Group != "" {
		tags = append(tags, mlflowTag{Key: "trackflow.group", Value: cfg.Group})
	}
	if cfg.Notes != "" {
		tags = append(tags, mlflowTag{Key: "mlflow.note.content", Value: cfg.Notes})
	}

	req := map[string]any{
		"experiment_id": experimentID,
		"run_name":      cfg.Name,
		"start_time":    time.Now().UnixMilli(),
		"tags":          tags,
	}

	var resp struct {
		Run mlflowRun `json:"run"`
	}
	if err := p.doJSON(ctx, "create_run", http.MethodPost, "/api/2.0/mlflow/runs/create", req, &resp); err != nil {
		return nil, err
	}

	runID := resp.Run.Info.RunID

	// 超参作为 params 批量记录,失败不阻塞打开
	if len(cfg.Hyperparams) > 0 {
		if err := p.logParams(ctx, runID, cfg.Hyperparams); err != nil {
			p.logger.Warn("failed to log hyperparameters", zap.String("run_id", runID), zap.Error(err))
		}
	}

	return &track.RunHandle{
		ID:      runID,
		URL:     p.runURL(experimentID, runID),
		Session: &mlflowSession{provider: p, runID: runID},
	}, nil
}

func (p *MLflowProvider) getRun(ctx context.Context, id string) (*mlflowRun, error) {
	var resp struct {
		Run mlflowRun `json:"run"`
	}
	query := url.Values{"run_id": {id}}
	err := p.doJSON(ctx, "get_run", http.MethodGet,
		"/api/2.0/mlflow/runs/get?"+query.Encode(), nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Run, nil
}

func (p *MLflowProvider) updateRun(ctx context.Context, id, status string, endTime int64) error {
	req := map[string]any{
		"run_id": id,
		"status": status,
	}
	if endTime > 0 {
		req["end_time"] = endTime
	}
	return p.doJSON(ctx, "update_run", http.MethodPost, "/api/2.0/mlflow/runs/update", req, nil)
}

func (p *MLflowProvider) logParams(ctx context.Context, runID string, params map[string]any) error {
	type mlflowParam struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	body := make([]mlflowParam, 0, len(params))
	for k, v := range params {
		body = append(body, mlflowParam{Key: k, Value: fmt.Sprint(v)})
	}
	req := map[string]any{"run_id": runID, "params": body}
	return p.doJSON(ctx, "log_params", http.MethodPost, "/api/2.0/mlflow/runs/log-batch", req, nil)
}

func (p *MLflowProvider) runURL(experimentID, runID string) string {
	return fmt.Sprintf("%s/#/experiments/%s/runs/%s",
		strings.TrimRight(p.cfg.TrackingURI, "/"), experimentID, runID)
}

// doJSON 发送请求并解码响应。MLflow 的错误体携带 error_code,
// RESOURCE_DOES_NOT_EXIST 映射为 ErrRunNotFound 以便调用方退回新建。
func (p *MLflowProvider) doJSON(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return types.NewError(types.ErrInternalError, fmt.Sprintf("marshal request: %v", err)).WithProvider("mlflow")
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	endpoint := strings.TrimRight(p.cfg.TrackingURI, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return types.NewError(types.ErrInternalError, fmt.Sprintf("build request: %v", err)).WithProvider("mlflow")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}
	if traceID, ok := types.TraceID(ctx); ok {
		httpReq.Header.Set("X-Request-ID", traceID)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.record(operation, "error", start)
		return types.NewError(types.ErrServiceUnavailable, "mlflow request failed").
			WithCause(err).WithProvider("mlflow").WithRetryable(true)
	}
	defer resp.Body.Close()

	p.record(operation, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode != http.StatusOK {
		var errBody mlflowErrorBody
		data := json.NewDecoder(resp.Body)
		if data.Decode(&errBody) == nil && errBody.ErrorCode == "RESOURCE_DOES_NOT_EXIST" {
			return types.NewError(types.ErrRunNotFound, errBody.Message).
				WithHTTPStatus(resp.StatusCode).WithProvider("mlflow")
		}
		msg := errBody.Message
		if msg == "" {
			msg = fmt.Sprintf("mlflow request failed: status=%d", resp.StatusCode)
		}
		p.logger.Warn("mlflow request failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("error_code", errBody.ErrorCode),
		)
		return providers.MapHTTPError(resp.StatusCode, msg, "mlflow")
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return types.NewError(types.ErrUpstreamError, fmt.Sprintf("decode response: %v", err)).
				WithProvider("mlflow").WithRetryable(true)
		}
	}
	return nil
}

func (p *MLflowProvider) record(operation, status string, start time.Time) {
	if p.collector != nil {
		p.collector.RecordProviderRequest("mlflow", operation, status, time.Since(start))
	}
}

// --- mlflowSession ---

type mlflowSession struct {
	provider *MLflowProvider
	runID    string
}

func (s *mlflowSession) LogMetrics(ctx context.Context, step int64, m types.Metrics) error {
	now := time.Now().UnixMilli()
	batch := make([]mlflowMetric, 0, len(m))
	for k, v := range m {
		batch = append(batch, mlflowMetric{Key: k, Value: v, Timestamp: now, Step: step})
	}
	req := map[string]any{"run_id": s.runID, "metrics": batch}
	return s.provider.doJSON(ctx, "log_metrics", http.MethodPost, "/api/2.0/mlflow/runs/log-batch", req, nil)
}

func (s *mlflowSession) Finish(ctx context.Context) error {
	return s.provider.updateRun(ctx, s.runID, "FINISHED", time.Now().UnixMilli())
}

// Ensure MLflowProvider implements track.Client
var _ track.Client = (*MLflowProvider)(nil)
