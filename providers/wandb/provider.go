package wandb

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/internal/metrics"
	"github.com/BaSui01/trackflow/providers"
	"github.com/BaSui01/trackflow/track"
	"github.com/BaSui01/trackflow/types"
)

// WandBProvider 实现 Weights & Biases 的 track.Client。
// 关键语义:恢复请求以 resume=allow 提交——服务端若找不到请求的
// 运行会直接新建一个,返回的标识符以服务端响应为准,调用方不得
// 假设请求的标识符就是最终标识符。
type WandBProvider struct {
	cfg       providers.WandBConfig
	client    *http.Client
	logger    *zap.Logger
	collector *metrics.Collector
}

// Option 配置 WandBProvider 的可选协作对象。
type Option func(*WandBProvider)

// WithCollector 注入指标收集器。
func WithCollector(c *metrics.Collector) Option {
	return func(p *WandBProvider) { p.collector = c }
}

// NewWandBProvider 创建 W&B Provider。
func NewWandBProvider(cfg providers.WandBConfig, logger *zap.Logger, opts ...Option) *WandBProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	// 设置默认 BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.wandb.ai"
	}

	p := &WandBProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(zap.String("provider", "wandb")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *WandBProvider) Name() string { return "wandb" }

// W&B 的运行请求结构
type wandbRunRequest struct {
	Project string             `json:"project"`
	Entity  string             `json:"entity,omitempty"`
	Name    string             `json:"name,omitempty"`
	Group   string             `json:"group,omitempty"`
	Tags    []string           `json:"tags,omitempty"`
	Notes   string             `json:"notes,omitempty"`
	Config  map[string]any     `json:"config,omitempty"`
	RunID   string             `json:"run_id,omitempty"`
	Resume  string             `json:"resume,omitempty"` // "allow" 表示恢复意图
}

type wandbRunResponse struct {
	ID      string `json:"id"`
	Name    string `json:"display_name"`
	URL     string `json:"url"`
	Resumed bool   `json:"resumed"`
}

type wandbHistoryRequest struct {
	Step      int64              `json:"_step"`
	Timestamp int64              `json:"_timestamp"`
	Metrics   map[string]float64 `json:"metrics"`
}

// OpenNew 新建运行,标识符由服务端分配。
func (p *WandBProvider) OpenNew(ctx context.Context, cfg types.RunConfig) (*track.RunHandle, error) {
	return p.openRun(ctx, "", cfg)
}

// OpenExisting 以恢复意图打开运行。服务端可能恢复既有运行,也可能
// 在运行不存在时新建并返回不同的标识符。
func (p *WandBProvider) OpenExisting(ctx context.Context, id string, cfg types.RunConfig) (*track.RunHandle, error) {
	return p.openRun(ctx, id, cfg)
}

func (p *WandBProvider) openRun(ctx context.Context, resumeID string, cfg types.RunConfig) (*track.RunHandle, error) {
	operation := "open_new"
	req := wandbRunRequest{
		Project: cfg.Project,
		Entity:  cfg.Entity,
		Name:    cfg.Name,
		Group:   cfg.Group,
		Tags:    cfg.Tags,
		Notes:   cfg.Notes,
		Config:  cfg.Hyperparams,
	}
	if req.Entity == "" {
		req.Entity = p.cfg.Entity
	}
	if resumeID != "" {
		operation = "open_existing"
		req.RunID = resumeID
		req.Resume = "allow"
	}

	var runResp wandbRunResponse
	if err := p.doJSON(ctx, operation, http.MethodPost, "/api/v1/runs", req, &runResp); err != nil {
		return nil, err
	}

	if resumeID != "" && runResp.ID != resumeID {
		p.logger.Info("service substituted run identifier",
			zap.String("requested", resumeID),
			zap.String("assigned", runResp.ID),
		)
	}

	return &track.RunHandle{
		ID:      runResp.ID,
		URL:     runResp.URL,
		Session: &wandbSession{provider: p, runID: runResp.ID},
	}, nil
}

// doJSON 发送 JSON 请求并解码响应,失败时返回映射后的 types.Error。
func (p *WandBProvider) doJSON(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()

	payload, err := json.Marshal(body)
	if err != nil {
		return types.NewError(types.ErrInternalError, fmt.Sprintf("marshal request: %v", err)).WithProvider("wandb")
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return types.NewError(types.ErrInternalError, fmt.Sprintf("build request: %v", err)).WithProvider("wandb")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+basicAuth("api", p.cfg.APIKey))
	if traceID, ok := types.TraceID(ctx); ok {
		httpReq.Header.Set("X-Request-ID", traceID)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.record(operation, "error", start)
		return types.NewError(types.ErrServiceUnavailable, "wandb request failed").
			WithCause(err).WithProvider("wandb").WithRetryable(true)
	}
	defer resp.Body.Close()

	p.record(operation, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode != http.StatusOK {
		msg := providers.ReadErrorMessage(resp.Body)
		p.logger.Warn("wandb request failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return providers.MapHTTPError(resp.StatusCode, msg, "wandb")
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return types.NewError(types.ErrUpstreamError, fmt.Sprintf("decode response: %v", err)).
				WithProvider("wandb").WithRetryable(true)
		}
	}
	return nil
}

func (p *WandBProvider) record(operation, status string, start time.Time) {
	if p.collector != nil {
		p.collector.RecordProviderRequest("wandb", operation, status, time.Since(start))
	}
}

func basicAuth(user, key string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + key))
}

// --- wandbSession ---

type wandbSession struct {
	provider *WandBProvider
	runID    string
}

func (s *wandbSession) LogMetrics(ctx context.Context, step int64, m types.Metrics) error {
	req := wandbHistoryRequest{
		Step:      step,
		Timestamp: time.Now().Unix(),
		Metrics:   m,
	}
	path := fmt.Sprintf("/api/v1/runs/%s/history", s.runID)
	return s.provider.doJSON(ctx, "log_metrics", http.MethodPost, path, req, nil)
}

func (s *wandbSession) Finish(ctx context.Context) error {
	path := fmt.Sprintf("/api/v1/runs/%s/finish", s.runID)
	return s.provider.doJSON(ctx, "finish", http.MethodPost, path, struct{}{}, nil)
}

// Ensure WandBProvider implements track.Client
var _ track.Client = (*WandBProvider)(nil)
