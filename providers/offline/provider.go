package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/providers"
	"github.com/BaSui01/trackflow/sinks"
	"github.com/BaSui01/trackflow/track"
	"github.com/BaSui01/trackflow/types"
)

// runFileName 运行元数据文件名
const runFileName = "run.json"

// metricsFileName 指标文件名
const metricsFileName = "metrics.jsonl"

// OfflineProvider 实现无网络依赖的 track.Client。
// 每个运行是根目录下的一个子目录,元数据写入 run.json,
// 指标追加到 metrics.jsonl。恢复语义与在线服务一致:
// 请求的运行目录存在则续写,不存在则分配新标识符。
type OfflineProvider struct {
	cfg    providers.OfflineConfig
	logger *zap.Logger
}

// NewOfflineProvider 创建离线 Provider。
func NewOfflineProvider(cfg providers.OfflineConfig, logger *zap.Logger) *OfflineProvider {
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(".", "trackflow-runs")
	}
	return &OfflineProvider{
		cfg:    cfg,
		logger: logger.With(zap.String("provider", "offline")),
	}
}

func (p *OfflineProvider) Name() string { return "offline" }

// runRecord 是 run.json 的内容
type runRecord struct {
	ID        string          `json:"id"`
	Config    types.RunConfig `json:"config"`
	CreatedAt time.Time       `json:"created_at"`
	ResumedAt []time.Time     `json:"resumed_at,omitempty"`
}

// OpenNew 分配新标识符并创建运行目录。
func (p *OfflineProvider) OpenNew(ctx context.Context, cfg types.RunConfig) (*track.RunHandle, error) {
	id := uuid.NewString()
	return p.open(id, cfg, false)
}

// OpenExisting 恢复既有运行目录;目录不存在时新建并替换标识符。
func (p *OfflineProvider) OpenExisting(ctx context.Context, id string, cfg types.RunConfig) (*track.RunHandle, error) {
	runDir := filepath.Join(p.cfg.Dir, id)
	info, err := os.Stat(runDir)
	if err != nil || !info.IsDir() {
		fresh := uuid.NewString()
		p.logger.Info("requested run directory not found, creating a new run",
			zap.String("requested", id),
			zap.String("assigned", fresh),
		)
		return p.open(fresh, cfg, false)
	}
	return p.open(id, cfg, true)
}

func (p *OfflineProvider) open(id string, cfg types.RunConfig, resume bool) (*track.RunHandle, error) {
	runDir := filepath.Join(p.cfg.Dir, id)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, types.NewError(types.ErrTrackingUnavailable, "create run directory").
			WithCause(err).WithProvider("offline")
	}

	record := runRecord{ID: id, Config: cfg, CreatedAt: time.Now().UTC()}
	if resume {
		if prev, err := readRunRecord(runDir); err == nil {
			record = *prev
			record.ResumedAt = append(record.ResumedAt, time.Now().UTC())
		}
	}
	if err := writeRunRecord(runDir, &record); err != nil {
		return nil, types.NewError(types.ErrTrackingUnavailable, "write run metadata").
			WithCause(err).WithProvider("offline")
	}

	sink, err := sinks.NewJSONLSink(filepath.Join(runDir, metricsFileName))
	if err != nil {
		return nil, types.NewError(types.ErrTrackingUnavailable, "open metrics file").
			WithCause(err).WithProvider("offline")
	}

	return &track.RunHandle{
		ID:      id,
		URL:     "file://" + runDir,
		Session: &offlineSession{sink: sink},
	}, nil
}

func readRunRecord(runDir string) (*runRecord, error) {
	data, err := os.ReadFile(filepath.Join(runDir, runFileName))
	if err != nil {
		return nil, err
	}
	var record runRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse run metadata: %w", err)
	}
	return &record, nil
}

func writeRunRecord(runDir string, record *runRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(runDir, runFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(runDir, runFileName))
}

// --- offlineSession ---

type offlineSession struct {
	sink *sinks.JSONLSink
}

func (s *offlineSession) LogMetrics(ctx context.Context, step int64, m types.Metrics) error {
	return s.sink.Log(ctx, step, m)
}

func (s *offlineSession) Finish(ctx context.Context) error {
	return s.sink.Close()
}

// Ensure OfflineProvider implements track.Client
var _ track.Client = (*OfflineProvider)(nil)
