package rollout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/internal/metrics"
)

// SaverConfig 配置周期性 rollout 保存
type SaverConfig struct {
	// Path 是 rollouts.jsonl 的输出路径
	Path string `json:"path" yaml:"path"`

	// SamplesPerBatch 每个批次的样本数 (batch_size * group_size)
	SamplesPerBatch int `json:"samples_per_batch" yaml:"samples_per_batch"`

	// SaveEvery 每 N 个批次保存一次,默认 10
	SaveEvery int `json:"save_every" yaml:"save_every"`
}

// Saver 按批次缓冲 rollout,每 SaveEvery 个批次挑选 best/worst/random
// 追加写入 JSONL 文件。所有方法并发安全。
type Saver struct {
	cfg       SaverConfig
	logger    *zap.Logger
	collector *metrics.Collector

	mu     sync.Mutex
	buffer []Record
	step   int64
}

// SaverOption 配置 Saver 的可选协作对象
type SaverOption func(*Saver)

// WithCollector 注入指标收集器
func WithCollector(c *metrics.Collector) SaverOption {
	return func(s *Saver) { s.collector = c }
}

// NewSaver 创建 rollout Saver。
func NewSaver(cfg SaverConfig, logger *zap.Logger, opts ...SaverOption) (*Saver, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("rollout saver: path is required")
	}
	if cfg.SamplesPerBatch <= 0 {
		return nil, fmt.Errorf("rollout saver: samples_per_batch must be positive")
	}
	if cfg.SaveEvery <= 0 {
		cfg.SaveEvery = 10
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create rollout directory: %w", err)
	}

	s := &Saver{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "rollout_saver")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Step 返回已完成的批次数
func (s *Saver) Step() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Add 追加一条 rollout 记录。记录的 Step 与 Timestamp 由 Saver 填充。
// 批次写满时推进计数,到达保存周期则把选中的 rollout 落盘。
func (s *Saver) Add(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.Step = s.step
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	s.buffer = append(s.buffer, record)

	if len(s.buffer) < s.cfg.SamplesPerBatch {
		return nil
	}

	s.step++
	batch := s.buffer
	s.buffer = nil

	if s.step%int64(s.cfg.SaveEvery) != 0 {
		return nil
	}

	selected := Select(s.logger, batch)
	if err := s.appendRecords(selected); err != nil {
		return err
	}

	for _, r := range selected {
		if s.collector != nil {
			s.collector.RecordRolloutSaved(string(r.SelectionType))
		}
	}
	s.logger.Info("saved rollouts",
		zap.Int("count", len(selected)),
		zap.Int64("step", s.step),
	)
	return nil
}

func (s *Saver) appendRecords(records []Record) error {
	f, err := os.OpenFile(s.cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open rollout file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("append rollout: %w", err)
		}
	}
	return nil
}
