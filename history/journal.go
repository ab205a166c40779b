package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/trackflow/track"
)

// BindEvent 是一次绑定的落库记录
type BindEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Directory     string    `gorm:"index" json:"directory"`
	Provider      string    `json:"provider"`
	Project       string    `json:"project"`
	RunID         string    `gorm:"index" json:"run_id"`
	Outcome       string    `json:"outcome"`
	RunURL        string    `json:"run_url,omitempty"`
	PersistFailed bool      `json:"persist_failed"`
	CreatedAt     time.Time `json:"created_at"`
}

// Journal 把每次绑定结果写入本地 sqlite,供 CLI 查询绑定历史。
// 写入失败只影响历史查询,不影响绑定本身,调用方按警告处理。
type Journal struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open 打开(或创建)path 处的 journal 数据库并迁移表结构。
func Open(path string, logger *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	if err := db.AutoMigrate(&BindEvent{}); err != nil {
		return nil, fmt.Errorf("migrate journal schema: %w", err)
	}

	return &Journal{
		db:     db,
		logger: logger.With(zap.String("component", "bind_journal")),
	}, nil
}

// RecordBind 记录一次绑定结果。
func (j *Journal) RecordBind(ctx context.Context, dir, provider, project string, result *track.BindResult, persistFailed bool) error {
	event := BindEvent{
		Directory:     filepath.Clean(dir),
		Provider:      provider,
		Project:       project,
		RunID:         result.RunID,
		Outcome:       string(result.Outcome),
		RunURL:        result.URL,
		PersistFailed: persistFailed,
	}
	if err := j.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("record bind event: %w", err)
	}
	return nil
}

// Recent 返回最近的绑定记录,新的在前。
func (j *Journal) Recent(ctx context.Context, limit int) ([]BindEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var events []BindEvent
	err := j.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query bind events: %w", err)
	}
	return events, nil
}

// ForDirectory 返回某个工作目录的绑定记录,新的在前。
func (j *Journal) ForDirectory(ctx context.Context, dir string, limit int) ([]BindEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var events []BindEvent
	err := j.db.WithContext(ctx).
		Where("directory = ?", filepath.Clean(dir)).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query bind events: %w", err)
	}
	return events, nil
}

// Close 关闭底层数据库连接。
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
