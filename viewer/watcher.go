package viewer

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Watcher 轮询 rollouts 文件的修改时间与大小,变化时触发回调。
// 回调经 rate limiter 去抖,密集写入不会风暴式触发。
type Watcher struct {
	path     string
	interval time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger
	onChange func()
}

// NewWatcher 创建文件监视器。interval 为轮询周期,默认 500ms,
// 去抖窗口与轮询周期一致。
func NewWatcher(path string, interval time.Duration, logger *zap.Logger, onChange func()) *Watcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Watcher{
		path:     path,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		logger:   logger.With(zap.String("component", "rollout_watcher")),
		onChange: onChange,
	}
}

// Run 阻塞轮询直到 ctx 取消。
func (w *Watcher) Run(ctx context.Context) {
	var lastMod time.Time
	var lastSize int64

	if info, err := os.Stat(w.path); err == nil {
		lastMod = info.ModTime()
		lastSize = info.Size()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				continue
			}
			if info.ModTime().Equal(lastMod) && info.Size() == lastSize {
				continue
			}
			lastMod = info.ModTime()
			lastSize = info.Size()

			if !w.limiter.Allow() {
				continue
			}
			w.logger.Debug("rollout file changed", zap.Int64("size", info.Size()))
			w.onChange()
		}
	}
}
