package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/internal/server"
)

// Config 查看器配置
type Config struct {
	// RolloutPath 是 rollouts.jsonl 的路径
	RolloutPath string `json:"rollout_path" yaml:"rollout_path"`

	// Addr 监听地址
	Addr string `json:"addr" yaml:"addr"`

	// PollInterval 文件轮询周期
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// Viewer 通过 HTTP + websocket 对外提供 rollouts 文件的内容。
// 文件变化时向所有 websocket 订阅者推送 reload 事件,
// 订阅方重新拉取 /api/rollouts 获取最新数据。
type Viewer struct {
	cfg     Config
	logger  *zap.Logger
	manager *server.Manager
	watcher *Watcher
	cancel  context.CancelFunc

	mu          sync.Mutex
	subscribers map[chan reloadEvent]struct{}
}

type reloadEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// New 创建查看器。
func New(cfg Config, logger *zap.Logger) *Viewer {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8192"
	}
	v := &Viewer{
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "rollout_viewer")),
		subscribers: map[chan reloadEvent]struct{}{},
	}

	serverCfg := server.DefaultConfig()
	serverCfg.Addr = cfg.Addr
	// websocket 连接长期保持,不设写超时
	serverCfg.WriteTimeout = 0
	v.manager = server.NewManager(v.handler(), serverCfg, logger)
	v.watcher = NewWatcher(cfg.RolloutPath, cfg.PollInterval, logger, v.broadcast)
	return v
}

// Start 启动 HTTP 服务与文件监视(非阻塞)。
func (v *Viewer) Start() error {
	if err := v.manager.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	go v.watcher.Run(ctx)

	v.logger.Info("rollout viewer started",
		zap.String("addr", v.manager.Addr()),
		zap.String("rollout_path", v.cfg.RolloutPath),
	)
	return nil
}

// Addr 返回实际监听地址。
func (v *Viewer) Addr() string { return v.manager.Addr() }

// WaitForShutdown 阻塞至收到退出信号。
func (v *Viewer) WaitForShutdown() { v.manager.WaitForShutdown() }

// Shutdown 停止文件监视并优雅关闭服务。
func (v *Viewer) Shutdown(ctx context.Context) error {
	if v.cancel != nil {
		v.cancel()
	}
	return v.manager.Shutdown(ctx)
}

func (v *Viewer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", v.handleHealth)
	mux.HandleFunc("GET /api/rollouts", v.handleList)
	mux.HandleFunc("GET /api/rollouts/{index}", v.handleGet)
	mux.HandleFunc("GET /ws", v.handleWS)
	return mux
}

func (v *Viewer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (v *Viewer) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := Load(v.logger, v.cfg.RolloutPath)
	if err != nil {
		v.logger.Error("failed to load rollouts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load rollouts"})
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(entries),
		"rollouts": entries,
	})
}

func (v *Viewer) handleGet(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rollout index"})
		return
	}

	entries, err := Load(v.logger, v.cfg.RolloutPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load rollouts"})
		return
	}
	if index >= len(entries) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "rollout not found"})
		return
	}
	writeJSON(w, http.StatusOK, entries[index])
}

func (v *Viewer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		v.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	events := v.subscribe()
	defer v.unsubscribe(events)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (v *Viewer) subscribe() chan reloadEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch := make(chan reloadEvent, 8)
	v.subscribers[ch] = struct{}{}
	return ch
}

func (v *Viewer) unsubscribe(ch chan reloadEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.subscribers, ch)
}

// broadcast 文件变化时向所有订阅者推送 reload 事件。
// 慢订阅者的事件直接丢弃,下一次变化会再触发。
func (v *Viewer) broadcast() {
	entries, err := Load(v.logger, v.cfg.RolloutPath)
	if err != nil {
		v.logger.Warn("failed to reload rollouts", zap.Error(err))
		return
	}
	event := reloadEvent{Type: "reload", Count: len(entries)}

	v.mu.Lock()
	defer v.mu.Unlock()
	for ch := range v.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
