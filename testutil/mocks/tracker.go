// MockTracker 的跟踪服务测试模拟实现。
//
// 支持固定标识符、标识符替换与错误注入场景。
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/trackflow/track"
	"github.com/BaSui01/trackflow/types"
)

// --- MockTracker 结构 ---

// TrackerCall 记录单次打开调用
type TrackerCall struct {
	Operation   string // "open_new" 或 "open_existing"
	RequestedID string // open_existing 请求的标识符
	Config      types.RunConfig
}

// MockTracker 是 track.Client 的模拟实现
type MockTracker struct {
	mu sync.Mutex

	// 响应配置
	nextID       string // 新建运行返回的标识符
	substituteID string // open_existing 替换返回的标识符（空则原样返回）
	openErr      error  // 打开调用注入的错误

	// 调用记录
	calls     []TrackerCall
	callCount int

	// Session 行为
	logErr   error
	logged   []LoggedMetrics
	finished bool
}

// LoggedMetrics 记录单次指标上报
type LoggedMetrics struct {
	Step    int64
	Metrics types.Metrics
}

// NewMockTracker 创建新的 MockTracker
func NewMockTracker() *MockTracker {
	return &MockTracker{
		nextID: "mock-run-1",
	}
}

// WithNextID 设置新建运行返回的标识符
func (m *MockTracker) WithNextID(id string) *MockTracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = id
	return m
}

// WithSubstituteID 设置 open_existing 替换返回的标识符
func (m *MockTracker) WithSubstituteID(id string) *MockTracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.substituteID = id
	return m
}

// WithOpenError 注入打开调用错误
func (m *MockTracker) WithOpenError(err error) *MockTracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
	return m
}

// WithLogError 注入指标上报错误
func (m *MockTracker) WithLogError(err error) *MockTracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logErr = err
	return m
}

// --- track.Client 实现 ---

func (m *MockTracker) Name() string { return "mock" }

// OpenNew 打开新运行
func (m *MockTracker) OpenNew(ctx context.Context, cfg types.RunConfig) (*track.RunHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.calls = append(m.calls, TrackerCall{Operation: "open_new", Config: cfg})

	if m.openErr != nil {
		return nil, m.openErr
	}

	return &track.RunHandle{
		ID:      m.nextID,
		URL:     fmt.Sprintf("https://mock.test/%s/%s", cfg.Project, m.nextID),
		Session: &mockSession{tracker: m},
	}, nil
}

// OpenExisting 以恢复意图打开既有运行
func (m *MockTracker) OpenExisting(ctx context.Context, id string, cfg types.RunConfig) (*track.RunHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.calls = append(m.calls, TrackerCall{Operation: "open_existing", RequestedID: id, Config: cfg})

	if m.openErr != nil {
		return nil, m.openErr
	}

	returned := id
	if m.substituteID != "" {
		returned = m.substituteID
	}

	return &track.RunHandle{
		ID:      returned,
		URL:     fmt.Sprintf("https://mock.test/%s/%s", cfg.Project, returned),
		Session: &mockSession{tracker: m},
	}, nil
}

// --- 调用检查 ---

// Calls 返回所有打开调用的记录
func (m *MockTracker) Calls() []TrackerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TrackerCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回打开调用次数
func (m *MockTracker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Logged 返回所有上报的指标
func (m *MockTracker) Logged() []LoggedMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LoggedMetrics, len(m.logged))
	copy(out, m.logged)
	return out
}

// Finished 返回会话是否已结束
func (m *MockTracker) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

// --- mockSession ---

type mockSession struct {
	tracker *MockTracker
}

func (s *mockSession) LogMetrics(ctx context.Context, step int64, metrics types.Metrics) error {
	s.tracker.mu.Lock()
	defer s.tracker.mu.Unlock()

	if s.tracker.logErr != nil {
		return s.tracker.logErr
	}
	s.tracker.logged = append(s.tracker.logged, LoggedMetrics{Step: step, Metrics: metrics})
	return nil
}

func (s *mockSession) Finish(ctx context.Context) error {
	s.tracker.mu.Lock()
	defer s.tracker.mu.Unlock()
	s.tracker.finished = true
	return nil
}

// Ensure MockTracker implements track.Client
var _ track.Client = (*MockTracker)(nil)
