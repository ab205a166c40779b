// =============================================================================
// Package quick — One-Line Run Binding
// =============================================================================
// Provides a convenience entry point for binding a tracked run with minimal
// boilerplate. Delegates to config, runid, providers and track internally.
//
// The package lives under quick/ (not root) so the root package can re-export
// it without an import cycle.
//
// Usage:
//
//	import "github.com/BaSui01/trackflow/quick"
//
//	run, err := quick.Open(ctx, quick.WithWandB("my-project"))
//	run, err := quick.Open(ctx, quick.WithMLflow("my-project"), quick.WithDir("/data/exp1"))
//	run, err := quick.Open(ctx, quick.WithOffline("my-project"), quick.WithoutPersistence())
//
// =============================================================================
package quick

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/config"
	"github.com/BaSui01/trackflow/history"
	"github.com/BaSui01/trackflow/internal/metrics"
	"github.com/BaSui01/trackflow/providers/mlflow"
	"github.com/BaSui01/trackflow/providers/offline"
	"github.com/BaSui01/trackflow/providers/wandb"
	"github.com/BaSui01/trackflow/runid"
	"github.com/BaSui01/trackflow/sinks"
	"github.com/BaSui01/trackflow/track"
	"github.com/BaSui01/trackflow/types"
)

// Option configures the run opened by Open.
type Option func(*options)

type options struct {
	cfg        *config.Config
	configPath string

	// 提供方快捷字段,覆盖配置文件
	providerName string
	project      string
	apiKey       string

	// 预构建的协作对象,优先于配置
	client track.Client
	store  runid.Store

	dir          string
	noPersist    bool
	expectResume bool

	name        string
	group       string
	tags        []string
	hyperparams map[string]any

	mirrorPath     string
	consoleMetrics bool
	noJournal      bool

	logger    *zap.Logger
	collector *metrics.Collector
}

// WithConfig sets a pre-loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigPath loads configuration from a YAML file.
func WithConfigPath(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithWandB selects the W&B provider for the given project.
// API key is read from WANDB_API_KEY environment variable.
func WithWandB(project string) Option {
	return func(o *options) {
		o.providerName = "wandb"
		o.project = project
		if o.apiKey == "" {
			o.apiKey = os.Getenv("WANDB_API_KEY")
		}
	}
}

// WithMLflow selects the MLflow provider for the given project.
// Tracking URI is read from MLFLOW_TRACKING_URI environment variable
// unless configured explicitly.
func WithMLflow(project string) Option {
	return func(o *options) {
		o.providerName = "mlflow"
		o.project = project
	}
}

// WithOffline selects the offline provider for the given project.
func WithOffline(project string) Option {
	return func(o *options) {
		o.providerName = "offline"
		o.project = project
	}
}

// WithClient sets a pre-built tracking client, bypassing provider selection.
func WithClient(c track.Client) Option {
	return func(o *options) { o.client = c }
}

// WithStore sets a pre-built run id store. The caller keeps ownership and
// must close it.
func WithStore(s runid.Store) Option {
	return func(o *options) { o.store = s }
}

// WithAPIKey overrides the API key for provider shortcuts.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithDir sets the working directory holding the run id record.
// Defaults to the current directory.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithoutPersistence disables the run id record: every call opens a new run.
func WithoutPersistence() Option {
	return func(o *options) { o.noPersist = true }
}

// WithExpectResume marks that the caller restored from a checkpoint and
// expects a run id record to exist.
func WithExpectResume() Option {
	return func(o *options) { o.expectResume = true }
}

// WithName sets the run display name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithGroup sets the run group.
func WithGroup(group string) Option {
	return func(o *options) { o.group = group }
}

// WithTags sets the run tags.
func WithTags(tags ...string) Option {
	return func(o *options) { o.tags = tags }
}

// WithHyperparams sets the hyperparameter payload logged at open time.
func WithHyperparams(hp map[string]any) Option {
	return func(o *options) { o.hyperparams = hp }
}

// WithJSONLMirror also appends every metric point to a local JSONL file.
func WithJSONLMirror(path string) Option {
	return func(o *options) { o.mirrorPath = path }
}

// WithConsoleMetrics also logs every metric point through the logger.
func WithConsoleMetrics() Option {
	return func(o *options) { o.consoleMetrics = true }
}

// WithoutJournal disables the bind history journal for this run.
func WithoutJournal() Option {
	return func(o *options) { o.noJournal = true }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCollector attaches a Prometheus metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(o *options) { o.collector = c }
}

// Run is a bound tracked run ready to receive metrics.
type Run struct {
	// ID is the service-assigned run identifier.
	ID string
	// URL points at the run in the tracking service, when available.
	URL string
	// Outcome reports whether the run was created or resumed.
	Outcome track.Outcome
	// PersistFailed marks that the identifier could not be written back.
	PersistFailed bool

	sink    sinks.Sink
	journal *history.Journal
	logger  *zap.Logger
}

// Log records the metrics observed at step.
func (r *Run) Log(ctx context.Context, step int64, m types.Metrics) error {
	return r.sink.Log(types.WithRunID(ctx, r.ID), step, m)
}

// Finish flushes metric destinations and marks the run finished.
func (r *Run) Finish(ctx context.Context) error {
	err := r.sink.Close()
	if r.journal != nil {
		if closeErr := r.journal.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// Open binds a tracked run with minimal configuration: load config, build
// the store and provider client, run the bind protocol, and wire metric
// destinations. The returned Run resumes the previous run of the same
// working directory when its record exists.
func Open(ctx context.Context, opts ...Option) (*Run, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := resolveConfig(o)
	if err != nil {
		return nil, err
	}

	store, ownStore, err := resolveStore(o, cfg)
	if err != nil {
		return nil, err
	}
	if ownStore {
		// 存储只在绑定期间使用
		defer store.Close()
	}

	client, err := resolveClient(o, cfg, logger)
	if err != nil {
		return nil, err
	}

	persistence := track.PersistAt(o.dir)
	if o.noPersist {
		persistence = track.NoPersistence()
	}

	var binderOpts []track.BinderOption
	if o.collector != nil {
		binderOpts = append(binderOpts, track.WithCollector(o.collector))
	}

	binder := track.NewBinder(client, store, logger, binderOpts...)
	result, err := binder.Bind(ctx, track.BindOptions{
		Persistence:  persistence,
		Run:          buildRunConfig(o, cfg),
		ExpectResume: o.expectResume,
	})
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:            result.RunID,
		URL:           result.URL,
		Outcome:       result.Outcome,
		PersistFailed: result.PersistFailed,
		logger:        logger,
	}

	run.sink, err = buildSink(o, logger, result)
	if err != nil {
		return nil, err
	}

	if cfg.Journal.Enabled && !o.noJournal {
		journal, journalErr := history.Open(cfg.Journal.Path, logger)
		if journalErr != nil {
			logger.Warn("bind journal unavailable", zap.Error(journalErr))
		} else {
			run.journal = journal
			if recordErr := journal.RecordBind(ctx, o.dir, client.Name(), cfg.Run.Project, result, result.PersistFailed); recordErr != nil {
				logger.Warn("failed to record bind history", zap.Error(recordErr))
			}
		}
	}

	return run, nil
}

// resolveConfig 合并配置文件与选项快捷字段
func resolveConfig(o *options) (*config.Config, error) {
	cfg := o.cfg
	if cfg == nil {
		loader := config.NewLoader()
		if o.configPath != "" {
			loader = loader.WithConfigPath(o.configPath)
		}
		loaded, err := loader.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.providerName != "" {
		cfg.Provider = o.providerName
	}
	if o.project != "" {
		cfg.Run.Project = o.project
	}
	if o.apiKey != "" {
		cfg.WandB.APIKey = o.apiKey
	}
	if uri := os.Getenv("MLFLOW_TRACKING_URI"); uri != "" && cfg.Provider == "mlflow" {
		cfg.MLflow.TrackingURI = uri
	}

	if o.dir == "" {
		o.dir = "."
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveStore(o *options, cfg *config.Config) (runid.Store, bool, error) {
	if o.store != nil {
		return o.store, false, nil
	}
	store, err := runid.NewStore(cfg.Store.ToStoreConfig())
	if err != nil {
		return nil, false, fmt.Errorf("create run id store: %w", err)
	}
	return store, true, nil
}

func resolveClient(o *options, cfg *config.Config, logger *zap.Logger) (track.Client, error) {
	if o.client != nil {
		return o.client, nil
	}

	switch cfg.Provider {
	case "wandb":
		var provOpts []wandb.Option
		if o.collector != nil {
			provOpts = append(provOpts, wandb.WithCollector(o.collector))
		}
		return wandb.NewWandBProvider(cfg.WandB.ToProviderConfig(), logger, provOpts...), nil
	case "mlflow":
		var provOpts []mlflow.Option
		if o.collector != nil {
			provOpts = append(provOpts, mlflow.WithCollector(o.collector))
		}
		return mlflow.NewMLflowProvider(cfg.MLflow.ToProviderConfig(), logger, provOpts...), nil
	case "offline":
		return offline.NewOfflineProvider(cfg.Offline.ToProviderConfig(), logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func buildRunConfig(o *options, cfg *config.Config) types.RunConfig {
	rc := cfg.Run.ToRunConfig()
	if o.name != "" {
		rc.Name = o.name
	}
	if o.group != "" {
		rc.Group = o.group
	}
	if len(o.tags) > 0 {
		rc.Tags = o.tags
	}
	if o.hyperparams != nil {
		rc.Hyperparams = o.hyperparams
	}
	return rc
}

// buildSink 组合指标输出端:追踪会话为主,可选本地镜像与控制台
func buildSink(o *options, logger *zap.Logger, result *track.BindResult) (sinks.Sink, error) {
	children := []sinks.Sink{sinks.NewSessionSink(result.Session)}

	if o.consoleMetrics {
		children = append(children, sinks.NewConsoleSink(logger))
	}
	if o.mirrorPath != "" {
		mirror, err := sinks.NewJSONLSink(o.mirrorPath)
		if err != nil {
			return nil, err
		}
		children = append(children, mirror)
	}

	if len(children) == 1 {
		return children[0], nil
	}

	var multiOpts []sinks.MultiSinkOption
	if o.collector != nil {
		multiOpts = append(multiOpts, sinks.WithCollector(o.collector))
	}
	return sinks.NewMultiSink(logger, children, multiOpts...), nil
}
