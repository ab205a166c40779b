package track

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/internal/metrics"
	"github.com/BaSui01/trackflow/runid"
	"github.com/BaSui01/trackflow/types"
)

// Outcome reports which path a bind took.
type Outcome string

const (
	// OutcomeCreatedNew means no prior identifier existed and a fresh run
	// was opened.
	OutcomeCreatedNew Outcome = "created-new"
	// OutcomeResumed means a stored identifier was found and the open call
	// carried resume intent.
	OutcomeResumed Outcome = "resumed"
)

// Persistence selects where, if anywhere, the run identity record lives.
// The zero value disables persistence, so callers must opt in via PersistAt.
type Persistence struct {
	dir     string
	enabled bool
}

// NoPersistence disables the identity record entirely: every bind opens a
// new run, nothing is read or written.
func NoPersistence() Persistence {
	return Persistence{}
}

// PersistAt stores the identity record inside dir.
func PersistAt(dir string) Persistence {
	return Persistence{dir: dir, enabled: true}
}

// Enabled reports whether an identity record is kept.
func (p Persistence) Enabled() bool { return p.enabled }

// Dir returns the working directory holding the record.
func (p Persistence) Dir() string { return p.dir }

// BindOptions carries everything a bind needs. Credentials and enablement
// are preconditions resolved by the caller; the binder is only invoked when
// tracking is enabled.
type BindOptions struct {
	// Persistence selects the identity record location, or none.
	Persistence Persistence

	// Run is the free-form run configuration forwarded to the service.
	Run types.RunConfig

	// ExpectResume marks that the caller restored from a checkpoint and
	// therefore expects a record to exist. A missing record then produces
	// a visible warning instead of a silent new run.
	ExpectResume bool
}

// BindResult is the outcome of a successful bind.
type BindResult struct {
	Outcome Outcome
	RunID   string
	URL     string
	Session Session

	// PersistFailed marks that the run opened but its identifier could not
	// be written back; the next restart in this directory starts fresh.
	PersistFailed bool
}

// Binder decides between creating a new tracked run and resuming a
// previously created one, using a runid.Store as its source of truth.
type Binder struct {
	client    Client
	store     runid.Store
	logger    *zap.Logger
	collector *metrics.Collector
}

// BinderOption configures optional Binder collaborators.
type BinderOption func(*Binder)

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) BinderOption {
	return func(b *Binder) { b.collector = c }
}

// NewBinder creates a Binder bound to one tracking client and one store.
func NewBinder(client Client, store runid.Store, logger *zap.Logger, opts ...BinderOption) *Binder {
	b := &Binder{
		client: client,
		store:  store,
		logger: logger.With(zap.String("component", "binder")),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind runs the identity protocol: look up a stored identifier, open or
// resume the run against the tracking service, and persist the live
// identifier after the service has confirmed the run is open.
//
// Service failures surface as TRACKING_UNAVAILABLE without internal retries;
// the caller decides whether that is fatal. A record write failure after a
// successful open degrades to a warning: the session stays usable, but the
// next restart in this directory will not resume it.
func (b *Binder) Bind(ctx context.Context, opts BindOptions) (*BindResult, error) {
	if err := opts.Run.Validate(); err != nil {
		return nil, err
	}

	ctx = types.WithProject(ctx, opts.Run.Project)
	ctx, span := otel.Tracer("trackflow/track").Start(ctx, "Binder.Bind")
	defer span.End()

	start := time.Now()

	prior, found := b.lookup(ctx, opts)

	handle, outcome, err := b.open(ctx, opts, prior, found)
	if err != nil {
		if b.collector != nil {
			b.collector.RecordBind(b.client.Name(), "failed", time.Since(start))
		}
		return nil, err
	}

	// 之后的调用链都能从上下文取到已绑定的运行标识符
	ctx = types.WithRunID(ctx, handle.ID)

	persistFailed := !b.persist(ctx, opts, handle)

	span.SetAttributes(
		attribute.String("run.id", handle.ID),
		attribute.String("bind.outcome", string(outcome)),
	)
	if b.collector != nil {
		b.collector.RecordBind(b.client.Name(), string(outcome), time.Since(start))
	}

	fields := []zap.Field{
		zap.String("run_id", handle.ID),
		zap.String("outcome", string(outcome)),
		zap.String("url", handle.URL),
	}
	if traceID, ok := types.TraceID(ctx); ok {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	b.logger.Info("run bound", fields...)

	return &BindResult{
		Outcome:       outcome,
		RunID:         handle.ID,
		URL:           handle.URL,
		Session:       handle.Session,
		PersistFailed: persistFailed,
	}, nil
}

// lookup reads the stored identifier, if persistence is enabled. Read
// failures other than absence degrade to "no identifier" with a warning:
// continuity is best-effort and must not block opening a run.
func (b *Binder) lookup(ctx context.Context, opts BindOptions) (string, bool) {
	if !opts.Persistence.Enabled() {
		return "", false
	}

	token, found, err := b.store.Read(ctx, opts.Persistence.Dir())
	if err != nil {
		b.logger.Warn("run id record unreadable, opening a new run",
			zap.String("dir", opts.Persistence.Dir()),
			zap.Error(err),
		)
		return "", false
	}

	if !found && opts.ExpectResume {
		b.logger.Warn("resume expected but no run id record found, creating a new run",
			zap.String("dir", opts.Persistence.Dir()),
		)
		if b.collector != nil {
			b.collector.RecordResumeWarning()
		}
	}

	return token, found
}

// open calls the tracking service, with resume intent when an identifier
// was found. No internal retries: the service client's own timeout is the
// only limit on the call.
func (b *Binder) open(ctx context.Context, opts BindOptions, prior string, found bool) (*RunHandle, Outcome, error) {
	if found {
		b.logger.Info("resuming tracked run", zap.String("run_id", prior))
		handle, err := b.client.OpenExisting(ctx, prior, opts.Run)
		if err != nil {
			return nil, "", types.NewError(types.ErrTrackingUnavailable, "failed to resume tracked run").
				WithCause(err).
				WithProvider(b.client.Name())
		}
		return handle, OutcomeResumed, nil
	}

	handle, err := b.client.OpenNew(ctx, opts.Run)
	if err != nil {
		return nil, "", types.NewError(types.ErrTrackingUnavailable, "failed to open tracked run").
			WithCause(err).
			WithProvider(b.client.Name())
	}
	return handle, OutcomeCreatedNew, nil
}

// persist writes the live, service-assigned identifier back to the store.
// It runs only after the service confirmed the run is open, and only
// degrades to a warning on failure: the bind already succeeded. Returns
// false when the write failed.
func (b *Binder) persist(ctx context.Context, opts BindOptions, handle *RunHandle) bool {
	if !opts.Persistence.Enabled() {
		return true
	}

	if err := b.store.Write(ctx, opts.Persistence.Dir(), handle.ID); err != nil {
		b.logger.Warn("failed to persist run id, resumption will not work on the next restart",
			zap.String("code", string(types.ErrPersistenceFailure)),
			zap.String("run_id", handle.ID),
			zap.String("dir", opts.Persistence.Dir()),
			zap.Error(err),
		)
		if b.collector != nil {
			b.collector.RecordPersistFailure(b.client.Name())
		}
		return false
	}
	return true
}
