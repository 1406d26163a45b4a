package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"docket/internal/accessreq"
	"docket/internal/archive"
	"docket/internal/comments"
	"docket/internal/config"
	"docket/internal/logging"
	"docket/internal/notifications"
	"docket/internal/placement"
	"docket/internal/queue"
	"docket/internal/services"
	"docket/internal/shadow"
	"docket/internal/submission"
	"docket/internal/tasks"
)

// Manager is the operation surface: every submission, review, and placement
// action goes through it. It owns the stores and the background pool.
type Manager struct {
	cfg      *config.Config
	queue    *queue.Store
	ledger   *shadow.Ledger
	archive  *archive.Store
	comments *comments.Store
	access   *accessreq.Store
	placer   *placement.Engine
	notifier notifications.Service
	pool     *tasks.Pool
	logger   *slog.Logger
	now      func() time.Time

	closeOnce sync.Once
	closeErr  error
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	notifier notifications.Service
	now      func() time.Time
}

// WithNotifier replaces the notifier built from config (used in tests).
func WithNotifier(n notifications.Service) ManagerOption {
	return func(o *managerOptions) { o.notifier = n }
}

// WithClock overrides the time source for history stamps and placement.
func WithClock(now func() time.Time) ManagerOption {
	return func(o *managerOptions) { o.now = now }
}

// NewManager opens every store under cfg's data root.
func NewManager(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	options := &managerOptions{now: time.Now}
	for _, opt := range opts {
		opt(options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if options.notifier == nil {
		options.notifier = notifications.NewService(cfg, logger)
	}

	store, err := queue.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	access, err := accessreq.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	arch, err := archive.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	notes, err := comments.Open(ctx, cfg, logger)
	if err != nil {
		_ = arch.Close()
		return nil, err
	}

	return &Manager{
		cfg:      cfg,
		queue:    store,
		ledger:   shadow.New(cfg, logger),
		archive:  arch,
		comments: notes,
		access:   access,
		placer:   placement.New(cfg, logger, placement.WithClock(options.now)),
		notifier: options.notifier,
		pool: tasks.New(cfg.Workers.PoolSize,
			time.Duration(cfg.Workers.TaskTimeoutSeconds)*time.Second, logger),
		logger: logging.NewComponentLogger(logger, "workflow"),
		now:    options.now,
	}, nil
}

// Close waits for background side effects and releases the databases.
// Later calls return the first result.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		poolErr := m.pool.Close(ctx)
		m.closeErr = errors.Join(poolErr, m.archive.Close(), m.comments.Close())
	})
	return m.closeErr
}

func (m *Manager) opContext(ctx context.Context, op string, p submission.Principal, id string) context.Context {
	ctx = services.WithOperation(ctx, op)
	ctx = services.WithActor(ctx, p.ID)
	if id != "" {
		ctx = services.WithSubmissionID(ctx, id)
	}
	return ctx
}

// settle converts a classified error into the operation result. Validation
// and not-found errors are domain refusals; everything else is returned.
func (m *Manager) settle(ctx context.Context, err error) (Result, error) {
	if err == nil {
		return Result{OK: true}, nil
	}
	reason := services.Reason(err)
	switch {
	case errors.Is(err, services.ErrValidation):
		logging.WithContext(ctx, m.logger).Info("operation refused", logging.String("reason", reason))
		return refused(reason), nil
	case errors.Is(err, services.ErrNotFound):
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "referenced submission not found", "submission_not_found",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the id may be mistyped or already archived"),
			logging.String(logging.FieldImpact, "operation not applied"),
		)
		return refused(reason), nil
	}
	return refused(reason), err
}

func (m *Manager) requireRole(p submission.Principal, roles ...submission.Role) error {
	if err := p.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "workflow", "authorize", err.Error(), nil)
	}
	for _, role := range roles {
		if p.Role == role {
			return nil
		}
	}
	return services.Wrap(services.ErrValidation, "workflow", "authorize", ReasonRoleNotPermitted, nil)
}

// applyAction runs one graph transition and classifies its failures.
func (m *Manager) applyAction(sub *submission.Submission, action submission.Action, actor, comment string) error {
	err := sub.Apply(action, actor, comment, m.now())
	if err == nil {
		return nil
	}
	if errors.Is(err, submission.ErrReasonRequired) {
		return services.Wrap(services.ErrValidation, "workflow", string(action), ReasonReasonRequired, nil)
	}
	var te *submission.TransitionError
	if errors.As(err, &te) {
		return services.Wrap(services.ErrValidation, "workflow", string(action), te.Error(), nil)
	}
	return services.Wrap(services.ErrIntegrity, "workflow", string(action), "apply transition", err)
}
