package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"nightout/internal/auth/metrics"
	"nightout/internal/auth/models"
	"nightout/internal/platform/tracer"
	"nightout/internal/sentinel"
	dErrors "nightout/pkg/domain-errors"
)

const defaultProvisionQueue = 16

// Service mirrors the identity platform's auth state for the rest of the application.
// It starts out loading and resolves on the first notification or the initial
// session lookup, whichever comes first.
type Service struct {
	platform Platform
	flags    FlagStore
	profiles ProfileStore

	socialProviders []string
	queueSize       int

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	now     func() time.Time

	mu          sync.Mutex
	state       models.State
	resolved    bool
	started     bool
	stopped     bool
	unsubscribe func()

	pubMu  sync.Mutex
	subsMu sync.RWMutex
	subs   []subscriber
	nextID uint64

	jobs     chan *models.User
	results  chan ProvisionResult
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

type subscriber struct {
	id uint64
	fn func(models.State)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithProvisioner enables profile provisioning for users signing in through one of
// providers. With no providers listed, google and apple are used.
func WithProvisioner(profiles ProfileStore, providers ...string) Option {
	return func(s *Service) {
		s.profiles = profiles
		if len(providers) > 0 {
			s.socialProviders = providers
		}
	}
}

// WithProvisionQueue bounds the number of pending provisioning jobs.
func WithProvisionQueue(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithClock overrides the time source used to stamp new profiles.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Service in the loading state. Call Start to begin mirroring.
func New(platform Platform, flags FlagStore, opts ...Option) *Service {
	s := &Service{
		platform:        platform,
		flags:           flags,
		socialProviders: []string{"google", "apple"},
		queueSize:       defaultProvisionQueue,
		now:             time.Now,
		state:           models.State{Loading: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	s.jobs = make(chan *models.User, s.queueSize)
	s.results = make(chan ProvisionResult, s.queueSize)
	return s
}

// Start subscribes to platform notifications, then fetches the initial session.
// A failed lookup still resolves the state as signed out and is returned.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return dErrors.New(dErrors.CodeBadRequest, "auth service already started or stopped")
	}
	s.started = true
	s.mu.Unlock()

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(1)
	go s.runProvisioner(workerCtx)

	unsubscribe, err := s.platform.Subscribe(s.handleNotification)
	if err != nil {
		s.resolveInitial(ctx, nil)
		return translatePlatformError(err, "failed to subscribe to identity platform")
	}
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	session, err := s.platform.GetCurrentSession(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "initial session lookup failed", "error", err)
		s.resolveInitial(ctx, nil)
		return translatePlatformError(err, "failed to fetch initial session")
	}
	s.resolveInitial(ctx, session)
	return nil
}

// Stop unsubscribes from the platform and stops the provisioning worker.
// The Provisioned channel is closed once the worker has exited.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		close(s.results)
	})
}

// State returns the current auth snapshot. The returned session and user are
// shared and must not be modified.
func (s *Service) State() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every committed state in order. Callbacks
// run one at a time outside the state lock and must not call SignOut synchronously.
func (s *Service) Subscribe(fn func(models.State)) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			s.subs = slices.DeleteFunc(slices.Clone(s.subs), func(sub subscriber) bool {
				return sub.id == id
			})
		})
	}
}

func (s *Service) handleNotification(n models.Notification) {
	ctx := context.Background()
	session := s.sanitize(ctx, n.Session)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	s.setLocked(session)
	s.logger.InfoContext(ctx, "auth state changed",
		"event", n.Event.String(),
		"user_id", userID(session),
	)
	if s.metrics != nil {
		s.metrics.IncrementNotification(n.Event.String())
	}
	s.commit()

	if n.Event == models.EventSignedIn && session != nil {
		s.enqueueProvision(ctx, session.User)
	}
}

func (s *Service) resolveInitial(ctx context.Context, session *models.Session) {
	session = s.sanitize(ctx, session)

	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "initial session ignored, state already resolved by notification")
		return
	}
	s.resolved = true
	s.setLocked(session)
	s.logger.InfoContext(ctx, "initial session resolved", "user_id", userID(session))
	s.commit()
}

// setLocked replaces user and session together and clears loading.
func (s *Service) setLocked(session *models.Session) {
	s.state.Session = session
	s.state.User = nil
	if session != nil {
		s.state.User = session.User
	}
	s.state.Loading = false
	if s.metrics != nil {
		s.metrics.SetAuthenticated(session != nil)
	}
}

// commit must be called with mu held; it releases mu and publishes the state.
func (s *Service) commit() {
	snapshot := s.state
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	s.subsMu.RLock()
	subs := s.subs
	s.subsMu.RUnlock()
	for _, sub := range subs {
		sub.fn(snapshot)
	}
}

// sanitize drops sessions that carry no user so User and Session stay paired.
func (s *Service) sanitize(ctx context.Context, session *models.Session) *models.Session {
	if session != nil && session.User == nil {
		s.logger.WarnContext(ctx, "discarding session without user")
		return nil
	}
	return session
}

func userID(session *models.Session) string {
	if session == nil || session.User == nil {
		return ""
	}
	return session.User.ID.String()
}

func translatePlatformError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrUnauthorized):
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
