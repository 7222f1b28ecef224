package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"beatwatch/internal/config"
	"beatwatch/internal/logging"
)

// State describes the supervisor lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting-down"
	StateStopped      State = "stopped"
)

// Runner is a long-lived worker owned by the supervisor. Run blocks until the
// context is canceled.
type Runner interface {
	Kind() string
	Run(ctx context.Context) error
}

// Readiness probes an external dependency before the watchers start. A probe
// failure is reported but never blocks startup.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Job is an auxiliary scheduled worker, started after the watchers and
// stopped before the lock is released.
type Job interface {
	Start() error
	Stop()
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State     State
	Watchers  []string
	LockPath  string
	StartedAt time.Time
}

// Supervisor owns the watcher goroutines and the process lifecycle: single
// instance locking, startup readiness reporting and bounded-grace shutdown.
type Supervisor struct {
	cfg       *config.Config
	logger    *slog.Logger
	watchers  []Runner
	readiness Readiness
	jobs      []Job

	lockPath string
	lock     *flock.Flock
	grace    time.Duration

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
}

// Option customizes the supervisor.
type Option func(*Supervisor)

// WithReadiness registers a startup dependency probe.
func WithReadiness(probe Readiness) Option {
	return func(s *Supervisor) { s.readiness = probe }
}

// WithJob registers an auxiliary job tied to the supervisor lifecycle.
func WithJob(job Job) Option {
	return func(s *Supervisor) {
		if job != nil {
			s.jobs = append(s.jobs, job)
		}
	}
}

// WithLockPath overrides the instance lock location.
func WithLockPath(path string) Option {
	return func(s *Supervisor) {
		if path != "" {
			s.lockPath = path
		}
	}
}

// New builds a supervisor for the given watchers.
func New(cfg *config.Config, logger *slog.Logger, watchers []Runner, opts ...Option) (*Supervisor, error) {
	if cfg == nil {
		return nil, errors.New("supervisor requires configuration")
	}
	if len(watchers) == 0 {
		return nil, errors.New("supervisor requires at least one watcher")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Supervisor{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "supervisor")),
		watchers: watchers,
		lockPath: filepath.Join(cfg.Paths.DataDir, "beatwatch.lock"),
		grace:    time.Duration(cfg.Watcher.GracePeriod) * time.Second,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.grace <= 0 {
		s.grace = 10 * time.Second
	}
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare lock directory: %w", err)
	}
	s.lock = flock.New(s.lockPath)
	return s, nil
}

// Start acquires the instance lock, reports classifier readiness and launches
// one goroutine per watcher. It returns once everything is running.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return errors.New("supervisor already running")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		s.mu.Unlock()
		return errors.New("another beatwatch instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateRunning
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.reportReadiness(runCtx)

	for _, w := range s.watchers {
		s.wg.Add(1)
		go func(w Runner) {
			defer s.wg.Done()
			if err := w.Run(runCtx); err != nil {
				s.logger.Error("watcher exited with error",
					logging.Error(err),
					logging.String(logging.FieldKind, w.Kind()))
			}
		}(w)
	}

	for _, job := range s.jobs {
		if err := job.Start(); err != nil {
			s.logger.Warn("auxiliary job failed to start", logging.Error(err))
		}
	}

	s.logger.Info("supervisor started",
		logging.Int("watchers", len(s.watchers)),
		logging.String("lock", s.lockPath))
	return nil
}

// reportReadiness probes the classifier once. A failure is a warning only:
// the watchers start regardless and items seen during the outage are dropped
// by the pipeline.
func (s *Supervisor) reportReadiness(ctx context.Context) {
	if s.readiness == nil {
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.readiness.Ready(probeCtx); err != nil {
		s.logger.Warn("classifier not ready at startup; items will be dropped until it recovers",
			logging.Error(err),
			logging.String(logging.FieldEventType, "readiness_failed"))
		return
	}
	s.logger.Info("classifier ready")
}

// Stop cancels the watchers and waits up to the grace period for them to
// finish their in-flight item, then releases the instance lock.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateShuttingDown
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("shutting down", logging.Duration("grace_period", s.grace))
	cancel()

	for _, job := range s.jobs {
		job.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.grace):
		s.logger.Warn("grace period elapsed before watchers finished",
			logging.String(logging.FieldEventType, "shutdown_grace_elapsed"))
	}

	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release instance lock", logging.Error(err))
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	s.logger.Info("supervisor stopped")
}

// Status reports the current lifecycle snapshot.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]string, 0, len(s.watchers))
	for _, w := range s.watchers {
		kinds = append(kinds, w.Kind())
	}
	return Status{
		State:     s.state,
		Watchers:  kinds,
		LockPath:  s.lockPath,
		StartedAt: s.startedAt,
	}
}
