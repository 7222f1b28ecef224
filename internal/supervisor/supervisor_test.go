package supervisor_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"beatwatch/internal/supervisor"
	"beatwatch/internal/testsupport"
)

// blockingRunner runs until canceled and records both transitions.
type blockingRunner struct {
	kind    string
	started chan struct{}
	stopped atomic.Bool
}

func newBlockingRunner(kind string) *blockingRunner {
	return &blockingRunner{kind: kind, started: make(chan struct{})}
}

func (r *blockingRunner) Kind() string { return r.kind }

func (r *blockingRunner) Run(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	r.stopped.Store(true)
	return nil
}

func (r *blockingRunner) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s runner did not start", r.kind)
	}
}

type probeFunc func(ctx context.Context) error

func (f probeFunc) Ready(ctx context.Context) error { return f(ctx) }

func TestStartRunsAllWatchersAndStopWaits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	subs := newBlockingRunner("submission")
	comments := newBlockingRunner("comment")

	sup, err := supervisor.New(cfg, nil, []supervisor.Runner{subs, comments})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	subs.waitStarted(t)
	comments.waitStarted(t)

	status := sup.Status()
	if status.State != supervisor.StateRunning {
		t.Fatalf("expected running state, got %s", status.State)
	}
	if len(status.Watchers) != 2 {
		t.Fatalf("expected 2 watchers in status, got %v", status.Watchers)
	}

	sup.Stop()
	if !subs.stopped.Load() || !comments.stopped.Load() {
		t.Fatal("expected both watchers stopped after Stop")
	}
	if sup.Status().State != supervisor.StateStopped {
		t.Fatalf("expected stopped state, got %s", sup.Status().State)
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lockPath := filepath.Join(cfg.Paths.DataDir, "beatwatch.lock")

	first, err := supervisor.New(cfg, nil, []supervisor.Runner{newBlockingRunner("submission")},
		supervisor.WithLockPath(lockPath))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	second, err := supervisor.New(cfg, nil, []supervisor.Runner{newBlockingRunner("submission")},
		supervisor.WithLockPath(lockPath))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}

func TestReadinessFailureDoesNotBlockStartup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := newBlockingRunner("submission")
	var probed atomic.Bool

	sup, err := supervisor.New(cfg, nil, []supervisor.Runner{runner},
		supervisor.WithReadiness(probeFunc(func(ctx context.Context) error {
			probed.Store(true)
			return errors.New("backend down")
		})))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start should succeed despite readiness failure, got %v", err)
	}
	defer sup.Stop()

	runner.waitStarted(t)
	if !probed.Load() {
		t.Fatal("expected readiness probe to run")
	}
}

// stuckRunner ignores cancellation to exercise the grace timeout.
type stuckRunner struct {
	started chan struct{}
}

func (r *stuckRunner) Kind() string { return "submission" }

func (r *stuckRunner) Run(ctx context.Context) error {
	close(r.started)
	select {} // never returns
}

func TestStopHonorsGracePeriod(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.GracePeriod = 1
	runner := &stuckRunner{started: make(chan struct{})}

	sup, err := supervisor.New(cfg, nil, []supervisor.Runner{runner})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-runner.started

	begin := time.Now()
	sup.Stop()
	elapsed := time.Since(begin)
	if elapsed < time.Second {
		t.Fatalf("Stop returned before grace period: %s", elapsed)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("Stop blocked far past grace period: %s", elapsed)
	}
	if sup.Status().State != supervisor.StateStopped {
		t.Fatalf("expected stopped state, got %s", sup.Status().State)
	}
}

type fakeJob struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (j *fakeJob) Start() error {
	j.started.Store(true)
	return nil
}

func (j *fakeJob) Stop() { j.stopped.Store(true) }

func TestJobsFollowLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := newBlockingRunner("submission")
	job := &fakeJob{}

	sup, err := supervisor.New(cfg, nil, []supervisor.Runner{runner}, supervisor.WithJob(job))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	runner.waitStarted(t)
	if !job.started.Load() {
		t.Fatal("expected job started with supervisor")
	}
	sup.Stop()
	if !job.stopped.Load() {
		t.Fatal("expected job stopped with supervisor")
	}
}
