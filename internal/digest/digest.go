package digest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"beatwatch/internal/config"
	"beatwatch/internal/logging"
	"beatwatch/internal/notifications"
)

// window is the lookback covered by each digest message.
const window = 24 * time.Hour

// Counter exposes the record counts the digest needs.
type Counter interface {
	CountSavedSince(ctx context.Context, cutoff time.Time) (submissions, comments int, err error)
}

// Job posts a periodic summary of saved records to the notifier on a cron
// schedule. A nil Job is returned when no schedule is configured.
type Job struct {
	schedule  string
	subreddit string
	counter   Counter
	notifier  notifications.Service
	logger    *slog.Logger
	cron      *cron.Cron
}

// New builds the digest job from config. Returns nil when digests are
// disabled.
func New(cfg *config.Config, counter Counter, notifier notifications.Service, logger *slog.Logger) (*Job, error) {
	schedule := strings.TrimSpace(cfg.Notifications.DigestSchedule)
	if schedule == "" {
		return nil, nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Job{
		schedule:  schedule,
		subreddit: cfg.Reddit.Subreddit,
		counter:   counter,
		notifier:  notifier,
		logger:    logger.With(logging.String(logging.FieldComponent, "digest")),
	}, nil
}

// Start schedules the digest on its cron expression.
func (j *Job) Start() error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := j.RunOnce(ctx); err != nil {
			j.logger.Warn("digest delivery failed", logging.Error(err))
		}
	}); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("digest scheduled", logging.String("schedule", j.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight digest to finish.
func (j *Job) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// RunOnce computes the last 24h counts and posts a single digest.
func (j *Job) RunOnce(ctx context.Context) error {
	subs, comments, err := j.counter.CountSavedSince(ctx, time.Now().Add(-window))
	if err != nil {
		return err
	}
	return j.notifier.DigestReport(ctx, notifications.DigestSummary{
		Subreddit:   j.subreddit,
		Window:      window,
		Submissions: subs,
		Comments:    comments,
	})
}
