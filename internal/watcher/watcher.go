package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"beatwatch/internal/classifier"
	"beatwatch/internal/logging"
	"beatwatch/internal/notifications"
	"beatwatch/internal/reddit"
	"beatwatch/internal/store"
)

// Classifier is the narrow classification surface the watcher needs.
type Classifier interface {
	Classify(ctx context.Context, text string) classifier.Result
}

// Records is the persistence surface the watcher needs.
type Records interface {
	ExistsSubmission(ctx context.Context, id string) (bool, error)
	ExistsComment(ctx context.Context, id string) (bool, error)
	InsertSubmission(ctx context.Context, sub *reddit.Submission) (store.InsertResult, error)
	InsertComment(ctx context.Context, comment *reddit.Comment) (store.InsertResult, error)
}

// Config carries a watcher's dependencies. Kind, Feed, Classifier and
// Records are required; the rest fall back to safe defaults.
type Config struct {
	Kind       string
	Feed       Feed
	Classifier Classifier
	Records    Records
	Notifier   notifications.Service

	// Backoff is the fixed wait before resubscribing after a feed failure.
	Backoff time.Duration
	// InsertRetries is the number of additional insert attempts after the
	// first fails.
	InsertRetries int

	Logger *slog.Logger
}

// Watcher drives one feed through the classify, persist, notify pipeline.
// Items are handled strictly one at a time in arrival order.
type Watcher struct {
	kind          string
	feed          Feed
	classifier    Classifier
	records       Records
	notifier      notifications.Service
	backoff       time.Duration
	insertRetries int
	logger        *slog.Logger
}

// New validates the configuration and returns a ready watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Kind != KindSubmission && cfg.Kind != KindComment {
		return nil, fmt.Errorf("unknown watcher kind %q", cfg.Kind)
	}
	if cfg.Feed == nil {
		return nil, errors.New("watcher requires a feed")
	}
	if cfg.Classifier == nil {
		return nil, errors.New("watcher requires a classifier")
	}
	if cfg.Records == nil {
		return nil, errors.New("watcher requires a record store")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("watcher requires a notifier")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 10 * time.Second
	}
	retries := cfg.InsertRetries
	if retries < 0 {
		retries = 0
	}
	return &Watcher{
		kind:          cfg.Kind,
		feed:          cfg.Feed,
		classifier:    cfg.Classifier,
		records:       cfg.Records,
		notifier:      cfg.Notifier,
		backoff:       backoff,
		insertRetries: retries,
		logger:        logger.With(logging.String(logging.FieldComponent, "watcher"), logging.String(logging.FieldKind, cfg.Kind)),
	}, nil
}

// Kind reports which feed this watcher consumes.
func (w *Watcher) Kind() string {
	return w.kind
}

// Run consumes the feed until ctx is canceled. Feed failures trigger a fixed
// backoff followed by a fresh subscription; item failures never stop the
// loop.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		source, err := w.feed.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("feed subscription failed; backing off",
				logging.Error(err),
				logging.String(logging.FieldEventType, "feed_subscribe_failed"))
			if !w.wait(ctx) {
				return nil
			}
			continue
		}

		if err := w.consume(ctx, source); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("feed stream failed; backing off",
				logging.Error(err),
				logging.String(logging.FieldEventType, "feed_stream_failed"))
			if !w.wait(ctx) {
				return nil
			}
			continue
		}
		return nil
	}
}

// consume pulls items until the source fails or ctx is canceled.
func (w *Watcher) consume(ctx context.Context, source Source) error {
	for {
		item, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		w.handleItem(ctx, item)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// handleItem runs one item through classify, dedup, insert and notify.
// Every failure path drops the item and logs; the loop continues.
func (w *Watcher) handleItem(ctx context.Context, item Item) {
	id := item.ID()
	if id == "" {
		return
	}
	itemLogger := w.logger.With(logging.String(logging.FieldItemID, id))

	result := w.classifier.Classify(ctx, item.Text())
	switch result.Outcome {
	case classifier.OutcomeUnavailable:
		itemLogger.Warn("classifier unavailable; dropping item",
			logging.Error(result.Err),
			logging.String(logging.FieldEventType, "classify_unavailable"))
		return
	case classifier.OutcomeUnmatched:
		itemLogger.Debug("item did not match",
			logging.Float64("confidence", result.Verdict.Confidence))
		return
	case classifier.OutcomeMatched:
	default:
		return
	}

	itemLogger.Info("item matched",
		logging.Float64("confidence", result.Verdict.Confidence),
		logging.String("reasoning", result.Verdict.Reasoning),
		logging.String(logging.FieldEventType, "item_matched"))

	exists, err := w.exists(ctx, item)
	if err != nil {
		itemLogger.Error("duplicate check failed; dropping item",
			logging.Error(err),
			logging.String(logging.FieldEventType, "dedup_failed"))
		return
	}
	if exists {
		itemLogger.Debug("item already saved; skipping")
		return
	}

	inserted, err := w.insertWithRetry(ctx, item, itemLogger)
	if err != nil {
		itemLogger.Error("insert failed after retries; dropping item",
			logging.Error(err),
			logging.String(logging.FieldEventType, "insert_failed"))
		return
	}
	if inserted != store.ResultInserted {
		itemLogger.Debug("item saved concurrently; skipping notification")
		return
	}

	if err := w.notify(ctx, item); err != nil {
		itemLogger.Warn("notification delivery failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notify_failed"))
	}
}

// insertWithRetry attempts the insert, retrying immediately on failure up to
// the configured count.
func (w *Watcher) insertWithRetry(ctx context.Context, item Item, logger *slog.Logger) (store.InsertResult, error) {
	var lastErr error
	for attempt := 0; attempt <= w.insertRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("retrying insert",
				logging.Error(lastErr),
				logging.Int("attempt", attempt+1))
		}
		result, err := w.insert(ctx, item)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	var none store.InsertResult
	return none, lastErr
}

func (w *Watcher) exists(ctx context.Context, item Item) (bool, error) {
	if item.Submission != nil {
		return w.records.ExistsSubmission(ctx, item.Submission.ID)
	}
	return w.records.ExistsComment(ctx, item.Comment.ID)
}

func (w *Watcher) insert(ctx context.Context, item Item) (store.InsertResult, error) {
	if item.Submission != nil {
		return w.records.InsertSubmission(ctx, item.Submission)
	}
	return w.records.InsertComment(ctx, item.Comment)
}

func (w *Watcher) notify(ctx context.Context, item Item) error {
	if item.Submission != nil {
		return w.notifier.SubmissionSaved(ctx, item.Submission)
	}
	return w.notifier.CommentSaved(ctx, item.Comment)
}

// wait sleeps for the backoff interval; false means ctx was canceled.
func (w *Watcher) wait(ctx context.Context) bool {
	timer := time.NewTimer(w.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
