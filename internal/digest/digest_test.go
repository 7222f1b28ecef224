package digest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"beatwatch/internal/digest"
	"beatwatch/internal/notifications"
	"beatwatch/internal/reddit"
	"beatwatch/internal/testsupport"
)

type captureNotifier struct {
	summaries []notifications.DigestSummary
}

func (n *captureNotifier) SubmissionSaved(context.Context, *reddit.Submission) error { return nil }
func (n *captureNotifier) CommentSaved(context.Context, *reddit.Comment) error       { return nil }
func (n *captureNotifier) Test(context.Context) error                                { return nil }

func (n *captureNotifier) DigestReport(_ context.Context, summary notifications.DigestSummary) error {
	n.summaries = append(n.summaries, summary)
	return nil
}

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.DigestSchedule = ""
	job, err := digest.New(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if job != nil {
		t.Fatal("expected nil job when schedule is empty")
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.DigestSchedule = "not a schedule"
	if _, err := digest.New(cfg, nil, nil, nil); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestRunOnceReportsRecentCounts(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, id := range []string{"s1", "s2"} {
		if _, err := st.InsertSubmission(ctx, testsupport.Submission(id)); err != nil {
			t.Fatalf("insert submission: %v", err)
		}
	}
	if _, err := st.InsertComment(ctx, testsupport.Comment("c1")); err != nil {
		t.Fatalf("insert comment: %v", err)
	}

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.DigestSchedule = "0 9 * * *"
	notifier := &captureNotifier{}
	job, err := digest.New(cfg, st, notifier, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := job.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(notifier.summaries) != 1 {
		t.Fatalf("expected one digest, got %d", len(notifier.summaries))
	}
	summary := notifier.summaries[0]
	if summary.Submissions != 2 || summary.Comments != 1 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.Subreddit != cfg.Reddit.Subreddit {
		t.Fatalf("unexpected subreddit %q", summary.Subreddit)
	}
	if summary.Window != 24*time.Hour {
		t.Fatalf("unexpected window %s", summary.Window)
	}
}

type failingCounter struct{}

func (failingCounter) CountSavedSince(context.Context, time.Time) (int, int, error) {
	return 0, 0, errors.New("database locked")
}

func TestRunOnceSurfacesCounterErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.DigestSchedule = "@hourly"
	job, err := digest.New(cfg, failingCounter{}, &captureNotifier{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := job.RunOnce(context.Background()); err == nil {
		t.Fatal("expected counter error to surface")
	}
}
