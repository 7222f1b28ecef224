package watcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"beatwatch/internal/classifier"
	"beatwatch/internal/notifications"
	"beatwatch/internal/reddit"
	"beatwatch/internal/store"
	"beatwatch/internal/testsupport"
	"beatwatch/internal/watcher"
)

type feedEvent struct {
	item watcher.Item
	err  error
}

type scriptSource struct {
	events chan feedEvent
}

func (s *scriptSource) Next(ctx context.Context) (watcher.Item, error) {
	select {
	case <-ctx.Done():
		return watcher.Item{}, ctx.Err()
	case ev := <-s.events:
		return ev.item, ev.err
	}
}

// scriptFeed hands out pre-scripted sources; once exhausted it returns
// sources that block forever.
type scriptFeed struct {
	mu         sync.Mutex
	sources    []*scriptSource
	subscribes int
}

func (f *scriptFeed) Subscribe(ctx context.Context) (watcher.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if len(f.sources) == 0 {
		return &scriptSource{events: make(chan feedEvent)}, nil
	}
	next := f.sources[0]
	f.sources = f.sources[1:]
	return next, nil
}

func (f *scriptFeed) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

type funcClassifier func(text string) classifier.Result

func (f funcClassifier) Classify(_ context.Context, text string) classifier.Result {
	return f(text)
}

func alwaysMatch(text string) classifier.Result {
	return classifier.Result{
		Outcome: classifier.OutcomeMatched,
		Verdict: classifier.Verdict{IsBeatoMeme: true, Confidence: 0.9},
	}
}

// recordingNotifier pushes each delivered id onto a channel so tests can
// synchronize on pipeline progress.
type recordingNotifier struct {
	delivered chan string
	err       error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{delivered: make(chan string, 16)}
}

func (n *recordingNotifier) SubmissionSaved(_ context.Context, sub *reddit.Submission) error {
	n.delivered <- sub.ID
	return n.err
}

func (n *recordingNotifier) CommentSaved(_ context.Context, comment *reddit.Comment) error {
	n.delivered <- comment.ID
	return n.err
}

func (n *recordingNotifier) DigestReport(context.Context, notifications.DigestSummary) error {
	return nil
}

func (n *recordingNotifier) Test(context.Context) error { return nil }

func (n *recordingNotifier) waitFor(t *testing.T) string {
	t.Helper()
	select {
	case id := <-n.delivered:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
		return ""
	}
}

func (n *recordingNotifier) expectNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case id := <-n.delivered:
		t.Fatalf("unexpected notification for %s", id)
	case <-time.After(within):
	}
}

func submissionItem(id string) watcher.Item {
	return watcher.Item{Submission: testsupport.Submission(id)}
}

func commentItem(id string) watcher.Item {
	return watcher.Item{Comment: testsupport.Comment(id)}
}

func startWatcher(t *testing.T, cfg watcher.Config) (context.CancelFunc, chan error) {
	t.Helper()
	w, err := watcher.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop after cancellation")
		}
	})
	return cancel, done
}

func TestMatchedSubmissionIsSavedAndNotified(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	notifier := newRecordingNotifier()
	source := &scriptSource{events: make(chan feedEvent, 4)}
	source.events <- feedEvent{item: submissionItem("s1")}

	startWatcher(t, watcher.Config{
		Kind:       watcher.KindSubmission,
		Feed:       &scriptFeed{sources: []*scriptSource{source}},
		Classifier: funcClassifier(alwaysMatch),
		Records:    st,
		Notifier:   notifier,
		Backoff:    10 * time.Millisecond,
	})

	if id := notifier.waitFor(t); id != "s1" {
		t.Fatalf("expected notification for s1, got %s", id)
	}
	exists, err := st.ExistsSubmission(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ExistsSubmission failed: %v", err)
	}
	if !exists {
		t.Fatal("expected submission to be saved")
	}
}

func TestDuplicateItemIsNotRenotified(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := st.InsertComment(context.Background(), testsupport.Comment("c1")); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	notifier := newRecordingNotifier()
	source := &scriptSource{events: make(chan feedEvent, 4)}
	source.events <- feedEvent{item: commentItem("c1")}
	source.events <- feedEvent{item: commentItem("c2")}

	startWatcher(t, watcher.Config{
		Kind:       watcher.KindComment,
		Feed:       &scriptFeed{sources: []*scriptSource{source}},
		Classifier: funcClassifier(alwaysMatch),
		Records:    st,
		Notifier:   notifier,
		Backoff:    10 * time.Millisecond,
	})

	// c1 is already saved, so the first notification is for c2.
	if id := notifier.waitFor(t); id != "c2" {
		t.Fatalf("expected notification for c2 only, got %s", id)
	}
}

func TestUnmatchedItemIsSkipped(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	notifier := newRecordingNotifier()
	source := &scriptSource{events: make(chan feedEvent, 4)}
	source.events <- feedEvent{item: submissionItem("s-miss")}
	source.events <- feedEvent{item: submissionItem("s-hit")}

	startWatcher(t, watcher.Config{
		Kind: watcher.KindSubmission,
		Feed: &scriptFeed{sources: []*scriptSource{source}},
		Classifier: funcClassifier(func(text string) classifier.Result {
			if text == testsupport.Submission("s-miss").Title {
				return classifier.Result{Outcome: classifier.OutcomeUnmatched}
			}
			return alwaysMatch(text)
		}),
		Records:  st,
		Notifier: notifier,
		Backoff:  10 * time.Millisecond,
	})

	if id := notifier.waitFor(t); id != "s-hit" {
		t.Fatalf("expected notification for s-hit, got %s", id)
	}
	exists, err := st.ExistsSubmission(context.Background(), "s-miss")
	if err != nil {
		t.Fatalf("ExistsSubmission failed: %v", err)
	}
	if exists {
		t.Fatal("unmatched item must not be saved")
	}
}

func TestClassifierOutageDropsItemAndContinues(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	notifier := newRecordingNotifier()
	source := &scriptSource{events: make(chan feedEvent, 4)}
	source.events <- feedEvent{item: submissionItem("s-down")}
	source.events <- feedEvent{item: submissionItem("s-up")}

	startWatcher(t, watcher.Config{
		Kind: watcher.KindSubmission,
		Feed: &scriptFeed{sources: []*scriptSource{source}},
		Classifier: funcClassifier(func(text string) classifier.Result {
			if text == testsupport.Submission("s-down").Title {
				return classifier.Result{
					Outcome: classifier.OutcomeUnavailable,
					Err:     classifier.ErrUnavailable,
				}
			}
			return alwaysMatch(text)
		}),
		Records:  st,
		Notifier: notifier,
		Backoff:  10 * time.Millisecond,
	})

	if id := notifier.waitFor(t); id != "s-up" {
		t.Fatalf("expected notification for s-up, got %s", id)
	}
	exists, err := st.ExistsSubmission(context.Background(), "s-down")
	if err != nil {
		t.Fatalf("ExistsSubmission failed: %v", err)
	}
	if exists {
		t.Fatal("item seen during classifier outage must not be saved")
	}
}

// failingRecords counts insert attempts and fails them all.
type failingRecords struct {
	mu       sync.Mutex
	attempts int
}

func (r *failingRecords) ExistsSubmission(context.Context, string) (bool, error) { return false, nil }
func (r *failingRecords) ExistsComment(context.Context, string) (bool, error)    { return false, nil }

func (r *failingRecords) InsertSubmission(context.Context, *reddit.Submission) (store.InsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	var none store.InsertResult
	return none, errors.New("disk full")
}

func (r *failingRecords) InsertComment(context.Context, *reddit.Comment) (store.InsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	var none store.InsertResult
	return none, errors.New("disk full")
}

func (r *failingRecords) attemptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func TestInsertRetriesOnceThenDrops(t *testing.T) {
	records := &failingRecords{}
	notifier := newRecordingNotifier()
	source := &scriptSource{events: make(chan feedEvent, 4)}
	source.events <- feedEvent{item: submissionItem("s-fail")}

	startWatcher(t, watcher.Config{
		Kind:          watcher.KindSubmission,
		Feed:          &scriptFeed{sources: []*scriptSource{source}},
		Classifier:    funcClassifier(alwaysMatch),
		Records:       records,
		Notifier:      notifier,
		Backoff:       10 * time.Millisecond,
		InsertRetries: 1,
	})

	notifier.expectNone(t, 200*time.Millisecond)
	if got := records.attemptCount(); got != 2 {
		t.Fatalf("expected exactly 2 insert attempts, got %d", got)
	}
}

func TestFeedErrorTriggersResubscribe(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	notifier := newRecordingNotifier()

	first := &scriptSource{events: make(chan feedEvent, 4)}
	first.events <- feedEvent{item: submissionItem("s1")}
	first.events <- feedEvent{err: errors.New("connection reset")}
	second := &scriptSource{events: make(chan feedEvent, 4)}
	second.events <- feedEvent{item: submissionItem("s2")}

	feed := &scriptFeed{sources: []*scriptSource{first, second}}
	startWatcher(t, watcher.Config{
		Kind:       watcher.KindSubmission,
		Feed:       feed,
		Classifier: funcClassifier(alwaysMatch),
		Records:    st,
		Notifier:   notifier,
		Backoff:    10 * time.Millisecond,
	})

	if id := notifier.waitFor(t); id != "s1" {
		t.Fatalf("expected s1 first, got %s", id)
	}
	if id := notifier.waitFor(t); id != "s2" {
		t.Fatalf("expected s2 after resubscribe, got %s", id)
	}
	if got := feed.subscribeCount(); got < 2 {
		t.Fatalf("expected at least 2 subscriptions, got %d", got)
	}
}

func TestItemsProcessedInArrivalOrder(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	notifier := newRecordingNotifier()
	source := &scriptSource{events: make(chan feedEvent, 8)}
	for _, id := range []string{"c1", "c2", "c3"} {
		source.events <- feedEvent{item: commentItem(id)}
	}

	startWatcher(t, watcher.Config{
		Kind:       watcher.KindComment,
		Feed:       &scriptFeed{sources: []*scriptSource{source}},
		Classifier: funcClassifier(alwaysMatch),
		Records:    st,
		Notifier:   notifier,
		Backoff:    10 * time.Millisecond,
	})

	for _, want := range []string{"c1", "c2", "c3"} {
		if got := notifier.waitFor(t); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestNotificationFailureDoesNotBlockPipeline(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	notifier := newRecordingNotifier()
	notifier.err = errors.New("webhook 500")
	source := &scriptSource{events: make(chan feedEvent, 4)}
	source.events <- feedEvent{item: submissionItem("s1")}
	source.events <- feedEvent{item: submissionItem("s2")}

	startWatcher(t, watcher.Config{
		Kind:       watcher.KindSubmission,
		Feed:       &scriptFeed{sources: []*scriptSource{source}},
		Classifier: funcClassifier(alwaysMatch),
		Records:    st,
		Notifier:   notifier,
		Backoff:    10 * time.Millisecond,
	})

	notifier.waitFor(t)
	notifier.waitFor(t)
	for _, id := range []string{"s1", "s2"} {
		exists, err := st.ExistsSubmission(context.Background(), id)
		if err != nil {
			t.Fatalf("ExistsSubmission failed: %v", err)
		}
		if !exists {
			t.Fatalf("expected %s to be saved despite notify failure", id)
		}
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := watcher.New(watcher.Config{Kind: "neither"})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	_, err = watcher.New(watcher.Config{Kind: watcher.KindSubmission})
	if err == nil {
		t.Fatal("expected error for missing feed")
	}
}

func TestSlowClassifierDoesNotBlockOtherWatcher(t *testing.T) {
	subStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	commentStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	release := make(chan struct{})
	subNotifier := newRecordingNotifier()
	subSource := &scriptSource{events: make(chan feedEvent, 4)}
	subSource.events <- feedEvent{item: submissionItem("s-slow")}

	startWatcher(t, watcher.Config{
		Kind: watcher.KindSubmission,
		Feed: &scriptFeed{sources: []*scriptSource{subSource}},
		Classifier: funcClassifier(func(text string) classifier.Result {
			<-release
			return alwaysMatch(text)
		}),
		Records:  subStore,
		Notifier: subNotifier,
		Backoff:  10 * time.Millisecond,
	})

	commentNotifier := newRecordingNotifier()
	commentSource := &scriptSource{events: make(chan feedEvent, 8)}
	for _, id := range []string{"c1", "c2", "c3"} {
		commentSource.events <- feedEvent{item: commentItem(id)}
	}

	startWatcher(t, watcher.Config{
		Kind:       watcher.KindComment,
		Feed:       &scriptFeed{sources: []*scriptSource{commentSource}},
		Classifier: funcClassifier(alwaysMatch),
		Records:    commentStore,
		Notifier:   commentNotifier,
		Backoff:    10 * time.Millisecond,
	})

	// The submission watcher is stalled inside its classifier the whole
	// time the comment watcher works through its backlog.
	for _, want := range []string{"c1", "c2", "c3"} {
		if got := commentNotifier.waitFor(t); got != want {
			t.Fatalf("expected %s while other watcher is stalled, got %s", want, got)
		}
	}
	subNotifier.expectNone(t, 50*time.Millisecond)

	close(release)
	if got := subNotifier.waitFor(t); got != "s-slow" {
		t.Fatalf("expected s-slow after classifier unblocked, got %s", got)
	}
}
