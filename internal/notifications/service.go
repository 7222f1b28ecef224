package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"beatwatch/internal/config"
	"beatwatch/internal/logging"
	"beatwatch/internal/reddit"
)

const userAgent = "beatwatch/0.1.0"

// embedColor is the green used for all record embeds.
const embedColor = 3066993

// DigestSummary aggregates record counts for the periodic digest message.
type DigestSummary struct {
	Subreddit   string
	Window      time.Duration
	Submissions int
	Comments    int
}

// Service defines the notification surface exposed to the pipeline. All
// implementations are best-effort: callers log returned errors and move on.
type Service interface {
	SubmissionSaved(ctx context.Context, sub *reddit.Submission) error
	CommentSaved(ctx context.Context, comment *reddit.Comment) error
	DigestReport(ctx context.Context, summary DigestSummary) error
	Test(ctx context.Context) error
}

// NewService builds a notification service backed by a Discord webhook when
// configured. When no webhook URL is configured, a noop implementation is
// returned and the absence is logged once.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	url := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if url == "" {
		logger.Info("no webhook URL configured; notifications disabled",
			logging.String(logging.FieldComponent, "notifications"))
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		endpoint: url,
		client:   &http.Client{Timeout: timeout},
	}
}

type webhookService struct {
	endpoint string
	client   *http.Client
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title  string       `json:"title"`
	Fields []embedField `json:"fields"`
	Color  int          `json:"color"`
}

type webhookMessage struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

func (w *webhookService) SubmissionSaved(ctx context.Context, sub *reddit.Submission) error {
	if sub == nil {
		return nil
	}
	message := webhookMessage{
		Content: "A new submission was saved.",
		Embeds: []embed{{
			Title: "New Submission",
			Fields: []embedField{
				{Name: "_id", Value: sub.ID},
				{Name: "title", Value: truncateField(sub.Title)},
				{Name: "url", Value: sub.URL},
			},
			Color: embedColor,
		}},
	}
	return w.send(ctx, message)
}

func (w *webhookService) CommentSaved(ctx context.Context, comment *reddit.Comment) error {
	if comment == nil {
		return nil
	}
	message := webhookMessage{
		Content: "A new comment was saved.",
		Embeds: []embed{{
			Title: "New Comment",
			Fields: []embedField{
				{Name: "_id", Value: comment.ID},
				{Name: "body", Value: truncateField(comment.Body)},
				{Name: "permalink", Value: comment.Permalink},
			},
			Color: embedColor,
		}},
	}
	return w.send(ctx, message)
}

func (w *webhookService) DigestReport(ctx context.Context, summary DigestSummary) error {
	window := summary.Window.Round(time.Hour)
	if window <= 0 {
		window = 24 * time.Hour
	}
	message := webhookMessage{
		Content: fmt.Sprintf("Digest for r/%s over the last %s.", summary.Subreddit, window),
		Embeds: []embed{{
			Title: "Watch Digest",
			Fields: []embedField{
				{Name: "submissions", Value: fmt.Sprintf("%d", summary.Submissions), Inline: true},
				{Name: "comments", Value: fmt.Sprintf("%d", summary.Comments), Inline: true},
			},
			Color: embedColor,
		}},
	}
	return w.send(ctx, message)
}

func (w *webhookService) Test(ctx context.Context) error {
	message := webhookMessage{
		Content: "beatwatch notification test.",
		Embeds: []embed{{
			Title:  "Test",
			Fields: []embedField{{Name: "status", Value: "ok"}},
			Color:  embedColor,
		}},
	}
	return w.send(ctx, message)
}

func (w *webhookService) send(ctx context.Context, message webhookMessage) error {
	encoded, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	// Discord signals webhook delivery with 204 specifically.
	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Discord caps embed field values at 1024 characters.
func truncateField(value string) string {
	const limit = 1024
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}

type noopService struct{}

func (noopService) SubmissionSaved(context.Context, *reddit.Submission) error { return nil }
func (noopService) CommentSaved(context.Context, *reddit.Comment) error       { return nil }
func (noopService) DigestReport(context.Context, DigestSummary) error         { return nil }
func (noopService) Test(context.Context) error                                { return nil }
