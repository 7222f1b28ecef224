package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultHTTPTimeout = 30 * time.Second

// ErrUnavailable tags classification failures caused by the backend being
// unreachable or unhealthy. Callers treat it as "skip this item", never as a
// match or a fatal condition.
var ErrUnavailable = errors.New("classifier unavailable")

// Outcome is the explicit result of classifying one item.
type Outcome int

const (
	// OutcomeUnmatched means the backend answered but the item is not a
	// match. It is the zero value, so an uninitialized Result never reads
	// as a match.
	OutcomeUnmatched Outcome = iota
	// OutcomeMatched means the verdict flagged the item and cleared the
	// confidence threshold.
	OutcomeMatched
	// OutcomeUnavailable means the backend could not produce a verdict.
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeUnmatched:
		return "unmatched"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Verdict is the structured response from the classification backend.
type Verdict struct {
	IsBeatoMeme bool    `json:"is_beato_meme"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// Result pairs an outcome with the verdict that produced it. Err is set only
// for OutcomeUnavailable and wraps ErrUnavailable.
type Result struct {
	Outcome Outcome
	Verdict Verdict
	Err     error
}

// Client talks to the classification backend over HTTP. It performs no
// internal retries: retry policy belongs to the caller, and the current
// watcher design is to skip the item instead.
type Client struct {
	baseURL    string
	threshold  float64
	httpClient *http.Client
	prefilter  *Prefilter
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithConfidenceThreshold sets the minimum confidence for a match verdict.
func WithConfidenceThreshold(threshold float64) Option {
	return func(c *Client) {
		if threshold > 0 && threshold <= 1 {
			c.threshold = threshold
		}
	}
}

// WithPrefilter installs a deterministic pattern gate that short-circuits the
// backend call for text containing no chord or progression patterns.
func WithPrefilter(p *Prefilter) Option {
	return func(c *Client) {
		c.prefilter = p
	}
}

// NewClient constructs a classifier client for the supplied endpoint.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type classifyRequest struct {
	Message string `json:"message"`
}

// Classify sends the raw item text to the backend and maps the response to an
// explicit outcome. Network errors and non-2xx statuses become
// OutcomeUnavailable; they never surface as a match.
func (c *Client) Classify(ctx context.Context, text string) Result {
	if c.prefilter != nil && !c.prefilter.Match(text) {
		return Result{
			Outcome: OutcomeUnmatched,
			Verdict: Verdict{Reasoning: "no chord or progression patterns detected"},
		}
	}

	verdict, err := c.query(ctx, text)
	if err != nil {
		return Result{Outcome: OutcomeUnavailable, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}

	if verdict.IsBeatoMeme && verdict.Confidence >= c.threshold {
		return Result{Outcome: OutcomeMatched, Verdict: verdict}
	}
	return Result{Outcome: OutcomeUnmatched, Verdict: verdict}
}

// Ready verifies the backend can produce a well-formed verdict. The daemon
// queries this once before starting the watchers; failure is reported but not
// fatal because the backing model may still be warming up.
func (c *Client) Ready(ctx context.Context) error {
	if _, err := c.query(ctx, "readiness probe"); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) query(ctx context.Context, text string) (Verdict, error) {
	var verdict Verdict

	encoded, err := json.Marshal(classifyRequest{Message: text})
	if err != nil {
		return verdict, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return verdict, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return verdict, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return verdict, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return verdict, fmt.Errorf("http %d: %s", resp.StatusCode, summarizeBody(body))
	}
	if err := json.Unmarshal(body, &verdict); err != nil {
		return verdict, fmt.Errorf("decode response: %w", err)
	}
	if verdict.Confidence < 0 {
		verdict.Confidence = 0
	}
	if verdict.Confidence > 1 {
		verdict.Confidence = 1
	}
	return verdict, nil
}

func summarizeBody(body []byte) string {
	clean := strings.Join(strings.Fields(string(body)), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	if clean == "" {
		return "<empty>"
	}
	return clean
}
