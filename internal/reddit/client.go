package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"beatwatch/internal/config"
)

const (
	defaultAPIBase  = "https://oauth.reddit.com"
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	listingLimit    = 100
)

// Client reads the subreddit's submission and comment feeds over the OAuth
// API. A single client is shared by both streams; requests carry the
// configured user agent and a bounded timeout.
type Client struct {
	subreddit      string
	userAgent      string
	pollInterval   time.Duration
	requestTimeout time.Duration
	skipExisting   bool

	apiBase    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the OAuth-wrapped HTTP client (used in tests to
// bypass the token exchange).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides the listing poll cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithAPIBase overrides the API base URL (useful for tests/mocks).
func WithAPIBase(base string) Option {
	return func(c *Client) {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base != "" {
			c.apiBase = base
		}
	}
}

// NewClient constructs a feed client from the reddit config section. The
// returned client authenticates with the application-only (client
// credentials) OAuth grant.
func NewClient(cfg config.Reddit, opts ...Option) *Client {
	client := &Client{
		subreddit:      cfg.Subreddit,
		userAgent:      cfg.UserAgent,
		pollInterval:   time.Duration(cfg.PollInterval) * time.Second,
		requestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		skipExisting:   cfg.SkipExisting,
		apiBase:        defaultAPIBase,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.pollInterval <= 0 {
		client.pollInterval = 5 * time.Second
	}
	if client.requestTimeout <= 0 {
		client.requestTimeout = 30 * time.Second
	}
	if client.httpClient == nil {
		creds := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     defaultTokenURL,
		}
		base := creds.Client(context.Background())
		base.Transport = &userAgentTransport{agent: cfg.UserAgent, next: base.Transport}
		client.httpClient = base
	}
	return client
}

// userAgentTransport stamps the required User-Agent on every request; Reddit
// throttles clients using generic library agents.
type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(clone)
}

type listingEnvelope struct {
	Data struct {
		Children []struct {
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type submissionData struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Title          string  `json:"title"`
	Author         string  `json:"author"`
	AuthorFullname string  `json:"author_fullname"`
	URL            string  `json:"url"`
	Permalink      string  `json:"permalink"`
	CreatedUTC     float64 `json:"created_utc"`
}

type commentData struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Body           string  `json:"body"`
	Author         string  `json:"author"`
	AuthorFullname string  `json:"author_fullname"`
	Permalink      string  `json:"permalink"`
	CreatedUTC     float64 `json:"created_utc"`
	LinkID         string  `json:"link_id"`
}

func (c *Client) getListing(ctx context.Context, path string, query url.Values) (*listingEnvelope, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	endpoint := c.apiBase + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: http %d", path, resp.StatusCode)
	}

	var envelope listingEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &envelope, nil
}

func (c *Client) fetchNewSubmissions(ctx context.Context) ([]*Submission, error) {
	query := url.Values{"limit": {fmt.Sprintf("%d", listingLimit)}, "raw_json": {"1"}}
	envelope, err := c.getListing(ctx, "/r/"+c.subreddit+"/new", query)
	if err != nil {
		return nil, err
	}

	subs := make([]*Submission, 0, len(envelope.Data.Children))
	for _, child := range envelope.Data.Children {
		var data submissionData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		subs = append(subs, data.toSubmission())
	}
	return subs, nil
}

func (c *Client) fetchNewComments(ctx context.Context) ([]*commentData, error) {
	query := url.Values{"limit": {fmt.Sprintf("%d", listingLimit)}, "raw_json": {"1"}}
	envelope, err := c.getListing(ctx, "/r/"+c.subreddit+"/comments", query)
	if err != nil {
		return nil, err
	}

	comments := make([]*commentData, 0, len(envelope.Data.Children))
	for _, child := range envelope.Data.Children {
		var data commentData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		comments = append(comments, &data)
	}
	return comments, nil
}

// fetchSubmissionByFullname resolves a comment's parent submission via
// /api/info.
func (c *Client) fetchSubmissionByFullname(ctx context.Context, fullname string) (*Submission, error) {
	query := url.Values{"id": {fullname}, "raw_json": {"1"}}
	envelope, err := c.getListing(ctx, "/api/info", query)
	if err != nil {
		return nil, err
	}
	if len(envelope.Data.Children) == 0 {
		return nil, fmt.Errorf("submission %s not found", fullname)
	}
	var data submissionData
	if err := json.Unmarshal(envelope.Data.Children[0].Data, &data); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	return data.toSubmission(), nil
}

func (d *submissionData) toSubmission() *Submission {
	return &Submission{
		ID:    d.ID,
		Title: d.Title,
		Author: Author{
			ID:   strings.TrimPrefix(d.AuthorFullname, "t2_"),
			Name: d.Author,
			URL:  ProfileURL(d.Author),
		},
		URL:     d.URL,
		Created: fromEpoch(d.CreatedUTC),
	}
}

func (d *commentData) toComment(parent *Submission) *Comment {
	comment := &Comment{
		ID:   d.ID,
		Body: d.Body,
		Author: Author{
			ID:   strings.TrimPrefix(d.AuthorFullname, "t2_"),
			Name: d.Author,
			URL:  ProfileURL(d.Author),
		},
		Permalink: "https://www.reddit.com" + d.Permalink,
		Created:   fromEpoch(d.CreatedUTC),
	}
	if parent != nil {
		comment.Submission = *parent
	}
	return comment
}

func fromEpoch(epoch float64) time.Time {
	if epoch <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(epoch), 0).UTC()
}
