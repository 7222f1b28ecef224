package watcher

import (
	"context"

	"beatwatch/internal/reddit"
)

// Kind labels which feed a watcher consumes.
const (
	KindSubmission = "submission"
	KindComment    = "comment"
)

// Item is one unit pulled from a feed. Exactly one of Submission or Comment
// is set, matching the watcher's kind.
type Item struct {
	Submission *reddit.Submission
	Comment    *reddit.Comment
}

// ID returns the reddit id of the wrapped record.
func (i Item) ID() string {
	switch {
	case i.Submission != nil:
		return i.Submission.ID
	case i.Comment != nil:
		return i.Comment.ID
	}
	return ""
}

// Text returns the content sent to the classifier: the title for submissions,
// the body for comments.
func (i Item) Text() string {
	switch {
	case i.Submission != nil:
		return i.Submission.Title
	case i.Comment != nil:
		return i.Comment.Body
	}
	return ""
}

// Source yields feed items in arrival order. Next blocks until an item is
// available, the source fails, or the context is canceled.
type Source interface {
	Next(ctx context.Context) (Item, error)
}

// Feed opens a fresh Source. Watchers resubscribe through the feed after a
// source failure.
type Feed interface {
	Subscribe(ctx context.Context) (Source, error)
}

type submissionFeed struct {
	client *reddit.Client
}

type submissionSource struct {
	stream *reddit.SubmissionStream
}

// NewSubmissionFeed adapts the reddit client's submission stream to the Feed
// interface.
func NewSubmissionFeed(client *reddit.Client) Feed {
	return submissionFeed{client: client}
}

func (f submissionFeed) Subscribe(ctx context.Context) (Source, error) {
	stream, err := f.client.StreamSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	return submissionSource{stream: stream}, nil
}

func (s submissionSource) Next(ctx context.Context) (Item, error) {
	sub, err := s.stream.Next(ctx)
	if err != nil {
		return Item{}, err
	}
	return Item{Submission: sub}, nil
}

type commentFeed struct {
	client *reddit.Client
}

type commentSource struct {
	stream *reddit.CommentStream
}

// NewCommentFeed adapts the reddit client's comment stream to the Feed
// interface.
func NewCommentFeed(client *reddit.Client) Feed {
	return commentFeed{client: client}
}

func (f commentFeed) Subscribe(ctx context.Context) (Source, error) {
	stream, err := f.client.StreamComments(ctx)
	if err != nil {
		return nil, err
	}
	return commentSource{stream: stream}, nil
}

func (s commentSource) Next(ctx context.Context) (Item, error) {
	comment, err := s.stream.Next(ctx)
	if err != nil {
		return Item{}, err
	}
	return Item{Comment: comment}, nil
}
