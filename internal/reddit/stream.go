package reddit

import (
	"context"
	"time"
)

// seenCapacity bounds the per-stream duplicate window. Listings return at
// most 100 items, so a few hundred ids is enough to cover overlap between
// consecutive polls.
const seenCapacity = 500

// boundedSet remembers the most recent ids seen by a stream. Oldest entries
// are evicted once capacity is reached.
type boundedSet struct {
	capacity int
	order    []string
	members  map[string]struct{}
}

func newBoundedSet(capacity int) *boundedSet {
	return &boundedSet{
		capacity: capacity,
		members:  make(map[string]struct{}, capacity),
	}
}

func (s *boundedSet) contains(id string) bool {
	_, ok := s.members[id]
	return ok
}

func (s *boundedSet) add(id string) {
	if s.contains(id) {
		return
	}
	s.members[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > s.capacity {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.members, evicted)
	}
}

// SubmissionStream yields new submissions in arrival order. Next blocks,
// polling the listing endpoint until an unseen item appears or the context is
// canceled. Listing failures surface to the caller; the stream itself never
// retries.
type SubmissionStream struct {
	client  *Client
	seen    *boundedSet
	pending []*Submission
	primed  bool
}

// StreamSubmissions opens a submission stream. With skip_existing enabled the
// first poll only primes the seen window, so items already in the listing are
// not replayed.
func (c *Client) StreamSubmissions(ctx context.Context) (*SubmissionStream, error) {
	stream := &SubmissionStream{client: c, seen: newBoundedSet(seenCapacity)}
	if c.skipExisting {
		existing, err := c.fetchNewSubmissions(ctx)
		if err != nil {
			return nil, err
		}
		for _, sub := range existing {
			stream.seen.add(sub.ID)
		}
		stream.primed = true
	}
	return stream, nil
}

// Next returns the next unseen submission, blocking between polls.
func (s *SubmissionStream) Next(ctx context.Context) (*Submission, error) {
	for {
		if len(s.pending) > 0 {
			next := s.pending[0]
			s.pending = s.pending[1:]
			return next, nil
		}
		if s.primed {
			if err := sleep(ctx, s.client.pollInterval); err != nil {
				return nil, err
			}
		}
		listing, err := s.client.fetchNewSubmissions(ctx)
		if err != nil {
			return nil, err
		}
		// Listings are newest-first; deliver oldest-first.
		for i := len(listing) - 1; i >= 0; i-- {
			sub := listing[i]
			if s.seen.contains(sub.ID) {
				continue
			}
			s.seen.add(sub.ID)
			s.pending = append(s.pending, sub)
		}
		s.primed = true
	}
}

// CommentStream yields new comments in arrival order, resolving each
// comment's parent submission on first sight.
type CommentStream struct {
	client  *Client
	seen    *boundedSet
	pending []*Comment
	parents map[string]*Submission
	primed  bool
}

// StreamComments opens a comment stream with the same priming behavior as
// StreamSubmissions.
func (c *Client) StreamComments(ctx context.Context) (*CommentStream, error) {
	stream := &CommentStream{
		client:  c,
		seen:    newBoundedSet(seenCapacity),
		parents: make(map[string]*Submission),
	}
	if c.skipExisting {
		existing, err := c.fetchNewComments(ctx)
		if err != nil {
			return nil, err
		}
		for _, comment := range existing {
			stream.seen.add(comment.ID)
		}
		stream.primed = true
	}
	return stream, nil
}

// Next returns the next unseen comment, blocking between polls.
func (s *CommentStream) Next(ctx context.Context) (*Comment, error) {
	for {
		if len(s.pending) > 0 {
			next := s.pending[0]
			s.pending = s.pending[1:]
			return next, nil
		}
		if s.primed {
			if err := sleep(ctx, s.client.pollInterval); err != nil {
				return nil, err
			}
		}
		listing, err := s.client.fetchNewComments(ctx)
		if err != nil {
			return nil, err
		}
		for i := len(listing) - 1; i >= 0; i-- {
			data := listing[i]
			if s.seen.contains(data.ID) {
				continue
			}
			parent, err := s.parentFor(ctx, data.LinkID)
			if err != nil {
				return nil, err
			}
			s.seen.add(data.ID)
			s.pending = append(s.pending, data.toComment(parent))
		}
		s.primed = true
	}
}

// parentFor caches parent lookups so a burst of comments under one thread
// costs a single /api/info call.
func (s *CommentStream) parentFor(ctx context.Context, linkID string) (*Submission, error) {
	if linkID == "" {
		return nil, nil
	}
	if parent, ok := s.parents[linkID]; ok {
		return parent, nil
	}
	parent, err := s.client.fetchSubmissionByFullname(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if len(s.parents) >= seenCapacity {
		s.parents = make(map[string]*Submission)
	}
	s.parents[linkID] = parent
	return parent, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
