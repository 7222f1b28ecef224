package testsupport

import (
	"testing"
	"time"

	"beatwatch/internal/config"
	"beatwatch/internal/reddit"
	"beatwatch/internal/store"
)

// MustOpenStore opens a store for the supplied config and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}

// Submission builds a plausible feed submission for tests.
func Submission(id string) *reddit.Submission {
	return &reddit.Submission{
		ID:    id,
		Title: "Pat plays a I IV V in a grocery store",
		Author: reddit.Author{
			ID:   "u_" + id,
			Name: "tester",
			URL:  reddit.ProfileURL("tester"),
		},
		URL:     "https://www.reddit.com/r/patfinnerty/comments/" + id,
		Created: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Comment builds a plausible feed comment, parented to a Submission.
func Comment(id string) *reddit.Comment {
	parent := Submission("parent_" + id)
	return &reddit.Comment{
		ID:         id,
		Body:       "What about that chord progression?",
		Author:     reddit.Author{ID: "u_c_" + id, Name: "commenter", URL: reddit.ProfileURL("commenter")},
		Permalink:  "https://www.reddit.com/r/patfinnerty/comments/parent_" + id + "/comment/" + id,
		Created:    time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC),
		Submission: *parent,
	}
}
