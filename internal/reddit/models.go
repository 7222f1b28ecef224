package reddit

import "time"

// Author identifies the account that created a submission or comment.
type Author struct {
	ID   string
	Name string
	URL  string
}

// Submission is a post pulled from the subreddit's submission feed. Items are
// immutable once observed; identity is the Reddit fullname-less id (e.g.
// "1abcd2").
type Submission struct {
	ID      string
	Title   string
	Author  Author
	URL     string
	Created time.Time
}

// Comment is a comment pulled from the subreddit's comment feed. It carries
// the parent submission so persisted records are self-contained.
type Comment struct {
	ID         string
	Body       string
	Author     Author
	Permalink  string
	Created    time.Time
	Submission Submission
}

// ProfileURL builds the public profile link for a username, matching the
// shape stored alongside every record.
func ProfileURL(username string) string {
	return "https://www.reddit.com/u/" + username
}
