// Package reddit provides a read-only client for a single subreddit's
// submission and comment feeds.
//
// The client authenticates with the application-only OAuth grant and exposes
// the feeds as blocking streams: Next polls the listing endpoints, tracks a
// bounded window of seen ids to suppress listing overlap, and yields items in
// arrival order. Stream errors are returned to the caller, who decides
// whether to back off and resubscribe.
package reddit
