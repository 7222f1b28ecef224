// Command beatwatch watches a subreddit for chord-progression posts,
// classifies new submissions and comments with an external backend, saves
// matches to SQLite and announces them on a Discord webhook.
package main
