// Package watcher contains the per-feed processing loop: pull an item,
// classify it, skip duplicates, save matches durably and fire a best-effort
// notification.
//
// Each watcher owns exactly one feed and processes its items strictly in
// arrival order. Watchers never share state; running the submission and
// comment watchers concurrently is the supervisor's job.
package watcher
