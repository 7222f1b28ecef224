// Package store persists matched feed items in SQLite.
//
// Records are keyed by the Reddit item id and append-only: the pipeline never
// updates or deletes them. Insert operations use INSERT OR IGNORE so a
// duplicate insert — whether from at-least-once feed replay or a race between
// the two watchers — degrades to a reported no-op instead of an error. The
// watchers rely on Exists for cheap duplicate suppression and on the explicit
// InsertResult to decide whether to notify.
package store
