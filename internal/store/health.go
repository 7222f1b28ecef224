package store

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Summary describes aggregate record counts for status reporting.
type Summary struct {
	Submissions       int
	Comments          int
	SubmissionsLast24 int
	CommentsLast24    int
}

// Counts returns total and last-24h record counts per kind.
func (s *Store) Counts(ctx context.Context) (Summary, error) {
	var summary Summary
	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339Nano)

	queries := []struct {
		query  string
		args   []any
		target *int
	}{
		{"SELECT COUNT(1) FROM submissions", nil, &summary.Submissions},
		{"SELECT COUNT(1) FROM comments", nil, &summary.Comments},
		{"SELECT COUNT(1) FROM submissions WHERE saved_at >= ?", []any{cutoff}, &summary.SubmissionsLast24},
		{"SELECT COUNT(1) FROM comments WHERE saved_at >= ?", []any{cutoff}, &summary.CommentsLast24},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.target); err != nil {
			return Summary{}, fmt.Errorf("count records: %w", err)
		}
	}
	return summary, nil
}

// CountSavedSince returns per-kind counts of records saved at or after the cutoff.
func (s *Store) CountSavedSince(ctx context.Context, cutoff time.Time) (submissions, comments int, err error) {
	marker := cutoff.UTC().Format(time.RFC3339Nano)
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM submissions WHERE saved_at >= ?", marker).Scan(&submissions); err != nil {
		return 0, 0, fmt.Errorf("count submissions: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM comments WHERE saved_at >= ?", marker).Scan(&comments); err != nil {
		return 0, 0, fmt.Errorf("count comments: %w", err)
	}
	return submissions, comments, nil
}

// Health captures diagnostic information about the record database.
type Health struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	IntegrityCheck   bool
	TotalRecords     int
	Error            string
}

// CheckHealth runs database diagnostics for the CLI status surface.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{DBPath: s.path}

	if _, err := os.Stat(s.path); err == nil {
		health.DatabaseExists = true
	}

	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, nil
	}
	health.DatabaseReadable = true

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err == nil {
		health.IntegrityCheck = integrity == "ok"
	}

	summary, err := s.Counts(ctx)
	if err != nil {
		health.Error = err.Error()
		return health, nil
	}
	health.TotalRecords = summary.Submissions + summary.Comments
	return health, nil
}

// Clear removes all records. Maintenance path for the CLI and tests only; the
// pipeline itself is append-only.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range []string{"submissions", "comments"} {
		res, err := s.db.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return total, fmt.Errorf("clear %s: %w", table, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}
