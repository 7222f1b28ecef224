package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"beatwatch/internal/reddit"
)

// InsertResult reports what an insert actually did.
type InsertResult int

const (
	// ResultAlreadyExists means a record with the same id was already
	// present; the insert was a no-op. It is the zero value, so an
	// uninitialized result never triggers save side effects.
	ResultAlreadyExists InsertResult = iota
	// ResultInserted means a new record was committed.
	ResultInserted
)

func (r InsertResult) String() string {
	switch r {
	case ResultInserted:
		return "inserted"
	case ResultAlreadyExists:
		return "already_exists"
	default:
		return fmt.Sprintf("insert_result(%d)", int(r))
	}
}

// ExistsSubmission reports whether a submission record has been committed.
func (s *Store) ExistsSubmission(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "submissions", id)
}

// ExistsComment reports whether a comment record has been committed.
func (s *Store) ExistsComment(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "comments", id)
}

func (s *Store) exists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s record: %w", table, err)
	}
	return true, nil
}

// InsertSubmission commits a submission record. Inserting an id that already
// exists is not an error; the result reports which case occurred, so a racing
// duplicate insert degrades to a no-op.
func (s *Store) InsertSubmission(ctx context.Context, sub *reddit.Submission) (InsertResult, error) {
	if sub == nil {
		return ResultAlreadyExists, errors.New("submission is nil")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO submissions (
            id, title, author_id, author_name, author_url, url, created, saved_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.Title,
		sub.Author.ID,
		sub.Author.Name,
		sub.Author.URL,
		sub.URL,
		sub.Created.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return ResultAlreadyExists, fmt.Errorf("insert submission: %w", err)
	}
	return insertResult(res)
}

// InsertComment commits a comment record together with its parent submission
// data. Duplicate ids degrade to a no-op like InsertSubmission.
func (s *Store) InsertComment(ctx context.Context, comment *reddit.Comment) (InsertResult, error) {
	if comment == nil {
		return ResultAlreadyExists, errors.New("comment is nil")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO comments (
            id, body, author_id, author_name, author_url, permalink, created,
            submission_id, submission_title, submission_author_id,
            submission_author_name, submission_author_url, submission_url,
            submission_created, saved_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.Body,
		comment.Author.ID,
		comment.Author.Name,
		comment.Author.URL,
		comment.Permalink,
		comment.Created.UTC().Format(time.RFC3339Nano),
		comment.Submission.ID,
		comment.Submission.Title,
		comment.Submission.Author.ID,
		comment.Submission.Author.Name,
		comment.Submission.Author.URL,
		comment.Submission.URL,
		comment.Submission.Created.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return ResultAlreadyExists, fmt.Errorf("insert comment: %w", err)
	}
	return insertResult(res)
}

func insertResult(res sql.Result) (InsertResult, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return ResultAlreadyExists, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ResultAlreadyExists, nil
	}
	return ResultInserted, nil
}

// RecentSubmissions returns the most recently saved submissions, newest first.
func (s *Store) RecentSubmissions(ctx context.Context, limit int) ([]*reddit.Submission, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, title, author_id, author_name, author_url, url, created
         FROM submissions ORDER BY saved_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*reddit.Submission
	for rows.Next() {
		var sub reddit.Submission
		var created string
		if err := rows.Scan(
			&sub.ID, &sub.Title, &sub.Author.ID, &sub.Author.Name,
			&sub.Author.URL, &sub.URL, &created,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Created = parseTimestamp(created)
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}

// RecentComments returns the most recently saved comments, newest first.
func (s *Store) RecentComments(ctx context.Context, limit int) ([]*reddit.Comment, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, body, author_id, author_name, author_url, permalink, created,
            submission_id, submission_title, submission_author_id,
            submission_author_name, submission_author_url, submission_url,
            submission_created
         FROM comments ORDER BY saved_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []*reddit.Comment
	for rows.Next() {
		var c reddit.Comment
		var created, subCreated string
		if err := rows.Scan(
			&c.ID, &c.Body, &c.Author.ID, &c.Author.Name, &c.Author.URL,
			&c.Permalink, &created,
			&c.Submission.ID, &c.Submission.Title, &c.Submission.Author.ID,
			&c.Submission.Author.Name, &c.Submission.Author.URL,
			&c.Submission.URL, &subCreated,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.Created = parseTimestamp(created)
		c.Submission.Created = parseTimestamp(subCreated)
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
