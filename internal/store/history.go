package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobpilot/internal/orchestrator"
	"jobpilot/internal/types"
)

// fixed width so that text ordering is chronological
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one recorded generation outcome
type Entry struct {
	ID        int64                    `json:"id" yaml:"id"`
	JobID     string                   `json:"job_id" yaml:"job_id"`
	PostingID string                   `json:"posting_id" yaml:"posting_id"`
	Title     string                   `json:"title" yaml:"title"`
	Company   string                   `json:"company" yaml:"company"`
	Template  string                   `json:"template" yaml:"template"`
	Outcome   string                   `json:"outcome" yaml:"outcome"`
	Message   string                   `json:"message,omitempty" yaml:"message,omitempty"`
	Attempts  int                      `json:"attempts" yaml:"attempts"`
	Files     types.GeneratedArtifacts `json:"files" yaml:"files"`
	ATSScore  *int                     `json:"ats_score,omitempty" yaml:"ats_score,omitempty"`
	Elapsed   time.Duration            `json:"elapsed" yaml:"elapsed"`
	At        time.Time                `json:"finished_at" yaml:"finished_at"`
}

type ListOpts struct {
	Outcome string // done | error | cancelled | timeout, empty for all
	Limit   int
}

// History records outcomes; it satisfies orchestrator.Recorder
type History struct {
	db *DB
}

func NewHistory(db *DB) *History {
	return &History{db: db}
}

// Record stores a terminal outcome
func (h *History) Record(ctx context.Context, out orchestrator.Outcome) error {
	var files types.GeneratedArtifacts
	if out.Files != nil {
		files = *out.Files
	}
	var ats sql.NullInt64
	if out.ATS != nil {
		ats = sql.NullInt64{Int64: int64(out.ATS.Score), Valid: true}
	}
	at := out.FinishedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := h.db.Pool.ExecContext(ctx, `
INSERT INTO applications
  (job_id, posting_id, title, company, template, outcome, message, attempts,
   cv_path, cover_letter_path, interview_prep_path, ats_score, elapsed_ms, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.JobID, out.Request.Job.ID, out.Request.Job.Title, out.Request.Job.Company,
		string(out.Request.Template), string(out.Kind), out.Message(), out.Attempts,
		files.CV, files.CoverLetter, files.InterviewPrep, ats,
		out.Elapsed.Milliseconds(), at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

const selectEntries = `
SELECT id, job_id, posting_id, title, company, template, outcome, message, attempts,
       cv_path, cover_letter_path, interview_prep_path, ats_score, elapsed_ms, finished_at
FROM applications`

// List returns recorded outcomes, newest first
func (h *History) List(ctx context.Context, opts ListOpts) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if opts.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, opts.Outcome)
	}

	q := selectEntries
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY finished_at DESC, id DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := h.db.Pool.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Lookup returns the latest entry recorded for a server job id
func (h *History) Lookup(ctx context.Context, jobID string) (Entry, bool, error) {
	row := h.db.Pool.QueryRowContext(ctx, selectEntries+` WHERE job_id = ? ORDER BY id DESC LIMIT 1`, jobID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e         Entry
		ats       sql.NullInt64
		elapsedMS int64
		at        string
	)
	if err := s.Scan(&e.ID, &e.JobID, &e.PostingID, &e.Title, &e.Company, &e.Template, &e.Outcome,
		&e.Message, &e.Attempts, &e.Files.CV, &e.Files.CoverLetter, &e.Files.InterviewPrep,
		&ats, &elapsedMS, &at); err != nil {
		return Entry{}, err
	}
	if ats.Valid {
		score := int(ats.Int64)
		e.ATSScore = &score
	}
	e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if t, err := time.Parse(timeLayout, at); err == nil {
		e.At = t
	}
	return e, nil
}
