package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/garnizeh/taxi/internal/db"
)

// Timestamps are stored as unix seconds.
type jobRow struct {
	ID          int64          `db:"id"`
	Type        string         `db:"type"`
	Payload     sql.NullString `db:"payload"`
	Status      string         `db:"status"`
	Attempts    int            `db:"attempts"`
	MaxAttempts int            `db:"max_attempts"`
	Priority    int            `db:"priority"`
	ScheduledAt int64          `db:"scheduled_at"`
	NextTryAt   sql.NullInt64  `db:"next_try_at"`
	LastError   sql.NullString `db:"last_error"`
	Created     int64          `db:"created"`
	Updated     int64          `db:"updated"`
}

func (r jobRow) job() *Job {
	j := &Job{
		ID:          r.ID,
		Type:        r.Type,
		Status:      r.Status,
		Attempts:    r.Attempts,
		MaxAttempts: r.MaxAttempts,
		Priority:    r.Priority,
		ScheduledAt: time.Unix(r.ScheduledAt, 0),
		Created:     time.Unix(r.Created, 0),
		Updated:     time.Unix(r.Updated, 0),
		LastError:   r.LastError.String,
	}
	if r.Payload.Valid {
		j.Payload = json.RawMessage(r.Payload.String)
	}
	if r.NextTryAt.Valid {
		t := time.Unix(r.NextTryAt.Int64, 0)
		j.NextTryAt = &t
	}
	return j
}

const jobColumns = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

// DefaultLease is how long a job may stay running before FetchNext hands it
// out again, which recovers jobs left behind by a crashed process.
const DefaultLease = 5 * time.Minute

type Repository struct {
	db    *db.DB
	clock func() time.Time
	lease time.Duration
}

func NewRepository(d *db.DB) *Repository {
	return &Repository{db: d, clock: time.Now, lease: DefaultLease}
}

// WithClock replaces the clock used for scheduling decisions.
func (r *Repository) WithClock(clock func() time.Time) *Repository {
	r.clock = clock
	return r
}

// WithLease replaces DefaultLease. Handlers must be idempotent, since a job
// that outlives its lease can run twice.
func (r *Repository) WithLease(d time.Duration) *Repository {
	if d > 0 {
		r.lease = d
	}
	return r
}

// Enqueue inserts a job into the jobs table and returns the new ID. A zero
// ScheduledAt means the job is due now.
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	now := r.clock().UTC()
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = now
	}
	q := `INSERT INTO jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.db.Exec(ctx, q, j.Type, string(j.Payload), StatusQueued, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.Unix(), now.Unix(), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

// FetchNext claims the next due job, respecting priority and schedule. A
// running job whose last update is older than the lease is due again. It
// returns nil, nil when nothing is due.
func (r *Repository) FetchNext(ctx context.Context) (*Job, error) {
	var claimed *Job
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := r.clock().UTC()
		q := `SELECT ` + jobColumns + ` FROM jobs
			WHERE ((status = 'queued' OR status = 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?)
			   OR (status = 'running' AND updated <= ?)
			ORDER BY priority ASC, scheduled_at ASC LIMIT 1`

		var row jobRow
		if err := tx.GetContext(ctx, &row, q, now.Unix(), now.Unix(), now.Add(-r.lease).Unix()); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET status = ?, updated = ? WHERE id = ?`, StatusRunning, now.Unix(), row.ID); err != nil {
			return err
		}
		row.Status = StatusRunning
		row.Updated = now.Unix()
		claimed = row.job()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch next job: %w", err)
	}
	return claimed, nil
}

// Get returns the job with the given id, or nil if it does not exist.
func (r *Repository) Get(ctx context.Context, id int64) (*Job, error) {
	var row jobRow
	if err := r.db.Get(ctx, &row, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return row.job(), nil
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.Unix()
	}
	q := `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.db.Exec(ctx, q, j.Status, j.Attempts, nextTry, j.LastError, r.clock().UTC().Unix(), j.ID)
	return err
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the original
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		insert := `INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
		if _, err := tx.ExecContext(ctx, insert, j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, r.clock().UTC().Unix()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID)
		return err
	})
}

// DeadLetters lists dead-lettered jobs, most recent first.
func (r *Repository) DeadLetters(ctx context.Context) ([]DeadLetter, error) {
	var rows []struct {
		ID        int64          `db:"id"`
		JobID     int64          `db:"job_id"`
		Type      string         `db:"type"`
		Payload   sql.NullString `db:"payload"`
		Attempts  int            `db:"attempts"`
		LastError sql.NullString `db:"last_error"`
		FailedAt  int64          `db:"failed_at"`
	}
	if err := r.db.Select(ctx, &rows, `SELECT id, job_id, type, payload, attempts, last_error, failed_at FROM dead_letter_jobs ORDER BY id DESC`); err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}

	out := make([]DeadLetter, 0, len(rows))
	for _, row := range rows {
		out = append(out, DeadLetter{
			ID: row.ID, JobID: row.JobID, Type: row.Type, Payload: row.Payload.String,
			Attempts: row.Attempts, LastError: row.LastError.String, FailedAt: time.Unix(row.FailedAt, 0),
		})
	}
	return out, nil
}
