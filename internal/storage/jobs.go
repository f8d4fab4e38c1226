package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finanze/internal/core"
)

const jobColumns = "id, user_id, report_type, format, start_date, end_date, status, attempts, location, error, created_at, updated_at"

func scanJob(row interface{ Scan(...any) error }) (core.ReportJob, error) {
	var (
		j                            core.ReportJob
		rtype, format, status        string
		start, end, created, updated string
	)
	if err := row.Scan(&j.ID, &j.UserID, &rtype, &format, &start, &end, &status, &j.Attempts, &j.Location, &j.Error, &created, &updated); err != nil {
		return core.ReportJob{}, err
	}
	j.ReportType = core.ReportType(rtype)
	j.Format = core.Format(format)
	j.Status = core.JobStatus(status)
	var err error
	if j.Start, err = scanDate(start); err != nil {
		return core.ReportJob{}, err
	}
	if j.End, err = scanDate(end); err != nil {
		return core.ReportJob{}, err
	}
	j.CreatedAt = parseTimestamp(created)
	j.UpdatedAt = parseTimestamp(updated)
	return j, nil
}

// CreateJob stores a pending export job.
func (r *SQLiteRepository) CreateJob(ctx context.Context, j core.ReportJob) (int64, error) {
	now := r.timestamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO report_jobs (user_id, report_type, format, start_date, end_date, status, attempts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		j.UserID, string(j.ReportType), string(j.Format), j.Start.String(), j.End.String(), string(core.JobPending), now, now)
	if err != nil {
		return 0, core.Persistence("create job", err)
	}
	id, err := res.LastInsertId()
	return id, core.Persistence("create job", err)
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id int64) (core.ReportJob, error) {
	j, err := scanJob(r.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM report_jobs WHERE id = ?", id))
	return j, core.Persistence("get job", notFound(err))
}

// GetUserJob loads a job only when userID owns it.
func (r *SQLiteRepository) GetUserJob(ctx context.Context, userID, id int64) (core.ReportJob, error) {
	j, err := scanJob(r.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM report_jobs WHERE id = ? AND user_id = ?", id, userID))
	return j, core.Persistence("get job", notFound(err))
}

// ListUserJobs returns the latest jobs of a user, newest first.
func (r *SQLiteRepository) ListUserJobs(ctx context.Context, userID int64, limit int) ([]core.ReportJob, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM report_jobs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?", userID, limit)
	if err != nil {
		return nil, core.Persistence("list jobs", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// PendingJobs returns up to limit pending jobs, oldest first.
func (r *SQLiteRepository) PendingJobs(ctx context.Context, limit int) ([]core.ReportJob, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM report_jobs WHERE status = ? ORDER BY created_at, id LIMIT ?", string(core.JobPending), limit)
	if err != nil {
		return nil, core.Persistence("pending jobs", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]core.ReportJob, error) {
	var out []core.ReportJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, core.Persistence("scan job", err)
		}
		out = append(out, j)
	}
	return out, core.Persistence("list jobs", rows.Err())
}

// ClaimJob moves a pending job to processing and counts the attempt.
// It reports false when another worker already took it.
func (r *SQLiteRepository) ClaimJob(ctx context.Context, id int64) (core.ReportJob, bool, error) {
	var (
		job     core.ReportJob
		claimed bool
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE report_jobs SET status = ?, attempts = attempts + 1, updated_at = ? WHERE id = ? AND status = ?",
			string(core.JobProcessing), r.timestamp(), id, string(core.JobPending))
		if err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		claimed = true
		job, err = scanJob(tx.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM report_jobs WHERE id = ?", id))
		return err
	})
	return job, claimed, core.Persistence("claim job", err)
}

// CompleteJob marks a job done with the location of its output.
func (r *SQLiteRepository) CompleteJob(ctx context.Context, id int64, location string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE report_jobs SET status = ?, location = ?, error = '', updated_at = ? WHERE id = ?",
		string(core.JobDone), location, r.timestamp(), id)
	if err != nil {
		return core.Persistence("complete job", err)
	}
	return core.Persistence("complete job", expectAffected(res))
}

// FailJob records a failed attempt. The job goes back to pending until
// maxAttempts is reached, then it is marked failed. The resulting status is returned.
func (r *SQLiteRepository) FailJob(ctx context.Context, id int64, reason string, maxAttempts int) (core.JobStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		`UPDATE report_jobs
		    SET status = CASE WHEN attempts >= ? THEN ? ELSE ? END, error = ?, updated_at = ?
		  WHERE id = ?
		RETURNING status`,
		maxAttempts, string(core.JobFailed), string(core.JobPending), reason, r.timestamp(), id).Scan(&status)
	if err != nil {
		return "", core.Persistence("fail job", notFound(err))
	}
	return core.JobStatus(status), nil
}

// ResetStaleJobs returns jobs stuck in processing since before cutoff to pending.
func (r *SQLiteRepository) ResetStaleJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE report_jobs SET status = ?, updated_at = ? WHERE status = ? AND updated_at < ?",
		string(core.JobPending), r.timestamp(), string(core.JobProcessing), formatTime(cutoff))
	if err != nil {
		return 0, core.Persistence("reset stale jobs", err)
	}
	n, err := res.RowsAffected()
	return n, core.Persistence("reset stale jobs", err)
}

// PurgeFinishedJobs deletes done and failed jobs last updated before cutoff
// and returns their output locations so files can be removed.
func (r *SQLiteRepository) PurgeFinishedJobs(ctx context.Context, cutoff time.Time) ([]string, error) {
	var locations []string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		args := []any{string(core.JobDone), string(core.JobFailed), formatTime(cutoff)}
		rows, err := tx.QueryContext(ctx,
			"SELECT location FROM report_jobs WHERE status IN (?, ?) AND updated_at < ? AND location <> ''", args...)
		if err != nil {
			return fmt.Errorf("select finished jobs: %w", err)
		}
		for rows.Next() {
			var loc string
			if err := rows.Scan(&loc); err != nil {
				rows.Close()
				return err
			}
			locations = append(locations, loc)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM report_jobs WHERE status IN (?, ?) AND updated_at < ?", args...)
		return err
	})
	return locations, core.Persistence("purge jobs", err)
}
