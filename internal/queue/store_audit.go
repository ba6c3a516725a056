package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordAudit inserts a generation attempt record and returns its identifier.
func (s *Store) RecordAudit(ctx context.Context, audit GenerationAudit) (int64, error) {
	submitted := audit.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO generation_audit (shot_id, engine, job_id, params_json, outcome, error_detail, submitted_at, completed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		audit.ShotID,
		audit.Engine,
		nullableString(audit.JobID),
		nullableString(audit.ParamsJSON),
		nullableString(audit.Outcome),
		nullableString(audit.ErrorDetail),
		submitted.Format(time.RFC3339Nano),
		nullableTime(audit.CompletedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("record audit: %w", err)
	}
	return res.LastInsertId()
}

// CompleteAudit finalizes an audit record with its outcome.
func (s *Store) CompleteAudit(ctx context.Context, id int64, jobID, outcome, errorDetail string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE generation_audit
         SET job_id = ?, outcome = ?, error_detail = ?, completed_at = ?
         WHERE id = ?`,
		nullableString(jobID),
		outcome,
		nullableString(errorDetail),
		timestampNow(),
		id,
	)
	if err != nil {
		return fmt.Errorf("complete audit: %w", err)
	}
	return nil
}

// AuditsByShot returns a shot's generation attempts, newest first.
func (s *Store) AuditsByShot(ctx context.Context, shotID int64) ([]*GenerationAudit, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, shot_id, engine, job_id, params_json, outcome, error_detail, submitted_at, completed_at
         FROM generation_audit WHERE shot_id = ? ORDER BY id DESC`,
		shotID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audits: %w", err)
	}
	defer rows.Close()

	var audits []*GenerationAudit
	for rows.Next() {
		var (
			audit       GenerationAudit
			jobID       sql.NullString
			paramsJSON  sql.NullString
			outcome     sql.NullString
			errorDetail sql.NullString
			submittedAt string
			completedAt sql.NullString
		)
		if err := rows.Scan(&audit.ID, &audit.ShotID, &audit.Engine, &jobID, &paramsJSON, &outcome, &errorDetail, &submittedAt, &completedAt); err != nil {
			return nil, err
		}
		audit.JobID = jobID.String
		audit.ParamsJSON = paramsJSON.String
		audit.Outcome = outcome.String
		audit.ErrorDetail = errorDetail.String
		audit.SubmittedAt = parseTimestamp(submittedAt)
		if completedAt.Valid {
			ts := parseTimestamp(completedAt.String)
			if !ts.IsZero() {
				audit.CompletedAt = &ts
			}
		}
		audits = append(audits, &audit)
	}
	return audits, rows.Err()
}
