package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const shotColumns = `id, scene_id, seq, shot_type, duration_seconds, motion,
    characters_json, source_image, dialogue_from, dialogue_text, engine, seed,
    seed_explicit, steps, raw_clip_path, clip_path, voice_path, quality_json,
    quality_score, degraded, attempts, status, error_message, needs_review,
    review_reason, progress_stage, progress_percent, progress_message,
    last_heartbeat, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShot(row rowScanner) (*Shot, error) {
	var (
		shot            Shot
		shotType        sql.NullString
		motion          sql.NullString
		charactersJSON  sql.NullString
		sourceImage     sql.NullString
		dialogueFrom    sql.NullString
		dialogueText    sql.NullString
		engine          sql.NullString
		rawClipPath     sql.NullString
		clipPath        sql.NullString
		voicePath       sql.NullString
		qualityJSON     sql.NullString
		errorMessage    sql.NullString
		reviewReason    sql.NullString
		progressStage   sql.NullString
		progressMessage sql.NullString
		lastHeartbeat   sql.NullString
		seedExplicit    int
		degraded        int
		needsReview     int
		createdAt       string
		updatedAt       string
	)
	err := row.Scan(
		&shot.ID, &shot.SceneID, &shot.Seq, &shotType, &shot.DurationSeconds,
		&motion, &charactersJSON, &sourceImage, &dialogueFrom, &dialogueText,
		&engine, &shot.Seed, &seedExplicit, &shot.Steps, &rawClipPath,
		&clipPath, &voicePath, &qualityJSON, &shot.QualityScore, &degraded,
		&shot.Attempts, &shot.Status, &errorMessage, &needsReview,
		&reviewReason, &progressStage, &shot.ProgressPercent,
		&progressMessage, &lastHeartbeat, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	shot.ShotType = shotType.String
	shot.Motion = motion.String
	shot.SourceImage = sourceImage.String
	shot.DialogueFrom = dialogueFrom.String
	shot.DialogueText = dialogueText.String
	shot.Engine = engine.String
	shot.RawClipPath = rawClipPath.String
	shot.ClipPath = clipPath.String
	shot.VoicePath = voicePath.String
	shot.QualityJSON = qualityJSON.String
	shot.ErrorMessage = errorMessage.String
	shot.ReviewReason = reviewReason.String
	shot.ProgressStage = progressStage.String
	shot.ProgressMessage = progressMessage.String
	shot.SeedExplicit = seedExplicit != 0
	shot.Degraded = degraded != 0
	shot.NeedsReview = needsReview != 0
	if charactersJSON.Valid && charactersJSON.String != "" {
		if err := json.Unmarshal([]byte(charactersJSON.String), &shot.Characters); err != nil {
			return nil, fmt.Errorf("decode shot characters: %w", err)
		}
	}
	if lastHeartbeat.Valid {
		ts := parseTimestamp(lastHeartbeat.String)
		if !ts.IsZero() {
			shot.LastHeartbeat = &ts
		}
	}
	shot.CreatedAt = parseTimestamp(createdAt)
	shot.UpdatedAt = parseTimestamp(updatedAt)
	return &shot, nil
}

// NewShot inserts a planned shot under a scene.
func (s *Store) NewShot(ctx context.Context, shot *Shot) (*Shot, error) {
	if shot == nil {
		return nil, errors.New("shot is nil")
	}
	charactersJSON, err := json.Marshal(shot.Characters)
	if err != nil {
		return nil, fmt.Errorf("marshal characters: %w", err)
	}
	timestamp := timestampNow()
	status := shot.Status
	if status == "" {
		status = ShotPlanned
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO shots (
            scene_id, seq, shot_type, duration_seconds, motion, characters_json,
            source_image, dialogue_from, dialogue_text, seed, seed_explicit,
            steps, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		shot.SceneID,
		shot.Seq,
		nullableString(shot.ShotType),
		shot.DurationSeconds,
		nullableString(shot.Motion),
		string(charactersJSON),
		nullableString(shot.SourceImage),
		nullableString(shot.DialogueFrom),
		nullableString(shot.DialogueText),
		shot.Seed,
		boolToInt(shot.SeedExplicit),
		shot.Steps,
		status,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetShot(ctx, id)
}

// GetShot fetches a shot by identifier.
func (s *Store) GetShot(ctx context.Context, id int64) (*Shot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shotColumns+` FROM shots WHERE id = ?`, id)
	shot, err := scanShot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shot: %w", err)
	}
	return shot, nil
}

// UpdateShot persists changes to an existing shot.
func (s *Store) UpdateShot(ctx context.Context, shot *Shot) error {
	if shot == nil {
		return errors.New("shot is nil")
	}
	charactersJSON, err := json.Marshal(shot.Characters)
	if err != nil {
		return fmt.Errorf("marshal characters: %w", err)
	}
	shot.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE shots
         SET shot_type = ?, duration_seconds = ?, motion = ?, characters_json = ?,
             source_image = ?, dialogue_from = ?, dialogue_text = ?, engine = ?,
             seed = ?, seed_explicit = ?, steps = ?, raw_clip_path = ?,
             clip_path = ?, voice_path = ?, quality_json = ?, quality_score = ?,
             degraded = ?, attempts = ?, status = ?, error_message = ?,
             needs_review = ?, review_reason = ?, progress_stage = ?,
             progress_percent = ?, progress_message = ?, last_heartbeat = ?,
             updated_at = ?
         WHERE id = ?`,
		nullableString(shot.ShotType),
		shot.DurationSeconds,
		nullableString(shot.Motion),
		string(charactersJSON),
		nullableString(shot.SourceImage),
		nullableString(shot.DialogueFrom),
		nullableString(shot.DialogueText),
		nullableString(shot.Engine),
		shot.Seed,
		boolToInt(shot.SeedExplicit),
		shot.Steps,
		nullableString(shot.RawClipPath),
		nullableString(shot.ClipPath),
		nullableString(shot.VoicePath),
		nullableString(shot.QualityJSON),
		shot.QualityScore,
		boolToInt(shot.Degraded),
		shot.Attempts,
		shot.Status,
		nullableString(shot.ErrorMessage),
		boolToInt(shot.NeedsReview),
		nullableString(shot.ReviewReason),
		nullableString(shot.ProgressStage),
		shot.ProgressPercent,
		nullableString(shot.ProgressMessage),
		nullableTime(shot.LastHeartbeat),
		shot.UpdatedAt.Format(time.RFC3339Nano),
		shot.ID,
	)
	if err != nil {
		return fmt.Errorf("update shot: %w", err)
	}
	return nil
}

// ShotsByScene returns a scene's shots in shot-number order.
func (s *Store) ShotsByScene(ctx context.Context, sceneID int64) ([]*Shot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+shotColumns+` FROM shots WHERE scene_id = ? ORDER BY seq`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("query shots by scene: %w", err)
	}
	defer rows.Close()
	return collectShots(rows)
}

// NextShotForStatuses returns the next shot matching any of the provided
// statuses. Shots are ordered by scene then shot number so continuity
// dependent shots are generated strictly sequentially.
func (s *Store) NextShotForStatuses(ctx context.Context, statuses ...ShotStatus) (*Shot, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	query := `SELECT ` + shotColumns + ` FROM shots WHERE status IN (` + placeholders + `) ORDER BY scene_id, seq LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	shot, err := scanShot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return shot, nil
}

// ListShots returns shots filtered by status set (or all shots when no status is provided).
func (s *Store) ListShots(ctx context.Context, statuses ...ShotStatus) ([]*Shot, error) {
	baseQuery := `SELECT ` + shotColumns + ` FROM shots`
	orderClause := ` ORDER BY scene_id, seq`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}
	defer rows.Close()
	return collectShots(rows)
}

func collectShots(rows *sql.Rows) ([]*Shot, error) {
	var shots []*Shot
	for rows.Next() {
		shot, err := scanShot(rows)
		if err != nil {
			return nil, err
		}
		shots = append(shots, shot)
	}
	return shots, rows.Err()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight shot.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := timestampNow()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE shots SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns shots stuck in processing back to planned
// when heartbeats expire.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE shots
        SET status = ?, progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?, ?, ?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		ShotPlanned,
		timestampNow(),
		ShotSelecting,
		ShotGenerating,
		ShotRefining,
		ShotPostprocessing,
		ShotScoring,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale shots: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailedShots moves failed shots back to planned for reprocessing.
// With no ids, every failed shot is retried.
func (s *Store) RetryFailedShots(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE shots
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			ShotPlanned,
			timestampNow(),
			ShotFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed shots: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, ShotPlanned, timestampNow())
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE shots
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(ShotFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected shots: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of shots grouped by status.
func (s *Store) Stats(ctx context.Context) (map[ShotStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM shots GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("shot stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[ShotStatus]int)
	for rows.Next() {
		var status ShotStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates shot state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case ShotPlanned:
			health.Planned += count
		case ShotFailed:
			health.Failed += count
		case ShotReview:
			health.Review += count
		case ShotAccepted:
			health.Accepted += count
		default:
			if _, ok := processingShotStatuses[status]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}
