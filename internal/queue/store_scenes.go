package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sceneColumns = `id, episode_id, seq, title, location, mood, time_of_day,
    target_duration, music_path, audio_path, video_path, duration_seconds,
    status, error_message, created_at, updated_at`

const episodeColumns = `id, title, video_path, thumbnail_path, status,
    error_message, created_at, updated_at`

func scanScene(row rowScanner) (*Scene, error) {
	var (
		scene        Scene
		title        sql.NullString
		location     sql.NullString
		mood         sql.NullString
		timeOfDay    sql.NullString
		musicPath    sql.NullString
		audioPath    sql.NullString
		videoPath    sql.NullString
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(
		&scene.ID, &scene.EpisodeID, &scene.Seq, &title, &location, &mood,
		&timeOfDay, &scene.TargetDuration, &musicPath, &audioPath, &videoPath,
		&scene.DurationSeconds, &scene.Status, &errorMessage, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	scene.Title = title.String
	scene.Location = location.String
	scene.Mood = mood.String
	scene.TimeOfDay = timeOfDay.String
	scene.MusicPath = musicPath.String
	scene.AudioPath = audioPath.String
	scene.VideoPath = videoPath.String
	scene.ErrorMessage = errorMessage.String
	scene.CreatedAt = parseTimestamp(createdAt)
	scene.UpdatedAt = parseTimestamp(updatedAt)
	return &scene, nil
}

func scanEpisode(row rowScanner) (*Episode, error) {
	var (
		episode       Episode
		videoPath     sql.NullString
		thumbnailPath sql.NullString
		errorMessage  sql.NullString
		createdAt     string
		updatedAt     string
	)
	err := row.Scan(
		&episode.ID, &episode.Title, &videoPath, &thumbnailPath,
		&episode.Status, &errorMessage, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	episode.VideoPath = videoPath.String
	episode.ThumbnailPath = thumbnailPath.String
	episode.ErrorMessage = errorMessage.String
	episode.CreatedAt = parseTimestamp(createdAt)
	episode.UpdatedAt = parseTimestamp(updatedAt)
	return &episode, nil
}

// NewEpisode inserts a draft episode.
func (s *Store) NewEpisode(ctx context.Context, title string) (*Episode, error) {
	timestamp := timestampNow()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO episodes (title, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		title, EpisodeDraft, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetEpisode(ctx, id)
}

// NewScene inserts a draft scene under an episode.
func (s *Store) NewScene(ctx context.Context, scene *Scene) (*Scene, error) {
	if scene == nil {
		return nil, errors.New("scene is nil")
	}
	timestamp := timestampNow()
	status := scene.Status
	if status == "" {
		status = SceneDraft
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO scenes (
            episode_id, seq, title, location, mood, time_of_day,
            target_duration, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scene.EpisodeID,
		scene.Seq,
		nullableString(scene.Title),
		nullableString(scene.Location),
		nullableString(scene.Mood),
		nullableString(scene.TimeOfDay),
		scene.TargetDuration,
		status,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scene: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetScene(ctx, id)
}

// GetScene fetches a scene by identifier.
func (s *Store) GetScene(ctx context.Context, id int64) (*Scene, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE id = ?`, id)
	scene, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return scene, nil
}

// GetEpisode fetches an episode by identifier.
func (s *Store) GetEpisode(ctx context.Context, id int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

// UpdateScene persists changes to an existing scene.
func (s *Store) UpdateScene(ctx context.Context, scene *Scene) error {
	if scene == nil {
		return errors.New("scene is nil")
	}
	scene.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE scenes
         SET title = ?, location = ?, mood = ?, time_of_day = ?,
             target_duration = ?, music_path = ?, audio_path = ?, video_path = ?,
             duration_seconds = ?, status = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(scene.Title),
		nullableString(scene.Location),
		nullableString(scene.Mood),
		nullableString(scene.TimeOfDay),
		scene.TargetDuration,
		nullableString(scene.MusicPath),
		nullableString(scene.AudioPath),
		nullableString(scene.VideoPath),
		scene.DurationSeconds,
		scene.Status,
		nullableString(scene.ErrorMessage),
		scene.UpdatedAt.Format(time.RFC3339Nano),
		scene.ID,
	)
	if err != nil {
		return fmt.Errorf("update scene: %w", err)
	}
	return nil
}

// UpdateEpisode persists changes to an existing episode.
func (s *Store) UpdateEpisode(ctx context.Context, episode *Episode) error {
	if episode == nil {
		return errors.New("episode is nil")
	}
	episode.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE episodes
         SET title = ?, video_path = ?, thumbnail_path = ?, status = ?,
             error_message = ?, updated_at = ?
         WHERE id = ?`,
		episode.Title,
		nullableString(episode.VideoPath),
		nullableString(episode.ThumbnailPath),
		episode.Status,
		nullableString(episode.ErrorMessage),
		episode.UpdatedAt.Format(time.RFC3339Nano),
		episode.ID,
	)
	if err != nil {
		return fmt.Errorf("update episode: %w", err)
	}
	return nil
}

// ScenesByEpisode returns an episode's scenes in order.
func (s *Store) ScenesByEpisode(ctx context.Context, episodeID int64) ([]*Scene, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE episode_id = ? ORDER BY seq`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("query scenes by episode: %w", err)
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}
	return scenes, rows.Err()
}

// ListEpisodes returns every episode in creation order.
func (s *Store) ListEpisodes(ctx context.Context) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM episodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

// NextSceneForStatuses returns the oldest scene matching any of the provided statuses.
func (s *Store) NextSceneForStatuses(ctx context.Context, statuses ...SceneStatus) (*Scene, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	query := `SELECT ` + sceneColumns + ` FROM scenes WHERE status IN (` + placeholders + `) ORDER BY episode_id, seq LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	scene, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return scene, nil
}

// NextEpisodeForStatuses returns the oldest episode matching any of the provided statuses.
func (s *Store) NextEpisodeForStatuses(ctx context.Context, statuses ...EpisodeStatus) (*Episode, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE status IN (` + placeholders + `) ORDER BY id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return episode, nil
}

// RefreshSceneStatus recomputes and persists a scene's aggregate status from
// its shots. The derived status is returned.
func (s *Store) RefreshSceneStatus(ctx context.Context, sceneID int64) (SceneStatus, error) {
	scene, err := s.GetScene(ctx, sceneID)
	if err != nil {
		return "", err
	}
	if scene == nil {
		return "", fmt.Errorf("scene %d not found", sceneID)
	}
	shots, err := s.ShotsByScene(ctx, sceneID)
	if err != nil {
		return "", err
	}
	derived := DeriveSceneStatus(scene.Status, shots)
	if derived != scene.Status {
		scene.Status = derived
		if err := s.UpdateScene(ctx, scene); err != nil {
			return "", err
		}
	}
	return derived, nil
}
