package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// UpsertContinuityFrame records the most recent output frame for a character.
// A later write always replaces the earlier one regardless of which scene
// produced it; the table never accumulates history.
func (s *Store) UpsertContinuityFrame(ctx context.Context, frame ContinuityFrame) error {
	character := strings.TrimSpace(frame.Character)
	if character == "" {
		return errors.New("continuity frame requires a character")
	}
	if strings.TrimSpace(frame.FramePath) == "" {
		return errors.New("continuity frame requires a frame path")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO continuity_frames (character, frame_path, shot_id, scene_id, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(character) DO UPDATE SET
             frame_path = excluded.frame_path,
             shot_id = excluded.shot_id,
             scene_id = excluded.scene_id,
             updated_at = excluded.updated_at`,
		character,
		frame.FramePath,
		frame.ShotID,
		frame.SceneID,
		timestampNow(),
	)
	if err != nil {
		return fmt.Errorf("upsert continuity frame: %w", err)
	}
	return nil
}

// GetContinuityFrame returns the current entry for a character, or nil when
// the character has not appeared yet.
func (s *Store) GetContinuityFrame(ctx context.Context, character string) (*ContinuityFrame, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT character, frame_path, shot_id, scene_id, updated_at
         FROM continuity_frames WHERE character = ?`,
		strings.TrimSpace(character),
	)
	var (
		frame     ContinuityFrame
		updatedAt string
	)
	err := row.Scan(&frame.Character, &frame.FramePath, &frame.ShotID, &frame.SceneID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get continuity frame: %w", err)
	}
	frame.UpdatedAt = parseTimestamp(updatedAt)
	return &frame, nil
}

// ContinuityFrameCount reports the number of live entries, used by invariant checks.
func (s *Store) ContinuityFrameCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM continuity_frames`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count continuity frames: %w", err)
	}
	return count, nil
}

// UpsertCharacterSceneState records the narrative overlay for a character in a scene.
func (s *Store) UpsertCharacterSceneState(ctx context.Context, state CharacterSceneState) error {
	character := strings.TrimSpace(state.Character)
	if character == "" {
		return errors.New("character scene state requires a character")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO character_scene_state (scene_id, character, clothing, injuries, emotion, energy)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(scene_id, character) DO UPDATE SET
             clothing = excluded.clothing,
             injuries = excluded.injuries,
             emotion = excluded.emotion,
             energy = excluded.energy`,
		state.SceneID,
		character,
		nullableString(state.Clothing),
		nullableString(state.Injuries),
		nullableString(state.Emotion),
		nullableString(state.Energy),
	)
	if err != nil {
		return fmt.Errorf("upsert character scene state: %w", err)
	}
	return nil
}

// GetCharacterSceneState returns the overlay for a character in a scene, or nil.
func (s *Store) GetCharacterSceneState(ctx context.Context, sceneID int64, character string) (*CharacterSceneState, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT scene_id, character, clothing, injuries, emotion, energy
         FROM character_scene_state WHERE scene_id = ? AND character = ?`,
		sceneID,
		strings.TrimSpace(character),
	)
	var (
		state    CharacterSceneState
		clothing sql.NullString
		injuries sql.NullString
		emotion  sql.NullString
		energy   sql.NullString
	)
	err := row.Scan(&state.SceneID, &state.Character, &clothing, &injuries, &emotion, &energy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get character scene state: %w", err)
	}
	state.Clothing = clothing.String
	state.Injuries = injuries.String
	state.Emotion = emotion.String
	state.Energy = energy.String
	return &state, nil
}
