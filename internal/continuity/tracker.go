package continuity

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

// Tracker owns continuity frame updates. All writes are upserts keyed by
// character, so the table holds exactly one entry per character that has
// appeared on screen.
type Tracker struct {
	store     *queue.Store
	framesDir string
	ffmpeg    string
	logger    *slog.Logger
}

// NewTracker creates a tracker writing extracted frames under framesDir.
func NewTracker(store *queue.Store, framesDir, ffmpegBinary string, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:     store,
		framesDir: framesDir,
		ffmpeg:    ffmpegBinary,
		logger:    logging.NewComponentLogger(logger, "continuity"),
	}
}

// Frame returns the live reference frame for a character, or nil when the
// character has not appeared yet. Absence is a normal condition, not an error.
func (t *Tracker) Frame(ctx context.Context, character string) (*queue.ContinuityFrame, error) {
	return t.store.GetContinuityFrame(ctx, character)
}

// Record stores framePath as the live reference for every listed character.
// Later calls replace earlier entries; per-character history is never kept.
func (t *Tracker) Record(ctx context.Context, shot *queue.Shot, framePath string) error {
	for _, character := range shot.Characters {
		character = strings.TrimSpace(character)
		if character == "" {
			continue
		}
		err := t.store.UpsertContinuityFrame(ctx, queue.ContinuityFrame{
			Character: character,
			FramePath: framePath,
			ShotID:    shot.ID,
			SceneID:   shot.SceneID,
		})
		if err != nil {
			return err
		}
		t.logger.Debug("continuity frame updated",
			logging.String(logging.FieldCharacter, character),
			logging.Int64(logging.FieldShotID, shot.ID),
			logging.String("frame", framePath))
	}
	return nil
}

// CaptureFinal extracts the last frame of the shot's clip and records it for
// every character featured in the shot. Returns the extracted frame path.
func (t *Tracker) CaptureFinal(ctx context.Context, shot *queue.Shot, clipPath string) (string, error) {
	if len(shot.Characters) == 0 {
		return "", nil
	}
	if err := fileutil.EnsureDir(t.framesDir); err != nil {
		return "", err
	}
	framePath := filepath.Join(t.framesDir, fmt.Sprintf("shot-%d-final.png", shot.ID))
	if err := t.extractLastFrame(ctx, clipPath, framePath); err != nil {
		return "", err
	}
	if err := t.Record(ctx, shot, framePath); err != nil {
		return "", err
	}
	return framePath, nil
}

func (t *Tracker) extractLastFrame(ctx context.Context, clipPath, framePath string) error {
	binary := t.ffmpeg
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	// Reverse then take one frame; avoids seeking past EOF on short clips.
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", clipPath,
		"-vf", "reverse",
		"-frames:v", "1",
		framePath,
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("extract final frame: %w: %s", err, strings.TrimSpace(string(output)))
	}
	if !fileutil.NonEmptyFile(framePath) {
		return fmt.Errorf("extract final frame: no output written for %s", clipPath)
	}
	return nil
}
