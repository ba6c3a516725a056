package quality

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"reelsmith/internal/config"
	"reelsmith/internal/continuity"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/generation"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// Stage scores a post-processed clip and routes the shot by verdict.
type Stage struct {
	analyzer *Analyzer
	tracker  *continuity.Tracker
	cfg      config.Quality
	ffprobe  string
	logger   *slog.Logger
}

// NewStage wires the quality gate workflow stage.
func NewStage(analyzer *Analyzer, tracker *continuity.Tracker, cfg config.Quality, ffprobeBinary string, logger *slog.Logger) *Stage {
	return &Stage{
		analyzer: analyzer,
		tracker:  tracker,
		cfg:      cfg,
		ffprobe:  ffprobeBinary,
		logger:   logging.NewComponentLogger(logger, "quality"),
	}
}

func (s *Stage) Prepare(ctx context.Context, shot *queue.Shot) error {
	if !fileutil.NonEmptyFile(shot.ClipPath) {
		return services.Wrap(services.ErrNotFound, "score", "prepare",
			"clip missing; cannot score", nil)
	}
	shot.SetProgress("Scoring", "Quality gate", 0)
	return nil
}

func (s *Stage) Execute(ctx context.Context, shot *queue.Shot) error {
	report, err := s.analyzer.Analyze(ctx, shot.ClipPath, shot.DurationSeconds)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "score", "analyze", "", err)
	}

	shot.QualityJSON = report.JSON()
	shot.QualityScore = report.Total

	regenerations := shot.Attempts - 1
	if regenerations < 0 {
		regenerations = 0
	}
	verdict := Decide(report, s.cfg, regenerations)

	s.logger.Info("clip scored",
		logging.Int64(logging.FieldShotID, shot.ID),
		logging.Float64("total", report.Total),
		logging.Float64("motion", report.Motion),
		logging.String("verdict", string(verdict)),
		logging.Int("regenerations", regenerations))

	switch verdict {
	case VerdictAccept:
		if _, err := s.tracker.CaptureFinal(ctx, shot, shot.ClipPath); err != nil {
			s.logger.Warn("continuity capture failed for accepted shot",
				logging.Int64(logging.FieldShotID, shot.ID),
				logging.Error(err))
		}
		return nil
	case VerdictRegenerate:
		s.resetForRegeneration(shot, report)
		return nil
	default:
		shot.SetReview(fmt.Sprintf("quality score %.2f below accept threshold %.2f after %d regenerations",
			report.Total, s.cfg.AcceptThreshold, regenerations))
		return nil
	}
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	binary := s.ffprobe
	if binary == "" {
		binary = "ffprobe"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy("score", binary+" not found on PATH")
	}
	return stage.Healthy("score")
}

// resetForRegeneration rewinds the shot to selected with a fresh seed. The
// selection outcome (engine, source image) is kept; only the render rolls
// again. The attempt counter survives so the regeneration budget holds.
func (s *Stage) resetForRegeneration(shot *queue.Shot, report Report) {
	shot.Status = queue.ShotSelected
	shot.Seed = generation.NewSeed()
	shot.SeedExplicit = false
	shot.RawClipPath = ""
	shot.ClipPath = ""
	shot.Degraded = false
	shot.SetProgress("Selected", fmt.Sprintf("Rejected at %.2f, regenerating with new seed", report.Total), 0)
}
