package postprocess

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/library"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// Stage adapts the transform chain to the workflow contract.
type Stage struct {
	store     *queue.Store
	processor *Processor
	layout    library.Layout
	cfg       config.Postprocess
	logger    *slog.Logger
}

// NewStage wires the post-processing workflow stage.
func NewStage(store *queue.Store, processor *Processor, layout library.Layout, cfg config.Postprocess, logger *slog.Logger) *Stage {
	return &Stage{
		store:     store,
		processor: processor,
		layout:    layout,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "postprocess"),
	}
}

func (s *Stage) Prepare(ctx context.Context, shot *queue.Shot) error {
	if !fileutil.NonEmptyFile(shot.ClipPath) {
		return services.Wrap(services.ErrNotFound, "postprocess", "prepare",
			"clip missing; cannot post-process", nil)
	}
	shot.SetProgress("Postprocessing", "Interpolate, rescale, grade", 0)
	return nil
}

func (s *Stage) Execute(ctx context.Context, shot *queue.Shot) error {
	scene, err := s.store.GetScene(ctx, shot.SceneID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "postprocess", "load scene", "", err)
	}

	outPath := s.layout.ShotClip(scene.EpisodeID, shot.SceneID, shot.ID)
	result, err := s.processor.Process(ctx, shot.ClipPath, outPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "postprocess", "chain", "", err)
	}

	shot.ClipPath = result.OutputPath
	shot.Degraded = result.Degraded
	s.logger.Info("clip post-processed",
		logging.Int64(logging.FieldShotID, shot.ID),
		logging.String("applied", strings.Join(result.StagesApplied, ",")),
		logging.String("skipped", strings.Join(result.StagesSkipped, ",")),
		logging.Bool("degraded", result.Degraded))
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range []string{s.cfg.InterpolateBinary, s.cfg.UpscaleBinary} {
		binary = strings.TrimSpace(binary)
		if binary == "" {
			continue
		}
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy("postprocess", binary+" not found on PATH")
		}
	}
	return stage.Healthy("postprocess")
}
