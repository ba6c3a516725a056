package generation

import (
	"context"
	"log/slog"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/videogen"
	"reelsmith/internal/stage"
)

// RefineStage runs a second generation pass over text-to-video output to lift
// visual quality while keeping most of the original composition. Clips from
// image-conditioned engines already carry their reference's look and pass
// through untouched. A failed refinement keeps the original clip; refinement
// can only improve a shot, never lose it.
type RefineStage struct {
	store   *queue.Store
	driver  *Driver
	engines *videogen.Registry
	cfg     config.Refinement
	logger  *slog.Logger
}

// NewRefineStage wires the refinement stage.
func NewRefineStage(store *queue.Store, driver *Driver, engines *videogen.Registry, cfg config.Refinement, logger *slog.Logger) *RefineStage {
	return &RefineStage{
		store:   store,
		driver:  driver,
		engines: engines,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "refine"),
	}
}

func (r *RefineStage) Prepare(ctx context.Context, shot *queue.Shot) error {
	if !fileutil.NonEmptyFile(shot.RawClipPath) {
		return services.Wrap(services.ErrNotFound, "refine", "prepare",
			"raw clip missing; cannot refine", nil)
	}
	shot.SetProgress("Refining", "Second-pass quality upgrade", 0)
	return nil
}

func (r *RefineStage) Execute(ctx context.Context, shot *queue.Shot) error {
	if !r.shouldRefine(shot) {
		shot.ClipPath = shot.RawClipPath
		return nil
	}

	scene, err := r.store.GetScene(ctx, shot.SceneID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "refine", "load scene", "", err)
	}
	prompt, err := BuildPrompt(ctx, r.store, scene, shot)
	if err != nil {
		return services.Wrap(services.ErrTransient, "refine", "build prompt", "", err)
	}

	denoise := 1 - r.cfg.DenoiseKeep
	request := videogen.JobRequest{
		Prompt:          prompt,
		Seed:            shot.Seed,
		Steps:           shot.Steps,
		DurationSeconds: shot.DurationSeconds,
		InitVideo:       shot.RawClipPath,
		DenoiseStrength: denoise,
	}

	// The refinement pass runs under its own timeout so a stuck second pass
	// cannot mask the successful base generation.
	renderCtx := ctx
	if r.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	refinedPath, err := r.driver.Render(renderCtx, shot, videogen.KindI2V, request)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		r.logger.Warn("refinement failed, keeping original clip",
			logging.Int64(logging.FieldShotID, shot.ID),
			logging.Error(err))
		shot.ClipPath = shot.RawClipPath
		return nil
	}

	target := fileutil.SiblingPath(shot.RawClipPath, "refined")
	if err := fileutil.CopyFile(refinedPath, target); err != nil {
		r.logger.Warn("could not store refined clip, keeping original",
			logging.Int64(logging.FieldShotID, shot.ID),
			logging.Error(err))
		shot.ClipPath = shot.RawClipPath
		return nil
	}

	shot.ClipPath = target
	r.logger.Info("clip refined",
		logging.Int64(logging.FieldShotID, shot.ID),
		logging.Float64("denoise", denoise),
		logging.String("clip", target))
	return nil
}

func (r *RefineStage) HealthCheck(ctx context.Context) stage.Health {
	if !r.cfg.Enabled {
		return stage.Healthy("refine")
	}
	if !r.engines.Enabled(videogen.KindI2V) {
		return stage.Unhealthy("refine", "refinement enabled but i2v engine is not")
	}
	return stage.Healthy("refine")
}

// shouldRefine limits refinement to text-to-video output.
func (r *RefineStage) shouldRefine(shot *queue.Shot) bool {
	if !r.cfg.Enabled {
		return false
	}
	kind, ok := videogen.ParseKind(shot.Engine)
	return ok && kind == videogen.KindT2V
}
