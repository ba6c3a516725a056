package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reelsmith/internal/characters"
	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/library"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/videogen"
	"reelsmith/internal/stage"
)

// GenerateStage renders the raw clip for a selected shot.
type GenerateStage struct {
	store    *queue.Store
	driver   *Driver
	engines  *videogen.Registry
	registry *characters.Registry
	layout   library.Layout
	cfg      *config.Config
	logger   *slog.Logger
}

// NewGenerateStage wires the render stage.
func NewGenerateStage(store *queue.Store, driver *Driver, engines *videogen.Registry, registry *characters.Registry, layout library.Layout, cfg *config.Config, logger *slog.Logger) *GenerateStage {
	return &GenerateStage{
		store:    store,
		driver:   driver,
		engines:  engines,
		registry: registry,
		layout:   layout,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "generate"),
	}
}

func (g *GenerateStage) Prepare(ctx context.Context, shot *queue.Shot) error {
	kind, ok := videogen.ParseKind(shot.Engine)
	if !ok {
		return services.Wrap(services.ErrValidation, "generate", "prepare",
			fmt.Sprintf("shot has no usable engine %q", shot.Engine), nil)
	}
	if kind.NeedsSourceImage() && !fileutil.NonEmptyFile(shot.SourceImage) {
		return services.Wrap(services.ErrNotFound, "generate", "prepare",
			fmt.Sprintf("source image %s missing for image-conditioned render", shot.SourceImage), nil)
	}
	shot.SetProgress("Generating", "Rendering raw clip", 0)
	return nil
}

func (g *GenerateStage) Execute(ctx context.Context, shot *queue.Shot) error {
	kind, _ := videogen.ParseKind(shot.Engine)

	scene, err := g.store.GetScene(ctx, shot.SceneID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "generate", "load scene", "", err)
	}

	request, err := g.buildRequest(ctx, scene, shot, kind)
	if err != nil {
		return err
	}

	outputPath, err := g.driver.Render(ctx, shot, kind, request)
	if err != nil {
		return err
	}

	rawPath := g.layout.ShotRawClip(scene.EpisodeID, shot.SceneID, shot.ID)
	if err := fileutil.EnsureDir(g.layout.SceneDir(scene.EpisodeID, shot.SceneID)); err != nil {
		return services.Wrap(services.ErrTransient, "generate", "library dir", "", err)
	}
	if err := fileutil.CopyFile(outputPath, rawPath); err != nil {
		return services.Wrap(services.ErrTransient, "generate", "store raw clip", "", err)
	}

	shot.RawClipPath = rawPath
	shot.ClipPath = rawPath
	shot.Attempts++
	g.logger.Info("raw clip rendered",
		logging.Int64(logging.FieldShotID, shot.ID),
		logging.String(logging.FieldEngine, shot.Engine),
		logging.String("clip", rawPath))
	return nil
}

func (g *GenerateStage) HealthCheck(ctx context.Context) stage.Health {
	kinds := g.engines.Kinds()
	if len(kinds) == 0 {
		return stage.Unhealthy("generate", "no generation engines enabled")
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, kind := range kinds {
		client, err := g.engines.Client(kind)
		if err != nil {
			continue
		}
		if err := client.Healthy(probeCtx); err != nil {
			return stage.Unhealthy("generate", fmt.Sprintf("%s engine unreachable: %v", kind, err))
		}
	}
	return stage.Healthy("generate")
}

func (g *GenerateStage) buildRequest(ctx context.Context, scene *queue.Scene, shot *queue.Shot, kind videogen.Kind) (videogen.JobRequest, error) {
	prompt, err := BuildPrompt(ctx, g.store, scene, shot)
	if err != nil {
		return videogen.JobRequest{}, services.Wrap(services.ErrTransient, "generate", "build prompt", "", err)
	}

	request := videogen.JobRequest{
		Prompt:          prompt,
		Seed:            shot.Seed,
		Steps:           shot.Steps,
		DurationSeconds: shot.DurationSeconds,
	}

	switch kind {
	case videogen.KindI2V:
		request.SourceImage = shot.SourceImage
	case videogen.KindLora:
		profile := g.loraProfile(shot)
		if profile == nil {
			return videogen.JobRequest{}, services.Wrap(services.ErrConfiguration, "generate", "lora",
				"engine selected but no character adapter found", nil)
		}
		request.LoraModel = profile.LoraModel
		if shot.SourceImage != "" {
			request.SourceImage = shot.SourceImage
		}
	}
	return request, nil
}

func (g *GenerateStage) loraProfile(shot *queue.Shot) *characters.Profile {
	for _, character := range shot.Characters {
		if profile := g.registry.Get(character); profile != nil && profile.HasLora() {
			return profile
		}
	}
	return nil
}
