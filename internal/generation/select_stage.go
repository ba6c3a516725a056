package generation

import (
	"context"
	"log/slog"
	"strings"

	"reelsmith/internal/assets"
	"reelsmith/internal/characters"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/videogen"
	"reelsmith/internal/stage"
)

// SelectStage resolves a planned shot's source image and generation engine.
type SelectStage struct {
	selector *assets.Selector
	registry *characters.Registry
	engines  *videogen.Registry
	logger   *slog.Logger
}

// NewSelectStage wires the selection stage.
func NewSelectStage(selector *assets.Selector, registry *characters.Registry, engines *videogen.Registry, logger *slog.Logger) *SelectStage {
	return &SelectStage{
		selector: selector,
		registry: registry,
		engines:  engines,
		logger:   logging.NewComponentLogger(logger, "select"),
	}
}

func (s *SelectStage) Prepare(ctx context.Context, shot *queue.Shot) error {
	if shot.SceneID == 0 {
		return services.Wrap(services.ErrValidation, "select", "prepare", "shot has no scene", nil)
	}
	shot.SetProgress("Selecting", "Choosing source image and engine", 0)
	return nil
}

func (s *SelectStage) Execute(ctx context.Context, shot *queue.Shot) error {
	if len(featuredCharacters(shot)) == 0 && strings.TrimSpace(shot.Motion) == "" {
		return services.Wrap(services.ErrConfiguration, "select", "compose prompt",
			"shot names no characters and no motion; there is nothing to generate from", nil)
	}

	selection, err := s.selector.Select(ctx, shot)
	if err != nil {
		return services.Wrap(services.ErrTransient, "select", "source image", "selection failed", err)
	}

	shot.SourceImage = ""
	if selection != nil {
		shot.SourceImage = selection.ImagePath
	}

	kind, err := ChooseEngine(Capabilities{
		LoraAvailable: s.loraAvailable(shot),
		SourceImage:   shot.SourceImage != "",
		LoraEnabled:   s.engines.Enabled(videogen.KindLora),
		I2VEnabled:    s.engines.Enabled(videogen.KindI2V),
		T2VEnabled:    s.engines.Enabled(videogen.KindT2V),
	})
	if err != nil {
		return err
	}
	shot.Engine = string(kind)

	if !shot.SeedExplicit && shot.Seed == 0 {
		shot.Seed = NewSeed()
	}

	attrs := []logging.Attr{
		logging.Int64(logging.FieldShotID, shot.ID),
		logging.String(logging.FieldEngine, shot.Engine),
	}
	if selection != nil {
		attrs = append(attrs,
			logging.String("source_image", selection.ImagePath),
			logging.Bool("from_continuity", selection.FromContinuity))
	}
	s.logger.Info("shot selection complete", logging.Args(attrs...)...)
	return nil
}

func (s *SelectStage) HealthCheck(ctx context.Context) stage.Health {
	if len(s.engines.Kinds()) == 0 {
		return stage.Unhealthy("select", "no generation engines enabled")
	}
	return stage.Healthy("select")
}

// loraAvailable reports whether a trained adapter can serve this shot: the
// shot features exactly one character and that character has one.
func (s *SelectStage) loraAvailable(shot *queue.Shot) bool {
	featured := featuredCharacters(shot)
	return len(featured) == 1 && s.registry.HasLora(featured[0])
}

func featuredCharacters(shot *queue.Shot) []string {
	var featured []string
	for _, character := range shot.Characters {
		if trimmed := strings.TrimSpace(character); trimmed != "" {
			featured = append(featured, trimmed)
		}
	}
	return featured
}
