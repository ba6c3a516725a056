package story

import (
	"context"
	"log/slog"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

// Importer writes manifests into the queue.
type Importer struct {
	store  *queue.Store
	logger *slog.Logger
}

// NewImporter builds an importer over the queue store.
func NewImporter(store *queue.Store, logger *slog.Logger) *Importer {
	return &Importer{
		store:  store,
		logger: logging.NewComponentLogger(logger, "story"),
	}
}

// Import creates the episode, its scenes, shots, and character overlays from
// a validated manifest. Shots start planned; the daemon picks them up on its
// next poll.
func (i *Importer) Import(ctx context.Context, manifest *Manifest) (*queue.Episode, error) {
	if err := manifest.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "import", "manifest", "", err)
	}

	episode, err := i.store.NewEpisode(ctx, manifest.Title)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "import", "create episode", "", err)
	}

	shotCount := 0
	for sceneSeq, sceneSpec := range manifest.Scenes {
		scene, err := i.store.NewScene(ctx, &queue.Scene{
			EpisodeID:      episode.ID,
			Seq:            sceneSeq + 1,
			Title:          sceneSpec.Title,
			Location:       sceneSpec.Location,
			Mood:           sceneSpec.Mood,
			TimeOfDay:      sceneSpec.TimeOfDay,
			TargetDuration: sceneSpec.TargetDuration,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "import", "create scene", sceneSpec.Title, err)
		}

		for character, state := range sceneSpec.CharacterState {
			err := i.store.UpsertCharacterSceneState(ctx, queue.CharacterSceneState{
				SceneID:   scene.ID,
				Character: character,
				Clothing:  state.Clothing,
				Injuries:  state.Injuries,
				Emotion:   state.Emotion,
				Energy:    state.Energy,
			})
			if err != nil {
				return nil, services.Wrap(services.ErrTransient, "import", "character state", character, err)
			}
		}

		for shotSeq, shotSpec := range sceneSpec.Shots {
			shot := &queue.Shot{
				SceneID:         scene.ID,
				Seq:             shotSeq + 1,
				ShotType:        shotSpec.Type,
				DurationSeconds: shotSpec.Duration,
				Motion:          shotSpec.Motion,
				Characters:      trimAll(shotSpec.Characters),
				Seed:            shotSpec.Seed,
				SeedExplicit:    shotSpec.Seed != 0,
				Steps:           shotSpec.Steps,
				Status:          queue.ShotPlanned,
			}
			if shotSpec.Dialogue != nil {
				shot.DialogueFrom = shotSpec.Dialogue.From
				shot.DialogueText = shotSpec.Dialogue.Text
			}
			if _, err := i.store.NewShot(ctx, shot); err != nil {
				return nil, services.Wrap(services.ErrTransient, "import", "create shot", "", err)
			}
			shotCount++
		}
	}

	i.logger.Info("episode imported",
		logging.Int64(logging.FieldEpisodeID, episode.ID),
		logging.String("title", episode.Title),
		logging.Int("scenes", len(manifest.Scenes)),
		logging.Int("shots", shotCount))
	return episode, nil
}

func trimAll(values []string) []string {
	var out []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
