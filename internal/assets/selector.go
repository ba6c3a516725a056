package assets

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"reelsmith/internal/characters"
	"reelsmith/internal/continuity"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

// Selection is the outcome of choosing a source image for a shot. A nil
// Selection from Select means no reference is available, which is a normal
// result: the shot proceeds text-only.
type Selection struct {
	ImagePath      string
	Character      string
	FromContinuity bool
	Score          float64
}

// Selector picks the reference image for image-conditioned generation.
type Selector struct {
	registry *characters.Registry
	tracker  *continuity.Tracker
	logger   *slog.Logger
}

// NewSelector wires the selector to the character registry and continuity tracker.
func NewSelector(registry *characters.Registry, tracker *continuity.Tracker, logger *slog.Logger) *Selector {
	return &Selector{
		registry: registry,
		tracker:  tracker,
		logger:   logging.NewComponentLogger(logger, "assets"),
	}
}

// Select chooses the source image for a shot. Precedence per character: the
// live continuity frame when one exists, then the best-scoring approved pool
// image. Shots featuring more than one character get no single source image;
// shots with no featured characters need none. Either case returns (nil, nil).
func (s *Selector) Select(ctx context.Context, shot *queue.Shot) (*Selection, error) {
	featured := featuredCharacters(shot)
	switch len(featured) {
	case 0:
		return nil, nil
	case 1:
	default:
		s.logger.Debug("no single source image covers all characters",
			logging.Int64(logging.FieldShotID, shot.ID),
			logging.Int("characters", len(featured)))
		return nil, nil
	}

	character := featured[0]

	frame, err := s.tracker.Frame(ctx, character)
	if err != nil {
		return nil, err
	}
	if frame != nil {
		return &Selection{
			ImagePath:      frame.FramePath,
			Character:      character,
			FromContinuity: true,
		}, nil
	}

	pool, err := s.registry.ApprovedPool(character)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		s.logger.Debug("no reference available",
			logging.Int64(logging.FieldShotID, shot.ID),
			logging.String(logging.FieldCharacter, character))
		return nil, nil
	}

	best, ok := s.bestPoolImage(pool, shot.ShotType)
	if !ok {
		return nil, nil
	}
	return &Selection{
		ImagePath: best.Path,
		Character: character,
		Score:     best.Total,
	}, nil
}

// bestPoolImage scores every candidate and returns the winner. Undecodable
// files are skipped rather than failing the shot; ties break on path order so
// selection is deterministic.
func (s *Selector) bestPoolImage(pool []string, shotType string) (ImageScore, bool) {
	scores := make([]ImageScore, 0, len(pool))
	for _, path := range pool {
		score, err := ScoreImage(path, shotType)
		if err != nil {
			s.logger.Warn("skipping unreadable pool image",
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		scores = append(scores, score)
	}
	if len(scores) == 0 {
		return ImageScore{}, false
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		return scores[i].Path < scores[j].Path
	})
	return scores[0], true
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
