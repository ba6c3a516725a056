package testsupport

import (
	"context"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEpisode creates an episode for tests using the provided store.
func NewEpisode(t testing.TB, store *queue.Store, title string) *queue.Episode {
	t.Helper()

	episode, err := store.NewEpisode(context.Background(), title)
	if err != nil {
		t.Fatalf("store.NewEpisode: %v", err)
	}
	return episode
}

// NewScene creates a scene for tests.
func NewScene(t testing.TB, store *queue.Store, episodeID int64, seq int, title string) *queue.Scene {
	t.Helper()

	scene, err := store.NewScene(context.Background(), &queue.Scene{
		EpisodeID: episodeID,
		Seq:       seq,
		Title:     title,
		Location:  "rooftop",
		Mood:      "tense",
		TimeOfDay: "night",
	})
	if err != nil {
		t.Fatalf("store.NewScene: %v", err)
	}
	return scene
}

// NewShot creates a planned shot for tests.
func NewShot(t testing.TB, store *queue.Store, sceneID int64, seq int) *queue.Shot {
	t.Helper()

	shot, err := store.NewShot(context.Background(), &queue.Shot{
		SceneID:         sceneID,
		Seq:             seq,
		ShotType:        "wide",
		DurationSeconds: 4,
		Motion:          "slow pan",
		Characters:      []string{"mira"},
		Status:          queue.ShotPlanned,
	})
	if err != nil {
		t.Fatalf("store.NewShot: %v", err)
	}
	return shot
}
