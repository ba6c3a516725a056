package story_test

import (
	"context"
	"errors"
	"testing"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/story"
	"reelsmith/internal/testsupport"
)

func TestImport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	manifest, err := story.LoadManifest(writeManifest(t, sampleManifest))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	importer := story.NewImporter(store, logging.NewNop())
	episode, err := importer.Import(ctx, manifest)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if episode.Status != queue.EpisodeDraft {
		t.Fatalf("episode status = %q", episode.Status)
	}

	scenes, err := store.ScenesByEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatalf("ScenesByEpisode: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("scenes = %d", len(scenes))
	}
	if scenes[0].Seq != 1 || scenes[1].Seq != 2 {
		t.Fatalf("scene order: %d, %d", scenes[0].Seq, scenes[1].Seq)
	}

	shots, err := store.ShotsByScene(ctx, scenes[0].ID)
	if err != nil {
		t.Fatalf("ShotsByScene: %v", err)
	}
	if len(shots) != 2 {
		t.Fatalf("shots = %d", len(shots))
	}
	for _, shot := range shots {
		if shot.Status != queue.ShotPlanned {
			t.Fatalf("shot %d status = %q", shot.ID, shot.Status)
		}
	}

	// A manifest seed is pinned; the selection stage must not replace it.
	if !shots[1].SeedExplicit || shots[1].Seed != 42 {
		t.Fatalf("explicit seed lost: %+v", shots[1])
	}
	if shots[0].SeedExplicit {
		t.Fatal("unset seed should not be explicit")
	}
	if shots[1].DialogueText != "We go now." || shots[1].DialogueFrom != "mira" {
		t.Fatalf("dialogue lost: %+v", shots[1])
	}

	state, err := store.GetCharacterSceneState(ctx, scenes[0].ID, "mira")
	if err != nil {
		t.Fatalf("GetCharacterSceneState: %v", err)
	}
	if state == nil || state.Clothing != "rain jacket" || state.Energy != "high" {
		t.Fatalf("character state = %+v", state)
	}
}

func TestImportRejectsInvalidManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	importer := story.NewImporter(store, logging.NewNop())
	_, err := importer.Import(context.Background(), &story.Manifest{Title: "x"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("invalid manifest should wrap validation, got %v", err)
	}
}
