package assembly_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/assembly"
	"reelsmith/internal/config"
	"reelsmith/internal/library"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
)

// stubFFmpeg appends each invocation's arguments to a log, separated by a
// marker line, and writes the trailing argument as the output file.
func stubFFmpeg(t *testing.T, dir string) (binary, logFile string) {
	t.Helper()
	logFile = filepath.Join(dir, "invocations.txt")
	binary = filepath.Join(dir, "ffmpeg")
	script := fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$@" >> %q
echo ---- >> %q
for a in "$@"; do out="$a"; done
echo media > "$out"
`, logFile, logFile)
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return binary, logFile
}

func episodeFixture(t *testing.T, cfg *config.Config, store *queue.Store, sceneDurations []float64) *queue.Episode {
	t.Helper()
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, store, "Pilot")
	for i, duration := range sceneDurations {
		scene := testsupport.NewScene(t, store, episode.ID, i+1, fmt.Sprintf("Scene %d", i+1))
		scene.Status = queue.SceneCompleted
		scene.DurationSeconds = duration
		scene.VideoPath = filepath.Join(cfg.Paths.LibraryDir, fmt.Sprintf("scene-%d.mp4", i+1))
		testsupport.WriteFile(t, scene.VideoPath, 64)
		if err := store.UpdateScene(ctx, scene); err != nil {
			t.Fatalf("UpdateScene: %v", err)
		}
	}
	return episode
}

func TestEpisodeAssembleCrossfadeOffsets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	binary, logFile := stubFFmpeg(t, t.TempDir())

	episode := episodeFixture(t, cfg, store, []float64{10, 10, 10})

	layout := library.NewLayout(cfg.Paths.LibraryDir)
	assembler := newTestEpisodeAssembler(store, layout, cfg, binary)
	if err := assembler.Assemble(context.Background(), episode); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read invocation log: %v", err)
	}
	log := string(data)

	// Three 10s scenes with 0.4s cross-fades: the second fade begins at
	// 10-0.4=9.6 and the third at 20-0.8=19.2, so the episode runs 29.2s.
	if !strings.Contains(log, "offset=9.600") {
		t.Fatalf("first fade offset missing: %s", log)
	}
	if !strings.Contains(log, "offset=19.200") {
		t.Fatalf("second fade offset missing: %s", log)
	}
	if !strings.Contains(log, "acrossfade=d=0.400") {
		t.Fatalf("audio cross-fade missing: %s", log)
	}
	if !strings.Contains(log, "loudnorm=I=-16.0:TP=-1.5:LRA=11") {
		t.Fatalf("loudness normalization missing: %s", log)
	}
	if !strings.Contains(log, "-frames:v") {
		t.Fatalf("thumbnail extraction missing: %s", log)
	}

	got, err := store.GetEpisode(context.Background(), episode.ID)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if got.Status != queue.EpisodeAssembled {
		t.Fatalf("episode status = %q", got.Status)
	}
	if got.VideoPath == "" || got.ThumbnailPath == "" {
		t.Fatalf("episode paths not recorded: %+v", got)
	}
}

func TestEpisodeAssembleSingleSceneSkipsFades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	binary, logFile := stubFFmpeg(t, t.TempDir())

	episode := episodeFixture(t, cfg, store, []float64{12})

	layout := library.NewLayout(cfg.Paths.LibraryDir)
	assembler := newTestEpisodeAssembler(store, layout, cfg, binary)
	if err := assembler.Assemble(context.Background(), episode); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read invocation log: %v", err)
	}
	if strings.Contains(string(data), "xfade") {
		t.Fatalf("single scene should not cross-fade: %s", data)
	}
	if !strings.Contains(string(data), "loudnorm") {
		t.Fatalf("single scene still normalizes loudness: %s", data)
	}
}

func TestEpisodeAssembleRefusesIncompleteScenes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, store, "Pilot")
	scene := testsupport.NewScene(t, store, episode.ID, 1, "A")
	scene.Status = queue.ScenePartial
	if err := store.UpdateScene(ctx, scene); err != nil {
		t.Fatalf("UpdateScene: %v", err)
	}

	layout := library.NewLayout(cfg.Paths.LibraryDir)
	assembler := newTestEpisodeAssembler(store, layout, cfg, "ffmpeg")
	err := assembler.Assemble(ctx, episode)
	if err == nil {
		t.Fatal("expected refusal for incomplete scenes")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("incomplete episode should be a validation error, got %v", err)
	}
}

func newTestEpisodeAssembler(store *queue.Store, layout library.Layout, cfg *config.Config, ffmpeg string) *assembly.EpisodeAssembler {
	cfgCopy := *cfg
	cfgCopy.Tools.FFmpeg = ffmpeg
	return assembly.NewEpisodeAssembler(store, layout, &cfgCopy, logging.NewNop())
}
