package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/generation"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/videogen"
	"reelsmith/internal/testsupport"
)

func refineEngines(baseURL string) config.Engines {
	return config.Engines{
		I2V:      config.Engine{Enabled: true, BaseURL: baseURL, PollInterval: 1, JobTimeout: 30},
		GPUSlots: 1,
	}
}

func newRefineStage(store *queue.Store, engines config.Engines, cfg config.Refinement) *generation.RefineStage {
	registry := videogen.NewRegistry(engines)
	driver := generation.NewDriver(registry, store, generation.NewScheduler(engines.GPUSlots), engines, logging.NewNop())
	return generation.NewRefineStage(store, driver, registry, cfg, logging.NewNop())
}

func refinableShot(t *testing.T, store *queue.Store) *queue.Shot {
	t.Helper()
	episode := testsupport.NewEpisode(t, store, "Pilot")
	scene := testsupport.NewScene(t, store, episode.ID, 1, "Rooftop")
	shot := testsupport.NewShot(t, store, scene.ID, 1)
	shot.Engine = string(videogen.KindT2V)
	shot.RawClipPath = filepath.Join(t.TempDir(), "shot-raw.mp4")
	testsupport.WriteFile(t, shot.RawClipPath, 64)
	return shot
}

func TestRefineUpgradesTextToVideoClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	refinedOutput := filepath.Join(t.TempDir(), "refined.mp4")
	testsupport.WriteFile(t, refinedOutput, 64)
	service := &renderService{outputPath: refinedOutput, pollsUntilDone: 1}
	server := httptest.NewServer(service.handler())
	defer server.Close()

	shot := refinableShot(t, store)
	stg := newRefineStage(store, refineEngines(server.URL), config.Refinement{Enabled: true, DenoiseKeep: 0.6})

	if err := stg.Execute(context.Background(), shot); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if shot.ClipPath == shot.RawClipPath {
		t.Fatal("refined clip should replace the raw one")
	}
	if !strings.HasSuffix(shot.ClipPath, ".refined.mp4") {
		t.Fatalf("clip path = %q", shot.ClipPath)
	}
}

func TestRefineFallsBackWhenDeviceSaturated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var submits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		submits.Add(1)
		http.Error(w, "device out of memory", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	shot := refinableShot(t, store)
	stg := newRefineStage(store, refineEngines(server.URL), config.Refinement{Enabled: true, DenoiseKeep: 0.6})

	if err := stg.Execute(context.Background(), shot); err != nil {
		t.Fatalf("a saturated device must not fail the shot: %v", err)
	}
	if shot.ClipPath != shot.RawClipPath {
		t.Fatalf("clip path = %q, want the unrefined clip %q", shot.ClipPath, shot.RawClipPath)
	}
	if submits.Load() != 1 {
		t.Fatalf("submits = %d", submits.Load())
	}
}

func TestRefineTimeoutKeepsOriginal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	// Job accepted, never finishes; the refinement pass timeout must cut it.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/jobs":
			json.NewEncoder(w).Encode(videogen.JobStatus{JobID: "job-1", State: videogen.JobQueued})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/jobs/"):
			json.NewEncoder(w).Encode(videogen.JobStatus{JobID: "job-1", State: videogen.JobRunning})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	engines := refineEngines(server.URL)
	engines.I2V.JobTimeout = 600

	shot := refinableShot(t, store)
	stg := newRefineStage(store, engines, config.Refinement{Enabled: true, DenoiseKeep: 0.6, TimeoutSeconds: 1})

	if err := stg.Execute(context.Background(), shot); err != nil {
		t.Fatalf("a timed out refinement must not fail the shot: %v", err)
	}
	if shot.ClipPath != shot.RawClipPath {
		t.Fatalf("clip path = %q, want the unrefined clip %q", shot.ClipPath, shot.RawClipPath)
	}
}

func TestRefinePassesThroughImageConditionedClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	shot := refinableShot(t, store)
	shot.Engine = string(videogen.KindI2V)
	stg := newRefineStage(store, refineEngines(server.URL), config.Refinement{Enabled: true, DenoiseKeep: 0.6})

	if err := stg.Execute(context.Background(), shot); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if shot.ClipPath != shot.RawClipPath {
		t.Fatalf("image-conditioned clips pass through, got %q", shot.ClipPath)
	}
	if calls.Load() != 0 {
		t.Fatalf("no engine call expected, got %d", calls.Load())
	}
}

func TestRefinePrepareRequiresRawClip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	shot := refinableShot(t, store)
	shot.RawClipPath = filepath.Join(t.TempDir(), "missing.mp4")

	stg := newRefineStage(store, refineEngines("http://localhost:9001"), config.Refinement{Enabled: true, DenoiseKeep: 0.6})
	err := stg.Prepare(context.Background(), shot)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing raw clip should report not found, got %v", err)
	}
}
