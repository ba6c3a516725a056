package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
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

// renderService fakes one generation engine: jobs run for pollsUntilDone
// status checks, then succeed with outputPath.
type renderService struct {
	outputPath     string
	pollsUntilDone int32
	submits        atomic.Int32
	polls          atomic.Int32
}

func (s *renderService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/jobs":
			s.submits.Add(1)
			json.NewEncoder(w).Encode(videogen.JobStatus{JobID: "job-1", State: videogen.JobQueued})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/jobs/job-1":
			if s.polls.Add(1) >= s.pollsUntilDone {
				json.NewEncoder(w).Encode(videogen.JobStatus{
					JobID:      "job-1",
					State:      videogen.JobSucceeded,
					OutputPath: s.outputPath,
				})
				return
			}
			json.NewEncoder(w).Encode(videogen.JobStatus{JobID: "job-1", State: videogen.JobRunning, Progress: 0.5})
		default:
			http.NotFound(w, r)
		}
	}
}

func newDriver(t *testing.T, store *queue.Store, engines config.Engines) *generation.Driver {
	t.Helper()
	registry := videogen.NewRegistry(engines)
	scheduler := generation.NewScheduler(engines.GPUSlots)
	return generation.NewDriver(registry, store, scheduler, engines, logging.NewNop())
}

func testEngines(baseURL string) config.Engines {
	return config.Engines{
		T2V:        config.Engine{Enabled: true, BaseURL: baseURL, PollInterval: 1, JobTimeout: 30},
		MaxRetries: 2,
		GPUSlots:   1,
	}
}

func TestRenderPollsToCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, store, "Pilot")
	scene := testsupport.NewScene(t, store, episode.ID, 1, "A")
	shot := testsupport.NewShot(t, store, scene.ID, 1)

	outputPath := filepath.Join(t.TempDir(), "render.mp4")
	testsupport.WriteFile(t, outputPath, 64)

	service := &renderService{outputPath: outputPath, pollsUntilDone: 2}
	server := httptest.NewServer(service.handler())
	defer server.Close()

	driver := newDriver(t, store, testEngines(server.URL))
	path, err := driver.Render(ctx, shot, videogen.KindT2V, videogen.JobRequest{Prompt: "x", DurationSeconds: 4})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if path != outputPath {
		t.Fatalf("path = %q", path)
	}
	if service.submits.Load() != 1 {
		t.Fatalf("submits = %d", service.submits.Load())
	}

	audits, err := store.AuditsByShot(ctx, shot.ID)
	if err != nil {
		t.Fatalf("AuditsByShot: %v", err)
	}
	if len(audits) != 1 || audits[0].Outcome != "succeeded" || audits[0].JobID != "job-1" {
		t.Fatalf("audits = %+v", audits)
	}
}

func TestRenderRejectionDoesNotRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, store, "Pilot")
	scene := testsupport.NewScene(t, store, episode.ID, 1, "A")
	shot := testsupport.NewShot(t, store, scene.ID, 1)

	var submits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		submits.Add(1)
		http.Error(w, "unsupported resolution", http.StatusBadRequest)
	}))
	defer server.Close()

	driver := newDriver(t, store, testEngines(server.URL))
	_, err := driver.Render(ctx, shot, videogen.KindT2V, videogen.JobRequest{Prompt: "x"})
	if !errors.Is(err, services.ErrEngineRejected) {
		t.Fatalf("want engine rejection, got %v", err)
	}
	if submits.Load() != 1 {
		t.Fatalf("rejections must not be retried, submits = %d", submits.Load())
	}

	audits, err := store.AuditsByShot(ctx, shot.ID)
	if err != nil {
		t.Fatalf("AuditsByShot: %v", err)
	}
	if len(audits) != 1 || audits[0].Outcome != "failed" {
		t.Fatalf("audits = %+v", audits)
	}
}

func TestRenderResourceExhaustionIsNotRetried(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, store, "Pilot")
	scene := testsupport.NewScene(t, store, episode.ID, 1, "A")
	shot := testsupport.NewShot(t, store, scene.ID, 1)

	var submits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		submits.Add(1)
		http.Error(w, "device out of memory", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	driver := newDriver(t, store, testEngines(server.URL))
	_, err := driver.Render(ctx, shot, videogen.KindT2V, videogen.JobRequest{Prompt: "x"})
	if !errors.Is(err, services.ErrResourceExhausted) {
		t.Fatalf("want resource exhaustion, got %v", err)
	}
	// A saturated device is the fallback path's problem, not the retry loop's.
	if submits.Load() != 1 {
		t.Fatalf("submits = %d", submits.Load())
	}
}

// flakyRenderService fails the first submit with a transient error and then
// behaves like renderService, recording every submitted seed.
type flakyRenderService struct {
	renderService
	mu    sync.Mutex
	seeds []int64
}

func (s *flakyRenderService) handler() http.HandlerFunc {
	inner := s.renderService.handler()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/jobs" {
			var request videogen.JobRequest
			if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.mu.Lock()
			s.seeds = append(s.seeds, request.Seed)
			first := len(s.seeds) == 1
			s.mu.Unlock()
			if first {
				http.Error(w, "service restarting", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(videogen.JobStatus{JobID: "job-1", State: videogen.JobQueued})
			return
		}
		inner(w, r)
	}
}

func (s *flakyRenderService) submittedSeeds() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.seeds...)
}

func TestRenderRetriesWithFreshSeed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, store, "Pilot")
	scene := testsupport.NewScene(t, store, episode.ID, 1, "A")
	shot := testsupport.NewShot(t, store, scene.ID, 1)

	outputPath := filepath.Join(t.TempDir(), "render.mp4")
	testsupport.WriteFile(t, outputPath, 64)

	service := &flakyRenderService{renderService: renderService{outputPath: outputPath, pollsUntilDone: 1}}
	server := httptest.NewServer(service.handler())
	defer server.Close()

	driver := newDriver(t, store, testEngines(server.URL))
	if _, err := driver.Render(ctx, shot, videogen.KindT2V, videogen.JobRequest{Prompt: "x", Seed: 4242}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	seeds := service.submittedSeeds()
	if len(seeds) != 2 {
		t.Fatalf("seeds = %v", seeds)
	}
	if seeds[0] != 4242 {
		t.Fatalf("first attempt seed = %d", seeds[0])
	}
	if seeds[1] == 4242 || seeds[1] == 0 {
		t.Fatalf("retry must roll a fresh seed, got %d", seeds[1])
	}
	if shot.Seed != seeds[1] {
		t.Fatalf("shot seed %d should track the retried seed %d", shot.Seed, seeds[1])
	}
}

func TestRenderKeepsExplicitSeedAcrossRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, store, "Pilot")
	scene := testsupport.NewScene(t, store, episode.ID, 1, "A")
	shot := testsupport.NewShot(t, store, scene.ID, 1)
	shot.Seed = 4242
	shot.SeedExplicit = true

	outputPath := filepath.Join(t.TempDir(), "render.mp4")
	testsupport.WriteFile(t, outputPath, 64)

	service := &flakyRenderService{renderService: renderService{outputPath: outputPath, pollsUntilDone: 1}}
	server := httptest.NewServer(service.handler())
	defer server.Close()

	driver := newDriver(t, store, testEngines(server.URL))
	if _, err := driver.Render(ctx, shot, videogen.KindT2V, videogen.JobRequest{Prompt: "x", Seed: shot.Seed}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	seeds := service.submittedSeeds()
	if len(seeds) != 2 || seeds[0] != 4242 || seeds[1] != 4242 {
		t.Fatalf("pinned seed must survive retries, got %v", seeds)
	}
}

func TestRenderReportedFailureClassification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, store, "Pilot")
	scene := testsupport.NewScene(t, store, episode.ID, 1, "A")
	shot := testsupport.NewShot(t, store, scene.ID, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(videogen.JobStatus{JobID: "job-1", State: videogen.JobQueued})
			return
		}
		json.NewEncoder(w).Encode(videogen.JobStatus{
			JobID: "job-1",
			State: videogen.JobFailed,
			Error: "prompt contains invalid tokens",
		})
	}))
	defer server.Close()

	driver := newDriver(t, store, testEngines(server.URL))
	_, err := driver.Render(ctx, shot, videogen.KindT2V, videogen.JobRequest{Prompt: "x"})
	if !errors.Is(err, services.ErrEngineRejected) {
		t.Fatalf("invalid-parameter failure should classify as rejection, got %v", err)
	}
}

func TestRenderDisabledEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	episode := testsupport.NewEpisode(t, store, "Pilot")
	scene := testsupport.NewScene(t, store, episode.ID, 1, "A")
	shot := testsupport.NewShot(t, store, scene.ID, 1)

	driver := newDriver(t, store, config.Engines{GPUSlots: 1})
	_, err := driver.Render(context.Background(), shot, videogen.KindLora, videogen.JobRequest{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("disabled engine should be a configuration error, got %v", err)
	}
}
