package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/api"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/story"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

type testEnv struct {
	store  *queue.Store
	server *httptest.Server
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	manager := workflow.NewManager(cfg, store, logger)
	router := api.NewRouter(api.ServerConfig{
		Token:    "test-token",
		Version:  "test",
		Logger:   logger,
		Store:    store,
		Manager:  manager,
		Importer: story.NewImporter(store, logger),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{store: store, server: server, token: "test-token"}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthIsOpen(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("request id header missing")
	}
	health := decode[api.HealthResponse](t, resp)
	if health.Status != "ok" || health.Version != "test" {
		t.Fatalf("health = %+v", health)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", resp.StatusCode)
	}
	envelope := decode[api.ErrorResponse](t, resp)
	if envelope.Code != "UNAUTHORIZED" {
		t.Fatalf("envelope = %+v", envelope)
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", resp.StatusCode)
	}
}

func TestImportAndFetchEpisode(t *testing.T) {
	env := newTestEnv(t)

	manifestPath := filepath.Join(t.TempDir(), "episode.yaml")
	manifest := `title: "Night Run"
scenes:
  - title: "Rooftop"
    location: rooftop
    mood: tense
    shots:
      - type: wide
        duration: 4
        characters: [mira]
`
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	resp := env.request(t, http.MethodPost, "/api/episodes/import", api.ImportRequest{Path: manifestPath})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import status = %d", resp.StatusCode)
	}
	imported := decode[api.ImportResponse](t, resp)
	if imported.EpisodeID == 0 {
		t.Fatal("no episode id returned")
	}

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/episodes/%d", imported.EpisodeID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	episode := decode[api.EpisodeResponse](t, resp)
	if episode.Title != "Night Run" || len(episode.Scenes) != 1 {
		t.Fatalf("episode = %+v", episode)
	}

	resp = env.request(t, http.MethodGet, "/api/episodes", nil)
	episodes := decode[[]api.EpisodeResponse](t, resp)
	if len(episodes) != 1 {
		t.Fatalf("episodes = %+v", episodes)
	}
}

func TestImportRejectsMissingPath(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodPost, "/api/episodes/import", api.ImportRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAssembleEpisode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, env.store, "Pilot")

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/episodes/%d/assemble", episode.ID), nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	got, err := env.store.GetEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if got.Status != queue.EpisodeAssembling {
		t.Fatalf("episode status = %q", got.Status)
	}

	// Repeating the request while assembly is pending is a no-op.
	resp = env.request(t, http.MethodPost, fmt.Sprintf("/api/episodes/%d/assemble", episode.ID), nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("repeat status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.request(t, http.MethodPost, "/api/episodes/999/assemble", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown episode status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRetryShot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, env.store, "Pilot")
	scene := testsupport.NewScene(t, env.store, episode.ID, 1, "A")
	shot := testsupport.NewShot(t, env.store, scene.ID, 1)

	// A planned shot cannot be retried.
	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/shots/%d/retry", shot.ID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("planned retry status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	shot.SetFailed("engine unreachable")
	if err := env.store.UpdateShot(ctx, shot); err != nil {
		t.Fatalf("UpdateShot: %v", err)
	}

	resp = env.request(t, http.MethodPost, fmt.Sprintf("/api/shots/%d/retry", shot.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry status = %d", resp.StatusCode)
	}
	retried := decode[api.ShotResponse](t, resp)
	if retried.Status != string(queue.ShotPlanned) || retried.ErrorMessage != "" {
		t.Fatalf("retried = %+v", retried)
	}
}

func TestSkipShot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, env.store, "Pilot")
	scene := testsupport.NewScene(t, env.store, episode.ID, 1, "A")
	shot := testsupport.NewShot(t, env.store, scene.ID, 1)

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/shots/%d/skip", shot.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("skip status = %d", resp.StatusCode)
	}
	skipped := decode[api.ShotResponse](t, resp)
	if skipped.Status != string(queue.ShotSkipped) {
		t.Fatalf("skipped = %+v", skipped)
	}

	// Mid-render shots are protected.
	busy := testsupport.NewShot(t, env.store, scene.ID, 2)
	busy.Status = queue.ShotGenerating
	if err := env.store.UpdateShot(ctx, busy); err != nil {
		t.Fatalf("UpdateShot: %v", err)
	}
	resp = env.request(t, http.MethodPost, fmt.Sprintf("/api/shots/%d/skip", busy.ID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("busy skip status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegenerateScene(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, env.store, "Pilot")
	scene := testsupport.NewScene(t, env.store, episode.ID, 1, "A")
	failed := testsupport.NewShot(t, env.store, scene.ID, 1)
	failed.SetFailed("boom")
	if err := env.store.UpdateShot(ctx, failed); err != nil {
		t.Fatalf("UpdateShot: %v", err)
	}
	accepted := testsupport.NewShot(t, env.store, scene.ID, 2)
	accepted.Status = queue.ShotAccepted
	if err := env.store.UpdateShot(ctx, accepted); err != nil {
		t.Fatalf("UpdateShot: %v", err)
	}

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/scenes/%d/generate", scene.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	retried := decode[api.RetriedResponse](t, resp)
	if retried.Retried != 1 {
		t.Fatalf("retried = %+v", retried)
	}

	shots, err := env.store.ShotsByScene(ctx, scene.ID)
	if err != nil {
		t.Fatalf("ShotsByScene: %v", err)
	}
	if shots[0].Status != queue.ShotPlanned {
		t.Fatalf("failed shot not rewound: %q", shots[0].Status)
	}
	if shots[1].Status != queue.ShotAccepted {
		t.Fatalf("accepted shot must be untouched: %q", shots[1].Status)
	}
}

func TestInvalidPathID(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/api/episodes/abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}
