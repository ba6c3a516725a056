package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"reelsmith/internal/queue"
	"reelsmith/internal/story"
)

// NewRouter assembles the control surface.
func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Token, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/episodes", listEpisodesHandler(cfg))
		r.Post("/episodes/import", importEpisodeHandler(cfg))
		r.Get("/episodes/{id}", getEpisodeHandler(cfg))
		r.Post("/episodes/{id}/assemble", assembleEpisodeHandler(cfg))
		r.Get("/scenes/{id}/shots", listSceneShotsHandler(cfg))
		r.Post("/scenes/{id}/generate", regenerateSceneHandler(cfg))
		r.Post("/shots/{id}/retry", retryShotHandler(cfg))
		r.Post("/shots/{id}/skip", skipShotHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, statusToResponse(cfg.Manager.Status(r.Context())))
	}
}

func listEpisodesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodes, err := cfg.Store.ListEpisodes(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list episodes", "INTERNAL_ERROR")
			return
		}
		resp := make([]EpisodeResponse, 0, len(episodes))
		for _, episode := range episodes {
			resp = append(resp, episodeToResponse(episode, nil))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func importEpisodeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		manifest, err := story.LoadManifest(req.Path)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		episode, err := cfg.Importer.Import(r.Context(), manifest)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusCreated, ImportResponse{EpisodeID: episode.ID})
	}
}

func getEpisodeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		episode, err := cfg.Store.GetEpisode(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if episode == nil {
			WriteError(w, http.StatusNotFound, "episode not found", "NOT_FOUND")
			return
		}
		scenes, err := cfg.Store.ScenesByEpisode(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, episodeToResponse(episode, scenes))
	}
}

// assembleEpisodeHandler marks an episode for assembly; the assembly lane
// refuses it later if any scene is still incomplete.
func assembleEpisodeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		episode, err := cfg.Store.GetEpisode(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if episode == nil {
			WriteError(w, http.StatusNotFound, "episode not found", "NOT_FOUND")
			return
		}
		if episode.Status == queue.EpisodeAssembling {
			WriteJSON(w, http.StatusAccepted, episodeToResponse(episode, nil))
			return
		}

		episode.Status = queue.EpisodeAssembling
		episode.ErrorMessage = ""
		if err := cfg.Store.UpdateEpisode(r.Context(), episode); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusAccepted, episodeToResponse(episode, nil))
	}
}

func listSceneShotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		shots, err := cfg.Store.ShotsByScene(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		resp := make([]ShotResponse, 0, len(shots))
		for _, shot := range shots {
			resp = append(resp, shotToResponse(shot))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// regenerateSceneHandler rewinds a scene's failed shots to planned.
func regenerateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		shots, err := cfg.Store.ShotsByScene(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		var failed []int64
		for _, shot := range shots {
			if shot.Status == queue.ShotFailed {
				failed = append(failed, shot.ID)
			}
		}
		if len(failed) == 0 {
			WriteJSON(w, http.StatusOK, RetriedResponse{Retried: 0})
			return
		}
		retried, err := cfg.Store.RetryFailedShots(r.Context(), failed...)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if _, err := cfg.Store.RefreshSceneStatus(r.Context(), id); err != nil {
			cfg.Logger.Warn("failed to refresh scene status", "scene_id", id, "error", err)
		}
		WriteJSON(w, http.StatusOK, RetriedResponse{Retried: retried})
	}
}

func retryShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		shot, err := cfg.Store.GetShot(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if shot == nil {
			WriteError(w, http.StatusNotFound, "shot not found", "NOT_FOUND")
			return
		}
		if shot.Status != queue.ShotFailed && shot.Status != queue.ShotReview {
			WriteError(w, http.StatusConflict, "shot is not failed or in review", "CONFLICT")
			return
		}

		shot.Status = queue.ShotPlanned
		shot.ErrorMessage = ""
		shot.NeedsReview = false
		shot.ReviewReason = ""
		shot.SetProgress("Planned", "Queued for retry", 0)
		if err := cfg.Store.UpdateShot(r.Context(), shot); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if _, err := cfg.Store.RefreshSceneStatus(r.Context(), shot.SceneID); err != nil {
			cfg.Logger.Warn("failed to refresh scene status", "scene_id", shot.SceneID, "error", err)
		}
		WriteJSON(w, http.StatusOK, shotToResponse(shot))
	}
}

// skipShotHandler removes a shot from its scene; the scene assembles without it.
func skipShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		shot, err := cfg.Store.GetShot(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if shot == nil {
			WriteError(w, http.StatusNotFound, "shot not found", "NOT_FOUND")
			return
		}
		if shot.IsProcessing() {
			WriteError(w, http.StatusConflict, "shot is currently processing", "CONFLICT")
			return
		}

		shot.Status = queue.ShotSkipped
		shot.SetProgress("Skipped", "Skipped by operator", 100)
		if err := cfg.Store.UpdateShot(r.Context(), shot); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if _, err := cfg.Store.RefreshSceneStatus(r.Context(), shot.SceneID); err != nil {
			cfg.Logger.Warn("failed to refresh scene status", "scene_id", shot.SceneID, "error", err)
		}
		WriteJSON(w, http.StatusOK, shotToResponse(shot))
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid id", "BAD_REQUEST")
		return 0, false
	}
	return id, true
}
