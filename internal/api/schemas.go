package api

import (
	"time"

	"reelsmith/internal/queue"
	"reelsmith/internal/workflow"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse reports daemon liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

// StatusResponse summarizes workflow state for operators.
type StatusResponse struct {
	Running     bool                    `json:"running"`
	LastError   string                  `json:"last_error,omitempty"`
	QueueStats  map[string]int          `json:"queue_stats"`
	StageHealth map[string]StageHealth  `json:"stage_health"`
	LastShot    *ShotResponse           `json:"last_shot,omitempty"`
}

// StageHealth mirrors a stage's readiness probe.
type StageHealth struct {
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// ShotResponse is the wire form of a shot.
type ShotResponse struct {
	ID           int64    `json:"id"`
	SceneID      int64    `json:"scene_id"`
	Seq          int      `json:"seq"`
	Status       string   `json:"status"`
	Engine       string   `json:"engine,omitempty"`
	Characters   []string `json:"characters,omitempty"`
	ClipPath     string   `json:"clip_path,omitempty"`
	QualityScore float64  `json:"quality_score,omitempty"`
	Degraded     bool     `json:"degraded,omitempty"`
	Attempts     int      `json:"attempts"`
	NeedsReview  bool     `json:"needs_review,omitempty"`
	ReviewReason string   `json:"review_reason,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	UpdatedAt    string   `json:"updated_at"`
}

// SceneResponse is the wire form of a scene.
type SceneResponse struct {
	ID              int64   `json:"id"`
	EpisodeID       int64   `json:"episode_id"`
	Seq             int     `json:"seq"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	VideoPath       string  `json:"video_path,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
}

// EpisodeResponse is the wire form of an episode.
type EpisodeResponse struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Status        string          `json:"status"`
	VideoPath     string          `json:"video_path,omitempty"`
	ThumbnailPath string          `json:"thumbnail_path,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	Scenes        []SceneResponse `json:"scenes,omitempty"`
}

// ImportRequest points the importer at a manifest on disk.
type ImportRequest struct {
	Path string `json:"path"`
}

// ImportResponse returns the created episode id.
type ImportResponse struct {
	EpisodeID int64 `json:"episode_id"`
}

// RetriedResponse reports how many shots were rewound.
type RetriedResponse struct {
	Retried int64 `json:"retried"`
}

func shotToResponse(shot *queue.Shot) ShotResponse {
	return ShotResponse{
		ID:           shot.ID,
		SceneID:      shot.SceneID,
		Seq:          shot.Seq,
		Status:       string(shot.Status),
		Engine:       shot.Engine,
		Characters:   shot.Characters,
		ClipPath:     shot.ClipPath,
		QualityScore: shot.QualityScore,
		Degraded:     shot.Degraded,
		Attempts:     shot.Attempts,
		NeedsReview:  shot.NeedsReview,
		ReviewReason: shot.ReviewReason,
		ErrorMessage: shot.ErrorMessage,
		UpdatedAt:    shot.UpdatedAt.Format(time.RFC3339),
	}
}

func sceneToResponse(scene *queue.Scene) SceneResponse {
	return SceneResponse{
		ID:              scene.ID,
		EpisodeID:       scene.EpisodeID,
		Seq:             scene.Seq,
		Title:           scene.Title,
		Status:          string(scene.Status),
		DurationSeconds: scene.DurationSeconds,
		VideoPath:       scene.VideoPath,
		ErrorMessage:    scene.ErrorMessage,
	}
}

func episodeToResponse(episode *queue.Episode, scenes []*queue.Scene) EpisodeResponse {
	resp := EpisodeResponse{
		ID:            episode.ID,
		Title:         episode.Title,
		Status:        string(episode.Status),
		VideoPath:     episode.VideoPath,
		ThumbnailPath: episode.ThumbnailPath,
		ErrorMessage:  episode.ErrorMessage,
	}
	for _, scene := range scenes {
		resp.Scenes = append(resp.Scenes, sceneToResponse(scene))
	}
	return resp
}

func statusToResponse(summary workflow.StatusSummary) StatusResponse {
	resp := StatusResponse{
		Running:     summary.Running,
		LastError:   summary.LastError,
		QueueStats:  make(map[string]int, len(summary.QueueStats)),
		StageHealth: make(map[string]StageHealth, len(summary.StageHealth)),
	}
	for status, count := range summary.QueueStats {
		resp.QueueStats[string(status)] = count
	}
	for name, health := range summary.StageHealth {
		resp.StageHealth[name] = StageHealth{Ready: health.Ready, Detail: health.Detail}
	}
	if summary.LastShot != nil {
		shot := shotToResponse(summary.LastShot)
		resp.LastShot = &shot
	}
	return resp
}
