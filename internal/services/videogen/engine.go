package videogen

import "strings"

// Kind identifies a generation engine.
type Kind string

const (
	// KindT2V renders from a text prompt alone.
	KindT2V Kind = "t2v"
	// KindI2V conditions the render on a source image.
	KindI2V Kind = "i2v"
	// KindLora conditions the render on a trained character adapter.
	KindLora Kind = "lora"
)

// ParseKind normalizes a stored engine name back into a Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindT2V:
		return KindT2V, true
	case KindI2V:
		return KindI2V, true
	case KindLora:
		return KindLora, true
	default:
		return "", false
	}
}

// NeedsSourceImage reports whether the engine requires a reference image.
func (k Kind) NeedsSourceImage() bool {
	return k == KindI2V
}

// JobRequest is the submission payload shared by all engines. Fields an
// engine does not use are left empty and ignored by the service.
type JobRequest struct {
	Prompt          string  `json:"prompt"`
	NegativePrompt  string  `json:"negative_prompt,omitempty"`
	SourceImage     string  `json:"source_image,omitempty"`
	LoraModel       string  `json:"lora_model,omitempty"`
	Seed            int64   `json:"seed"`
	Steps           int     `json:"steps,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	FPS             int     `json:"fps,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	DenoiseStrength float64 `json:"denoise_strength,omitempty"`
	InitVideo       string  `json:"init_video,omitempty"`
}

// JobState is the lifecycle reported by the generation services.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// JobStatus is one poll response.
type JobStatus struct {
	JobID      string   `json:"job_id"`
	State      JobState `json:"state"`
	Progress   float64  `json:"progress"`
	OutputPath string   `json:"output_path,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (s JobStatus) Terminal() bool {
	return s.State == JobSucceeded || s.State == JobFailed
}
