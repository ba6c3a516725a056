package queue

import (
	"strings"
	"time"
)

// ShotStatus represents the lifecycle of a shot.
type ShotStatus string

const (
	ShotPlanned        ShotStatus = "planned"
	ShotSelecting      ShotStatus = "selecting"
	ShotSelected       ShotStatus = "selected"
	ShotGenerating     ShotStatus = "generating"
	ShotGenerated      ShotStatus = "generated"
	ShotRefining       ShotStatus = "refining"
	ShotRefined        ShotStatus = "refined"
	ShotPostprocessing ShotStatus = "postprocessing"
	ShotPostprocessed  ShotStatus = "postprocessed"
	ShotScoring        ShotStatus = "scoring"
	ShotAccepted       ShotStatus = "accepted"
	ShotReview         ShotStatus = "review"
	ShotFailed         ShotStatus = "failed"
	ShotSkipped        ShotStatus = "skipped"
)

// SceneStatus is derived from the statuses of a scene's shots plus assembly
// progress.
type SceneStatus string

const (
	SceneDraft      SceneStatus = "draft"
	SceneGenerating SceneStatus = "generating"
	ScenePartial    SceneStatus = "partial"
	SceneReady      SceneStatus = "ready"
	SceneAssembling SceneStatus = "assembling"
	SceneCompleted  SceneStatus = "completed"
	SceneFailed     SceneStatus = "failed"
)

// EpisodeStatus tracks episode assembly and publication.
type EpisodeStatus string

const (
	EpisodeDraft      EpisodeStatus = "draft"
	EpisodeAssembling EpisodeStatus = "assembling"
	EpisodeAssembled  EpisodeStatus = "assembled"
	EpisodePublished  EpisodeStatus = "published"
	EpisodeFailed     EpisodeStatus = "failed"
)

// DaemonStopReason is the error message set when shots are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allShotStatuses = []ShotStatus{
	ShotPlanned,
	ShotSelecting,
	ShotSelected,
	ShotGenerating,
	ShotGenerated,
	ShotRefining,
	ShotRefined,
	ShotPostprocessing,
	ShotPostprocessed,
	ShotScoring,
	ShotAccepted,
	ShotReview,
	ShotFailed,
	ShotSkipped,
}

var shotStatusSet = func() map[ShotStatus]struct{} {
	set := make(map[ShotStatus]struct{}, len(allShotStatuses))
	for _, status := range allShotStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingShotStatuses = map[ShotStatus]struct{}{
	ShotSelecting:      {},
	ShotGenerating:     {},
	ShotRefining:       {},
	ShotPostprocessing: {},
	ShotScoring:        {},
}

// TerminalShotStatuses are the states a scene assembler treats as settled.
var TerminalShotStatuses = []ShotStatus{ShotAccepted, ShotSkipped, ShotReview, ShotFailed}

// Shot represents one shot persisted in SQLite. A shot is the unit of work
// the generation lanes operate on.
type Shot struct {
	ID              int64
	SceneID         int64
	Seq             int
	ShotType        string
	DurationSeconds float64
	Motion          string
	Characters      []string
	SourceImage     string
	DialogueFrom    string
	DialogueText    string
	Engine          string
	Seed            int64
	SeedExplicit    bool
	Steps           int
	RawClipPath     string
	ClipPath        string
	VoicePath       string
	QualityJSON     string
	QualityScore    float64
	Degraded        bool
	Attempts        int
	Status          ShotStatus
	ErrorMessage    string
	NeedsReview     bool
	ReviewReason    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Scene is an ordered group of shots sharing location, mood, and time of day.
type Scene struct {
	ID              int64
	EpisodeID       int64
	Seq             int
	Title           string
	Location        string
	Mood            string
	TimeOfDay       string
	TargetDuration  float64
	MusicPath       string
	AudioPath       string
	VideoPath       string
	DurationSeconds float64
	Status          SceneStatus
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Episode owns scene ordering and the final assembled output.
type Episode struct {
	ID            int64
	Title         string
	VideoPath     string
	ThumbnailPath string
	Status        EpisodeStatus
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ContinuityFrame is the single live reference frame per character.
type ContinuityFrame struct {
	Character string
	FramePath string
	ShotID    int64
	SceneID   int64
	UpdatedAt time.Time
}

// CharacterSceneState is the optional narrative overlay per character per
// scene used to enrich generation prompts. Its lifecycle is independent of
// continuity frames.
type CharacterSceneState struct {
	SceneID   int64
	Character string
	Clothing  string
	Injuries  string
	Emotion   string
	Energy    string
}

// GenerationAudit records one attempt to produce a shot's clip.
type GenerationAudit struct {
	ID          int64
	ShotID      int64
	Engine      string
	JobID       string
	ParamsJSON  string
	Outcome     string
	ErrorDetail string
	SubmittedAt time.Time
	CompletedAt *time.Time
}

// HealthSummary describes aggregated shot counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Planned    int
	Processing int
	Accepted   int
	Review     int
	Failed     int
}

// AllShotStatuses returns the ordered list of known shot statuses.
func AllShotStatuses() []ShotStatus {
	cp := make([]ShotStatus, len(allShotStatuses))
	copy(cp, allShotStatuses)
	return cp
}

// ParseShotStatus converts a string into a known ShotStatus.
func ParseShotStatus(value string) (ShotStatus, bool) {
	normalized := ShotStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := shotStatusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (s *Shot) IsProcessing() bool {
	_, ok := processingShotStatuses[s.Status]
	return ok
}

// IsProcessingShotStatus reports whether a status reflects an in-flight operation.
func IsProcessingShotStatus(status ShotStatus) bool {
	_, ok := processingShotStatuses[status]
	return ok
}

// IsTerminal reports whether the shot has reached a settled state.
func (s *Shot) IsTerminal() bool {
	switch s.Status {
	case ShotAccepted, ShotSkipped, ShotReview, ShotFailed:
		return true
	default:
		return false
	}
}

// HasDialogue reports whether the shot carries a dialogue line.
func (s *Shot) HasDialogue() bool {
	return strings.TrimSpace(s.DialogueText) != ""
}

// SetProgress updates all three progress fields atomically.
func (s *Shot) SetProgress(stage, message string, percent float64) {
	s.ProgressStage = stage
	s.ProgressMessage = message
	s.ProgressPercent = percent
}

// SetFailed marks the shot as failed with the given error message.
func (s *Shot) SetFailed(message string) {
	s.Status = ShotFailed
	s.ErrorMessage = message
	s.ProgressPercent = 0
	s.ProgressMessage = message
	s.LastHeartbeat = nil
	s.ProgressStage = "Failed"
}

// SetReview marks the shot for manual review with a reason.
func (s *Shot) SetReview(reason string) {
	s.Status = ShotReview
	s.NeedsReview = true
	s.ReviewReason = reason
	s.ProgressStage = "Review"
	s.ProgressMessage = reason
	s.LastHeartbeat = nil
}

// StageKey returns the normalized stage identifier used in API/CLI presentation.
func (s ShotStatus) StageKey() string {
	switch s {
	case "":
		return ""
	case ShotPlanned:
		return "planned"
	case ShotAccepted:
		return "final"
	default:
		if _, ok := shotStatusSet[s]; ok {
			return string(s)
		}
		return ""
	}
}

// DeriveSceneStatus computes the aggregate generation status of a scene from
// its shots. A scene becomes ready for assembly only when every shot is
// accepted or skipped; any failed or pending shot keeps it at partial or
// generating. Assembly-side statuses already set on the scene are preserved.
func DeriveSceneStatus(current SceneStatus, shots []*Shot) SceneStatus {
	if current == SceneAssembling || current == SceneCompleted {
		return current
	}
	if len(shots) == 0 {
		return SceneDraft
	}
	var ready, settled, failed, pending int
	for _, shot := range shots {
		switch shot.Status {
		case ShotAccepted, ShotSkipped:
			ready++
			settled++
		case ShotReview:
			settled++
		case ShotFailed:
			failed++
			settled++
		default:
			pending++
		}
	}
	switch {
	case failed == len(shots):
		return SceneFailed
	case ready == len(shots):
		return SceneReady
	case settled == 0 && pending > 0:
		return SceneGenerating
	default:
		return ScenePartial
	}
}
