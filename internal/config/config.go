package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir     string `toml:"work_dir"`
	LibraryDir  string `toml:"library_dir"`
	LogDir      string `toml:"log_dir"`
	AssetPool   string `toml:"asset_pool_dir"`
	ProfilesDir string `toml:"profiles_dir"`
	MusicDir    string `toml:"music_dir"`
}

// Engine describes one external generation engine endpoint.
type Engine struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	SubmitTimeout  int    `toml:"submit_timeout"`
	JobTimeout     int    `toml:"job_timeout"`
	PollInterval   int    `toml:"poll_interval"`
	MaxPollBackoff int    `toml:"max_poll_backoff"`
}

// Engines groups the configured generation engines.
type Engines struct {
	I2V        Engine `toml:"i2v"`
	T2V        Engine `toml:"t2v"`
	Lora       Engine `toml:"lora"`
	MaxRetries int    `toml:"max_retries"`
	GPUSlots   int    `toml:"gpu_slots"`
}

// Refinement controls the second-pass upgrade of text-to-video clips.
type Refinement struct {
	Enabled        bool    `toml:"enabled"`
	DenoiseKeep    float64 `toml:"denoise_keep"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Postprocess configures the deterministic transform chain.
type Postprocess struct {
	TargetFPS         int    `toml:"target_fps"`
	TargetWidth       int    `toml:"target_width"`
	TargetHeight      int    `toml:"target_height"`
	UpscaleFactor     int    `toml:"upscale_factor"`
	Contrast          float64 `toml:"contrast"`
	Saturation        float64 `toml:"saturation"`
	StageRetries      int    `toml:"stage_retries"`
	StageTimeout      int    `toml:"stage_timeout"`
	InterpolateBinary string `toml:"interpolate_binary"`
	UpscaleBinary     string `toml:"upscale_binary"`
}

// Quality configures the clip scoring gate.
type Quality struct {
	AcceptThreshold float64 `toml:"accept_threshold"`
	RejectThreshold float64 `toml:"reject_threshold"`
	MotionFloor     float64 `toml:"motion_floor"`
	MaxRegenerate   int     `toml:"max_regenerate"`
}

// Voice configures speech synthesis engine cascade.
type Voice struct {
	TrainedURL     string `toml:"trained_url"`
	CloneURL       string `toml:"clone_url"`
	FallbackURL    string `toml:"fallback_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Music configures scene music sourcing and generation.
type Music struct {
	GeneratorURL   string `toml:"generator_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Mixing configures dialogue/music mixing and ducking.
type Mixing struct {
	DuckThresholdDB float64 `toml:"duck_threshold_db"`
	DuckRatio       float64 `toml:"duck_ratio"`
	AttackMs        int     `toml:"attack_ms"`
	ReleaseMs       int     `toml:"release_ms"`
	MusicGainDB     float64 `toml:"music_gain_db"`
}

// Assembly configures scene/episode stitching.
type Assembly struct {
	TransitionSeconds float64 `toml:"transition_seconds"`
	Transition        string  `toml:"transition"`
	LoudnessTarget    float64 `toml:"loudness_target"`
	ThumbnailFormat   string  `toml:"thumbnail_format"`
}

// Workflow contains daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	SceneComplete  bool   `toml:"scene_complete"`
	EpisodeDone    bool   `toml:"episode_done"`
	Review         bool   `toml:"review"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// API contains configuration for the HTTP control surface.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Tools overrides the media tool executables, mainly for sandboxed installs.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: working/library/log/asset directories
//   - Engines: I2V, T2V, and LoRA-aware generation endpoints
//   - Refinement: T2V second-pass upgrade settings
//   - Postprocess: frame interpolation, upscaling, grading targets
//   - Quality: clip scoring thresholds and regeneration bound
//   - Voice, Music, Mixing: audio synthesis and ducking
//   - Assembly: scene/episode transitions and loudness
//   - Workflow: daemon polling intervals and heartbeats
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//   - API: HTTP control surface bind address and token
type Config struct {
	Paths         Paths         `toml:"paths"`
	Engines       Engines       `toml:"engines"`
	Refinement    Refinement    `toml:"refinement"`
	Postprocess   Postprocess   `toml:"postprocess"`
	Quality       Quality       `toml:"quality"`
	Voice         Voice         `toml:"voice"`
	Music         Music         `toml:"music"`
	Mixing        Mixing        `toml:"mixing"`
	Assembly      Assembly      `toml:"assembly"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	API           API           `toml:"api"`
	Tools         Tools         `toml:"tools"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for mixing and assembly.
func (c *Config) FFmpegBinary() string {
	if binary := strings.TrimSpace(c.Tools.FFmpeg); binary != "" {
		return binary
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media validation.
func (c *Config) FFprobeBinary() string {
	if binary := strings.TrimSpace(c.Tools.FFprobe); binary != "" {
		return binary
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
