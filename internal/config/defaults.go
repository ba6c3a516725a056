package config

const (
	defaultWorkDir     = "~/.local/share/reelsmith/work"
	defaultLibraryDir  = "~/episodes"
	defaultLogDir      = "~/.local/share/reelsmith/logs"
	defaultAssetPool   = "~/.local/share/reelsmith/assets"
	defaultProfilesDir = "~/.config/reelsmith/characters"
	defaultMusicDir    = "~/.local/share/reelsmith/music"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultSubmitTimeout  = 30
	defaultJobTimeout     = 900
	defaultPollInterval   = 5
	defaultMaxPollBackoff = 60
	defaultEngineRetries  = 2
	defaultGPUSlots       = 1

	defaultDenoiseKeep       = 0.6
	defaultRefineTimeout     = 600
	defaultTargetFPS         = 24
	defaultTargetWidth       = 1920
	defaultTargetHeight      = 1080
	defaultUpscaleFactor     = 2
	defaultContrast          = 1.05
	defaultSaturation        = 1.1
	defaultStageRetries      = 2
	defaultStageTimeout      = 300
	defaultInterpolateBinary = "rife-cli"
	defaultUpscaleBinary     = "realesrgan-cli"

	defaultAcceptThreshold = 0.75
	defaultRejectThreshold = 0.4
	defaultMotionFloor     = 0.05
	defaultMaxRegenerate   = 2

	defaultVoiceTimeout = 120
	defaultMusicTimeout = 300

	defaultDuckThresholdDB = -30.0
	defaultDuckRatio       = 8.0
	defaultAttackMs        = 20
	defaultReleaseMs       = 400
	defaultMusicGainDB     = -12.0

	defaultTransitionSeconds = 0.4
	defaultTransition        = "fade"
	defaultLoudnessTarget    = -16.0
	defaultThumbnailFormat   = "jpg"

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120

	defaultNotifyRequestTimeout = 10

	defaultAPIBind = "127.0.0.1:7490"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:     defaultWorkDir,
			LibraryDir:  defaultLibraryDir,
			LogDir:      defaultLogDir,
			AssetPool:   defaultAssetPool,
			ProfilesDir: defaultProfilesDir,
			MusicDir:    defaultMusicDir,
		},
		Engines: Engines{
			I2V:        defaultEngine(),
			T2V:        defaultEngine(),
			Lora:       defaultEngine(),
			MaxRetries: defaultEngineRetries,
			GPUSlots:   defaultGPUSlots,
		},
		Refinement: Refinement{
			Enabled:        true,
			DenoiseKeep:    defaultDenoiseKeep,
			TimeoutSeconds: defaultRefineTimeout,
		},
		Postprocess: Postprocess{
			TargetFPS:         defaultTargetFPS,
			TargetWidth:       defaultTargetWidth,
			TargetHeight:      defaultTargetHeight,
			UpscaleFactor:     defaultUpscaleFactor,
			Contrast:          defaultContrast,
			Saturation:        defaultSaturation,
			StageRetries:      defaultStageRetries,
			StageTimeout:      defaultStageTimeout,
			InterpolateBinary: defaultInterpolateBinary,
			UpscaleBinary:     defaultUpscaleBinary,
		},
		Quality: Quality{
			AcceptThreshold: defaultAcceptThreshold,
			RejectThreshold: defaultRejectThreshold,
			MotionFloor:     defaultMotionFloor,
			MaxRegenerate:   defaultMaxRegenerate,
		},
		Voice: Voice{
			TimeoutSeconds: defaultVoiceTimeout,
		},
		Music: Music{
			TimeoutSeconds: defaultMusicTimeout,
		},
		Mixing: Mixing{
			DuckThresholdDB: defaultDuckThresholdDB,
			DuckRatio:       defaultDuckRatio,
			AttackMs:        defaultAttackMs,
			ReleaseMs:       defaultReleaseMs,
			MusicGainDB:     defaultMusicGainDB,
		},
		Assembly: Assembly{
			TransitionSeconds: defaultTransitionSeconds,
			Transition:        defaultTransition,
			LoudnessTarget:    defaultLoudnessTarget,
			ThumbnailFormat:   defaultThumbnailFormat,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			SceneComplete:  true,
			EpisodeDone:    true,
			Review:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		API: API{
			Bind: defaultAPIBind,
		},
	}
}

func defaultEngine() Engine {
	return Engine{
		Enabled:        true,
		SubmitTimeout:  defaultSubmitTimeout,
		JobTimeout:     defaultJobTimeout,
		PollInterval:   defaultPollInterval,
		MaxPollBackoff: defaultMaxPollBackoff,
	}
}
