package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngines()
	c.normalizePostprocess()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AssetPool) == "" {
		c.Paths.AssetPool = defaultAssetPool
	}
	if c.Paths.AssetPool, err = expandPath(c.Paths.AssetPool); err != nil {
		return fmt.Errorf("paths.asset_pool_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProfilesDir) == "" {
		c.Paths.ProfilesDir = defaultProfilesDir
	}
	if c.Paths.ProfilesDir, err = expandPath(c.Paths.ProfilesDir); err != nil {
		return fmt.Errorf("paths.profiles_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MusicDir) == "" {
		c.Paths.MusicDir = defaultMusicDir
	}
	if c.Paths.MusicDir, err = expandPath(c.Paths.MusicDir); err != nil {
		return fmt.Errorf("paths.music_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngines() {
	for _, engine := range []*Engine{&c.Engines.I2V, &c.Engines.T2V, &c.Engines.Lora} {
		engine.BaseURL = strings.TrimRight(strings.TrimSpace(engine.BaseURL), "/")
		if engine.SubmitTimeout <= 0 {
			engine.SubmitTimeout = defaultSubmitTimeout
		}
		if engine.JobTimeout <= 0 {
			engine.JobTimeout = defaultJobTimeout
		}
		if engine.PollInterval <= 0 {
			engine.PollInterval = defaultPollInterval
		}
		if engine.MaxPollBackoff < engine.PollInterval {
			engine.MaxPollBackoff = defaultMaxPollBackoff
		}
	}
	if c.Engines.MaxRetries < 0 {
		c.Engines.MaxRetries = defaultEngineRetries
	}
	if c.Engines.GPUSlots <= 0 {
		c.Engines.GPUSlots = defaultGPUSlots
	}
}

func (c *Config) normalizePostprocess() {
	if c.Postprocess.StageRetries < 0 {
		c.Postprocess.StageRetries = defaultStageRetries
	}
	if c.Postprocess.StageTimeout <= 0 {
		c.Postprocess.StageTimeout = defaultStageTimeout
	}
	if strings.TrimSpace(c.Postprocess.InterpolateBinary) == "" {
		c.Postprocess.InterpolateBinary = defaultInterpolateBinary
	}
	if strings.TrimSpace(c.Postprocess.UpscaleBinary) == "" {
		c.Postprocess.UpscaleBinary = defaultUpscaleBinary
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
