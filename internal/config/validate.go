package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngines(); err != nil {
		return err
	}
	if err := c.validateRefinement(); err != nil {
		return err
	}
	if err := c.validatePostprocess(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateMixing(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngines() error {
	enabled := 0
	for name, engine := range map[string]Engine{
		"engines.i2v":  c.Engines.I2V,
		"engines.t2v":  c.Engines.T2V,
		"engines.lora": c.Engines.Lora,
	} {
		if !engine.Enabled {
			continue
		}
		enabled++
		if strings.TrimSpace(engine.BaseURL) == "" {
			return fmt.Errorf("%s.base_url must be set when %s.enabled is true", name, name)
		}
	}
	if enabled == 0 {
		return errors.New("at least one generation engine must be enabled")
	}
	return nil
}

func (c *Config) validateRefinement() error {
	if !c.Refinement.Enabled {
		return nil
	}
	if c.Refinement.DenoiseKeep <= 0 || c.Refinement.DenoiseKeep >= 1 {
		return errors.New("refinement.denoise_keep must be between 0 and 1 exclusive")
	}
	if !c.Engines.I2V.Enabled {
		return errors.New("refinement requires engines.i2v to be enabled")
	}
	return nil
}

func (c *Config) validatePostprocess() error {
	if c.Postprocess.TargetFPS <= 0 {
		return errors.New("postprocess.target_fps must be positive")
	}
	if c.Postprocess.TargetWidth <= 0 || c.Postprocess.TargetHeight <= 0 {
		return errors.New("postprocess.target_width and target_height must be positive")
	}
	if c.Postprocess.UpscaleFactor < 1 {
		return errors.New("postprocess.upscale_factor must be at least 1")
	}
	return nil
}

func (c *Config) validateQuality() error {
	if c.Quality.AcceptThreshold < 0 || c.Quality.AcceptThreshold > 1 {
		return errors.New("quality.accept_threshold must be between 0 and 1")
	}
	if c.Quality.RejectThreshold < 0 || c.Quality.RejectThreshold > 1 {
		return errors.New("quality.reject_threshold must be between 0 and 1")
	}
	if c.Quality.RejectThreshold >= c.Quality.AcceptThreshold {
		return errors.New("quality.reject_threshold must be below quality.accept_threshold")
	}
	if c.Quality.MaxRegenerate < 0 {
		return errors.New("quality.max_regenerate must not be negative")
	}
	return nil
}

func (c *Config) validateMixing() error {
	if c.Mixing.DuckRatio < 1 {
		return errors.New("mixing.duck_ratio must be at least 1")
	}
	if c.Mixing.AttackMs <= 0 || c.Mixing.ReleaseMs <= 0 {
		return errors.New("mixing.attack_ms and release_ms must be positive")
	}
	if c.Mixing.AttackMs >= c.Mixing.ReleaseMs {
		return errors.New("mixing.attack_ms must be shorter than mixing.release_ms")
	}
	return nil
}

func (c *Config) validateAssembly() error {
	if c.Assembly.TransitionSeconds < 0 {
		return errors.New("assembly.transition_seconds must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Assembly.Transition)) {
	case "fade", "dissolve", "fadeblack", "fadewhite":
	default:
		return fmt.Errorf("assembly.transition: unsupported value %q", c.Assembly.Transition)
	}
	switch strings.ToLower(strings.TrimSpace(c.Assembly.ThumbnailFormat)) {
	case "jpg", "png":
	default:
		return fmt.Errorf("assembly.thumbnail_format: unsupported value %q", c.Assembly.ThumbnailFormat)
	}
	return nil
}
