package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"

	"reelsmith/internal/characters"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Tier names one rung of the synthesis cascade.
type Tier string

const (
	TierTrained  Tier = "trained"
	TierClone    Tier = "clone"
	TierFallback Tier = "fallback"
)

// Request carries one dialogue line to synthesize.
type Request struct {
	Character string
	Text      string
	OutPath   string
}

// Result reports which tier produced the audio.
type Result struct {
	Tier     Tier
	Language string
	Path     string
}

type synthesisPayload struct {
	Text        string `json:"text"`
	Language    string `json:"language,omitempty"`
	Model       string `json:"model,omitempty"`
	CloneSample string `json:"clone_sample,omitempty"`
}

// Cascade runs the tiered synthesis. Tiers without a configured URL or
// without the profile data they need are skipped, not failed.
type Cascade struct {
	cfg        config.Voice
	registry   *characters.Registry
	httpClient *http.Client
	defaultTag language.Tag
	logger     *slog.Logger
}

// NewCascade builds the cascade. defaultLanguage is the episode's dialogue
// language; each character's preferred languages are matched against it.
func NewCascade(cfg config.Voice, registry *characters.Registry, defaultLanguage string, logger *slog.Logger) *Cascade {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	tag, err := language.Parse(strings.TrimSpace(defaultLanguage))
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Cascade{
		cfg:        cfg,
		registry:   registry,
		httpClient: &http.Client{Timeout: timeout},
		defaultTag: tag,
		logger:     logging.NewComponentLogger(logger, "voice"),
	}
}

// Synthesize renders the dialogue line through the first tier that succeeds.
func (c *Cascade) Synthesize(ctx context.Context, request Request) (Result, error) {
	if strings.TrimSpace(request.Text) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "audio", "synthesize", "empty dialogue text", nil)
	}

	profile := c.registry.Get(request.Character)
	lang := c.pickLanguage(profile)

	var lastErr error
	for _, attempt := range c.tiers(profile) {
		payload := synthesisPayload{Text: request.Text, Language: lang}
		switch attempt.tier {
		case TierTrained:
			payload.Model = profile.Voice.TrainedModel
		case TierClone:
			payload.CloneSample = profile.Voice.CloneSample
		}

		err := c.call(ctx, attempt.url, payload, request.OutPath)
		if err == nil {
			c.logger.Info("dialogue synthesized",
				logging.String(logging.FieldCharacter, request.Character),
				logging.String("tier", string(attempt.tier)),
				logging.String("language", lang))
			return Result{Tier: attempt.tier, Language: lang, Path: request.OutPath}, nil
		}
		lastErr = err
		c.logger.Warn("synthesis tier failed, falling back",
			logging.String(logging.FieldCharacter, request.Character),
			logging.String("tier", string(attempt.tier)),
			logging.Error(err))
	}

	if lastErr == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "audio", "synthesize", "no synthesis tier configured", nil)
	}
	return Result{}, services.Wrap(services.ErrTransient, "audio", "synthesize",
		fmt.Sprintf("all synthesis tiers failed for %s", request.Character), lastErr)
}

type tierAttempt struct {
	tier Tier
	url  string
}

// tiers returns the usable rungs in fidelity order for this character.
func (c *Cascade) tiers(profile *characters.Profile) []tierAttempt {
	var attempts []tierAttempt
	if profile != nil && strings.TrimSpace(profile.Voice.TrainedModel) != "" && strings.TrimSpace(c.cfg.TrainedURL) != "" {
		attempts = append(attempts, tierAttempt{TierTrained, c.cfg.TrainedURL})
	}
	if profile != nil && strings.TrimSpace(profile.Voice.CloneSample) != "" && strings.TrimSpace(c.cfg.CloneURL) != "" {
		attempts = append(attempts, tierAttempt{TierClone, c.cfg.CloneURL})
	}
	if strings.TrimSpace(c.cfg.FallbackURL) != "" {
		attempts = append(attempts, tierAttempt{TierFallback, c.cfg.FallbackURL})
	}
	return attempts
}

// pickLanguage matches the episode language against the character's preferred
// languages. When the character supports a compatible variant that variant
// wins; otherwise the character's first preference stands in.
func (c *Cascade) pickLanguage(profile *characters.Profile) string {
	if profile == nil {
		return c.defaultTag.String()
	}
	tags := profile.LanguageTags()
	if len(tags) == 0 {
		return c.defaultTag.String()
	}
	matcher := language.NewMatcher(tags)
	_, index, confidence := matcher.Match(c.defaultTag)
	if confidence == language.No {
		return tags[0].String()
	}
	return tags[index].String()
}

func (c *Cascade) call(ctx context.Context, url string, payload synthesisPayload, outPath string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(url, "/")+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("synthesis service status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return err
	}
	if written == 0 {
		return errors.New("synthesis service returned empty audio")
	}
	return out.Close()
}
