package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
)

const userAgent = "Reelsmith/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifySceneCompleted(ctx context.Context, sceneTitle string, shotCount int, duration float64) error
	NotifyEpisodeAssembled(ctx context.Context, episodeTitle, videoPath string) error
	NotifyShotReview(ctx context.Context, shotID int64, reason string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	cfg      config.Notifications
}

func (n *ntfyService) NotifySceneCompleted(ctx context.Context, sceneTitle string, shotCount int, duration float64) error {
	if !n.cfg.SceneComplete {
		return nil
	}
	sceneTitle = strings.TrimSpace(sceneTitle)
	data := payload{
		title:   "Reelsmith - Scene Complete",
		message: fmt.Sprintf("Scene assembled: %s (%d shots, %.1fs)", sceneTitle, shotCount, duration),
		tags:    []string{"reelsmith", "scene", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyEpisodeAssembled(ctx context.Context, episodeTitle, videoPath string) error {
	if !n.cfg.EpisodeDone {
		return nil
	}
	episodeTitle = strings.TrimSpace(episodeTitle)
	message := fmt.Sprintf("Episode ready: %s", episodeTitle)
	if videoPath = strings.TrimSpace(videoPath); videoPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, videoPath)
	}
	data := payload{
		title:    "Reelsmith - Episode Ready",
		message:  message,
		tags:     []string{"reelsmith", "episode", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyShotReview(ctx context.Context, shotID int64, reason string) error {
	if !n.cfg.Review {
		return nil
	}
	data := payload{
		title:   "Reelsmith - Review Needed",
		message: fmt.Sprintf("Shot %d needs review: %s", shotID, strings.TrimSpace(reason)),
		tags:    []string{"reelsmith", "shot", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.cfg.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Reelsmith - Error",
		message:  builder.String(),
		tags:     []string{"reelsmith", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reelsmith - Test",
		message:  "Notification system test",
		tags:     []string{"reelsmith", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySceneCompleted(context.Context, string, int, float64) error { return nil }
func (noopService) NotifyEpisodeAssembled(context.Context, string, string) error     { return nil }
func (noopService) NotifyShotReview(context.Context, int64, string) error            { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
