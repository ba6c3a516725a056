package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func ntfyServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var mu sync.Mutex
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), requests...)
	}
}

func notifyConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNotifySceneCompleted(t *testing.T) {
	server, requests := ntfyServer(t)
	service := notifications.NewService(notifyConfig(server.URL))

	err := service.NotifySceneCompleted(context.Background(), "Rooftop chase", 4, 23.5)
	if err != nil {
		t.Fatalf("NotifySceneCompleted: %v", err)
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("requests = %d", len(got))
	}
	if got[0].title != "Reelsmith - Scene Complete" {
		t.Fatalf("title = %q", got[0].title)
	}
	if got[0].body != "Scene assembled: Rooftop chase (4 shots, 23.5s)" {
		t.Fatalf("body = %q", got[0].body)
	}
}

func TestNotifyEpisodeAssembledPriority(t *testing.T) {
	server, requests := ntfyServer(t)
	service := notifications.NewService(notifyConfig(server.URL))

	if err := service.NotifyEpisodeAssembled(context.Background(), "Pilot", "/media/pilot.mp4"); err != nil {
		t.Fatalf("NotifyEpisodeAssembled: %v", err)
	}

	got := requests()
	if len(got) != 1 || got[0].priority != "high" {
		t.Fatalf("requests = %+v", got)
	}
}

func TestNotificationCategoryToggles(t *testing.T) {
	server, requests := ntfyServer(t)
	cfg := notifyConfig(server.URL)
	cfg.Notifications.Review = false
	service := notifications.NewService(cfg)

	if err := service.NotifyShotReview(context.Background(), 9, "low score"); err != nil {
		t.Fatalf("NotifyShotReview: %v", err)
	}
	if got := requests(); len(got) != 0 {
		t.Fatalf("disabled category must not send: %+v", got)
	}
}

func TestNoTopicIsNoop(t *testing.T) {
	service := notifications.NewService(notifyConfig(""))
	if err := service.NotifyError(context.Background(), errors.New("boom"), "generate"); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop test notification: %v", err)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	service := notifications.NewService(notifyConfig(server.URL))
	if err := service.TestNotification(context.Background()); err == nil {
		t.Fatal("ntfy rejection should surface")
	}
}
