package services_test

import (
	"errors"
	"strings"
	"testing"

	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "generate", "submit job", "engine unavailable", base)

	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("wrapped error should match its marker")
	}
	if !errors.Is(err, base) {
		t.Fatal("wrapped error should preserve the cause")
	}
	for _, fragment := range []string{"generate", "submit job", "engine unavailable"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing %q", err.Error(), fragment)
		}
	}

	err = services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("nil marker should default to transient")
	}
}

func TestFailureStatus(t *testing.T) {
	cases := []struct {
		marker error
		want   queue.ShotStatus
	}{
		{services.ErrConfiguration, queue.ShotReview},
		{services.ErrValidation, queue.ShotReview},
		{services.ErrNotFound, queue.ShotReview},
		{services.ErrTimeout, queue.ShotFailed},
		{services.ErrTransient, queue.ShotFailed},
		{services.ErrEngineRejected, queue.ShotFailed},
		{services.ErrExternalTool, queue.ShotFailed},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "stage", "op", "msg", nil)
		if got := services.FailureStatus(err); got != tc.want {
			t.Fatalf("FailureStatus(%v) = %q, want %q", tc.marker, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrTimeout, "", "", "", nil)) {
		t.Fatal("timeouts should be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrTransient, "", "", "", nil)) {
		t.Fatal("transient failures should be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrEngineRejected, "", "", "", nil)) {
		t.Fatal("engine rejections are fatal for the attempt")
	}
	if services.Retryable(services.Wrap(services.ErrConfiguration, "", "", "", nil)) {
		t.Fatal("configuration errors are not retryable")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		marker error
		want   services.Kind
	}{
		{services.ErrConfiguration, services.KindConfiguration},
		{services.ErrValidation, services.KindValidation},
		{services.ErrNotFound, services.KindNotFound},
		{services.ErrTimeout, services.KindTimeout},
		{services.ErrEngineRejected, services.KindEngineRejected},
		{services.ErrResourceExhausted, services.KindResourceExhausted},
		{services.ErrQualityRejected, services.KindQualityRejected},
		{services.ErrExternalTool, services.KindExternalTool},
		{services.ErrTransient, services.KindTransient},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "s", "o", "m", nil)
		if got := services.Classify(err); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.marker, got, tc.want)
		}
	}
	if services.Classify(errors.New("plain")) != services.KindUnknown {
		t.Fatal("unwrapped errors classify as unknown")
	}
	if services.Classify(nil) != services.KindUnknown {
		t.Fatal("nil classifies as unknown")
	}
}
