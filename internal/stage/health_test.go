package stage_test

import (
	"testing"

	"reelsmith/internal/stage"
)

func TestHealthConstructors(t *testing.T) {
	ready := stage.Healthy("generate")
	if !ready.Ready || ready.Name != "generate" || ready.Detail != "" {
		t.Fatalf("Healthy = %+v", ready)
	}

	down := stage.Unhealthy("score", "ffprobe not found")
	if down.Ready || down.Detail != "ffprobe not found" {
		t.Fatalf("Unhealthy = %+v", down)
	}
}

func TestHealthString(t *testing.T) {
	if got := stage.Healthy("generate").String(); got != "generate: ready" {
		t.Fatalf("String = %q", got)
	}
	if got := stage.Unhealthy("refine", "i2v engine disabled").String(); got != "refine: i2v engine disabled" {
		t.Fatalf("String = %q", got)
	}
	if got := stage.Unhealthy("select", "").String(); got != "select: not ready" {
		t.Fatalf("String = %q", got)
	}
}
