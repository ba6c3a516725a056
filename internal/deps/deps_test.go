package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/deps"
)

func stubBinary(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	dir := t.TempDir()
	stubBinary(t, dir, "ffmpeg")
	stubBinary(t, dir, "ffprobe")
	t.Setenv("PATH", dir)

	cfg := config.Default()
	cfg.Postprocess.InterpolateBinary = "rife-cli"
	cfg.Postprocess.UpscaleBinary = ""

	statuses := deps.CheckBinaries(deps.Requirements(&cfg))
	if len(statuses) != 4 {
		t.Fatalf("statuses = %d", len(statuses))
	}

	byName := make(map[string]deps.Status, len(statuses))
	for _, status := range statuses {
		byName[status.Name] = status
	}

	if !byName["FFmpeg"].Available || !byName["FFprobe"].Available {
		t.Fatalf("stubbed binaries should be found: %+v", statuses)
	}
	if byName["Frame interpolator"].Available {
		t.Fatal("rife-cli is not on PATH")
	}
	if !byName["Frame interpolator"].Optional {
		t.Fatal("interpolator must be optional")
	}
	if byName["Upscaler"].Detail != "command not configured" {
		t.Fatalf("empty command detail = %q", byName["Upscaler"].Detail)
	}

	if missing := deps.MissingRequired(statuses); len(missing) != 0 {
		t.Fatalf("optional tools must not count as missing: %v", missing)
	}
}

func TestMissingRequired(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	cfg := config.Default()
	statuses := deps.CheckBinaries(deps.Requirements(&cfg))
	missing := deps.MissingRequired(statuses)
	if len(missing) != 2 || missing[0] != "FFmpeg" || missing[1] != "FFprobe" {
		t.Fatalf("missing = %v", missing)
	}
}

func TestRequirementsHonorToolOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.FFmpeg = "/opt/media/ffmpeg"
	requirements := deps.Requirements(&cfg)
	if requirements[0].Command != "/opt/media/ffmpeg" {
		t.Fatalf("override ignored: %+v", requirements[0])
	}
}
