package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Daemon", statusOK, "running", false)
	if !strings.HasPrefix(plain, "  Daemon") {
		t.Fatalf("line = %q", plain)
	}
	if !strings.Contains(plain, " ok ") || !strings.HasSuffix(plain, "running") {
		t.Fatalf("line = %q", plain)
	}

	colored := renderStatusLine("Daemon", statusError, "engine down", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("colored line = %q", colored)
	}

	// No trailing padding when the message is empty.
	bare := renderStatusLine("FFmpeg", statusWarn, "", false)
	if strings.HasSuffix(bare, " ") {
		t.Fatalf("line has trailing spaces: %q", bare)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader(" Queue ", false)
	if len(lines) != 1 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.HasPrefix(lines[0], "-- Queue -") {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines[0]) != sectionWidth {
		t.Fatalf("header width = %d, want %d", len(lines[0]), sectionWidth)
	}
}

func TestShouldColorize(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("non-terminal writers must not be colorized")
	}

	t.Setenv("NO_COLOR", "1")
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("NO_COLOR must disable color")
	}
}
