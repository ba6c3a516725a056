package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/logging"
)

func fileLogger(t *testing.T, opts logging.Options) (*slog.Logger, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reelsmith.log")
	opts.OutputPaths = []string{path}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return logger, func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		return string(data)
	}
}

func TestConsoleOutputCarriesComponentAndFields(t *testing.T) {
	logger, read := fileLogger(t, logging.Options{Level: "info", Format: "console"})

	component := logging.NewComponentLogger(logger, "workflow")
	component.Info("shot accepted", "shot_id", int64(7), "detail", "two words")

	line := read()
	if !strings.Contains(line, " INFO workflow: shot accepted") {
		t.Fatalf("line = %q", line)
	}
	if !strings.Contains(line, "shot_id=7") {
		t.Fatalf("numeric field missing: %q", line)
	}
	if !strings.Contains(line, `detail="two words"`) {
		t.Fatalf("values with spaces must be quoted: %q", line)
	}
}

func TestJSONOutput(t *testing.T) {
	logger, read := fileLogger(t, logging.Options{Level: "info", Format: "json"})

	logger.Info("daemon started", "bind", "127.0.0.1:7490")

	var record map[string]any
	if err := json.Unmarshal([]byte(read()), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["msg"] != "daemon started" || record["level"] != "info" {
		t.Fatalf("record = %v", record)
	}
	if _, ok := record["ts"].(string); !ok {
		t.Fatalf("timestamp missing: %v", record)
	}
}

func TestLevelFiltering(t *testing.T) {
	logger, read := fileLogger(t, logging.Options{Level: "warn", Format: "console"})

	logger.Debug("noise")
	logger.Info("still noise")
	logger.Warn("queue poll slow")

	lines := strings.TrimSpace(read())
	if strings.Count(lines, "\n")+1 != 1 || !strings.Contains(lines, "WARN") {
		t.Fatalf("only the warning should be written: %q", lines)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("unsupported format should be rejected")
	}
}

func TestContextFields(t *testing.T) {
	ctx := logging.WithShotID(context.Background(), 12)
	ctx = logging.WithSceneID(ctx, 3)
	ctx = logging.WithStage(ctx, "generate")
	ctx = logging.WithLane(ctx, "gpu")
	ctx = logging.WithRequestID(ctx, "req-1")

	fields := logging.ContextFields(ctx)
	if len(fields) != 5 {
		t.Fatalf("fields = %v", fields)
	}
	keys := make([]string, 0, len(fields))
	for _, attr := range fields {
		keys = append(keys, attr.Key)
	}
	want := []string{
		logging.FieldShotID,
		logging.FieldSceneID,
		logging.FieldStage,
		logging.FieldLane,
		logging.FieldCorrelationID,
	}
	for i, key := range want {
		if keys[i] != key {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}

	if got := logging.ContextFields(context.Background()); len(got) != 0 {
		t.Fatalf("bare context should yield no fields: %v", got)
	}
}

func TestWithContextOnNilLogger(t *testing.T) {
	ctx := logging.WithStage(context.Background(), "score")
	logger := logging.WithContext(ctx, nil)
	if logger == nil {
		t.Fatal("WithContext must always return a usable logger")
	}
	logger.Info("discarded")
}
