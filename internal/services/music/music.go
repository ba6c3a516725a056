package music

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
)

// Source reports where a scene's backing track came from.
type Source string

const (
	SourceLibrary   Source = "library"
	SourceGenerated Source = "generated"
	SourceNone      Source = "none"
)

// Track is the outcome of sourcing music for a scene. Path is empty when the
// scene plays without music.
type Track struct {
	Path   string
	Source Source
}

// Provider resolves scene moods to audio files.
type Provider struct {
	cfg        config.Music
	libraryDir string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProvider builds a provider over the local music library and the optional
// generation service.
func NewProvider(cfg config.Music, libraryDir string, logger *slog.Logger) *Provider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Provider{
		cfg:        cfg,
		libraryDir: libraryDir,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "music"),
	}
}

// ForScene returns a backing track for the scene's mood. Library first, then
// the generator, then silence. Only unexpected I/O problems surface as errors.
func (p *Provider) ForScene(ctx context.Context, sceneID int64, mood string, durationSeconds float64, outPath string) (Track, error) {
	if path := p.fromLibrary(mood); path != "" {
		p.logger.Info("scene music from library",
			logging.Int64(logging.FieldSceneID, sceneID),
			logging.String("mood", mood),
			logging.String("path", path))
		return Track{Path: path, Source: SourceLibrary}, nil
	}

	if strings.TrimSpace(p.cfg.GeneratorURL) != "" {
		if err := p.generate(ctx, mood, durationSeconds, outPath); err != nil {
			p.logger.Warn("music generation failed, scene continues without music",
				logging.Int64(logging.FieldSceneID, sceneID),
				logging.String("mood", mood),
				logging.Error(err))
		} else {
			p.logger.Info("scene music generated",
				logging.Int64(logging.FieldSceneID, sceneID),
				logging.String("mood", mood))
			return Track{Path: outPath, Source: SourceGenerated}, nil
		}
	}

	p.logger.Info("no music for scene",
		logging.Int64(logging.FieldSceneID, sceneID),
		logging.String("mood", mood))
	return Track{Source: SourceNone}, nil
}

// fromLibrary returns the first library file whose name carries the mood tag.
// Files are expected as <mood>[-variant].{mp3,wav,flac,ogg} or inside a
// directory named after the mood.
func (p *Provider) fromLibrary(mood string) string {
	mood = strings.ToLower(strings.TrimSpace(mood))
	if mood == "" || strings.TrimSpace(p.libraryDir) == "" {
		return ""
	}

	if path := firstAudioFile(filepath.Join(p.libraryDir, mood)); path != "" {
		return path
	}

	entries, err := os.ReadDir(p.libraryDir)
	if err != nil {
		return ""
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() || !isAudioFile(entry.Name()) {
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		if stem == mood || strings.HasPrefix(stem, mood+"-") || strings.HasPrefix(stem, mood+"_") {
			matches = append(matches, filepath.Join(p.libraryDir, entry.Name()))
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

func (p *Provider) generate(ctx context.Context, mood string, durationSeconds float64, outPath string) error {
	payload, err := json.Marshal(map[string]any{
		"mood":             mood,
		"duration_seconds": durationSeconds,
	})
	if err != nil {
		return err
	}
	url := strings.TrimRight(strings.TrimSpace(p.cfg.GeneratorURL), "/") + "/v1/music"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(p.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("music service status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
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
		return fmt.Errorf("music service returned empty audio")
	}
	return out.Close()
}

func firstAudioFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && isAudioFile(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return ""
	}
	sort.Strings(files)
	return files[0]
}

func isAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3", ".wav", ".flac", ".ogg", ".m4a":
		return true
	default:
		return false
	}
}
