package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
)

// Cue places one synthesized dialogue file on the scene timeline.
type Cue struct {
	Path          string
	OffsetSeconds float64
}

// MixRequest describes one scene bed to render.
type MixRequest struct {
	Cues            []Cue
	MusicPath       string
	DurationSeconds float64
	OutPath         string
}

// Mixer renders scene audio beds with ffmpeg.
type Mixer struct {
	cfg    config.Mixing
	ffmpeg string
	logger *slog.Logger
}

// NewMixer builds a mixer around the configured ffmpeg binary.
func NewMixer(cfg config.Mixing, ffmpegBinary string, logger *slog.Logger) *Mixer {
	return &Mixer{
		cfg:    cfg,
		ffmpeg: ffmpegBinary,
		logger: logging.NewComponentLogger(logger, "audio"),
	}
}

// Mix renders the scene bed. With both dialogue and music present the music
// is gain-staged then ducked under the dialogue; the compressor's fast attack
// drops the music as a line starts and the slower release brings it back
// after the line ends. Either side may be absent; a scene with neither gets
// silence at the scene duration so assembly always has an audio track.
func (m *Mixer) Mix(ctx context.Context, request MixRequest) error {
	if request.DurationSeconds <= 0 {
		return fmt.Errorf("mix: scene duration must be positive")
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	var filter strings.Builder
	inputs := 0

	for _, cue := range request.Cues {
		args = append(args, "-i", cue.Path)
		delayMs := int(math.Round(cue.OffsetSeconds * 1000))
		fmt.Fprintf(&filter, "[%d:a]adelay=%d:all=1[v%d];", inputs, delayMs, inputs)
		inputs++
	}
	voiceCount := inputs

	musicIndex := -1
	if strings.TrimSpace(request.MusicPath) != "" {
		args = append(args, "-stream_loop", "-1", "-i", request.MusicPath)
		musicIndex = inputs
		inputs++
	}

	switch {
	case voiceCount > 0 && musicIndex >= 0:
		m.dialogueGraph(&filter, voiceCount)
		fmt.Fprintf(&filter, "[dlg]asplit=2[key][mixin];")
		fmt.Fprintf(&filter, "[%d:a]volume=%.1fdB[mg];", musicIndex, m.cfg.MusicGainDB)
		fmt.Fprintf(&filter, "[mg][key]sidechaincompress=threshold=%.6f:ratio=%.1f:attack=%d:release=%d[duck];",
			dbToLinear(m.cfg.DuckThresholdDB), m.cfg.DuckRatio, m.cfg.AttackMs, m.cfg.ReleaseMs)
		fmt.Fprintf(&filter, "[mixin][duck]amix=inputs=2:duration=longest:normalize=0[bed]")
	case voiceCount > 0:
		m.dialogueGraph(&filter, voiceCount)
		fmt.Fprintf(&filter, "[dlg]anull[bed]")
	case musicIndex >= 0:
		fmt.Fprintf(&filter, "[%d:a]volume=%.1fdB[bed]", musicIndex, m.cfg.MusicGainDB)
	default:
		args = append(args, "-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=48000")
		fmt.Fprintf(&filter, "[0:a]anull[bed]")
	}

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[bed]",
		"-t", fmt.Sprintf("%.3f", request.DurationSeconds),
		"-ar", "48000",
		request.OutPath,
	)

	binary := m.ffmpeg
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mix scene audio: %w: %s", err, strings.TrimSpace(string(output)))
	}
	if !fileutil.NonEmptyFile(request.OutPath) {
		return fmt.Errorf("mix scene audio: no output written")
	}

	m.logger.Debug("scene bed mixed",
		logging.Int("dialogue_cues", voiceCount),
		logging.Bool("music", musicIndex >= 0),
		logging.String("out", request.OutPath))
	return nil
}

// dialogueGraph merges the delayed cues into one [dlg] track.
func (m *Mixer) dialogueGraph(filter *strings.Builder, voiceCount int) {
	if voiceCount == 1 {
		fmt.Fprintf(filter, "[v0]anull[dlg];")
		return
	}
	for i := 0; i < voiceCount; i++ {
		fmt.Fprintf(filter, "[v%d]", i)
	}
	fmt.Fprintf(filter, "amix=inputs=%d:duration=longest:normalize=0[dlg];", voiceCount)
}

// dbToLinear converts a dBFS threshold to the linear amplitude
// sidechaincompress expects.
func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
