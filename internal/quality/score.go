package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"reelsmith/internal/assets"
	"reelsmith/internal/media/ffprobe"
)

const (
	structuralWeight = 0.4
	motionWeight     = 0.3
	visualWeight     = 0.3

	durationTolerance = 0.25
)

// Report is the persisted scoring breakdown for a clip.
type Report struct {
	Structural float64  `json:"structural"`
	Motion     float64  `json:"motion"`
	Visual     float64  `json:"visual"`
	Total      float64  `json:"total"`
	Notes      []string `json:"notes,omitempty"`
}

// JSON serializes the report for storage on the shot record.
func (r Report) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Analyzer inspects clips with ffprobe and ffmpeg.
type Analyzer struct {
	ffmpeg  string
	ffprobe string
}

// NewAnalyzer builds an analyzer around the configured binaries.
func NewAnalyzer(ffmpegBinary, ffprobeBinary string) *Analyzer {
	return &Analyzer{ffmpeg: ffmpegBinary, ffprobe: ffprobeBinary}
}

// Analyze scores the clip against its expected duration in seconds.
func (a *Analyzer) Analyze(ctx context.Context, clipPath string, expectedDuration float64) (Report, error) {
	var report Report

	probe, err := ffprobe.InspectFrames(ctx, a.ffprobe, clipPath)
	if err != nil {
		return Report{}, fmt.Errorf("inspect clip: %w", err)
	}

	report.Structural = a.structuralScore(probe, expectedDuration, &report)

	motion, err := a.motionScore(ctx, clipPath, probe.DurationSeconds())
	if err != nil {
		report.Notes = append(report.Notes, "motion analysis unavailable: "+err.Error())
		motion = 0.5
	}
	report.Motion = motion

	visual, err := a.visualScore(ctx, clipPath, probe.DurationSeconds())
	if err != nil {
		report.Notes = append(report.Notes, "visual analysis unavailable: "+err.Error())
		visual = 0.5
	}
	report.Visual = visual

	report.Total = structuralWeight*report.Structural + motionWeight*report.Motion + visualWeight*report.Visual
	return report, nil
}

// structuralScore verifies the container decodes into what was requested:
// one video stream, frames present, duration near the planned length.
func (a *Analyzer) structuralScore(probe ffprobe.Result, expectedDuration float64, report *Report) float64 {
	score := 1.0

	if probe.VideoStreamCount() == 0 {
		report.Notes = append(report.Notes, "no video stream")
		return 0
	}
	if probe.FrameCount() == 0 {
		report.Notes = append(report.Notes, "no decodable frames")
		return 0
	}

	duration := probe.DurationSeconds()
	if expectedDuration > 0 && duration > 0 {
		drift := math.Abs(duration-expectedDuration) / expectedDuration
		if drift > durationTolerance {
			score -= 0.5
			report.Notes = append(report.Notes,
				fmt.Sprintf("duration %.2fs drifts %.0f%% from planned %.2fs", duration, drift*100, expectedDuration))
		}
	}
	if duration <= 0 {
		score -= 0.5
		report.Notes = append(report.Notes, "container reports no duration")
	}
	if score < 0 {
		score = 0
	}
	return score
}

var freezeRE = regexp.MustCompile(`freeze_duration:\s*([0-9.]+)`)

// motionScore measures how much of the clip is frozen. Generation failures
// often produce a still image wrapped in a video container; freezedetect
// catches those.
func (a *Analyzer) motionScore(ctx context.Context, clipPath string, duration float64) (float64, error) {
	if duration <= 0 {
		return 0, fmt.Errorf("unknown duration")
	}
	binary := a.ffmpegBinary()
	cmd := exec.CommandContext(ctx, binary,
		"-hide_banner", "-nostats",
		"-i", clipPath,
		"-vf", "freezedetect=n=-50dB:d=0.25",
		"-f", "null", "-",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("freezedetect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var frozen float64
	for _, match := range freezeRE.FindAllStringSubmatch(string(output), -1) {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			frozen += value
		}
	}
	fraction := frozen / duration
	if fraction > 1 {
		fraction = 1
	}
	return 1 - fraction, nil
}

// visualScore extracts the middle frame and reuses the reference-image
// exposure and sharpness metrics on it.
func (a *Analyzer) visualScore(ctx context.Context, clipPath string, duration float64) (float64, error) {
	framePath := filepath.Join(os.TempDir(), fmt.Sprintf("reelsmith-qc-%d.png", os.Getpid()))
	defer os.Remove(framePath)

	seek := "0"
	if duration > 0 {
		seek = strconv.FormatFloat(duration/2, 'f', 3, 64)
	}
	binary := a.ffmpegBinary()
	cmd := exec.CommandContext(ctx, binary,
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", seek,
		"-i", clipPath,
		"-frames:v", "1",
		framePath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("extract frame: %w: %s", err, strings.TrimSpace(string(output)))
	}

	score, err := assets.ScoreImage(framePath, "")
	if err != nil {
		return 0, fmt.Errorf("score frame: %w", err)
	}
	return score.Brightness*0.5 + score.Sharpness*0.5, nil
}

func (a *Analyzer) ffmpegBinary() string {
	if strings.TrimSpace(a.ffmpeg) == "" {
		return "ffmpeg"
	}
	return a.ffmpeg
}
