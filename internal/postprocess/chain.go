package postprocess

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
)

// Result reports what the chain did to a clip.
type Result struct {
	OutputPath    string
	StagesApplied []string
	StagesSkipped []string
	Degraded      bool
}

// Processor executes the transform chain. The chain is deterministic: the
// same input and configuration always yield the same output.
type Processor struct {
	cfg    config.Postprocess
	ffmpeg string
	logger *slog.Logger
}

// NewProcessor builds a processor using the configured external tools.
func NewProcessor(cfg config.Postprocess, ffmpegBinary string, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		ffmpeg: ffmpegBinary,
		logger: logging.NewComponentLogger(logger, "postprocess"),
	}
}

type chainStage struct {
	name string
	run  func(ctx context.Context, in, out string) error
}

// Process runs the chain from inPath to outPath. Each stage gets bounded
// retries; a stage that still fails is skipped and the clip flows on from the
// previous artifact, with Degraded set. Only I/O around the chain itself can
// fail the call.
func (p *Processor) Process(ctx context.Context, inPath, outPath string) (Result, error) {
	result := Result{OutputPath: outPath}

	stages := []chainStage{
		{name: "interpolate", run: p.interpolate},
		{name: "rescale", run: p.rescale},
		{name: "grade", run: p.grade},
	}

	current := inPath
	intermediates := make([]string, 0, len(stages))
	for index, stage := range stages {
		target := fileutil.SiblingPath(outPath, fmt.Sprintf("pp%d", index))
		if err := p.runStage(ctx, stage, current, target); err != nil {
			if ctx.Err() != nil {
				cleanup(intermediates)
				return Result{}, ctx.Err()
			}
			p.logger.Warn("stage skipped after retries",
				logging.String(logging.FieldStage, stage.name),
				logging.Error(err))
			result.StagesSkipped = append(result.StagesSkipped, stage.name)
			result.Degraded = true
			continue
		}
		result.StagesApplied = append(result.StagesApplied, stage.name)
		intermediates = append(intermediates, target)
		current = target
	}

	if err := fileutil.CopyFile(current, outPath); err != nil {
		cleanup(intermediates)
		return Result{}, fmt.Errorf("store processed clip: %w", err)
	}
	cleanup(intermediates)
	return result, nil
}

// runStage executes one transform with per-stage timeout and retries.
func (p *Processor) runStage(ctx context.Context, stage chainStage, in, out string) error {
	retries := p.cfg.StageRetries
	if retries < 0 {
		retries = 0
	}
	timeout := time.Duration(p.cfg.StageTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		stageCtx, cancel := context.WithTimeout(ctx, timeout)
		err := stage.run(stageCtx, in, out)
		cancel()
		if err == nil {
			if !fileutil.NonEmptyFile(out) {
				err = fmt.Errorf("%s produced no output", stage.name)
			} else {
				return nil
			}
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// interpolate raises the frame rate to the delivery target.
func (p *Processor) interpolate(ctx context.Context, in, out string) error {
	binary := strings.TrimSpace(p.cfg.InterpolateBinary)
	if binary == "" {
		return fmt.Errorf("interpolate binary not configured")
	}
	return runTool(ctx, binary,
		"-i", in,
		"-o", out,
		"-fps", strconv.Itoa(p.cfg.TargetFPS),
	)
}

// rescale upscales with the super-resolution model, then downscales to the
// delivery resolution. The up-then-down round trip is what removes the
// generation artifacts; a plain resize would keep them.
func (p *Processor) rescale(ctx context.Context, in, out string) error {
	binary := strings.TrimSpace(p.cfg.UpscaleBinary)
	if binary == "" {
		return fmt.Errorf("upscale binary not configured")
	}
	upscaled := fileutil.SiblingPath(out, "up")
	defer os.Remove(upscaled)

	if err := runTool(ctx, binary,
		"-i", in,
		"-o", upscaled,
		"-s", strconv.Itoa(p.cfg.UpscaleFactor),
	); err != nil {
		return err
	}

	scale := fmt.Sprintf("scale=%d:%d:flags=lanczos", p.cfg.TargetWidth, p.cfg.TargetHeight)
	return runTool(ctx, p.ffmpegBinary(),
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", upscaled,
		"-vf", scale,
		"-c:a", "copy",
		out,
	)
}

// grade applies the fixed contrast and saturation curve.
func (p *Processor) grade(ctx context.Context, in, out string) error {
	eq := fmt.Sprintf("eq=contrast=%.3f:saturation=%.3f", p.cfg.Contrast, p.cfg.Saturation)
	return runTool(ctx, p.ffmpegBinary(),
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-vf", eq,
		"-c:a", "copy",
		out,
	)
}

func (p *Processor) ffmpegBinary() string {
	if strings.TrimSpace(p.ffmpeg) == "" {
		return "ffmpeg"
	}
	return p.ffmpeg
}

func runTool(ctx context.Context, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func cleanup(paths []string) {
	for _, path := range paths {
		os.Remove(path)
	}
}
