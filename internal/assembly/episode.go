package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/library"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

// EpisodeAssembler joins completed scene videos with cross-fades and
// normalizes episode loudness.
type EpisodeAssembler struct {
	store  *queue.Store
	layout library.Layout
	cfg    *config.Config
	logger *slog.Logger
}

// NewEpisodeAssembler wires the episode assembler.
func NewEpisodeAssembler(store *queue.Store, layout library.Layout, cfg *config.Config, logger *slog.Logger) *EpisodeAssembler {
	return &EpisodeAssembler{
		store:  store,
		layout: layout,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "assemble-episode"),
	}
}

// Assemble builds the episode video from its completed scenes in order. Every
// scene must be completed; a partially generated episode is refused rather
// than silently shortened. Each scene boundary loses one transition length,
// so the episode runs shorter than the plain sum of scene durations.
func (a *EpisodeAssembler) Assemble(ctx context.Context, episode *queue.Episode) error {
	scenes, err := a.store.ScenesByEpisode(ctx, episode.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "assemble", "load scenes", "", err)
	}
	if len(scenes) == 0 {
		return services.Wrap(services.ErrValidation, "assemble", "episode", "episode has no scenes", nil)
	}
	for _, scene := range scenes {
		if scene.Status != queue.SceneCompleted || !fileutil.NonEmptyFile(scene.VideoPath) {
			return services.Wrap(services.ErrValidation, "assemble", "episode",
				fmt.Sprintf("scene %d is %s, not completed", scene.ID, scene.Status), nil)
		}
	}

	if err := fileutil.EnsureDir(a.layout.EpisodeDir(episode.ID)); err != nil {
		return services.Wrap(services.ErrTransient, "assemble", "episode dir", "", err)
	}

	videoPath := a.layout.EpisodeVideo(episode.ID)
	if err := a.joinScenes(ctx, scenes, videoPath); err != nil {
		return err
	}

	thumbnailPath := a.layout.EpisodeThumbnail(episode.ID, a.cfg.Assembly.ThumbnailFormat)
	if err := a.extractThumbnail(ctx, videoPath, thumbnailPath); err != nil {
		return err
	}

	episode.VideoPath = videoPath
	episode.ThumbnailPath = thumbnailPath
	episode.Status = queue.EpisodeAssembled
	episode.ErrorMessage = ""
	if err := a.store.UpdateEpisode(ctx, episode); err != nil {
		return services.Wrap(services.ErrTransient, "assemble", "persist episode", "", err)
	}

	a.logger.Info("episode assembled",
		logging.Int64(logging.FieldEpisodeID, episode.ID),
		logging.Int("scenes", len(scenes)),
		logging.String("video", videoPath))
	return nil
}

// joinScenes cross-fades consecutive scene videos and loudness-normalizes the
// resulting audio in one ffmpeg pass.
func (a *EpisodeAssembler) joinScenes(ctx context.Context, scenes []*queue.Scene, outPath string) error {
	transition := a.cfg.Assembly.TransitionSeconds
	kind := strings.TrimSpace(a.cfg.Assembly.Transition)
	if kind == "" {
		kind = "fade"
	}
	loudnorm := fmt.Sprintf("loudnorm=I=%.1f:TP=-1.5:LRA=11", a.cfg.Assembly.LoudnessTarget)

	args := make([]string, 0, 2*len(scenes)+8)
	durations := make([]float64, len(scenes))
	for i, scene := range scenes {
		args = append(args, "-i", scene.VideoPath)
		durations[i] = scene.DurationSeconds
		if durations[i] <= 0 {
			probe, err := ffprobe.Inspect(ctx, a.cfg.FFprobeBinary(), scene.VideoPath)
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "assemble", "probe scene", "", err)
			}
			durations[i] = probe.DurationSeconds()
		}
	}

	var filter strings.Builder
	if len(scenes) == 1 {
		fmt.Fprintf(&filter, "[0:v]null[vout];[0:a]%s[aout]", loudnorm)
	} else {
		// Each xfade starts one transition length before the end of the
		// accumulated timeline, so the running offset is the sum of prior
		// durations minus the overlap already spent.
		offset := 0.0
		videoLabel := "[0:v]"
		audioLabel := "[0:a]"
		for i := 1; i < len(scenes); i++ {
			offset += durations[i-1] - transition
			nextVideo := fmt.Sprintf("[vx%d]", i)
			nextAudio := fmt.Sprintf("[ax%d]", i)
			fmt.Fprintf(&filter, "%s[%d:v]xfade=transition=%s:duration=%.3f:offset=%.3f%s;",
				videoLabel, i, kind, transition, offset, nextVideo)
			fmt.Fprintf(&filter, "%s[%d:a]acrossfade=d=%.3f%s;",
				audioLabel, i, transition, nextAudio)
			videoLabel = nextVideo
			audioLabel = nextAudio
		}
		fmt.Fprintf(&filter, "%snull[vout];%s%s[aout]", videoLabel, audioLabel, loudnorm)
	}

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[vout]", "-map", "[aout]",
		"-c:v", "libx264", "-preset", "medium", "-crf", "18",
		"-c:a", "aac",
		outPath,
	)
	if err := runFFmpeg(ctx, a.cfg.FFmpegBinary(), args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "assemble", "join scenes", "", err)
	}
	if !fileutil.NonEmptyFile(outPath) {
		return services.Wrap(services.ErrExternalTool, "assemble", "join scenes", "no episode video written", nil)
	}
	return nil
}

// extractThumbnail takes the first frame of the episode as the poster.
func (a *EpisodeAssembler) extractThumbnail(ctx context.Context, videoPath, thumbnailPath string) error {
	err := runFFmpeg(ctx, a.cfg.FFmpegBinary(),
		"-i", videoPath,
		"-frames:v", "1",
		thumbnailPath,
	)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "assemble", "thumbnail", "", err)
	}
	return nil
}
