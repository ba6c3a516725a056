package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/audio"
	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/library"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/music"
	"reelsmith/internal/services/voice"
)

// SceneAssembler concatenates a ready scene's accepted clips and lays the
// mixed audio bed under them.
type SceneAssembler struct {
	store  *queue.Store
	voices *voice.Cascade
	music  *music.Provider
	mixer  *audio.Mixer
	layout library.Layout
	cfg    *config.Config
	logger *slog.Logger
}

// NewSceneAssembler wires the scene assembler.
func NewSceneAssembler(store *queue.Store, voices *voice.Cascade, musicProvider *music.Provider, mixer *audio.Mixer, layout library.Layout, cfg *config.Config, logger *slog.Logger) *SceneAssembler {
	return &SceneAssembler{
		store:  store,
		voices: voices,
		music:  musicProvider,
		mixer:  mixer,
		layout: layout,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "assemble-scene"),
	}
}

// Assemble builds the scene video. The caller is responsible for having moved
// the scene into assembling; on success the scene lands in completed with its
// video, audio, and measured duration recorded.
func (a *SceneAssembler) Assemble(ctx context.Context, scene *queue.Scene) error {
	shots, err := a.store.ShotsByScene(ctx, scene.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "assemble", "load shots", "", err)
	}

	var clips []*queue.Shot
	for _, shot := range shots {
		if shot.Status == queue.ShotAccepted && fileutil.NonEmptyFile(shot.ClipPath) {
			clips = append(clips, shot)
		}
	}
	if len(clips) == 0 {
		return services.Wrap(services.ErrValidation, "assemble", "scene",
			"scene has no accepted clips to assemble", nil)
	}

	sceneDir := a.layout.SceneDir(scene.EpisodeID, scene.ID)
	if err := fileutil.EnsureDir(sceneDir); err != nil {
		return services.Wrap(services.ErrTransient, "assemble", "scene dir", "", err)
	}

	durations, total, err := a.clipDurations(ctx, clips)
	if err != nil {
		return err
	}

	cues, err := a.synthesizeDialogue(ctx, scene, clips, durations)
	if err != nil {
		return err
	}

	track, err := a.music.ForScene(ctx, scene.ID, scene.Mood, total, a.layout.SceneMusic(scene.EpisodeID, scene.ID))
	if err != nil {
		return services.Wrap(services.ErrTransient, "assemble", "music", "", err)
	}

	audioPath := a.layout.SceneAudio(scene.EpisodeID, scene.ID)
	err = a.mixer.Mix(ctx, audio.MixRequest{
		Cues:            cues,
		MusicPath:       track.Path,
		DurationSeconds: total,
		OutPath:         audioPath,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "assemble", "mix audio", "", err)
	}

	videoPath := a.layout.SceneVideo(scene.EpisodeID, scene.ID)
	if err := a.concatWithAudio(ctx, clips, audioPath, videoPath); err != nil {
		return err
	}

	scene.VideoPath = videoPath
	scene.AudioPath = audioPath
	scene.MusicPath = track.Path
	scene.DurationSeconds = total
	scene.Status = queue.SceneCompleted
	scene.ErrorMessage = ""
	if err := a.store.UpdateScene(ctx, scene); err != nil {
		return services.Wrap(services.ErrTransient, "assemble", "persist scene", "", err)
	}

	a.logger.Info("scene assembled",
		logging.Int64(logging.FieldSceneID, scene.ID),
		logging.Int("clips", len(clips)),
		logging.Float64("duration", total),
		logging.String("music", string(track.Source)))
	return nil
}

// clipDurations probes each clip and returns per-clip durations plus the
// scene total. Timeline offsets derive from these, so the probe is
// authoritative, not the planned duration.
func (a *SceneAssembler) clipDurations(ctx context.Context, clips []*queue.Shot) ([]float64, float64, error) {
	durations := make([]float64, len(clips))
	var total float64
	for i, shot := range clips {
		probe, err := ffprobe.Inspect(ctx, a.cfg.FFprobeBinary(), shot.ClipPath)
		if err != nil {
			return nil, 0, services.Wrap(services.ErrExternalTool, "assemble", "probe clip",
				fmt.Sprintf("shot %d", shot.ID), err)
		}
		duration := probe.DurationSeconds()
		if duration <= 0 {
			return nil, 0, services.Wrap(services.ErrValidation, "assemble", "probe clip",
				fmt.Sprintf("shot %d clip has no duration", shot.ID), nil)
		}
		durations[i] = duration
		total += duration
	}
	return durations, total, nil
}

// synthesizeDialogue renders every dialogue line and positions it at its
// shot's timeline offset. Lines already rendered are reused.
func (a *SceneAssembler) synthesizeDialogue(ctx context.Context, scene *queue.Scene, clips []*queue.Shot, durations []float64) ([]audio.Cue, error) {
	var cues []audio.Cue
	var offset float64
	for i, shot := range clips {
		if shot.HasDialogue() {
			voicePath := shot.VoicePath
			if !fileutil.NonEmptyFile(voicePath) {
				voicePath = a.layout.ShotVoice(scene.EpisodeID, scene.ID, shot.ID)
				speaker := shot.DialogueFrom
				if strings.TrimSpace(speaker) == "" && len(shot.Characters) > 0 {
					speaker = shot.Characters[0]
				}
				_, err := a.voices.Synthesize(ctx, voice.Request{
					Character: speaker,
					Text:      shot.DialogueText,
					OutPath:   voicePath,
				})
				if err != nil {
					return nil, err
				}
				shot.VoicePath = voicePath
				if err := a.store.UpdateShot(ctx, shot); err != nil {
					return nil, services.Wrap(services.ErrTransient, "assemble", "persist voice path", "", err)
				}
			}
			cues = append(cues, audio.Cue{Path: voicePath, OffsetSeconds: offset})
		}
		offset += durations[i]
	}
	return cues, nil
}

// concatWithAudio hard-cuts the clips together and lays the bed under them.
// Clips share codec settings after post-processing, so the concat demuxer
// joins them without re-encoding the video.
func (a *SceneAssembler) concatWithAudio(ctx context.Context, clips []*queue.Shot, audioPath, videoPath string) error {
	listPath := filepath.Join(filepath.Dir(videoPath), "concat.txt")
	var list strings.Builder
	for _, shot := range clips {
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(shot.ClipPath, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "assemble", "write concat list", "", err)
	}
	defer os.Remove(listPath)

	err := runFFmpeg(ctx, a.cfg.FFmpegBinary(),
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		videoPath,
	)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "assemble", "concat clips", "", err)
	}
	if !fileutil.NonEmptyFile(videoPath) {
		return services.Wrap(services.ErrExternalTool, "assemble", "concat clips", "no scene video written", nil)
	}
	return nil
}
