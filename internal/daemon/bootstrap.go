package daemon

import (
	"fmt"
	"log/slog"

	"reelsmith/internal/assembly"
	"reelsmith/internal/assets"
	"reelsmith/internal/audio"
	"reelsmith/internal/characters"
	"reelsmith/internal/config"
	"reelsmith/internal/continuity"
	"reelsmith/internal/generation"
	"reelsmith/internal/library"
	"reelsmith/internal/postprocess"
	"reelsmith/internal/quality"
	"reelsmith/internal/queue"
	"reelsmith/internal/services/music"
	"reelsmith/internal/services/videogen"
	"reelsmith/internal/services/voice"
	"reelsmith/internal/workflow"
)

// Bootstrap wires the pipeline stages and assemblers into the workflow
// manager. Construction is pure wiring; nothing here touches the network.
func Bootstrap(cfg *config.Config, store *queue.Store, wf *workflow.Manager, logger *slog.Logger) error {
	registry, err := characters.Load(cfg.Paths.ProfilesDir, cfg.Paths.AssetPool)
	if err != nil {
		return fmt.Errorf("load character profiles: %w", err)
	}

	layout := library.NewLayout(cfg.Paths.LibraryDir)
	tracker := continuity.NewTracker(store, layout.FramesDir(), cfg.FFmpegBinary(), logger)
	selector := assets.NewSelector(registry, tracker, logger)
	engines := videogen.NewRegistry(cfg.Engines)
	scheduler := generation.NewScheduler(cfg.Engines.GPUSlots)
	driver := generation.NewDriver(engines, store, scheduler, cfg.Engines, logger)
	analyzer := quality.NewAnalyzer(cfg.FFmpegBinary(), cfg.FFprobeBinary())
	processor := postprocess.NewProcessor(cfg.Postprocess, cfg.FFmpegBinary(), logger)

	wf.ConfigureStages(workflow.StageSet{
		Selector:      generation.NewSelectStage(selector, registry, engines, logger),
		Generator:     generation.NewGenerateStage(store, driver, engines, registry, layout, cfg, logger),
		Refiner:       generation.NewRefineStage(store, driver, engines, cfg.Refinement, logger),
		Postprocessor: postprocess.NewStage(store, processor, layout, cfg.Postprocess, logger),
		QualityGate:   quality.NewStage(analyzer, tracker, cfg.Quality, cfg.FFprobeBinary(), logger),
	})

	voices := voice.NewCascade(cfg.Voice, registry, "en", logger)
	musicProvider := music.NewProvider(cfg.Music, cfg.Paths.MusicDir, logger)
	mixer := audio.NewMixer(cfg.Mixing, cfg.FFmpegBinary(), logger)
	wf.ConfigureAssemblers(
		assembly.NewSceneAssembler(store, voices, musicProvider, mixer, layout, cfg, logger),
		assembly.NewEpisodeAssembler(store, layout, cfg, logger),
	)
	return nil
}
