package workflow

import (
	"context"
	"errors"
	"log/slog"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

// runAssemblyLane polls for scenes that became ready and for episodes marked
// for assembly. Assembly work is serialized: one scene or episode at a time.
func (m *Manager) runAssemblyLane(ctx context.Context) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String(logging.FieldLane, "assembly"))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		progressed := false

		if m.sceneAssembler != nil {
			worked, err := m.assembleNextScene(ctx, logger)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				m.setLastError(err)
			}
			progressed = progressed || worked
		}

		if m.episodeAssembler != nil {
			worked, err := m.assembleNextEpisode(ctx, logger)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				m.setLastError(err)
			}
			progressed = progressed || worked
		}

		if !progressed {
			m.waitForWorkOrShutdown(ctx)
		}
	}
}

func (m *Manager) assembleNextScene(ctx context.Context, logger *slog.Logger) (bool, error) {
	scene, err := m.store.NextSceneForStatuses(ctx, queue.SceneReady)
	if err != nil || scene == nil {
		return false, err
	}

	scene.Status = queue.SceneAssembling
	scene.ErrorMessage = ""
	if err := m.store.UpdateScene(ctx, scene); err != nil {
		return false, err
	}

	if err := m.sceneAssembler.Assemble(ctx, scene); err != nil {
		if errors.Is(err, context.Canceled) {
			return true, err
		}
		logger.Error("scene assembly failed",
			logging.Int64(logging.FieldSceneID, scene.ID),
			logging.Error(err))
		scene.Status = queue.SceneFailed
		scene.ErrorMessage = err.Error()
		if updateErr := m.store.UpdateScene(ctx, scene); updateErr != nil {
			logger.Error("failed to persist scene failure", logging.Error(updateErr))
		}
		if notifyErr := m.notifier.NotifyError(ctx, err, "scene assembly"); notifyErr != nil {
			logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return true, err
	}

	shots, err := m.store.ShotsByScene(ctx, scene.ID)
	if err != nil {
		logger.Warn("could not count scene shots for notification", logging.Error(err))
	}
	if notifyErr := m.notifier.NotifySceneCompleted(ctx, scene.Title, len(shots), scene.DurationSeconds); notifyErr != nil {
		logger.Warn("scene notification failed", logging.Error(notifyErr))
	}
	return true, nil
}

func (m *Manager) assembleNextEpisode(ctx context.Context, logger *slog.Logger) (bool, error) {
	episode, err := m.store.NextEpisodeForStatuses(ctx, queue.EpisodeAssembling)
	if err != nil || episode == nil {
		return false, err
	}

	if err := m.episodeAssembler.Assemble(ctx, episode); err != nil {
		if errors.Is(err, context.Canceled) {
			return true, err
		}
		logger.Error("episode assembly failed",
			logging.Int64(logging.FieldEpisodeID, episode.ID),
			logging.Error(err))
		episode.Status = queue.EpisodeFailed
		episode.ErrorMessage = err.Error()
		if updateErr := m.store.UpdateEpisode(ctx, episode); updateErr != nil {
			logger.Error("failed to persist episode failure", logging.Error(updateErr))
		}
		if notifyErr := m.notifier.NotifyError(ctx, err, "episode assembly"); notifyErr != nil {
			logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return true, err
	}

	if notifyErr := m.notifier.NotifyEpisodeAssembled(ctx, episode.Title, episode.VideoPath); notifyErr != nil {
		logger.Warn("episode notification failed", logging.Error(notifyErr))
	}
	return true, nil
}
