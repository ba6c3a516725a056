package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/stage"
)

func (m *Manager) processShot(ctx context.Context, lane *laneState, laneLogger *slog.Logger, shot *queue.Shot) error {
	stg, ok := lane.stageForStatus(shot.Status)
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(shot.Status)))
		m.waitForWorkOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := logging.WithRequestID(ctx, requestID)
	stageCtx = logging.WithShotID(stageCtx, shot.ID)
	stageCtx = logging.WithSceneID(stageCtx, shot.SceneID)
	stageCtx = logging.WithStage(stageCtx, stg.name)
	stageCtx = logging.WithLane(stageCtx, lane.name)
	stageLogger := logging.WithContext(stageCtx, laneLogger)

	if err := m.transitionToProcessing(stageCtx, stg.processingStatus, shot); err != nil {
		stageLogger.Error("failed to transition shot to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, shot)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, shot *queue.Shot) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
	)

	if stg.handler == nil {
		shot.SetFailed(fmt.Sprintf("stage %s missing handler", stg.name))
		if err := m.store.UpdateShot(ctx, shot); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		err := errors.New("stage handler unavailable")
		m.setLastError(err)
		return err
	}

	if err := stg.handler.Prepare(ctx, shot); err != nil {
		m.handleStageFailure(ctx, stg.name, shot, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.UpdateShot(ctx, shot); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, stg.handler, shot)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, shot, execErr)
		m.setLastError(execErr)
		return execErr
	}

	// Stages may reroute a shot themselves (the quality gate rewinds
	// rejections to selected and parks review cases); only advance shots
	// still sitting in this stage's processing status.
	if shot.Status == stg.processingStatus || shot.Status == "" {
		shot.Status = stg.doneStatus
	}
	shot.LastHeartbeat = nil
	if err := m.store.UpdateShot(ctx, shot); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(shot.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastShot(shot)
	m.afterShotSettled(ctx, stageLogger, shot)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, shot *queue.Shot) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, shot.ID)

	execErr := handler.Execute(ctx, shot)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, processing queue.ShotStatus, shot *queue.Shot) error {
	if processing == "" {
		return errors.New("processing status must not be empty")
	}

	now := time.Now().UTC()
	shot.Status = processing
	shot.ProgressPercent = 0
	shot.ErrorMessage = ""
	shot.LastHeartbeat = &now
	if err := m.store.UpdateShot(ctx, shot); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastShot(shot)
	return nil
}

// afterShotSettled refreshes the owning scene's aggregate status once a shot
// reaches a terminal state and raises review notifications.
func (m *Manager) afterShotSettled(ctx context.Context, logger *slog.Logger, shot *queue.Shot) {
	if shot.Status == queue.ShotReview {
		if err := m.notifier.NotifyShotReview(ctx, shot.ID, shot.ReviewReason); err != nil {
			logger.Debug("review notification failed", logging.Error(err))
		}
	}
	if !shot.IsTerminal() {
		return
	}
	if _, err := m.store.RefreshSceneStatus(ctx, shot.SceneID); err != nil {
		logger.Warn("failed to refresh scene status",
			logging.Int64(logging.FieldSceneID, shot.SceneID),
			logging.Error(err))
	}
}
