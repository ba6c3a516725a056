package workflow

import (
	"context"
	"errors"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

// handleStageFailure maps a stage error onto the shot's next status.
// Configuration and missing-input problems park the shot for review because
// retrying cannot fix them; everything else marks the shot failed so an
// operator (or a retry command) can run it again.
func (m *Manager) handleStageFailure(ctx context.Context, stageName string, shot *queue.Shot, stageErr error) {
	logger := logging.WithContext(ctx, m.logger).With(logging.String("component", "workflow-manager"))

	message := stageErr.Error()
	if strings.TrimSpace(message) == "" {
		message = stageName + " failed"
	}

	status := services.FailureStatus(stageErr)
	if status == queue.ShotReview {
		shot.SetReview(message)
	} else {
		shot.SetFailed(message)
	}

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldStage, stageName),
		logging.Int64(logging.FieldShotID, shot.ID),
		logging.String("resolved_status", string(shot.Status)),
		logging.String(logging.FieldErrorKind, string(services.Classify(stageErr))),
		logging.String(logging.FieldErrorHint, services.Hint(stageErr)),
		logging.Error(stageErr),
	)

	if err := m.store.UpdateShot(ctx, shot); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastShot(shot)
	m.afterShotSettled(ctx, logger, shot)
	if err := m.notifier.NotifyError(ctx, stageErr, stageName); err != nil {
		logger.Debug("error notification failed", logging.Error(err))
	}
}
