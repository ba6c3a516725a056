package workflow

import (
	"context"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastShot    *queue.Shot
	QueueStats  map[queue.ShotStatus]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastShot := m.lastShot
	stageSet := make([]pipelineStage, 0)
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil {
			continue
		}
		stageSet = append(stageSet, lane.stages...)
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		if stg.handler == nil {
			continue
		}
		probe := stg.handler.HealthCheck(ctx)
		health[stg.name] = probe
		if !probe.Ready {
			m.logger.Warn("stage not ready", logging.String("probe", probe.String()))
		}
	}

	summary := StatusSummary{Running: running, QueueStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastShot != nil {
		shotCopy := *lastShot
		summary.LastShot = &shotCopy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastShot(shot *queue.Shot) {
	m.mu.Lock()
	if shot != nil {
		shotCopy := *shot
		m.lastShot = &shotCopy
	} else {
		m.lastShot = nil
	}
	m.mu.Unlock()
}
