package workflow

import (
	"log/slog"

	"reelsmith/internal/queue"
	"reelsmith/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Selector      stage.Handler
	Generator     stage.Handler
	Refiner       stage.Handler
	Postprocessor stage.Handler
	QualityGate   stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.ShotStatus
	processingStatus queue.ShotStatus
	doneStatus       queue.ShotStatus
}

type laneKind string

const (
	laneGPU      laneKind = "gpu"
	laneCPU      laneKind = "cpu"
	laneAssembly laneKind = "assembly"
)

type laneState struct {
	kind               laneKind
	name               string
	stages             []pipelineStage
	statusOrder        []queue.ShotStatus
	stageByStart       map[queue.ShotStatus]pipelineStage
	processingStatuses []queue.ShotStatus
	logger             *slog.Logger
	runReclaimer       bool
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	l.stageByStart = make(map[queue.ShotStatus]pipelineStage, len(l.stages))
	l.statusOrder = make([]queue.ShotStatus, 0, len(l.stages))
	seenProcessing := make(map[queue.ShotStatus]struct{})
	for _, stg := range l.stages {
		l.stageByStart[stg.startStatus] = stg
		l.statusOrder = append(l.statusOrder, stg.startStatus)
		if stg.processingStatus != "" {
			if _, ok := seenProcessing[stg.processingStatus]; !ok {
				l.processingStatuses = append(l.processingStatuses, stg.processingStatus)
				seenProcessing[stg.processingStatus] = struct{}{}
			}
		}
	}
}

func (l *laneState) stageForStatus(status queue.ShotStatus) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}
