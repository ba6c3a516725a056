package workflow

import "reelsmith/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// Selection, generation, and refinement share the gpu lane so a shot's
// continuity frame lands before the next shot in the scene renders;
// post-processing and scoring run on the cpu lane in parallel.
func (m *Manager) ConfigureStages(set StageSet) {
	gpu := &laneState{kind: laneGPU, name: "gpu"}
	cpu := &laneState{kind: laneCPU, name: "cpu"}

	if set.Selector != nil {
		gpu.stages = append(gpu.stages, pipelineStage{
			name:             "select",
			handler:          set.Selector,
			startStatus:      queue.ShotPlanned,
			processingStatus: queue.ShotSelecting,
			doneStatus:       queue.ShotSelected,
		})
	}
	if set.Generator != nil {
		gpu.stages = append(gpu.stages, pipelineStage{
			name:             "generate",
			handler:          set.Generator,
			startStatus:      queue.ShotSelected,
			processingStatus: queue.ShotGenerating,
			doneStatus:       queue.ShotGenerated,
		})
	}
	postprocessStart := queue.ShotGenerated
	if set.Refiner != nil {
		gpu.stages = append(gpu.stages, pipelineStage{
			name:             "refine",
			handler:          set.Refiner,
			startStatus:      queue.ShotGenerated,
			processingStatus: queue.ShotRefining,
			doneStatus:       queue.ShotRefined,
		})
		postprocessStart = queue.ShotRefined
	}
	scoreStart := postprocessStart
	if set.Postprocessor != nil {
		cpu.stages = append(cpu.stages, pipelineStage{
			name:             "postprocess",
			handler:          set.Postprocessor,
			startStatus:      postprocessStart,
			processingStatus: queue.ShotPostprocessing,
			doneStatus:       queue.ShotPostprocessed,
		})
		scoreStart = queue.ShotPostprocessed
	}
	if set.QualityGate != nil {
		cpu.stages = append(cpu.stages, pipelineStage{
			name:             "score",
			handler:          set.QualityGate,
			startStatus:      scoreStart,
			processingStatus: queue.ShotScoring,
			doneStatus:       queue.ShotAccepted,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if len(gpu.stages) > 0 {
		gpu.finalize()
		lanes[gpu.kind] = gpu
		order = append(order, gpu.kind)
	}
	if len(cpu.stages) > 0 {
		cpu.finalize()
		lanes[cpu.kind] = cpu
		order = append(order, cpu.kind)
	}

	for _, lane := range lanes {
		lane.runReclaimer = len(lane.processingStatuses) > 0
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
