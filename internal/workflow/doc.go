// Package workflow advances shots through the generation pipeline and drives
// scene and episode assembly.
//
// The Manager runs three independent lanes. The gpu lane owns the stages that
// hold a GPU (selection, generation, refinement) and works shots strictly in
// scene-then-sequence order so continuity frames from earlier shots are in
// place before later ones render. The cpu lane runs post-processing and the
// quality gate concurrently with GPU work. The assembly lane watches for
// scenes whose shots have all settled and for episodes marked for assembly.
//
// Each lane polls the queue, reclaims stale work via heartbeats, and maps
// stage failures onto shot statuses through the services error taxonomy.
package workflow
