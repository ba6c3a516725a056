// Package story imports an episode manifest into the queue: one YAML file
// describing scenes, shots, dialogue, and per-scene character state becomes
// the planned work the pipeline then executes.
package story
