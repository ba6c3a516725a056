// Package music sources the backing track for a scene: first a mood-tagged
// file from the local library, then the generation service, then silence.
// Missing music never fails a scene.
package music
