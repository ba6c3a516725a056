// Package voice synthesizes dialogue audio through a fidelity cascade:
// trained character voice, then voice cloning from a sample, then the generic
// fallback synthesizer. A shot only fails its dialogue when every tier fails.
package voice
