// Package postprocess runs the deterministic transform chain over a raw clip:
// frame interpolation to the target rate, upscale plus downscale to the
// delivery resolution, then color grading. Stages that keep failing are
// skipped and the shot is marked degraded rather than lost.
package postprocess
