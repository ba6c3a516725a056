// Package ffprobe wraps the ffprobe binary for clip inspection: duration,
// frame counts, frame rates, and stream layout feed the quality gate and
// assembly validation.
package ffprobe
