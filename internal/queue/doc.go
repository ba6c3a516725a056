// Package queue persists shots, scenes, episodes, continuity frames, and the
// generation audit trail in SQLite, and exposes the lifecycle transitions the
// workflow manager drives.
package queue
