// Package generation turns planned shots into raw clips. It selects the
// engine for each shot, schedules GPU access, drives the render job to
// completion, and optionally refines text-to-video output with a second pass.
package generation
