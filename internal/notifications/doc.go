// Package notifications pushes pipeline milestones to ntfy so an operator
// hears about completed scenes, finished episodes, shots waiting on review,
// and failures without watching the daemon log.
package notifications
