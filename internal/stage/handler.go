package stage

import (
	"context"

	"reelsmith/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Shot) error
	Execute(context.Context, *queue.Shot) error
	HealthCheck(context.Context) Health
}
