package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/videogen"
)

// NewSeed returns a fresh non-zero generation seed.
func NewSeed() int64 {
	for {
		if seed := rand.Int64(); seed != 0 {
			return seed
		}
	}
}

// Driver submits render jobs and polls them to completion. Every attempt is
// written to the audit trail, including failures.
type Driver struct {
	registry  *videogen.Registry
	store     *queue.Store
	scheduler *Scheduler
	cfg       config.Engines
	logger    *slog.Logger
}

// NewDriver wires the driver to the engine registry and GPU scheduler.
func NewDriver(registry *videogen.Registry, store *queue.Store, scheduler *Scheduler, cfg config.Engines, logger *slog.Logger) *Driver {
	return &Driver{
		registry:  registry,
		store:     store,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "generation"),
	}
}

// Render runs the job on the given engine, retrying timeouts and transient
// failures with backoff. Everything else, including resource exhaustion,
// surfaces to the caller on the first attempt: a saturated device needs the
// stage's fallback path, not more submissions.
func (d *Driver) Render(ctx context.Context, shot *queue.Shot, kind videogen.Kind, request videogen.JobRequest) (string, error) {
	client, err := d.registry.Client(kind)
	if err != nil {
		return "", err
	}

	maxAttempts := d.cfg.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		path, err := d.renderOnce(ctx, shot, client, kind, request)
		if err == nil {
			return path, nil
		}
		lastErr = err

		if !services.Retryable(err) {
			return "", err
		}
		if attempt == maxAttempts {
			break
		}

		// Pinned seeds stay put; otherwise the retry rolls a fresh sample
		// instead of replaying the one that just failed.
		if !shot.SeedExplicit {
			request.Seed = NewSeed()
			shot.Seed = request.Seed
		}

		wait := retryDelay(attempt)
		d.logger.Warn("render attempt failed, retrying",
			logging.Int64(logging.FieldShotID, shot.ID),
			logging.String(logging.FieldEngine, string(kind)),
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
			logging.Error(err))
		if err := sleepCtx(ctx, wait); err != nil {
			return "", services.Wrap(services.ErrTimeout, "generate", "retry wait", "canceled while waiting to retry", err)
		}
	}
	return "", lastErr
}

func (d *Driver) renderOnce(ctx context.Context, shot *queue.Shot, client *videogen.Client, kind videogen.Kind, request videogen.JobRequest) (string, error) {
	release, err := d.scheduler.Acquire(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrTimeout, "generate", "acquire gpu", "canceled while waiting for a gpu slot", err)
	}
	defer release()

	params, _ := json.Marshal(request)
	auditID, err := d.store.RecordAudit(ctx, queue.GenerationAudit{
		ShotID:     shot.ID,
		Engine:     string(kind),
		ParamsJSON: string(params),
		Outcome:    "submitted",
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "generate", "audit", "record generation attempt", err)
	}

	jobID, err := client.Submit(ctx, request)
	if err != nil {
		d.completeAudit(ctx, auditID, "", "failed", err)
		return "", err
	}
	d.logger.Info("render job submitted",
		logging.Int64(logging.FieldShotID, shot.ID),
		logging.String(logging.FieldEngine, string(kind)),
		logging.String(logging.FieldJobID, jobID))

	path, err := d.poll(ctx, client, kind, jobID)
	if err != nil {
		d.completeAudit(ctx, auditID, jobID, "failed", err)
		return "", err
	}
	if !fileutil.NonEmptyFile(path) {
		err := services.Wrap(services.ErrTransient, "generate", "collect output",
			fmt.Sprintf("job %s reported success but output %s is missing or empty", jobID, path), nil)
		d.completeAudit(ctx, auditID, jobID, "failed", err)
		return "", err
	}
	d.completeAudit(ctx, auditID, jobID, "succeeded", nil)
	return path, nil
}

// poll watches a submitted job until it finishes. The poll interval grows
// toward the configured ceiling so long renders do not hammer the service,
// and the whole watch is bounded by the engine's job timeout.
func (d *Driver) poll(ctx context.Context, client *videogen.Client, kind videogen.Kind, jobID string) (string, error) {
	engineCfg := d.engineConfig(kind)

	jobTimeout := time.Duration(engineCfg.JobTimeout) * time.Second
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Minute
	}
	interval := time.Duration(engineCfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	maxInterval := time.Duration(engineCfg.MaxPollBackoff) * time.Second
	if maxInterval < interval {
		maxInterval = interval
	}

	pollCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	for {
		if err := sleepCtx(pollCtx, interval); err != nil {
			cancelCtx, cancelCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if cancelErr := client.Cancel(cancelCtx, jobID); cancelErr != nil {
				d.logger.Warn("failed to cancel timed out job",
					logging.String(logging.FieldJobID, jobID),
					logging.Error(cancelErr))
			}
			cancelCancel()
			return "", services.Wrap(services.ErrTimeout, "generate", "poll",
				fmt.Sprintf("job %s did not finish within %s", jobID, jobTimeout), err)
		}

		status, err := client.Status(pollCtx, jobID)
		if err != nil {
			if services.Retryable(err) && pollCtx.Err() == nil {
				continue
			}
			return "", err
		}

		switch status.State {
		case videogen.JobSucceeded:
			return status.OutputPath, nil
		case videogen.JobFailed:
			return "", classifyJobFailure(kind, jobID, status.Error)
		}

		if interval < maxInterval {
			interval = interval * 3 / 2
			if interval > maxInterval {
				interval = maxInterval
			}
		}
	}
}

func (d *Driver) engineConfig(kind videogen.Kind) config.Engine {
	switch kind {
	case videogen.KindI2V:
		return d.cfg.I2V
	case videogen.KindLora:
		return d.cfg.Lora
	default:
		return d.cfg.T2V
	}
}

func (d *Driver) completeAudit(ctx context.Context, auditID int64, jobID, outcome string, cause error) {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := d.store.CompleteAudit(auditCtx, auditID, jobID, outcome, detail); err != nil {
		d.logger.Warn("failed to finalize audit record", logging.Error(err))
	}
}

// classifyJobFailure maps a service-reported failure message onto the failure
// taxonomy so retry policy can act on it.
func classifyJobFailure(kind videogen.Kind, jobID, message string) error {
	lowered := strings.ToLower(message)
	marker := services.ErrTransient
	switch {
	case strings.Contains(lowered, "reject"), strings.Contains(lowered, "invalid"), strings.Contains(lowered, "unsupported"):
		marker = services.ErrEngineRejected
	case strings.Contains(lowered, "out of memory"), strings.Contains(lowered, "oom"), strings.Contains(lowered, "resource"):
		marker = services.ErrResourceExhausted
	case strings.Contains(lowered, "timeout"), strings.Contains(lowered, "timed out"):
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, "generate", string(kind), fmt.Sprintf("job %s failed: %s", jobID, message), nil)
}

// retryDelay picks the backoff before the next attempt: 2s doubling per
// attempt, capped at two minutes.
func retryDelay(attempt int) time.Duration {
	delay := 2 * time.Second * time.Duration(1<<(attempt-1))
	if delay > 2*time.Minute {
		delay = 2 * time.Minute
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
