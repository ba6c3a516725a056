package services

import (
	"errors"
	"fmt"
	"strings"

	"reelsmith/internal/queue"
)

// Sentinel markers classify stage and client failures. Wrap tags errors with
// one of these so the workflow manager can map a failure to the right queue
// status and retry policy.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
	ErrEngineRejected    = errors.New("engine rejected job")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrTransient         = errors.New("transient failure")
	ErrExternalTool      = errors.New("external tool error")
	ErrQualityRejected   = errors.New("quality gate rejected clip")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the shot status the workflow manager
// should persist after the stage fails. Configuration and validation problems
// need a human; everything else is an infrastructure failure that may be
// retried later.
func FailureStatus(err error) queue.ShotStatus {
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return queue.ShotReview
	default:
		return queue.ShotFailed
	}
}

// Retryable reports whether the failure warrants an automatic retry with
// backoff. Only timeouts and transient infrastructure failures qualify;
// rejected parameters are fatal for the attempt and resource exhaustion is
// handled by the fallback path instead.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransient)
}

// Kind identifies the classified failure kind for logging and user-facing
// status messages.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindTimeout           Kind = "timeout"
	KindEngineRejected    Kind = "engine_rejected"
	KindResourceExhausted Kind = "resource_exhausted"
	KindTransient         Kind = "transient"
	KindExternalTool      Kind = "external_tool"
	KindQualityRejected   Kind = "quality_rejected"
	KindUnknown           Kind = "unknown"
)

// Classify returns the failure kind for a wrapped error.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrEngineRejected):
		return KindEngineRejected
	case errors.Is(err, ErrResourceExhausted):
		return KindResourceExhausted
	case errors.Is(err, ErrQualityRejected):
		return KindQualityRejected
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindUnknown
	}
}

// Hint returns the operator-facing next step for a failure kind, used in
// status output to distinguish "needs manual review" from "blocked on missing
// input" from "infrastructure failure".
func Hint(err error) string {
	switch Classify(err) {
	case KindConfiguration, KindNotFound:
		return "blocked on missing input; fix configuration or assets"
	case KindValidation, KindQualityRejected:
		return "needs manual review"
	case KindTimeout, KindTransient, KindResourceExhausted, KindExternalTool:
		return "infrastructure failure; retry later"
	case KindEngineRejected:
		return "engine rejected parameters; adjust the shot and retry"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
