package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	shotIDKey    contextKey = "shot_id"
	sceneIDKey   contextKey = "scene_id"
	stageKey     contextKey = "stage"
	laneKey      contextKey = "lane"
	requestIDKey contextKey = "request_id"
)

// WithShotID attaches a shot identifier to the context.
func WithShotID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, shotIDKey, id)
}

// WithSceneID attaches a scene identifier to the context.
func WithSceneID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, sceneIDKey, id)
}

// WithStage attaches a workflow stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// WithLane attaches a workflow lane name to the context.
func WithLane(ctx context.Context, lane string) context.Context {
	return context.WithValue(ctx, laneKey, lane)
}

// WithRequestID attaches a correlation identifier to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ShotIDFromContext extracts the shot identifier, if present.
func ShotIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(shotIDKey).(int64)
	return id, ok
}

// SceneIDFromContext extracts the scene identifier, if present.
func SceneIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(sceneIDKey).(int64)
	return id, ok
}

// StageFromContext extracts the stage name, if present.
func StageFromContext(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(stageKey).(string)
	return stage, ok
}

// LaneFromContext extracts the lane name, if present.
func LaneFromContext(ctx context.Context) (string, bool) {
	lane, ok := ctx.Value(laneKey).(string)
	return lane, ok
}

// RequestIDFromContext extracts the correlation identifier, if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := ShotIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldShotID, id))
	}
	if id, ok := SceneIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldSceneID, id))
	}
	if stage, ok := StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
