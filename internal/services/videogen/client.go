package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

// Client wraps one generation service endpoint. All engines speak the same
// job API; only the payload fields they honor differ.
type Client struct {
	kind       Kind
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client for one engine from its config section.
func NewClient(kind Kind, cfg config.Engine) *Client {
	timeout := time.Duration(cfg.SubmitTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		kind:       kind,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Kind returns which engine this client talks to.
func (c *Client) Kind() Kind {
	return c.kind
}

// Submit queues a render job and returns its job id.
func (c *Client) Submit(ctx context.Context, request JobRequest) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "generate", "submit", "encode request", err)
	}

	var status JobStatus
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", bytes.NewReader(body), &status); err != nil {
		return "", err
	}
	if strings.TrimSpace(status.JobID) == "" {
		return "", services.Wrap(services.ErrTransient, "generate", "submit", "service returned no job id", nil)
	}
	return status.JobID, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, &status)
	return status, err
}

// Cancel asks the service to abandon a job. Best effort: a failed cancel is
// reported but the caller usually only logs it.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/jobs/"+jobID, nil, nil)
}

// Healthy probes the service health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, "generate", string(c.kind), "engine base_url not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return services.Wrap(services.ErrValidation, "generate", string(c.kind), "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "generate", string(c.kind), method+" "+path, err)
	}
	defer resp.Body.Close()

	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := classifyHTTP(c.kind, resp.StatusCode, payload); err != nil {
		return err
	}
	if readErr != nil {
		return services.Wrap(services.ErrTransient, "generate", string(c.kind), "read response", readErr)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrTransient, "generate", string(c.kind), "decode response", err)
	}
	return nil
}

// classifyHTTP maps service status codes onto the failure taxonomy: 429 and
// 503 mean the GPU is saturated, other 4xx mean the job itself was rejected,
// and remaining 5xx are transient.
func classifyHTTP(kind Kind, code int, payload []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	detail := strings.TrimSpace(string(payload))
	if len(detail) > 256 {
		detail = detail[:256]
	}
	message := fmt.Sprintf("status %d: %s", code, detail)
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusServiceUnavailable:
		return services.Wrap(services.ErrResourceExhausted, "generate", string(kind), message, nil)
	case code >= 400 && code < 500:
		return services.Wrap(services.ErrEngineRejected, "generate", string(kind), message, nil)
	default:
		return services.Wrap(services.ErrTransient, "generate", string(kind), message, nil)
	}
}

// Registry holds the configured engine clients.
type Registry struct {
	clients map[Kind]*Client
}

// NewRegistry builds clients for every enabled engine.
func NewRegistry(cfg config.Engines) *Registry {
	registry := &Registry{clients: make(map[Kind]*Client)}
	if cfg.T2V.Enabled {
		registry.clients[KindT2V] = NewClient(KindT2V, cfg.T2V)
	}
	if cfg.I2V.Enabled {
		registry.clients[KindI2V] = NewClient(KindI2V, cfg.I2V)
	}
	if cfg.Lora.Enabled {
		registry.clients[KindLora] = NewClient(KindLora, cfg.Lora)
	}
	return registry
}

// Enabled reports whether an engine is configured and switched on.
func (r *Registry) Enabled(kind Kind) bool {
	_, ok := r.clients[kind]
	return ok
}

// Client returns the client for an engine, or an error when it is disabled.
func (r *Registry) Client(kind Kind) (*Client, error) {
	client, ok := r.clients[kind]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "generate", string(kind), "engine not enabled", nil)
	}
	return client, nil
}

// Kinds returns the enabled engine kinds in precedence order.
func (r *Registry) Kinds() []Kind {
	var kinds []Kind
	for _, kind := range []Kind{KindLora, KindI2V, KindT2V} {
		if r.Enabled(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
