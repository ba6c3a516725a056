package videogen_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
	"reelsmith/internal/services/videogen"
)

func engineConfig(baseURL string) config.Engine {
	return config.Engine{Enabled: true, BaseURL: baseURL, APIKey: "secret", SubmitTimeout: 5}
}

func TestSubmitAndStatus(t *testing.T) {
	var submitted videogen.JobRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/jobs":
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("Authorization = %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
				t.Errorf("decode request: %v", err)
			}
			json.NewEncoder(w).Encode(videogen.JobStatus{JobID: "job-7", State: videogen.JobQueued})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/jobs/job-7":
			json.NewEncoder(w).Encode(videogen.JobStatus{
				JobID:      "job-7",
				State:      videogen.JobSucceeded,
				Progress:   1,
				OutputPath: "/renders/job-7.mp4",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := videogen.NewClient(videogen.KindI2V, engineConfig(server.URL))

	jobID, err := client.Submit(context.Background(), videogen.JobRequest{
		Prompt:          "rooftop at night",
		SourceImage:     "/refs/mira.png",
		Seed:            42,
		DurationSeconds: 4,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "job-7" {
		t.Fatalf("jobID = %q", jobID)
	}
	if submitted.Seed != 42 || submitted.SourceImage != "/refs/mira.png" {
		t.Fatalf("submitted = %+v", submitted)
	}

	status, err := client.Status(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Terminal() || status.OutputPath != "/renders/job-7.mp4" {
		t.Fatalf("status = %+v", status)
	}
}

func TestSubmitWithoutJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(videogen.JobStatus{})
	}))
	defer server.Close()

	client := videogen.NewClient(videogen.KindT2V, engineConfig(server.URL))
	_, err := client.Submit(context.Background(), videogen.JobRequest{Prompt: "x"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("missing job id should be transient, got %v", err)
	}
}

func TestStatusCodeClassification(t *testing.T) {
	cases := []struct {
		code   int
		marker error
	}{
		{http.StatusTooManyRequests, services.ErrResourceExhausted},
		{http.StatusServiceUnavailable, services.ErrResourceExhausted},
		{http.StatusBadRequest, services.ErrEngineRejected},
		{http.StatusUnprocessableEntity, services.ErrEngineRejected},
		{http.StatusInternalServerError, services.ErrTransient},
		{http.StatusBadGateway, services.ErrTransient},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "busy", tc.code)
		}))
		client := videogen.NewClient(videogen.KindT2V, engineConfig(server.URL))
		_, err := client.Status(context.Background(), "job-1")
		server.Close()
		if !errors.Is(err, tc.marker) {
			t.Errorf("code %d: got %v, want marker %v", tc.code, err, tc.marker)
		}
	}
}

func TestUnconfiguredBaseURL(t *testing.T) {
	client := videogen.NewClient(videogen.KindLora, config.Engine{Enabled: true})
	err := client.Healthy(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("empty base_url should be a configuration error, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	registry := videogen.NewRegistry(config.Engines{
		I2V:  config.Engine{Enabled: true, BaseURL: "http://localhost:9001"},
		T2V:  config.Engine{Enabled: true, BaseURL: "http://localhost:9002"},
		Lora: config.Engine{Enabled: false},
	})

	if !registry.Enabled(videogen.KindI2V) || registry.Enabled(videogen.KindLora) {
		t.Fatal("enabled flags not respected")
	}

	kinds := registry.Kinds()
	if len(kinds) != 2 || kinds[0] != videogen.KindI2V || kinds[1] != videogen.KindT2V {
		t.Fatalf("Kinds = %v", kinds)
	}

	if _, err := registry.Client(videogen.KindLora); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("disabled engine lookup: %v", err)
	}
	client, err := registry.Client(videogen.KindT2V)
	if err != nil || client.Kind() != videogen.KindT2V {
		t.Fatalf("client = %v, %v", client, err)
	}
}

func TestParseKind(t *testing.T) {
	if kind, ok := videogen.ParseKind(" I2V "); !ok || kind != videogen.KindI2V {
		t.Fatalf("ParseKind = %v, %v", kind, ok)
	}
	if _, ok := videogen.ParseKind("vhs"); ok {
		t.Fatal("unknown kind should not parse")
	}
}
