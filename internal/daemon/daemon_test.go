package daemon_test

import (
	"context"
	"strings"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/daemon"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/stage"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

type idleHandler struct{ name string }

func (h *idleHandler) Prepare(context.Context, *queue.Shot) error { return nil }

func (h *idleHandler) Execute(context.Context, *queue.Shot) error { return nil }

func (h *idleHandler) HealthCheck(context.Context) stage.Health { return stage.Healthy(h.name) }

func newManager(cfg *config.Config, store *queue.Store) *workflow.Manager {
	manager := workflow.NewManager(cfg, store, logging.NewNop())
	manager.ConfigureStages(workflow.StageSet{
		Selector:      &idleHandler{name: "select"},
		Generator:     &idleHandler{name: "generate"},
		Refiner:       &idleHandler{name: "refine"},
		Postprocessor: &idleHandler{name: "postprocess"},
		QualityGate:   &idleHandler{name: "score"},
	})
	return manager
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop(), newManager(cfg, store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running after Start")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start on a running daemon must fail")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped after Stop")
	}
	// Stop is idempotent.
	d.Stop()
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, logging.NewNop(), newManager(cfg, store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, logging.NewNop(), newManager(cfg, store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("second instance must not acquire the lock")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("err = %v", err)
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("lock should be free after the first instance stops: %v", err)
	}
	second.Stop()
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := daemon.New(nil, store, logging.NewNop(), newManager(cfg, store)); err == nil {
		t.Fatal("nil config must be rejected")
	}
	if _, err := daemon.New(cfg, store, logging.NewNop(), nil); err == nil {
		t.Fatal("nil workflow manager must be rejected")
	}
}

func TestBootstrapConfiguresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManager(cfg, store, logging.NewNop())
	if err := daemon.Bootstrap(cfg, store, manager, logging.NewNop()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("bootstrapped manager should start: %v", err)
	}
	manager.Stop()
}
