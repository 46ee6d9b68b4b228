// Package daemon wires every component into a single running process: one
// struct owns Config, the Journal, and a root cancel function; every
// dependency is passed in as a constructor argument, never reached via a
// package-level singleton.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/c360studio/orchd/internal/blueprint"
	"github.com/c360studio/orchd/internal/changeset"
	"github.com/c360studio/orchd/internal/config"
	"github.com/c360studio/orchd/internal/document"
	"github.com/c360studio/orchd/internal/flow"
	"github.com/c360studio/orchd/internal/journal"
	"github.com/c360studio/orchd/internal/llmprovider"
	"github.com/c360studio/orchd/internal/notification"
	"github.com/c360studio/orchd/internal/planexec"
	"github.com/c360studio/orchd/internal/requestproc"
	"github.com/c360studio/orchd/internal/retrypolicy"
	"github.com/c360studio/orchd/internal/router"
	"github.com/c360studio/orchd/internal/watcher"
)

const actor = "daemon"

// Daemon owns every long-lived component and the one root cancellation
// signal that tears them all down in order.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	journal    *journal.Journal
	blueprints *blueprint.Loader
	flows      *flow.DirLoader
	engine     *flow.Engine
	providers  *llmprovider.Registry
	runner     *BlueprintRunner
	router     *router.Router
	reqProc    *requestproc.Processor
	planExec   *planexec.Executor

	requestWatcher *watcher.Watcher
	planWatcher    *watcher.Watcher

	wg     sync.WaitGroup
	runCtx context.Context
	cancel context.CancelFunc
}

// New wires every component from a resolved Config. providers must already
// have at least one LLM provider registered; concrete provider wire formats
// are the caller's concern, not this package's.
func New(cfg *config.Config, providers *llmprovider.Registry, registrar changeset.Registrar, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, dir := range []string{cfg.InboxRequestsDir(), cfg.InboxPlansDir(), cfg.ActivePlansDir(), cfg.BlueprintsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("daemon: create %s: %w", dir, err)
		}
	}

	j, err := journal.Open(cfg.JournalPath(), journal.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("daemon: open journal: %w", err)
	}

	blueprints := blueprint.New(cfg.BlueprintsDir(), cfg.Agents.DefaultModel)
	flows := flow.NewDirLoader(filepath.Join(cfg.System.Root, "Flows"))
	runner := NewBlueprintRunner(blueprints, providers)
	engine := flow.NewEngine(runner, flow.NewDefaultTransformRegistry(), flow.WithLogger(logger))

	r := router.New(flows, engine, blueprints, runner, j, cfg.Agents.DefaultAgent)

	reqProc := requestproc.New(providers, retrypolicy.Config{TemperatureIncrement: 0.1, MaxTemperature: 1.0})

	sink := notification.NewJournalSink(j)
	planExec := planexec.New(r, j, registrar, sink, cfg.Agents.DefaultAgent)

	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		journal:    j,
		blueprints: blueprints,
		flows:      flows,
		engine:     engine,
		providers:  providers,
		runner:     runner,
		router:     r,
		reqProc:    reqProc,
		planExec:   planExec,
	}

	debounce := time.Duration(cfg.Watcher.DebounceMs) * time.Millisecond

	d.requestWatcher, err = watcher.New(cfg.InboxRequestsDir(), debounce, d.onRequestReady, watcher.WithLogger(logger))
	if err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("daemon: create request watcher: %w", err)
	}
	d.planWatcher, err = watcher.New(cfg.ActivePlansDir(), debounce, d.onPlanReady, watcher.WithLogger(logger), watcher.WithSuffix("_plan.md"))
	if err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("daemon: create plan watcher: %w", err)
	}

	return d, nil
}

// Journal exposes the daemon's journal handle, e.g. for an operator CLI to
// tail activity.
func (d *Daemon) Journal() *journal.Journal { return d.journal }

// Start begins both watch loops. It returns immediately; watching runs on
// background goroutines until Shutdown is called.
func (d *Daemon) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	d.runCtx = runCtx
	d.cancel = cancel

	d.requestWatcher.Start(runCtx)
	d.planWatcher.Start(runCtx)

	d.journal.Log(actor, "daemon.started", d.cfg.System.Root, map[string]any{
		"root": d.cfg.System.Root,
	}, "")

	return nil
}

// Shutdown performs the ordered shutdown sequence: stop the watchers (so no
// new FileReady events are accepted), cancel the root context (which the
// flow engine and in-flight step calls observe and cancel on), wait for
// in-flight workers, then flush and close the journal.
func (d *Daemon) Shutdown() error {
	_ = d.requestWatcher.Stop()
	_ = d.planWatcher.Stop()

	if d.cancel != nil {
		d.cancel()
	}

	d.wg.Wait()

	d.journal.Log(actor, "daemon.stopped", d.cfg.System.Root, nil, "")
	d.journal.WaitForFlush()

	return d.journal.Close()
}

// onRequestReady is the request watcher's callback: parse the Request,
// generate a Plan via the RequestProcessor, and stage it under Inbox/Plans
// for external approval.
func (d *Daemon) onRequestReady(ready watcher.FileReady) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		req, err := document.ParseRequest(string(ready.Content))
		if err != nil {
			d.journal.Log(actor, "request.parse_failed", ready.Path, map[string]any{
				"path": ready.Path, "reason": err.Error(),
			}, "")
			return
		}

		d.journal.Log(actor, "file.detected", ready.Path, map[string]any{"path": ready.Path}, req.TraceID)

		ctx := d.runCtx
		providerModel := req.Model
		if providerModel == "" {
			providerModel = d.cfg.Agents.DefaultModel
		}

		planContent, err := d.reqProc.Generate(ctx, req, providerModel)
		if err != nil {
			d.journal.Log(actor, "request.plan_generation_failed", ready.Path, map[string]any{
				"reason": err.Error(),
			}, req.TraceID)
			return
		}

		planPath := filepath.Join(d.cfg.InboxPlansDir(), req.TraceID+"_plan.md")
		if err := os.WriteFile(planPath, []byte(planContent), 0o644); err != nil {
			d.journal.Log(actor, "request.plan_write_failed", planPath, map[string]any{
				"reason": err.Error(),
			}, req.TraceID)
			return
		}

		if _, err := d.router.Route(ctx, req, req.Body); err != nil {
			d.journal.Log(actor, "request.routing_failed", ready.Path, map[string]any{
				"reason": err.Error(),
			}, req.TraceID)
		}
	}()
}

// onPlanReady is the plan watcher's callback: an approved plan has been
// placed under System/Active; execute it.
func (d *Daemon) onPlanReady(ready watcher.FileReady) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if _, err := d.planExec.Execute(d.runCtx, string(ready.Content)); err != nil {
			d.logger.Warn("plan execution failed", "path", ready.Path, "error", err)
		}
	}()
}
