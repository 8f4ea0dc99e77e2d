package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/coordinator"
	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/dag"
	"github.com/vk/startgrid/internal/executor"
	"github.com/vk/startgrid/internal/monitor"
	"github.com/vk/startgrid/internal/registry"
	"github.com/vk/startgrid/internal/scope"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW        io.Writer
	logger      *slog.Logger
	config      *Config
	registry    *registry.Registry
	model       *config.Model
	pool        *executor.Pool
	serial      *executor.Serial
	coordinator *coordinator.Coordinator
	httpServer  *http.Server
}

// NewApp is the constructor for the main application. It loads the
// descriptors, registers modules, validates the two against each other and
// registers every graph that applies to this process. Any failure is a
// critical startup error and panics.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.GraphPath)
	if err != nil {
		panic(fmt.Errorf("failed to load graph descriptors: %w", err))
	}
	logger.Debug("Graph descriptors loaded.", "graphs", len(model.Graphs))

	reg := registry.New(outW)
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "names", reg.Names())

	if err := reg.Validate(ctx, model); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	pool, err := executor.NewPool(cfg.WorkerCount, executor.WithLogger(logger))
	if err != nil {
		panic(fmt.Errorf("failed to create worker pool: %w", err))
	}
	serial := executor.NewSerial(logger)
	execs := &dag.Executors{Pool: pool, Serial: serial}

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		model:    model,
		pool:     pool,
		serial:   serial,
	}
	a.coordinator = coordinator.New(
		scope.Process{Name: cfg.ProcessName, Primary: cfg.PrimaryProcess},
		coordinator.WithExecutors(execs),
		coordinator.WithLogger(logger),
	)

	builder := dag.NewBuilder().
		WithExecutors(execs).
		WithCreator(reg.Creator()).
		WithMonitorOptions(
			monitor.WithThreshold(cfg.WarnThreshold),
			monitor.WithAlert(a.alert, serial),
		)
	if err := a.coordinator.RegisterDescriptors(ctx, model, reg, builder); err != nil {
		panic(fmt.Errorf("failed to assemble graphs: %w", err))
	}
	logger.Debug("Graphs registered with coordinator.", "run_id", a.coordinator.RunID())

	return a
}

// alert is the monitor's alert sink. It runs on the serial executor.
func (a *App) alert(msg string) {
	a.logger.Warn("Startup alert.", "message", msg)
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Coordinator returns the application's coordinator, e.g. to queue work
// after startup.
func (a *App) Coordinator() *coordinator.Coordinator {
	return a.coordinator
}
