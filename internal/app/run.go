package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/vk/startgrid/internal/ctxlog"
)

// ErrStartupTimeout is returned by Run when the startup graph does not
// complete within the configured wait timeout.
var ErrStartupTimeout = errors.New("startup graph did not complete in time")

// Run starts the selected startup graph and waits for it to complete, then
// logs the timing report and releases every resource the App holds.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.Close(ctx)

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
	}

	if err := a.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	if err := a.wait(ctx); err != nil {
		return err
	}
	a.report(ctx)

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) wait(ctx context.Context) error {
	if a.config.WaitTimeout > 0 {
		if a.coordinator.WaitUntilCompleteTimeout(a.config.WaitTimeout) {
			return fmt.Errorf("%w: waited %s", ErrStartupTimeout, a.config.WaitTimeout)
		}
		return nil
	}
	return a.coordinator.Wait(ctx)
}

// report logs the duration of every node of the selected graph.
func (a *App) report(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	g := a.coordinator.Selected()
	if g == nil {
		return
	}
	m := g.Monitor()
	records := m.Records()
	for _, name := range slices.Sorted(maps.Keys(records)) {
		logger.Info("Node timing.", "graph", g.Name(), "node", name, "elapsed_ms", records[name].Milliseconds())
	}
	logger.Info("Startup finished.", "graph", g.Name(), "nodes", len(records), "elapsed_ms", m.TotalDuration().Milliseconds())
}

// Close shuts the healthcheck server down, drops pending deferred nodes and
// drains both executors.
func (a *App) Close(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if err := a.closeHealthcheckServer(ctx); err != nil {
		logger.Error("Failed to close health check server.", "error", err)
	}
	_ = a.coordinator.Close()
	if err := a.pool.Close(); err != nil {
		logger.Error("Failed to release worker pool.", "error", err)
	}
	if err := a.serial.Close(); err != nil {
		logger.Error("Failed to stop serial executor.", "error", err)
	}
	logger.Debug("App resources released.", "shutdown_at", time.Now().Format(time.RFC3339))
}
