// Package httpcheck provides the "httpcheck" node, which probes an HTTP
// endpoint and fails unless it answers with the expected status.
package httpcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/dag"
	"github.com/vk/startgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is used for every probe. Nil means a client with the per-node
	// timeout.
	Client *http.Client
}

type input struct {
	url     string
	method  string
	status  int
	timeout time.Duration
}

func parseInput(spec registry.Spec) (*input, error) {
	in := &input{
		url:    spec.Arg("url", ""),
		method: spec.Arg("method", http.MethodGet),
		status: http.StatusOK,
	}
	if in.url == "" {
		return nil, fmt.Errorf("missing required argument %q", "url")
	}
	if raw, ok := spec.Args["expect_status"]; ok {
		status, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid expect_status %q: %w", raw, err)
		}
		in.status = status
	}
	timeout, err := time.ParseDuration(spec.Arg("timeout", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	in.timeout = timeout
	return in, nil
}

// New builds a probe body from the "url", "method", "expect_status" and
// "timeout" arguments.
func (m *Module) New(spec registry.Spec) (dag.Body, error) {
	in, err := parseInput(spec)
	if err != nil {
		return nil, err
	}
	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: in.timeout}
	}

	return func(ctx context.Context) error {
		logger := ctxlog.FromContext(ctx)
		logger.Info("Making HTTP request.", "node", spec.ID, "method", in.method, "url", in.url)

		ctx, cancel := context.WithTimeout(ctx, in.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, in.method, in.url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		logger.Info("Received HTTP response.", "node", spec.ID, "status", resp.Status)
		if resp.StatusCode != in.status {
			return fmt.Errorf("%s %s answered %d, expected %d", in.method, in.url, resp.StatusCode, in.status)
		}
		return nil
	}, nil
}

// Register registers the constructor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("httpcheck", m.New)
}
