package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/dag"
	"github.com/vk/startgrid/internal/hcl"
	"github.com/vk/startgrid/internal/registry"
	"github.com/vk/startgrid/internal/testutil"
	"github.com/vk/startgrid/internal/yaml"
	"github.com/vk/startgrid/modules/print"
	"github.com/vk/startgrid/modules/sleep"
)

// recordModule registers "record", a node that logs its id into a shared
// recorder and sleeps for the "duration" argument.
type recordModule struct {
	rec *testutil.Recorder
}

func (m *recordModule) Register(r *registry.Registry) {
	r.Register("record", func(spec registry.Spec) (dag.Body, error) {
		d, err := time.ParseDuration(spec.Arg("duration", "0s"))
		if err != nil {
			return nil, err
		}
		return m.rec.Body(spec.ID, d), nil
	})
}

type appHarness struct {
	t   *testing.T
	dir string
	out *testutil.SafeBuffer
}

func newHarness(t *testing.T) *appHarness {
	t.Helper()
	return &appHarness{t: t, dir: t.TempDir(), out: &testutil.SafeBuffer{}}
}

func (h *appHarness) write(name, content string) {
	h.t.Helper()
	require.NoError(h.t, os.WriteFile(filepath.Join(h.dir, name), []byte(content), 0o600))
}

func (h *appHarness) newApp(cfg Config, modules ...registry.Module) *App {
	h.t.Helper()
	cfg.GraphPath = h.dir
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	full, err := NewConfig(cfg)
	require.NoError(h.t, err)
	loader := config.Loaders{
		hcl.NewLoader(hcl.Process{Name: full.ProcessName, Primary: full.PrimaryProcess}),
		yaml.NewLoader(),
	}
	return NewApp(h.out, full, loader, modules...)
}

func TestApp_RunRespectsDependencies(t *testing.T) {
	h := newHarness(t)
	h.write("boot.hcl", `
graph "boot" {
  node "config" {
    uses = "record"
    args = { duration = "10ms" }
  }
  node "db" {
    uses       = "record"
    depends_on = ["config"]
  }
  node "cache" {
    uses       = "record"
    depends_on = "config"
  }
  node "serve" {
    uses       = "record"
    depends_on = ["db", "cache"]
    thread     = "serial"
  }
}
`)
	rec := testutil.NewRecorder(4)
	a := h.newApp(Config{}, &recordModule{rec: rec})

	require.NoError(t, a.Run(context.Background()))
	require.True(t, a.Coordinator().IsComplete())

	finished := rec.Finished()
	require.Len(t, finished, 4)
	require.Equal(t, "config", finished[0])
	require.Equal(t, "serve", finished[3])

	cfgRun, ok := rec.Record("config")
	require.True(t, ok)
	for _, name := range []string{"db", "cache"} {
		run, ok := rec.Record(name)
		require.True(t, ok, "%s should run exactly once", name)
		require.False(t, run.Start.Before(cfgRun.End), "%s started before config finished", name)
	}
	require.Contains(t, h.out.String(), "Startup finished.")
	require.Contains(t, h.out.String(), "node=serve")
}

func TestApp_PrintModuleFromYAML(t *testing.T) {
	h := newHarness(t)
	h.write("boot.yaml", `
graphs:
  - name: boot
    scope: primary
    nodes:
      - id: first
        uses: print
        args: {message: one}
      - id: second
        uses: print
        depends_on: first
        args: {message: two}
`)
	a := h.newApp(Config{PrimaryProcess: true}, &print.Module{}, &sleep.Module{})
	require.NoError(t, a.Run(context.Background()))

	out := h.out.String()
	first := strings.Index(out, "[first] one")
	second := strings.Index(out, "[second] two")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	require.Less(t, first, second)
}

func TestApp_SelectsProcessGraph(t *testing.T) {
	h := newHarness(t)
	h.write("graphs.hcl", `
graph "main" {
  scope = "primary"
  node "main_only" {
    uses = "record"
  }
}

graph "push" {
  process = "app:push"
  node "push_only" {
    uses = "record"
  }
}
`)
	rec := testutil.NewRecorder(2)
	a := h.newApp(Config{ProcessName: "app:push", PrimaryProcess: false}, &recordModule{rec: rec})
	require.NoError(t, a.Run(context.Background()))

	require.Equal(t, []string{"push_only"}, rec.Finished())
	require.Equal(t, "push", a.Coordinator().Selected().Name())
}

func TestApp_NoMatchingGraphCompletes(t *testing.T) {
	h := newHarness(t)
	h.write("graphs.hcl", `
graph "main" {
  scope = "primary"
  node "main_only" {
    uses = "record"
  }
}
`)
	rec := testutil.NewRecorder(1)
	a := h.newApp(Config{PrimaryProcess: false}, &recordModule{rec: rec})
	require.NoError(t, a.Run(context.Background()))
	require.Empty(t, rec.Finished())
	require.True(t, a.Coordinator().IsComplete())
}

func TestApp_WaitTimeout(t *testing.T) {
	h := newHarness(t)
	h.write("slow.hcl", `
graph "slow" {
  node "slow" {
    uses = "record"
    args = { duration = "300ms" }
  }
}
`)
	rec := testutil.NewRecorder(1)
	a := h.newApp(Config{WaitTimeout: 20 * time.Millisecond}, &recordModule{rec: rec})

	err := a.Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrStartupTimeout), "got %v", err)
}

func TestApp_CancelledContext(t *testing.T) {
	h := newHarness(t)
	h.write("slow.hcl", `
graph "slow" {
  node "slow" {
    uses = "record"
    args = { duration = "300ms" }
  }
}
`)
	rec := testutil.NewRecorder(1)
	a := h.newApp(Config{}, &recordModule{rec: rec})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := a.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewApp_Panics(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{
			name:    "unknown constructor",
			file:    "bad.hcl",
			content: "graph \"g\" {\n  node \"a\" {\n    uses = \"does_not_exist\"\n  }\n}\n",
			wantMsg: "no constructor registered",
		},
		{
			name:    "unknown predecessor",
			file:    "bad.yaml",
			content: "graphs:\n  - name: g\n    nodes:\n      - id: a\n        uses: print\n        depends_on: ghost\n",
			wantMsg: "ghost",
		},
		{
			name:    "cycle",
			file:    "cycle.yaml",
			content: "graphs:\n  - name: g\n    nodes:\n      - id: a\n        uses: print\n        depends_on: b\n      - id: b\n        uses: print\n        depends_on: a\n",
			wantMsg: "cycle",
		},
		{
			name:    "invalid HCL",
			file:    "broken.hcl",
			content: "graph \"g\" {\n  node \"a\" {\n",
			wantMsg: "failed to load graph descriptors",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.write(tc.file, tc.content)

			defer func() {
				r := recover()
				require.NotNil(t, r, "NewApp should panic")
				var msg string
				switch v := r.(type) {
				case error:
					msg = v.Error()
				case string:
					msg = v
				}
				require.Contains(t, msg, tc.wantMsg)
			}()
			h.newApp(Config{})
		})
	}
}

func TestApp_HealthcheckHandlers(t *testing.T) {
	h := newHarness(t)
	h.write("slow.hcl", `
graph "boot" {
  node "wait" {
    uses = "record"
    args = { duration = "30ms" }
  }
}
`)
	rec := testutil.NewRecorder(1)
	a := h.newApp(Config{}, &recordModule{rec: rec})
	mux := a.healthcheckMux()

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	require.Equal(t, http.StatusOK, get("/health").Code)
	notReady := get("/ready")
	require.Equal(t, http.StatusServiceUnavailable, notReady.Code)
	require.Equal(t, "STARTING\n", notReady.Body.String())

	require.NoError(t, a.Run(context.Background()))

	ready := get("/ready")
	require.Equal(t, http.StatusOK, ready.Code)
	require.Equal(t, "READY\n", ready.Body.String())

	metrics := get("/metrics")
	require.Equal(t, http.StatusOK, metrics.Code)
	require.Contains(t, metrics.Body.String(), "startgrid_node_duration_seconds")
}

func TestApp_SlowNodeAlert(t *testing.T) {
	h := newHarness(t)
	h.write("slow.hcl", `
graph "boot" {
  node "sluggish" {
    uses = "record"
    args = { duration = "25ms" }
  }
}
`)
	rec := testutil.NewRecorder(1)
	a := h.newApp(Config{WarnThreshold: 5 * time.Millisecond}, &recordModule{rec: rec})
	require.NoError(t, a.Run(context.Background()))

	// Run closes the serial executor, which drains the queued alert first.
	require.Contains(t, h.out.String(), "Startup alert.")
	require.Contains(t, h.out.String(), "sluggish")
}

func TestApp_CoreModulesByDefault(t *testing.T) {
	h := newHarness(t)
	h.write("boot.hcl", "graph \"g\" {\n  node \"a\" {\n    uses = \"sleep\"\n    args = { duration = \"1ms\" }\n  }\n}\n")
	a := h.newApp(Config{})
	require.Equal(t, []string{"envcheck", "httpcheck", "print", "sleep"}, a.Registry().Names())
	require.NoError(t, a.Run(context.Background()))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"msg":"shown"`)
	require.Contains(t, out, `"k":"v"`)
}

func TestApp_RunAfterCompletionRunsBeforeRunReturns(t *testing.T) {
	h := newHarness(t)
	h.write("boot.hcl", `
graph "boot" {
  node "config" {
    uses = "record"
  }
}
`)
	rec := testutil.NewRecorder(3)
	a := h.newApp(Config{}, &recordModule{rec: rec})

	ctx := context.Background()
	warm := dag.NewTask("warm_cache", rec.Body("warm_cache", 30*time.Millisecond))
	prompt := dag.NewTask("show_prompt", rec.Body("show_prompt", 0), dag.WithAffinity(dag.SerialAffinity))
	require.NoError(t, a.Coordinator().RunAfterCompletion(ctx, warm))
	require.NoError(t, a.Coordinator().RunAfterCompletion(ctx, prompt))

	require.NoError(t, a.Run(ctx))

	require.Equal(t, "config", rec.Started()[0])
	for _, task := range []*dag.Task{warm, prompt} {
		_, ok := rec.Record(task.Name())
		require.True(t, ok, "%s should have run before Run returned", task.Name())
		require.Equal(t, dag.Finished, task.State())
	}
}
