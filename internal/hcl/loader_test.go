package hcl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/testutil"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoader_Load(t *testing.T) {
	t.Setenv("STARTGRID_TEST_REGION", "eu-west")
	ctx, _ := testutil.NewTestContext(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "boot.hcl", `
graph "boot" {
  scope = "primary"

  node "config" {
    uses = "print"
    args = {
      message = "region ${env("STARTGRID_TEST_REGION")}"
      owner   = upper(process.name)
      retries = 3
    }
  }

  node "network" {
    uses       = "sleep"
    depends_on = "config"
    thread     = "serial"
    priority   = 5
  }

  node "ui" {
    uses       = "print"
    depends_on = ["config", "network"]
  }
}

graph "push" {
  process = "app:push"
  node "only" {
    uses = "print"
  }
}
`)
	writeFile(t, dir, "ignored.yaml", "graphs: {}\n")

	model, err := NewLoader(Process{Name: "app", Primary: true}).Load(ctx, dir)
	require.NoError(t, err)

	want := &config.Model{Graphs: []*config.Graph{
		{
			Name:   "boot",
			Scope:  "primary",
			Source: file,
			Nodes: []*config.Node{
				{ID: "config", Uses: "print", Args: map[string]string{"message": "region eu-west", "owner": "APP", "retries": "3"}},
				{ID: "network", Uses: "sleep", DependsOn: []string{"config"}, Thread: "serial", Priority: 5},
				{ID: "ui", Uses: "print", DependsOn: []string{"config", "network"}},
			},
		},
		{
			Name:    "push",
			Process: "app:push",
			Source:  file,
			Nodes:   []*config.Node{{ID: "only", Uses: "print"}},
		},
	}}
	if diff := cmp.Diff(want, model); diff != "" {
		t.Errorf("model mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, model.Validate())
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
	}{
		{name: "syntax error", content: "graph \"g\" {"},
		{name: "missing uses", content: "graph \"g\" {\n  node \"a\" {\n  }\n}\n"},
		{name: "bad depends_on type", content: "graph \"g\" {\n  node \"a\" {\n    uses = \"x\"\n    depends_on = 5\n  }\n}\n"},
		{name: "args not an object", content: "graph \"g\" {\n  node \"a\" {\n    uses = \"x\"\n    args = [\"a\"]\n  }\n}\n"},
		{name: "unknown function", content: "graph \"g\" {\n  node \"a\" {\n    uses = nope(\"x\")\n  }\n}\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx, _ := testutil.NewTestContext(t)
			dir := t.TempDir()
			writeFile(t, dir, "bad.hcl", tc.content)

			_, err := NewLoader(Process{}).Load(ctx, dir)
			require.Error(t, err)
		})
	}
}
