package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	invalidHCL := `
		graph "boot" {
			node "a" {
		// Missing closing braces here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600))

	out := &bytes.Buffer{}
	runErr := run(context.Background(), out, []string{filePath})

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to parse"), "The error message should contain the underlying reason for the panic.")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_MixedDescriptors(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "boot.hcl"), []byte(`
graph "boot" {
  node "hello" {
    uses = "print"
    args = { message = "hello from hcl" }
  }
  node "nap" {
    uses       = "sleep"
    depends_on = ["hello"]
    args       = { duration = "5ms" }
  }
}
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "push.yaml"), []byte(`
graphs:
  - name: push
    process: app:push
    nodes:
      - id: never
        uses: print
        args: {message: not this process}
`), 0o600))

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-process", "app", tempDir})
	require.NoError(t, err)
	require.Contains(t, out.String(), "[hello] hello from hcl")
	require.NotContains(t, out.String(), "not this process")
	require.Contains(t, out.String(), "Startup finished.")
}
