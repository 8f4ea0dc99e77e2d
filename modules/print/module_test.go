package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/startgrid/internal/registry"
)

func TestPrint(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	body, err := New(registry.Spec{
		ID:   "hello",
		Args: map[string]string{"message": "hi there", "b": "2", "a": "1"},
		Out:  &out,
	})
	require.NoError(t, err)
	require.NoError(t, body(context.Background()))

	assert.Equal(t, "[hello] hi there\n      a = \"1\"\n      b = \"2\"\n", out.String())
}
