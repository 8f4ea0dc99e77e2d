package dag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/testutil"
)

func TestBuild_FromDescriptor(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)
	rec := testutil.NewRecorder(8)

	decl := &config.Graph{
		Name: "boot",
		Nodes: []*config.Node{
			{ID: "ui", Uses: "noop", DependsOn: []string{"config", "network"}, Thread: "serial"},
			{ID: "network", Uses: "noop", DependsOn: []string{"config"}, Priority: 3},
			{ID: "config", Uses: "noop"},
		},
	}
	resolver := ResolverFunc(func(_ context.Context, n *config.Node) (Node, error) {
		affinity, _ := ParseAffinity(n.Thread)
		return NewTask(n.ID, rec.Body(n.ID, 0), WithAffinity(affinity)), nil
	})

	g, err := Build(ctx, decl, resolver, NewBuilder().WithExecutors(newTestExecutors(t)))
	require.NoError(t, err)
	assert.Equal(t, "boot", g.Name())
	assert.Equal(t, 1, g.finish.pendingPredecessors(), "only ui is a sink")

	runToFinish(t, ctx, g)
	assert.Equal(t, []string{"config", "network", "ui"}, rec.Started())
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	resolver := ResolverFunc(func(_ context.Context, n *config.Node) (Node, error) {
		if n.Uses == "missing" {
			return nil, nil
		}
		return NewTask(n.ID, nil), nil
	})

	testCases := []struct {
		name    string
		nodes   []*config.Node
		wantErr error
	}{
		{
			name: "cycle",
			nodes: []*config.Node{
				{ID: "a", Uses: "noop", DependsOn: []string{"b"}},
				{ID: "b", Uses: "noop", DependsOn: []string{"a"}},
			},
			wantErr: ErrCycle,
		},
		{
			name:    "self dependency",
			nodes:   []*config.Node{{ID: "a", Uses: "noop", DependsOn: []string{"a"}}},
			wantErr: ErrSelfDependency,
		},
		{
			name:    "unknown predecessor",
			nodes:   []*config.Node{{ID: "a", Uses: "noop", DependsOn: []string{"z"}}},
			wantErr: config.ErrUnknownPredecessor,
		},
		{
			name:    "missing uses",
			nodes:   []*config.Node{{ID: "a"}},
			wantErr: config.ErrMissingField,
		},
		{
			name:    "unresolvable uses",
			nodes:   []*config.Node{{ID: "a", Uses: "missing"}},
			wantErr: ErrUnknownNode,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx, _ := testutil.NewTestContext(t)
			decl := &config.Graph{Name: "g", Nodes: tc.nodes}
			g, err := Build(ctx, decl, resolver, NewBuilder())
			require.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, g)
		})
	}
}
