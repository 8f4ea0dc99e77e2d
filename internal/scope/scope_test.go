package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{in: "", want: All},
		{in: "all", want: All},
		{in: "primary", want: Primary},
		{in: "secondary", want: Secondary},
		{in: "remote", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			if tc.in != "" {
				assert.Equal(t, tc.in, got.String())
			}
		})
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()

	primary := Process{Name: "app", Primary: true}
	worker := Process{Name: "app:worker"}

	assert.True(t, Matches(All, primary))
	assert.True(t, Matches(All, worker))
	assert.True(t, Matches(Primary, primary))
	assert.False(t, Matches(Primary, worker))
	assert.False(t, Matches(Secondary, primary))
	assert.True(t, Matches(Secondary, worker))

	assert.True(t, worker.Matches("app:worker"))
	assert.False(t, worker.Matches("app"))
	assert.False(t, Process{}.Matches(""))
}
