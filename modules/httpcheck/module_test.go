package httpcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/startgrid/internal/registry"
)

func TestHTTPCheck(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ready" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	m := &Module{}
	testCases := []struct {
		name    string
		args    map[string]string
		wantErr bool
	}{
		{name: "expected status", args: map[string]string{"url": srv.URL + "/ready", "expect_status": "204"}},
		{name: "unexpected status", args: map[string]string{"url": srv.URL + "/down"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			body, err := m.New(registry.Spec{ID: "probe", Args: tc.args})
			require.NoError(t, err)
			err = body(context.Background())
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestHTTPCheck_InvalidArgs(t *testing.T) {
	t.Parallel()
	m := &Module{}
	for _, args := range []map[string]string{
		{},
		{"url": "http://x", "expect_status": "ok"},
		{"url": "http://x", "timeout": "later"},
	} {
		_, err := m.New(registry.Spec{ID: "probe", Args: args})
		assert.Error(t, err, "%v", args)
	}
}
