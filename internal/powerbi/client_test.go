package powerbi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokens is a TokenSource returning a fixed token.
type staticTokens string

func (s staticTokens) Token(_ context.Context) (string, error) {
	return string(s), nil
}

// failingTokens is a TokenSource that always fails.
type failingTokens struct{ err error }

func (f failingTokens) Token(_ context.Context) (string, error) {
	return "", f.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(staticTokens("test-token"), Options{BaseURL: server.URL})
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth, gotAccept string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"value":[]}`))
	})

	_, err := client.ListWorkspaces(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClientTokenFailurePropagates(t *testing.T) {
	tokenErr := errors.New("no stored credential")
	client := NewClient(failingTokens{err: tokenErr}, Options{BaseURL: "http://unused.invalid"})

	_, err := client.ListWorkspaces(context.Background(), nil)
	assert.ErrorIs(t, err, tokenErr)
}

func TestClientErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 maps to unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "403 maps to unauthorized",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "404 maps to not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name:   "500 keeps the response body",
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":"InternalError"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
				assert.Contains(t, apiErr.Body, "InternalError")
				assert.Contains(t, apiErr.Error(), "HTTP 500")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.ListWorkspaces(context.Background(), nil)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestClientBaseURL(t *testing.T) {
	t.Run("explicit option wins", func(t *testing.T) {
		client := NewClient(staticTokens("t"), Options{BaseURL: "https://example.com/api/"})
		assert.Equal(t, "https://example.com/api", client.BaseURL())
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv(EnvAPIURL, "https://sovereign.example.com/v1.0/myorg")
		client := NewClient(staticTokens("t"), Options{})
		assert.Equal(t, "https://sovereign.example.com/v1.0/myorg", client.BaseURL())
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv(EnvAPIURL, "")
		client := NewClient(staticTokens("t"), Options{})
		assert.Equal(t, DefaultBaseURL, client.BaseURL())
	})
}

func TestQueryEncode(t *testing.T) {
	tests := []struct {
		name  string
		query *Query
		want  string
	}{
		{"nil query", nil, ""},
		{"zero query", &Query{}, ""},
		{"top only", &Query{Top: 10}, "%24top=10"},
		{"skip only", &Query{Skip: 20}, "%24skip=20"},
		{
			"filter and expand",
			&Query{Filter: "state eq 'Active'", Expand: "users"},
			"%24expand=users&%24filter=state+eq+%27Active%27",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.query.encode())
		})
	}
}
