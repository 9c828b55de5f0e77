package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token() (string, error) { return string(s), nil }

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Options{BaseURL: server.URL, Tokens: tokens})
	require.NoError(t, err)
	return client
}

func TestGetAttachesBearerToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, staticTokens("abc123"))

	var out map[string]bool
	require.NoError(t, client.Get(context.Background(), "/health", nil, &out))
	require.Equal(t, "Bearer abc123", gotAuth)
	require.True(t, out["ok"])
}

func TestMissingTokenFailsBeforeAnyRequest(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}, staticTokens(""))

	err := client.Get(context.Background(), "/kanban/board", nil, nil)
	require.ErrorIs(t, err, ErrLoginRequired)
	require.Equal(t, int32(0), calls.Load())
}

func TestErrorMessageFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"CNPJ inválido"}`, "CNPJ inválido"},
		{"message", `{"message":"campo obrigatório"}`, "campo obrigatório"},
		{"error", `{"error":"sem permissão"}`, "sem permissão"},
		{"title", `{"title":"Unprocessable Entity"}`, "Unprocessable Entity"},
		{"plain text", `boom`, "boom"},
		{"empty", ``, http.StatusText(http.StatusUnprocessableEntity)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(tc.body))
			}, staticTokens("tok"))

			err := client.Get(context.Background(), "/companies", nil, nil)
			require.Error(t, err)
			require.Equal(t, CodeValidation, CodeOf(err))
			require.Equal(t, tc.want, MessageOf(err))
		})
	}
}

func TestStatusCodeMapping(t *testing.T) {
	cases := map[int]Code{
		http.StatusBadRequest:          CodeValidation,
		http.StatusUnauthorized:        CodeUnauthorized,
		http.StatusForbidden:           CodeUnauthorized,
		http.StatusNotFound:            CodeNotFound,
		http.StatusConflict:            CodeConflict,
		http.StatusInternalServerError: CodeInternal,
		http.StatusBadGateway:          CodeInternal,
	}
	for status, want := range cases {
		require.Equal(t, want, codeForStatus(status), "status %d", status)
	}
}

func TestGetServesFromCacheUntilInvalidated(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"items":[],"total":0,"page":1,"size":10,"pages":0}`))
	}, staticTokens("tok"))

	query := url.Values{"page": {"1"}}
	require.NoError(t, client.Get(context.Background(), "/companies", query, nil))
	require.NoError(t, client.Get(context.Background(), "/companies", query, nil))
	require.Equal(t, int32(1), calls.Load())

	client.Invalidate("companies")
	require.NoError(t, client.Get(context.Background(), "/companies", query, nil))
	require.Equal(t, int32(2), calls.Load())
}

func TestMutationInvalidatesMatchingCacheEntries(t *testing.T) {
	var gets atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		_, _ = w.Write([]byte(`{}`))
	}, staticTokens("tok"))

	ctx := context.Background()
	require.NoError(t, client.Get(ctx, "/kanban/board", nil, nil))
	require.NoError(t, client.Get(ctx, "/companies", nil, nil))

	// A kanban write must drop the board entry but keep the companies one.
	require.NoError(t, client.Do(ctx, http.MethodPatch, "/kanban/cards/1/move", nil, map[string]any{"column_id": 2}, nil))

	require.NoError(t, client.Get(ctx, "/kanban/board", nil, nil))
	require.NoError(t, client.Get(ctx, "/companies", nil, nil))
	require.Equal(t, int32(3), gets.Load())
}

func TestCacheEntriesExpire(t *testing.T) {
	cache := newResponseCache(time.Minute)
	current := time.Unix(1000, 0)
	cache.now = func() time.Time { return current }

	cache.put("key", []byte("value"))
	_, ok := cache.get("key")
	require.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = cache.get("key")
	require.False(t, ok)
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: ""})
	require.Error(t, err)
	_, err = New(Options{BaseURL: "ftp://host"})
	require.Error(t, err)
}
