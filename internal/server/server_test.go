package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-capsule/internal/config"
	"github.com/sakif/code-capsule/internal/model"
)

func testConfig(storeURL string) *config.Config {
	return &config.Config{
		StoreURL:      storeURL,
		MongoDatabase: "capsule",
		Host:          "127.0.0.1",
		Port:          4000,
		LogLevel:      "error",
		LogFormat:     "text",
	}
}

func newTestServer(t *testing.T, storeURL string) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := New(context.Background(), testConfig(storeURL), logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func send(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// One pass over every route, on each embedded backend.
func TestRoutes(t *testing.T) {
	for _, storeURL := range []string{"memory:", "sqlite::memory:"} {
		t.Run(storeURL, func(t *testing.T) {
			ts := newTestServer(t, storeURL)

			resp := send(t, http.MethodPost, ts.URL+"/code",
				`{"code":"Y29uc29sZS5sb2coMSk=","description":"log","language":"javascript","tags":["js"]}`)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			created := decode[model.Snippet](t, resp)
			require.NotEmpty(t, created.ID)

			resp = send(t, http.MethodGet, ts.URL+"/code?tags=js,py", "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list := decode[struct {
				Codes []model.Snippet `json:"codes"`
			}](t, resp)
			require.Len(t, list.Codes, 1)
			assert.Equal(t, created.ID, list.Codes[0].ID)

			resp = send(t, http.MethodPatch, ts.URL+"/code", `{"id":"`+created.ID+`","description":"console log"}`)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Equal(t, "console log", decode[model.Snippet](t, resp).Description)

			resp = send(t, http.MethodPatch, ts.URL+"/tags", `{"id":"`+created.ID+`","tags":["node"],"operation":"add"}`)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Equal(t, []string{"js", "node"}, decode[model.Snippet](t, resp).Tags)

			resp = send(t, http.MethodDelete, ts.URL+"/code?id="+created.ID, "")
			assert.Equal(t, http.StatusNoContent, resp.StatusCode)

			resp = send(t, http.MethodDelete, ts.URL+"/code?id="+created.ID, "")
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, "sqlite::memory:")

	resp := send(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	send(t, http.MethodGet, ts.URL+"/code", "")

	resp = send(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `capsule_http_requests_total{method="GET",route="/code",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPreflight(t *testing.T) {
	ts := newTestServer(t, "memory:")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/tags", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:9002")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:9002", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := OpenStore(ctx, "memory:", "")
		require.NoError(t, err)
		assert.Equal(t, "memory", s.Kind)
		assert.Nil(t, s.Ping)
		assert.NoError(t, s.Close())
	})

	t.Run("sqlite file creates its directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "capsule.db")
		s, err := OpenStore(ctx, "sqlite:"+path, "")
		require.NoError(t, err)
		defer s.Close()

		assert.Equal(t, "sqlite", s.Kind)
		assert.NoError(t, s.Ping(ctx))
		assert.FileExists(t, path)
	})

	t.Run("errors", func(t *testing.T) {
		for _, url := range []string{"", "sqlite:", "redis://localhost", "data/capsule.db"} {
			_, err := OpenStore(ctx, url, "")
			assert.Error(t, err, url)
		}
	})
}
