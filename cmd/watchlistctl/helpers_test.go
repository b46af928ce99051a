package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/watchlist/internal/application"
	"github.com/JonMunkholm/watchlist/internal/config"
	"github.com/JonMunkholm/watchlist/internal/store"
)

const testOwner = "6f1c2d4e-8a9b-4c3d-9e8f-7a6b5c4d3e2f"

type cliTestEnv struct {
	app   *application.App
	store *store.Memory
	dir   string
}

// setupCLITestEnv builds an in-memory app whose catalog knows a single
// title, Heat (1995).
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := []map[string]any{}
		if strings.Contains(strings.ToLower(r.URL.Query().Get("query")), "heat") {
			results = append(results, map[string]any{
				"id": 949, "title": "Heat", "release_date": "1995-12-15",
				"media_type": "movie", "poster_path": "/heat.jpg",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	t.Cleanup(catalogSrv.Close)

	cfg := &config.Config{
		Catalog: config.CatalogConfig{
			BaseURL:      catalogSrv.URL,
			APIKey:       "test-key",
			Timeout:      time.Second,
			MaxResults:   5,
			CacheTTL:     time.Minute,
			CacheCleanup: time.Minute,
		},
		Import: config.ImportConfig{
			MaxRows:              50,
			LookupConcurrency:    2,
			MaxConcurrentBatches: 2,
			MaxWaitTime:          time.Second,
			RatingScale:          10,
			AutoSelectConfidence: 0.8,
		},
	}

	mem := store.NewMemory()
	app, err := application.NewWithStore(cfg, mem)
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}

	return &cliTestEnv{app: app, store: mem, dir: t.TempDir()}
}

// writeFile writes content to a file in the env's temp dir and returns its path.
func (env *cliTestEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(env.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()

	ctx := newCommandContext()
	ctx.openApp = func(context.Context, bool) (*application.App, error) {
		return env.app, nil
	}

	cmd := buildRootCommand(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}

func decodeJSON[T any](t *testing.T, data string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		t.Fatalf("decode %T: %v\n%s", v, err, data)
	}
	return v
}
