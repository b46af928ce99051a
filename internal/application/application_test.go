package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/watchlist/internal/config"
	"github.com/JonMunkholm/watchlist/internal/core"
	"github.com/JonMunkholm/watchlist/internal/store"
)

func testConfig(catalogURL string) *config.Config {
	return &config.Config{
		Catalog: config.CatalogConfig{
			BaseURL:      catalogURL,
			APIKey:       "test-key",
			Timeout:      time.Second,
			MaxResults:   5,
			CacheTTL:     time.Minute,
			CacheCleanup: time.Minute,
		},
		Import: config.ImportConfig{
			MaxRows:              50,
			LookupConcurrency:    3,
			MaxConcurrentBatches: 2,
			MaxWaitTime:          time.Second,
			RatingScale:          10,
			AutoSelectConfidence: 0.8,
		},
		Audit: config.AuditConfig{RetentionDays: 30, CheckInterval: time.Hour},
	}
}

func TestServiceOptions(t *testing.T) {
	opts := ServiceOptions(testConfig("").Import)
	want := core.Options{
		LookupConcurrency:    3,
		AutoSelectConfidence: 0.8,
		MaxItems:             50,
		RatingScale:          10,
		MaxConcurrentBatches: 2,
		MaxWait:              time.Second,
	}
	if opts != want {
		t.Errorf("ServiceOptions() = %+v, want %+v", opts, want)
	}
}

func TestRetentionConfig(t *testing.T) {
	got := RetentionConfig(testConfig("").Audit)
	if got.RetentionDays != 30 || got.CheckInterval != time.Hour {
		t.Errorf("RetentionConfig() = %+v", got)
	}
}

func TestNewWithStore_PreviewsThroughCatalog(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": 949, "title": "Heat", "release_date": "1995-12-15", "media_type": "movie", "poster_path": "/heat.jpg"},
			},
		})
	}))
	defer srv.Close()

	app, err := NewWithStore(testConfig(srv.URL), store.NewMemory())
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}
	defer app.Close()

	year := 1995
	for range 2 {
		item := app.Service.PreviewRow(context.Background(), "owner-1", core.RawRow{Title: "Heat", Year: &year}, core.PreviewOptions{})
		if item.Error != "" {
			t.Fatalf("PreviewRow error: %s", item.Error)
		}
		if item.SelectedMatchIndex == nil || item.MatchCandidates[0].CatalogID != 949 {
			t.Fatalf("expected auto-selected Heat, got %+v", item)
		}
	}
	if calls != 1 {
		t.Errorf("catalog calls = %d, want 1 (second lookup cached)", calls)
	}
	if app.Catalog.Len() != 1 {
		t.Errorf("cache size = %d, want 1", app.Catalog.Len())
	}
}

func TestNewWithStore_RequiresCatalogKey(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Catalog.APIKey = ""
	if _, err := NewWithStore(cfg, store.NewMemory()); err == nil {
		t.Fatal("expected error without catalog api key")
	}
}
