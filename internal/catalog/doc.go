// Package catalog searches a TMDB-compatible media catalog for the titles
// found in import rows.
//
// Client speaks the TMDB v3 search API (/search/movie, /search/tv and
// /search/multi) and maps its results to core.CatalogResult. Throttled and
// failed requests are retried with exponential backoff; other client errors
// fail immediately.
//
// CachedSearcher wraps any core.CatalogSearcher with an in-memory TTL cache
// so re-previewing the same file does not repeat every lookup.
package catalog
