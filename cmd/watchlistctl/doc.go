// Command watchlistctl previews, imports and exports watchlists from the
// command line.
//
// It runs the same pipeline as the HTTP server against the configured
// Postgres database, or against an in-memory store with --memory. Tables go
// to stdout and logs to stderr; pass --json for machine-readable output.
package main
