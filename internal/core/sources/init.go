// Package sources registers the supported import file layouts with the core
// source registry. Import this package to ensure all sources are registered.
package sources

// Each source file uses init() to register its definition.
