// Package core provides the watchlist import/export pipeline.
//
// This package holds all domain logic independent of any UI or transport
// layer. It can be used by web handlers, CLI tools, or tests without
// modification. The catalog and the store are reached only through the
// [CatalogSearcher] and [Store] interfaces.
//
// # Architecture
//
// The pipeline runs in two passes with a user confirmation in between:
//
//   - Preview: each [RawRow] is validated, normalized, searched in the
//     catalog, scored and checked for an existing entry, producing a
//     [PreviewItem]. See [Service.PreviewRow] and [Service.PreviewRows].
//   - Commit: the confirmed items plus per-item [DuplicateResolution]s are
//     written one transaction per item. See [Service.Commit].
//
// [Service.Export] produces the versioned [ExportResponse], which the
// preview pass reads back unmodified.
//
// # Two-tier errors
//
// Normalizers ([NormalizeStatus], [ParseProviders], [NormalizeDate],
// [NormalizeRating]) never fail; unusable input becomes a safe default.
// Validators return [ValidationErrors] with a field path per problem. Inside
// a batch a row's validation failure becomes that item's error; a malformed
// top-level request is rejected before any processing.
//
// # Import Sources
//
// File layouts are registered at init time using [RegisterSource]:
//
//	core.RegisterSource(core.SourceDefinition{
//	    Key:         "letterboxd",
//	    Columns:     map[core.Field][]string{core.FieldTitle: {"Name"}},
//	    RatingScale: 5,
//	})
//
// [ReadRows] reads CSV or JSON through a source definition.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - IMP001-IMP006: Import errors (limits, busy, unknown source)
//   - CAT001-CAT002: Catalog errors
//   - FILE001-FILE005: File errors (size, format, missing column)
//   - VAL001-VAL005: Validation errors
//   - DB001-DB007: Database errors
//
// # Audit Logging
//
// Commits and exports are recorded in the audit log with severity levels:
//
//   - Low: Previews
//   - Medium: Exports and commits that changed nothing
//   - High: Commits that wrote entries
package core
