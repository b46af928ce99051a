package sources

import "github.com/JonMunkholm/watchlist/internal/core"

// GenericKey is the source used when an import names none.
const GenericKey = "generic"

func init() {
	registerGeneric()
}

// registerGeneric accepts the column names written by the export CSV plus
// the common spellings found in hand-made spreadsheets.
func registerGeneric() {
	core.RegisterSource(core.SourceDefinition{
		Key:         GenericKey,
		Label:       "Watchlist CSV / JSON",
		Description: "Spreadsheet or JSON with a title column; also reads this service's own exports.",
		Columns: map[core.Field][]string{
			core.FieldTitle:       {"title", "name", "movie", "show"},
			core.FieldYear:        {"year", "release year"},
			core.FieldStatus:      {"status", "state", "progress"},
			core.FieldRating:      {"rating", "score", "my rating"},
			core.FieldNotes:       {"notes", "note", "comment", "comments", "review"},
			core.FieldDateAdded:   {"dateAdded", "date added", "added", "date"},
			core.FieldDateWatched: {"dateWatched", "date watched", "watched date", "watched on"},
			core.FieldProviders:   {"streamingProviders", "streaming providers", "providers", "services", "streaming"},
			core.FieldMediaKind:   {"mediaKind", "media kind", "type", "kind"},
		},
		RatingScale: core.DefaultRatingScale,
		MediaKinds: map[string]core.MediaKind{
			"film":    core.MediaMovie,
			"series":  core.MediaTV,
			"show":    core.MediaTV,
			"tv show": core.MediaTV,
		},
	})
}
