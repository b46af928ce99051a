package sources

import "github.com/JonMunkholm/watchlist/internal/core"

func init() {
	registerLetterboxd()
}

// Letterboxd exports watchlist.csv, ratings.csv and diary.csv with the same
// Name/Year columns. Ratings use half stars out of five, and only films are
// listed.
func registerLetterboxd() {
	core.RegisterSource(core.SourceDefinition{
		Key:         "letterboxd",
		Label:       "Letterboxd",
		Description: "watchlist.csv, ratings.csv or diary.csv from a Letterboxd data export.",
		Columns: map[core.Field][]string{
			core.FieldTitle:       {"Name"},
			core.FieldYear:        {"Year"},
			core.FieldRating:      {"Rating"},
			core.FieldNotes:       {"Review", "Tags"},
			core.FieldDateAdded:   {"Date"},
			core.FieldDateWatched: {"Watched Date"},
		},
		RatingScale:   5,
		DefaultStatus: core.StatusPlanToWatch,
		WatchedStatus: core.StatusCompleted,
		MediaKinds:    map[string]core.MediaKind{"": core.MediaMovie},
	})
}
