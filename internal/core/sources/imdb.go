package sources

import "github.com/JonMunkholm/watchlist/internal/core"

func init() {
	registerIMDb()
}

func registerIMDb() {
	core.RegisterSource(core.SourceDefinition{
		Key:         "imdb",
		Label:       "IMDb",
		Description: "Watchlist or ratings CSV exported from IMDb.",
		Columns: map[core.Field][]string{
			core.FieldTitle:     {"Title"},
			core.FieldYear:      {"Year"},
			core.FieldRating:    {"Your Rating"},
			core.FieldNotes:     {"Description"},
			core.FieldDateAdded: {"Created", "Date Rated"},
			core.FieldMediaKind: {"Title Type"},
		},
		RatingScale:   10,
		DefaultStatus: core.StatusPlanToWatch,
		WatchedStatus: core.StatusCompleted,
		// Older exports use the camelCase type IDs, newer ones the labels.
		MediaKinds: map[string]core.MediaKind{
			"movie":          core.MediaMovie,
			"short":          core.MediaMovie,
			"video":          core.MediaMovie,
			"tvmovie":        core.MediaMovie,
			"tv movie":       core.MediaMovie,
			"tvseries":       core.MediaTV,
			"tv series":      core.MediaTV,
			"tvminiseries":   core.MediaTV,
			"tv mini series": core.MediaTV,
			"tvspecial":      core.MediaTV,
			"tv special":     core.MediaTV,
		},
	})
}
