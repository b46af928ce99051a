package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/watchlist/internal/core"
)

func newSourcesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the import file layouts watchlistctl understands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := core.Sources()
			if asJSON {
				return writeJSON(cmd, sources)
			}

			rows := make([][]string, 0, len(sources))
			for _, src := range sources {
				rows = append(rows, []string{
					src.Key,
					src.Label,
					strconv.FormatFloat(src.RatingScale, 'f', -1, 64),
					src.Description,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Label", "Rating scale", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sources as JSON")
	return cmd
}
