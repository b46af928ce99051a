package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/watchlist/internal/core"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var opts fileOptions
	var strategy string
	var fromPreview bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Preview an import file and commit it to the watchlist",
		Long: "Runs the same preview as `watchlistctl preview` and commits every row that\n" +
			"was not skipped. Rows matching an existing entry follow --strategy. With\n" +
			"--from-preview, FILE is a preview saved with `preview --save` and is\n" +
			"committed as is.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd.Context(), func(c context.Context, svc *core.Service, ownerID string) error {
				var (
					resp *core.PreviewResponse
					err  error
				)
				if fromPreview {
					resp, err = loadPreview(cmd, args[0])
				} else {
					resp, err = previewFile(c, cmd, svc, ownerID, args[0], opts)
				}
				if err != nil {
					return err
				}

				result, err := svc.Commit(c, ownerID, core.BulkImportRequest{
					Items:                    resp.Items,
					SkipUnmatched:            opts.skipUnmatched,
					DefaultDuplicateStrategy: core.Strategy(strategy),
				})
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd, result)
				}
				printImportResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&strategy, "strategy", string(core.StrategySkip), "Duplicate strategy: skip, overwrite or merge")
	cmd.Flags().BoolVar(&fromPreview, "from-preview", false, "Treat FILE as a saved preview")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printImportResult(w io.Writer, result *core.ImportResult) {
	headers := []string{"Imported", "Merged", "Overwritten", "Skipped", "Failed", "Duration"}
	row := []string{
		strconv.Itoa(result.Imported),
		strconv.Itoa(result.Merged),
		strconv.Itoa(result.Overwritten),
		strconv.Itoa(result.Skipped),
		strconv.Itoa(result.Failed),
		fmt.Sprintf("%d ms", result.DurationMs),
	}
	aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
	fmt.Fprintf(w, "Batch %s\n", result.BatchID)
	fmt.Fprintln(w, renderTable(headers, [][]string{row}, aligns))

	if len(result.Errors) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		rows = append(rows, []string{strconv.Itoa(e.ItemIndex + 1), e.Title, e.Error})
	}
	fmt.Fprintln(w, renderTable([]string{"#", "Title", "Error"}, rows, []columnAlignment{alignRight}))
}
