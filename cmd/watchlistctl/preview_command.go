package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/watchlist/internal/core"
)

// fileOptions are the flags shared by commands that read an import file.
type fileOptions struct {
	source        string
	skipUnmatched bool
	ratingScale   float64
}

func (o *fileOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.source, "source", "s", "generic", "Import source layout (see watchlistctl sources)")
	cmd.Flags().BoolVar(&o.skipUnmatched, "skip-unmatched", false, "Skip rows without a catalog match")
	cmd.Flags().Float64Var(&o.ratingScale, "rating-scale", 0, "Top of the file's rating scale (default: the source's scale)")
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var opts fileOptions
	var asJSON bool
	var savePath string

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Match an import file against the catalog without writing entries",
		Long: "Reads a CSV or JSON file (use - for stdin), normalizes every row, searches the\n" +
			"catalog and reports the match, confidence and duplicate state of each row.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd.Context(), func(c context.Context, svc *core.Service, ownerID string) error {
				resp, err := previewFile(c, cmd, svc, ownerID, args[0], opts)
				if err != nil {
					return err
				}

				if savePath != "" {
					if err := savePreview(savePath, resp); err != nil {
						return err
					}
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				printPreview(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the preview as JSON")
	cmd.Flags().StringVar(&savePath, "save", "", "Also write the preview JSON to this path for import --from-preview")
	return cmd
}

func previewFile(ctx context.Context, cmd *cobra.Command, svc *core.Service, ownerID, path string, opts fileOptions) (*core.PreviewResponse, error) {
	source, err := core.LookupSource(opts.source)
	if err != nil {
		return nil, err
	}

	r, closeFn, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return svc.PreviewFile(ctx, ownerID, r, source, core.PreviewOptions{
		SkipUnmatched: opts.skipUnmatched,
		RatingScale:   opts.ratingScale,
	})
}

// openInput opens path for reading; "-" reads the command's stdin.
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open import file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func savePreview(path string, resp *core.PreviewResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}

func loadPreview(cmd *cobra.Command, path string) (*core.PreviewResponse, error) {
	r, closeFn, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var resp core.PreviewResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: saved preview: %v", core.ErrMalformedFile, err)
	}
	return &resp, nil
}

func printPreview(w io.Writer, resp *core.PreviewResponse) {
	headers := []string{"#", "Title", "Year", "Match", "Confidence", "Status", "Rating", "Duplicate", "Note"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft}

	rows := make([][]string, 0, len(resp.Items))
	for i, item := range resp.Items {
		rows = append(rows, previewRow(i, item))
	}
	fmt.Fprintln(w, renderTable(headers, rows, aligns))

	s := resp.Summary
	fmt.Fprintf(w, "%d rows: %d matched, %d unmatched, %d duplicates, %d skipped, %d errors (%d ms)\n",
		s.TotalRows, s.Matched, s.Unmatched, s.Duplicates, s.Skipped, s.Errors, resp.ProcessingTimeMs)
}

func previewRow(i int, item core.PreviewItem) []string {
	row := []string{
		strconv.Itoa(i + 1),
		item.OriginalTitle,
		intOrBlank(item.OriginalYear),
		"",
		"",
		string(item.SuggestedStatus),
		intOrBlank(item.Rating),
		yesNo(item.HasExistingEntry),
		item.Error,
	}

	if c := item.SelectedCandidate(); c != nil {
		row[3] = c.Title
		if c.Year != nil {
			row[3] = fmt.Sprintf("%s (%d)", c.Title, *c.Year)
		}
		row[4] = strconv.FormatFloat(c.Confidence, 'f', 2, 64)
	}
	if item.ShouldSkip && item.Error == "" {
		row[8] = "skip"
	}
	return row
}

func intOrBlank(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
