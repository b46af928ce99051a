package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/watchlist/internal/core"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var action string
	var since string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the owner's preview, import and export history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceTime, err := parseSince(since)
			if err != nil {
				return err
			}

			return ctx.withService(cmd.Context(), func(c context.Context, svc *core.Service, ownerID string) error {
				entries, err := svc.AuditLog(c, core.AuditQuery{
					OwnerID: ownerID,
					Action:  core.AuditAction(action),
					Since:   sinceTime,
					Limit:   limit,
				})
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No audit entries")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						string(e.Action),
						string(e.Severity),
						strconv.Itoa(e.RowsAffected),
						e.BatchID,
						e.UserAgent,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Time", "Action", "Severity", "Rows", "Batch", "Client"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "Only show this action: import_preview, import_commit or export")
	cmd.Flags().StringVar(&since, "since", "", "Only show entries at or after this time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", core.DefaultAuditLimit, "Maximum entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func parseSince(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, core.ValidationErrors{{Field: "since", Value: v, Message: "invalid date"}}
}
