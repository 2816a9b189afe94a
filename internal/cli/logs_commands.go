package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"studio-service/internal/app"
	"studio-service/internal/core/domain"
	"studio-service/internal/core/ports/output"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the generation log",
	}

	logsCmd.AddCommand(newLogsListCommand(ctx))
	logsCmd.AddCommand(newLogsSaveCommand(ctx))

	return logsCmd
}

func newLogsListCommand(ctx *commandContext) *cobra.Command {
	var filter ports.GenerationLogFilter
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generation log rows, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = domain.LogStatus(status)
			return ctx.withApp(cmd, func(a *app.App) error {
				page, err := a.GenerationLog.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, page)
				}

				out := cmd.OutOrStdout()
				if !page.TableExists {
					fmt.Fprintln(out, "The generation_logs table does not exist")
					return nil
				}
				if len(page.Logs) == 0 {
					fmt.Fprintln(out, "No log entries")
					return nil
				}
				rows := make([][]string, 0, len(page.Logs))
				for _, l := range page.Logs {
					rows = append(rows, []string{
						l.CreatedAt.Local().Format(time.DateTime),
						l.RequestID,
						string(l.Status),
						l.Step,
						l.UserID,
					})
				}
				fmt.Fprint(out, renderTable([]string{"Created", "Request", "Status", "Step", "User"}, rows, nil))
				fmt.Fprintf(out, "Showing %d of %d (offset %d)\n", len(page.Logs), page.Total, page.Offset)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&filter.RequestID, "request-id", "", "Only rows of this request")
	flags.StringVar(&status, "status", "", "Only rows with this status (started, processing, completed, failed)")
	flags.StringVar(&filter.UserID, "user-id", "", "Only rows of this user")
	flags.BoolVar(&filter.GalleryOnly, "gallery", false, "Only rows saved to the gallery")
	flags.IntVar(&filter.Limit, "limit", 0, "Maximum rows to return (default 50)")
	flags.IntVar(&filter.Offset, "offset", 0, "Rows to skip")

	return cmd
}

func newLogsSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save <request-id> <image-url>",
		Short: "Mark the latest completed generation of a request as saved to the gallery",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				entry, err := a.GenerationLog.SaveToGallery(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, entry)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to the gallery\n", entry.RequestID)
				return nil
			})
		},
	}
}
