package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"studio-service/internal/core/domain"
)

// validate works offline and never builds the app.
func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.jsonl>",
		Short: "Check chat-format training data locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readUploadedFile(args[0])
			if err != nil {
				return err
			}
			report, err := domain.ValidateJSONL(bytes.NewReader(file.Content))
			if err != nil {
				return err
			}

			if ctx.wantJSON() {
				if err := writeJSON(cmd, map[string]any{
					"filename":      file.Name,
					"valid":         report.Valid(),
					"totalLines":    report.TotalLines,
					"validExamples": report.ValidExamples,
					"errors":        report.Problems(),
				}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %d lines, %d valid examples\n", file.Name, report.TotalLines, report.ValidExamples)
				for _, p := range report.Problems() {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}

			if !report.Valid() {
				return fmt.Errorf("%s is not valid chat-format JSONL", file.Name)
			}
			return nil
		},
	}
}
