package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sel-lesson-service/internal/infra/file"
)

// NewValidateCmd lints a directory of lesson files.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Check lesson files against the schema and authoring rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := file.Lint(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", r.Path, r.Err)
					continue
				}
				fmt.Fprintf(out, "ok   %s (%s)\n", r.Path, r.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d lesson files have defects", failed, len(results))
			}
			fmt.Fprintf(out, "%d lesson files valid\n", len(results))
			return nil
		},
	}
}
