package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadimport/internal/core"
)

func newValidateCmd() *cobra.Command {
	var (
		opts   fileOptions
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Report every validation error for a file",
		Long:  "Validate maps the file (inferred mapping plus an optional preset) and lists every error. Exits non-zero when any error is found.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.loadSession(args[0])
			if err != nil {
				return err
			}

			errs := sess.Errors()
			if asJSON {
				if errs == nil {
					errs = []core.ImportError{}
				}
				if err := writeJSON(cmd, errs); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderErrors(sess.RowCount(), errs))
			}

			if len(errs) > 0 {
				return fmt.Errorf("%w: %d errors", core.ErrValidationFailed, len(errs))
			}
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output errors as JSON")
	return cmd
}
