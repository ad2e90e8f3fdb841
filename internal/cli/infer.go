package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInferCmd() *cobra.Command {
	var (
		opts   fileOptions
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "infer <file>",
		Short: "Show the column mapping proposed for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.loadSession(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, sess.Mappings())
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMappings(sess.FileName, sess.Mappings()))
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
