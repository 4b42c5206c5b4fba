package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootDirCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Print the project root directory",
		Long: `Prints the nearest ancestor of the working directory holding the root
marker (.gn by default). When there is none, "./" is printed and a warning
is logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), app.root.Dir)
			return err
		},
	}
}
