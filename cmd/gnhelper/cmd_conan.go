package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConanCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "conan [args...]",
		Short: "Run conan with the given arguments",
		Long: `Runs conan with every argument passed through verbatim.

conan's standard output is captured and only shown at debug log level; its
standard error is forwarded. A non-zero conan status becomes gnhelper's status.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conan := app.conan()
			app.logger.Debug("running conan", zap.String("command", conan.Command()), zap.Strings("args", args))
			result, err := conan.Run(cmd.Context(), args)
			if result.Output != "" {
				app.logger.Debug("conan output", zap.String("stdout", result.Output))
			}
			return err
		},
	}
}
