package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexcodex/gnhelper/framework"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := newApplication()
	err := newRootCmd(app).ExecuteContext(ctx)
	stop()
	if app.logger != nil {
		_ = app.logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "gnhelper:", err)
		os.Exit(framework.ExitCodeFor(err))
	}
}

func newRootCmd(app *application) *cobra.Command {
	root := &cobra.Command{
		Use:   "gnhelper",
		Short: "Helpers that feed package-manager and pkg-config results into GN",
		Long: `gnhelper wraps conan and pkg-config for GN's exec_script.

Machine-readable results go to stdout; diagnostics go to stderr.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.prepare(cmd)
		},
	}
	// Global flags must precede the subcommand so conan sees its own
	// arguments untouched.
	root.TraverseChildren = true
	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetFlagErrorFunc(usageError)

	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "warn", "Diagnostic log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "Settings file (default is .gnhelper.yaml at the project root)")
	root.PersistentFlags().StringVar(&app.marker, "marker", framework.DefaultRootMarker, "File marking the project root")
	root.PersistentFlags().StringVar(&app.invocationLog, "invocation-log", "", "Append a pid/timestamp line to this file, relative to the project root")

	root.AddCommand(
		newConanCmd(app),
		newPkgConfigCmd(app),
		newRootDirCmd(app),
		newDoctorCmd(app),
		newConfigCmd(app),
	)
	return root
}
