package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lexcodex/gnhelper/cmd/internal/cliutils"
	"github.com/lexcodex/gnhelper/framework"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func newPkgConfigCmd(app *application) *cobra.Command {
	var (
		path   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "pkg-config [-p PATH] PKG [PKG...]",
		Short: "Report pkg-config flags for packages as JSON",
		Long: `Queries pkg-config for the compiler and linker flags of the named packages
and prints them as one JSON object with the keys cflags, include_dirs,
ldflags, lib_dirs and libs.

PATH (default: the project root) is appended to the inherited search path
variable. A compiler flag other than -D or -I aborts with status ENOTSUP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError(cmd, errNoPackages)
			}
			if format != formatJSON && format != formatYAML {
				return usageError(cmd, fmt.Errorf("unknown format %q", format))
			}
			if err := cliutils.BindFlags(app.viper, cmd.Flags(), map[string]string{
				"pkg_config.silence_errors": "silence-errors",
			}); err != nil {
				return err
			}
			app.settings.PkgConfig.SilenceErrors = app.viper.GetBool("pkg_config.silence_errors")

			if path == "" {
				path = app.root.Dir
			}
			flags, err := app.pkgConfig(path).Query(cmd.Context(), args)
			if err != nil {
				return err
			}
			app.logger.Debug("classified flags", zap.Strings("packages", args),
				zap.Int("cflags", len(flags.Cflags)), zap.Int("include_dirs", len(flags.IncludeDirs)),
				zap.Int("libs", len(flags.Libs)), zap.Int("lib_dirs", len(flags.LibDirs)),
				zap.Int("ldflags", len(flags.Ldflags)))
			return writeFlagSet(cmd, flags, format)
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Directory appended to the pkg-config search path (default is the project root)")
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format (json, yaml)")
	cmd.Flags().Bool("silence-errors", false, "Pass --silence-errors to pkg-config")
	return cmd
}

// writeFlagSet prints the result in one write so nothing partial reaches
// stdout. JSON has no trailing newline, matching what exec_script parses.
func writeFlagSet(cmd *cobra.Command, flags framework.FlagSet, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case formatYAML:
		data, err = yaml.Marshal(flags)
	default:
		data, err = json.Marshal(flags)
	}
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
