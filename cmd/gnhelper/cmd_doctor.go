package main

import (
	"github.com/spf13/cobra"

	"github.com/lexcodex/gnhelper/cmd/internal/setup"
	"github.com/lexcodex/gnhelper/framework"
	"github.com/lexcodex/gnhelper/tools/cli_nix/build"
)

func newDoctorCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the wrapped tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doctor := setup.NewDoctor()
			if app.lookPath != nil {
				doctor.LookPath = app.lookPath
			}
			pkgConfig := app.pkgConfig(app.root.Dir)
			conan := app.conan()
			tools := build.Tools(pkgConfig, conan)
			minimums := map[string]string{
				pkgConfig.Name(): app.settings.PkgConfig.MinVersion,
				conan.Name():     app.settings.Conan.MinVersion,
			}
			reqs := make([]setup.Requirement, 0, len(tools))
			for _, tool := range tools {
				reqs = append(reqs, setup.Requirement{Tool: tool, MinVersion: minimums[tool.Name()]})
			}
			statuses := doctor.Detect(cmd.Context(), reqs)
			if err := setup.Render(cmd.OutOrStdout(), statuses); err != nil {
				return err
			}
			if !setup.Healthy(statuses) {
				return &framework.ExitError{Code: framework.ExitFailure, Message: "required build tools are missing or outdated"}
			}
			return nil
		},
	}
}
