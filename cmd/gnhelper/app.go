package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lexcodex/gnhelper/cmd/internal/cliutils"
	"github.com/lexcodex/gnhelper/cmd/internal/workspacecfg"
	"github.com/lexcodex/gnhelper/framework"
	"github.com/lexcodex/gnhelper/tools/cli_nix/build"
)

// application holds the process-facing dependencies of the helpers. Only
// newApplication reads the real process state; tests build it by hand.
type application struct {
	fs     afero.Fs
	env    cliutils.Environment
	getwd  func() (string, error)
	pid    int
	now    func() time.Time
	stderr io.Writer
	// runner defaults to an ExecCommandRunner over childEnv.
	runner framework.CommandRunner
	// lookPath overrides PATH lookup in doctor when set.
	lookPath func(string) (string, error)

	logLevel      string
	configPath    string
	marker        string
	invocationLog string

	logger   *zap.Logger
	viper    *viper.Viper
	settings *workspacecfg.Settings
	workdir  string
	root     framework.Root
	childEnv cliutils.Environment
}

func newApplication() *application {
	return &application{
		fs:     afero.NewOsFs(),
		env:    cliutils.EnvironmentFrom(os.Environ()),
		getwd:  os.Getwd,
		pid:    os.Getpid(),
		now:    time.Now,
		stderr: os.Stderr,
	}
}

// prepare resolves logging, the project root, settings and the child
// environment. It runs once before every subcommand.
func (a *application) prepare(cmd *cobra.Command) error {
	logger, err := cliutils.NewLogger(a.logLevel, a.stderr)
	if err != nil {
		return &framework.ExitError{Code: framework.ExitUsage, Message: err.Error()}
	}
	a.logger = logger

	a.workdir, err = a.getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	a.viper, err = workspacecfg.NewViper(a.env)
	if err != nil {
		return err
	}
	if err := cliutils.BindFlags(a.viper, cmd.Root().PersistentFlags(), map[string]string{
		"marker":         "marker",
		"invocation_log": "invocation-log",
	}); err != nil {
		return err
	}

	// The settings file lives at the root, so the first search uses the
	// marker from defaults, GNHELPER_MARKER and --marker only.
	marker := a.viper.GetString("marker")
	a.root, err = framework.NewRootLocator(a.fs, marker).Locate(a.workdir)
	if err != nil {
		return err
	}

	settingsRoot := ""
	if a.root.Found {
		settingsRoot = a.root.Dir
	}
	a.settings, err = workspacecfg.Load(a.viper, a.fs, a.env, settingsRoot, a.configPath)
	if err != nil {
		return err
	}
	if a.settings.Marker != marker {
		a.logger.Debug("settings changed the root marker, searching again",
			zap.String("from", marker), zap.String("to", a.settings.Marker), zap.String("source", a.settings.Source))
		marker = a.settings.Marker
		a.root, err = framework.NewRootLocator(a.fs, marker).Locate(a.workdir)
		if err != nil {
			return err
		}
	}
	if a.root.Found {
		a.logger.Debug("project root located", zap.String("root", a.root.Dir), zap.Int("steps", a.root.Steps))
	} else {
		a.logger.Warn("project root marker not found, using fallback",
			zap.String("marker", marker), zap.String("start", a.workdir), zap.String("fallback", a.root.Dir))
	}

	a.childEnv = a.env
	if a.root.Found && a.settings.EnvFile != "" {
		dotenv, err := cliutils.LoadDotEnv(a.fs, filepath.Join(a.root.Dir, a.settings.EnvFile))
		if err != nil {
			return err
		}
		if len(dotenv) > 0 {
			a.logger.Debug("loaded project environment", zap.String("file", a.settings.EnvFile), zap.Int("vars", len(dotenv)))
			a.childEnv = a.env.WithDefaults(dotenv)
		}
	}

	if a.root.Found {
		if path := a.settings.InvocationLogPath(a.root.Dir); path != "" {
			a.recordInvocation(framework.NewFileInvocationLog(a.fs, path))
		}
	}

	if a.runner == nil {
		a.runner = framework.NewExecCommandRunner(a.childEnv.Pairs(), a.stderr)
	}
	return nil
}

// recordInvocation writes the diagnostic line; failures only warn.
func (a *application) recordInvocation(sink framework.InvocationSink) {
	if sink == nil {
		return
	}
	if err := sink.Record(a.pid, a.now()); err != nil {
		a.logger.Warn("unable to record invocation", zap.Error(err))
	}
}

// searchPath returns the NAME=VALUE parts for the pkg-config search path,
// extending the inherited value with path.
func (a *application) searchPath(path string) (string, string) {
	name := a.settings.SearchPathVar
	current, present := a.childEnv.Lookup(name)
	return name, framework.ResolveSearchPath(current, present, path)
}

func (a *application) pkgConfig(searchPath string) *build.PkgConfig {
	name, value := a.searchPath(searchPath)
	a.logger.Debug("pkg-config search path", zap.String(name, value))
	return build.NewPkgConfigTool("", a.runner, build.PkgConfigOptions{
		Command:       a.settings.PkgConfig.Command,
		SilenceErrors: a.settings.PkgConfig.SilenceErrors,
		Timeout:       a.settings.Timeout,
		SearchPathVar: name,
		SearchPath:    value,
	})
}

func (a *application) conan() *build.Conan {
	return build.NewConanTool("", a.runner, build.ConanOptions{
		Command: a.settings.Conan.Command,
		Timeout: a.settings.Timeout,
	})
}

func usageError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	return &framework.ExitError{Code: framework.ExitUsage, Message: fmt.Sprintf("%v\n%s", err, cmd.UsageString())}
}

var errNoPackages = errors.New("requires at least one package name")
