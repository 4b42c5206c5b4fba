package build

import (
	"context"
	"errors"
	"time"

	"github.com/lexcodex/gnhelper/framework"
	clinix "github.com/lexcodex/gnhelper/tools/cli_nix"
)

// PkgConfigOptions configures the pkg-config wrapper.
type PkgConfigOptions struct {
	Command       string
	SilenceErrors bool
	Timeout       time.Duration
	// SearchPathVar and SearchPath, when both set, are exported to the child.
	SearchPathVar string
	SearchPath    string
}

// PkgConfig queries compiler and linker flags with pkg-config.
type PkgConfig struct {
	tool *clinix.CommandTool
	env  []string
}

// NewPkgConfigTool exposes the pkg-config CLI.
func NewPkgConfigTool(basePath string, runner framework.CommandRunner, opts PkgConfigOptions) *PkgConfig {
	if opts.Command == "" {
		opts.Command = "pkg-config"
	}
	var defaults []string
	if opts.SilenceErrors {
		defaults = append(defaults, "--silence-errors")
	}
	var env []string
	if opts.SearchPathVar != "" && opts.SearchPath != "" {
		env = append(env, opts.SearchPathVar+"="+opts.SearchPath)
	}
	return &PkgConfig{
		tool: clinix.NewCommandTool(basePath, runner, clinix.CommandToolConfig{
			Name:        "cli_pkg_config",
			Description: "Queries compiler flags with pkg-config.",
			Command:     opts.Command,
			Category:    "cli_build",
			DefaultArgs: defaults,
			Timeout:     opts.Timeout,
		}),
		env: env,
	}
}

func (p *PkgConfig) Name() string    { return p.tool.Name() }
func (p *PkgConfig) Command() string { return p.tool.Command() }

// Env lists the environment entries passed to every pkg-config child.
func (p *PkgConfig) Env() []string { return append([]string{}, p.env...) }

// Query classifies the flags of packages. Compiler flags are classified
// before the linker query runs, so an unsupported compiler flag stops the
// second child from being spawned.
func (p *PkgConfig) Query(ctx context.Context, packages []string) (framework.FlagSet, error) {
	if len(packages) == 0 {
		return framework.FlagSet{}, errors.New("at least one package name is required")
	}
	cflagWords, err := p.tool.Words(ctx, withFlag(packages, "--cflags"), p.env)
	if err != nil {
		return framework.FlagSet{}, err
	}
	cflags, includeDirs, err := framework.ClassifyCompilerFlags(cflagWords)
	if err != nil {
		return framework.FlagSet{}, err
	}
	libWords, err := p.tool.Words(ctx, withFlag(packages, "--libs"), p.env)
	if err != nil {
		return framework.FlagSet{}, err
	}
	libs, libDirs, ldflags := framework.ClassifyLinkerFlags(libWords)
	return framework.FlagSet{
		Cflags:      cflags,
		IncludeDirs: includeDirs,
		Ldflags:     ldflags,
		LibDirs:     libDirs,
		Libs:        libs,
	}, nil
}

// Version reports the pkg-config version string.
func (p *PkgConfig) Version(ctx context.Context) (string, error) {
	return p.tool.FirstLine(ctx, "--version")
}

func withFlag(packages []string, flag string) []string {
	args := make([]string, 0, len(packages)+1)
	args = append(args, packages...)
	return append(args, flag)
}
