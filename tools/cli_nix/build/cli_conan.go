package build

import (
	"context"
	"time"

	"github.com/lexcodex/gnhelper/framework"
	clinix "github.com/lexcodex/gnhelper/tools/cli_nix"
)

// ConanOptions configures the conan wrapper.
type ConanOptions struct {
	Command string
	Timeout time.Duration
}

// Conan forwards invocations to the conan package manager.
type Conan struct {
	tool *clinix.CommandTool
}

// NewConanTool exposes the conan CLI.
func NewConanTool(basePath string, runner framework.CommandRunner, opts ConanOptions) *Conan {
	if opts.Command == "" {
		opts.Command = "conan"
	}
	return &Conan{tool: clinix.NewCommandTool(basePath, runner, clinix.CommandToolConfig{
		Name:        "cli_conan",
		Description: "C/C++ package manager.",
		Command:     opts.Command,
		Category:    "cli_build",
		Timeout:     opts.Timeout,
	})}
}

func (c *Conan) Name() string    { return c.tool.Name() }
func (c *Conan) Command() string { return c.tool.Command() }

// Run passes args to conan verbatim and fails with conan's status when it
// exits non-zero.
func (c *Conan) Run(ctx context.Context, args []string) (framework.ProcessResult, error) {
	return c.tool.RunChecked(ctx, args, nil)
}

// Version reports the conan version banner, e.g. "Conan version 2.3.0".
func (c *Conan) Version(ctx context.Context) (string, error) {
	return c.tool.FirstLine(ctx, "--version")
}
