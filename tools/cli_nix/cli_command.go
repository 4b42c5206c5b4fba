package clinix

import (
	"bufio"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexcodex/gnhelper/framework"
)

// CommandToolConfig captures metadata for wrapping an external CLI utility.
type CommandToolConfig struct {
	Name        string
	Description string
	Command     string
	Category    string
	DefaultArgs []string
	Timeout     time.Duration
}

// CommandTool executes a configured CLI binary with caller-provided arguments.
type CommandTool struct {
	cfg      CommandToolConfig
	basePath string
	runner   framework.CommandRunner
}

// NewCommandTool builds a reusable CLI wrapper. A zero timeout lets the child
// run until it exits.
func NewCommandTool(basePath string, runner framework.CommandRunner, cfg CommandToolConfig) *CommandTool {
	if cfg.Category == "" {
		cfg.Category = "cli"
	}
	if cfg.Name == "" {
		cfg.Name = "cli_" + strings.ReplaceAll(filepath.Base(cfg.Command), "-", "_")
	}
	return &CommandTool{cfg: cfg, basePath: basePath, runner: runner}
}

func (t *CommandTool) Name() string        { return t.cfg.Name }
func (t *CommandTool) Description() string { return t.cfg.Description }
func (t *CommandTool) Category() string    { return t.cfg.Category }
func (t *CommandTool) Command() string     { return t.cfg.Command }

// Request assembles the command line: binary, default args, then args.
func (t *CommandTool) Request(args []string, env []string) framework.CommandRequest {
	argv := make([]string, 0, 1+len(t.cfg.DefaultArgs)+len(args))
	argv = append(argv, t.cfg.Command)
	argv = append(argv, t.cfg.DefaultArgs...)
	argv = append(argv, args...)
	return framework.CommandRequest{
		Workdir: t.basePath,
		Args:    argv,
		Env:     env,
		Timeout: t.cfg.Timeout,
	}
}

// Run executes the tool and reports its exit status without judging it.
func (t *CommandTool) Run(ctx context.Context, args []string, env []string) (framework.ProcessResult, error) {
	if t.runner == nil {
		return framework.ProcessResult{}, errors.New("command runner missing")
	}
	return t.runner.Run(ctx, t.Request(args, env))
}

// RunChecked executes the tool and fails with its status when non-zero.
func (t *CommandTool) RunChecked(ctx context.Context, args []string, env []string) (framework.ProcessResult, error) {
	if t.runner == nil {
		return framework.ProcessResult{}, errors.New("command runner missing")
	}
	return framework.RunChecked(ctx, t.runner, t.Request(args, env))
}

// Words executes the tool and splits its stdout into shell words.
func (t *CommandTool) Words(ctx context.Context, args []string, env []string) ([]string, error) {
	if t.runner == nil {
		return nil, errors.New("command runner missing")
	}
	return framework.ShellOutput(ctx, t.runner, t.Request(args, env))
}

// FirstLine runs the tool checked and returns the first non-empty output line.
func (t *CommandTool) FirstLine(ctx context.Context, args ...string) (string, error) {
	result, err := t.RunChecked(ctx, args, nil)
	if err != nil {
		return "", err
	}
	scanner := bufio.NewScanner(strings.NewReader(result.Output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", errors.New(t.cfg.Command + " printed nothing")
}
