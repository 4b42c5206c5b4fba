// Package setup inspects the host for the tools the helpers wrap.
package setup

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/mod/semver"

	"github.com/lexcodex/gnhelper/tools/cli_nix/build"
)

// CheckStatus represents the result of a single tool check.
type CheckStatus int

const (
	StatusOK CheckStatus = iota
	StatusWarn
	StatusError
)

func (s CheckStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarn:
		return "warn"
	default:
		return "error"
	}
}

// Requirement pairs a wrapped tool with its minimum supported version.
type Requirement struct {
	Tool       build.VersionedTool
	MinVersion string
}

// ToolStatus holds the outcome of checking one tool.
type ToolStatus struct {
	Name       string
	Command    string
	Path       string
	Version    string
	MinVersion string
	Status     CheckStatus
	Message    string
}

// Doctor checks wrapped tools for presence and version.
type Doctor struct {
	LookPath func(file string) (string, error)
}

// NewDoctor returns a doctor resolving binaries on PATH.
func NewDoctor() *Doctor {
	return &Doctor{LookPath: exec.LookPath}
}

var versionPattern = regexp.MustCompile(`\d+(?:\.\d+)+`)

// ParseVersion extracts the first dotted version number from a banner such
// as "Conan version 2.3.0". It returns "" when there is none.
func ParseVersion(banner string) string {
	return versionPattern.FindString(banner)
}

// Detect checks every requirement in order.
func (d *Doctor) Detect(ctx context.Context, reqs []Requirement) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(reqs))
	for _, req := range reqs {
		statuses = append(statuses, d.check(ctx, req))
	}
	return statuses
}

func (d *Doctor) check(ctx context.Context, req Requirement) ToolStatus {
	status := ToolStatus{
		Name:       req.Tool.Name(),
		Command:    req.Tool.Command(),
		MinVersion: req.MinVersion,
	}
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(status.Command)
	if err != nil {
		status.Status = StatusError
		status.Message = fmt.Sprintf("%s not found in PATH", status.Command)
		return status
	}
	status.Path = path
	banner, err := req.Tool.Version(ctx)
	if err != nil {
		status.Status = StatusWarn
		status.Message = "unable to query version: " + err.Error()
		return status
	}
	status.Version = ParseVersion(banner)
	if status.Version == "" {
		status.Status = StatusWarn
		status.Message = fmt.Sprintf("unable to parse version from %q", banner)
		return status
	}
	if req.MinVersion == "" {
		status.Status = StatusOK
		return status
	}
	have, want := "v"+status.Version, "v"+req.MinVersion
	if !semver.IsValid(have) || !semver.IsValid(want) {
		status.Status = StatusWarn
		status.Message = fmt.Sprintf("cannot compare %s with minimum %s", status.Version, req.MinVersion)
		return status
	}
	if semver.Compare(have, want) < 0 {
		status.Status = StatusError
		status.Message = fmt.Sprintf("%s %s installed, minimum supported is %s", status.Command, status.Version, req.MinVersion)
		return status
	}
	status.Status = StatusOK
	return status
}

// Healthy reports whether no check ended in an error.
func Healthy(statuses []ToolStatus) bool {
	for _, s := range statuses {
		if s.Status == StatusError {
			return false
		}
	}
	return true
}

// Render writes the statuses as a table followed by a summary line.
func Render(w io.Writer, statuses []ToolStatus) error {
	table := tablewriter.NewWriter(w)
	table.Header("Tool", "Path", "Version", "Minimum", "Status", "Notes")
	for _, s := range statuses {
		if err := table.Append([]string{s.Command, s.Path, s.Version, s.MinVersion, s.Status.String(), s.Message}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, summary(statuses))
	return err
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func summary(statuses []ToolStatus) string {
	if Healthy(statuses) {
		return okStyle.Render("✓ all build tools available")
	}
	var failed []string
	for _, s := range statuses {
		if s.Status == StatusError {
			failed = append(failed, s.Command)
		}
	}
	return failStyle.Render("✗ tool check failed: " + strings.Join(failed, ", "))
}
