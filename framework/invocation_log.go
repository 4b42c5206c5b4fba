package framework

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// InvocationTimeLayout formats the timestamp written for each invocation.
const InvocationTimeLayout = "2006-01-02 15:04:05"

// InvocationSink records that a helper process ran. Recording is best effort;
// callers log failures and carry on.
type InvocationSink interface {
	Record(pid int, at time.Time) error
}

// FormatInvocation renders one invocation log line, newline included.
func FormatInvocation(pid int, at time.Time) string {
	return fmt.Sprintf("%d - %s\n", pid, at.Format(InvocationTimeLayout))
}

// FileInvocationLog appends invocation lines to a file.
type FileInvocationLog struct {
	Fs   afero.Fs
	Path string
}

// NewFileInvocationLog returns a sink appending to path on fsys.
func NewFileInvocationLog(fsys afero.Fs, path string) *FileInvocationLog {
	return &FileInvocationLog{Fs: fsys, Path: path}
}

// Record appends one line for pid at the given time.
func (l *FileInvocationLog) Record(pid int, at time.Time) error {
	if l == nil || l.Fs == nil {
		return errors.New("invocation log missing filesystem")
	}
	if l.Path == "" {
		return errors.New("invocation log path required")
	}
	if err := l.Fs.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("create invocation log dir: %w", err)
	}
	f, err := l.Fs.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open invocation log: %w", err)
	}
	if _, err := f.WriteString(FormatInvocation(pid, at)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write invocation log: %w", err)
	}
	return f.Close()
}
