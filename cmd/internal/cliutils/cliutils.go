// Package cliutils is the boundary between the helpers and the process: it
// snapshots the environment, reads .env files and builds the logger.
package cliutils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment is a snapshot of environment variables.
type Environment map[string]string

// EnvironmentFrom parses KEY=VALUE pairs as returned by os.Environ.
func EnvironmentFrom(pairs []string) Environment {
	env := Environment{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Lookup reports the value of key and whether it is set.
func (e Environment) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

// WithDefaults returns a copy of e where keys missing from e take their value
// from defaults. Variables already set win, as with godotenv.Load.
func (e Environment) WithDefaults(defaults map[string]string) Environment {
	out := make(Environment, len(e)+len(defaults))
	for key, value := range defaults {
		out[key] = value
	}
	for key, value := range e {
		out[key] = value
	}
	return out
}

// Pairs renders the environment as sorted KEY=VALUE entries.
func (e Environment) Pairs() []string {
	keys := make([]string, 0, len(e))
	for key := range e {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+e[key])
	}
	return pairs
}

// LoadDotEnv parses a .env file. A missing file yields no values.
func LoadDotEnv(fsys afero.Fs, path string) (map[string]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	values, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

// NewLogger builds a console logger writing to w at the named level.
func NewLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core).Named("gnhelper"), nil
}

// BindFlags binds named flags to viper keys. Flags missing from the set are
// reported as errors.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag --%s not defined", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}
