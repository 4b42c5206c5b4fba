package workspacecfg

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/lexcodex/gnhelper/framework"
)

// FileName is the optional per-project settings file at the source root.
const FileName = ".gnhelper.yaml"

// EnvPrefix namespaces environment overrides, e.g. GNHELPER_PKG_CONFIG_COMMAND.
const EnvPrefix = "GNHELPER"

// Settings is the effective helper configuration. Fields are checked with
// go-playground/validator tags after decoding.
type Settings struct {
	Marker        string            `mapstructure:"marker" yaml:"marker" validate:"required"`
	SearchPathVar string            `mapstructure:"search_path_var" yaml:"search_path_var" validate:"required,excludesall=:="`
	EnvFile       string            `mapstructure:"env_file" yaml:"env_file"`
	InvocationLog string            `mapstructure:"invocation_log" yaml:"invocation_log"`
	Timeout       time.Duration     `mapstructure:"timeout" yaml:"timeout" validate:"gte=0s"`
	PkgConfig     PkgConfigSettings `mapstructure:"pkg_config" yaml:"pkg_config"`
	Conan         ConanSettings     `mapstructure:"conan" yaml:"conan"`
	// Source is the settings file that was read, empty when none was.
	Source string `mapstructure:"-" yaml:"-"`
}

// PkgConfigSettings configures the pkg-config wrapper.
type PkgConfigSettings struct {
	Command       string `mapstructure:"command" yaml:"command" validate:"required"`
	SilenceErrors bool   `mapstructure:"silence_errors" yaml:"silence_errors"`
	MinVersion    string `mapstructure:"min_version" yaml:"min_version"`
}

// ConanSettings configures the conan wrapper.
type ConanSettings struct {
	Command    string `mapstructure:"command" yaml:"command" validate:"required"`
	MinVersion string `mapstructure:"min_version" yaml:"min_version"`
}

var validate = validator.New()

// NewViper returns a viper instance carrying defaults and the GNHELPER_*
// overrides found in env, but no settings file yet.
func NewViper(env map[string]string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("marker", framework.DefaultRootMarker)
	v.SetDefault("search_path_var", framework.DefaultSearchPathVar)
	v.SetDefault("env_file", ".env")
	v.SetDefault("invocation_log", "")
	v.SetDefault("timeout", "0s")
	v.SetDefault("pkg_config.command", "pkg-config")
	v.SetDefault("pkg_config.silence_errors", false)
	v.SetDefault("pkg_config.min_version", "0.29")
	v.SetDefault("conan.command", "conan")
	v.SetDefault("conan.min_version", "2.0.0")
	if err := mergeEnv(v, env); err != nil {
		return nil, err
	}
	return v, nil
}

// EnvKey returns the environment variable overriding key, e.g.
// GNHELPER_PKG_CONFIG_COMMAND for pkg_config.command.
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// mergeEnv layers the overrides in env over whatever config v holds. Only
// known keys are considered, so unrelated GNHELPER_ variables are ignored.
func mergeEnv(v *viper.Viper, env map[string]string) error {
	overrides := map[string]any{}
	for _, key := range v.AllKeys() {
		value, ok := env[EnvKey(key)]
		if !ok {
			continue
		}
		node := overrides
		parts := strings.Split(key, ".")
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		typed, err := coerce(v.Get(key), value)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvKey(key), err)
		}
		node[parts[len(parts)-1]] = typed
	}
	if len(overrides) == 0 {
		return nil
	}
	if err := v.MergeConfigMap(overrides); err != nil {
		return fmt.Errorf("apply %s_ overrides: %w", EnvPrefix, err)
	}
	return nil
}

// coerce converts raw to the type key currently holds so the merge does not
// mix a string into a boolean or numeric setting.
func coerce(current any, raw string) (any, error) {
	switch current.(type) {
	case bool:
		return cast.ToBoolE(raw)
	case int:
		return cast.ToIntE(raw)
	case float64:
		return cast.ToFloat64E(raw)
	default:
		return raw, nil
	}
}

// Load layers the settings file over v, the overrides in env over the file,
// and decodes the result. explicit, when set, must exist; otherwise FileName
// under root is read if present. Flags bound to v win over all of these.
func Load(v *viper.Viper, fsys afero.Fs, env map[string]string, root, explicit string) (*Settings, error) {
	if v == nil {
		return nil, errors.New("viper instance required")
	}
	v.SetFs(fsys)
	path := explicit
	if path == "" && root != "" {
		candidate := filepath.Join(root, FileName)
		if _, err := fsys.Stat(candidate); err == nil {
			path = candidate
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
		// ReadInConfig replaces the merged overrides; put them back on top.
		if err := mergeEnv(v, env); err != nil {
			return nil, err
		}
	}
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if settings.Marker == "" {
		settings.Marker = framework.DefaultRootMarker
	}
	if err := validate.Struct(&settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	settings.Source = path
	return &settings, nil
}

// InvocationLogPath resolves the invocation log against the project root.
// It returns "" when logging is disabled.
func (s *Settings) InvocationLogPath(root string) string {
	if s == nil || s.InvocationLog == "" {
		return ""
	}
	if filepath.IsAbs(s.InvocationLog) {
		return s.InvocationLog
	}
	return filepath.Join(root, s.InvocationLog)
}
