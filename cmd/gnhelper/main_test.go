package main

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lexcodex/gnhelper/cmd/internal/cliutils"
	"github.com/lexcodex/gnhelper/framework"
)

// fakeRunner answers by the last argument of each request, e.g. "--cflags".
type fakeRunner struct {
	results  map[string]framework.ProcessResult
	requests []framework.CommandRequest
}

func (f *fakeRunner) Run(ctx context.Context, req framework.CommandRequest) (framework.ProcessResult, error) {
	f.requests = append(f.requests, req)
	key := req.Args[len(req.Args)-1]
	if result, ok := f.results[key]; ok {
		return result, nil
	}
	if result, ok := f.results[req.Args[0]]; ok {
		return result, nil
	}
	return framework.ProcessResult{}, errors.New("unexpected command " + strings.Join(req.Args, " "))
}

type harness struct {
	fs     afero.Fs
	runner *fakeRunner
	app    *application
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T, env ...string) *harness {
	t.Helper()
	h := &harness{
		fs:     afero.NewMemMapFs(),
		runner: &fakeRunner{results: map[string]framework.ProcessResult{}},
	}
	require.NoError(t, h.fs.MkdirAll("/src/proj/out", 0o755))
	require.NoError(t, afero.WriteFile(h.fs, "/src/proj/.gn", []byte("buildconfig = \"//build/BUILDCONFIG.gn\"\n"), 0o644))
	h.app = &application{
		fs:     h.fs,
		env:    cliutils.EnvironmentFrom(env),
		getwd:  func() (string, error) { return "/src/proj/out", nil },
		pid:    4242,
		now:    func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
		stderr: &h.stderr,
		runner: h.runner,
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := newRootCmd(h.app)
	cmd.SetArgs(args)
	cmd.SetOut(&h.stdout)
	cmd.SetErr(&h.stderr)
	return cmd.ExecuteContext(context.Background())
}

func (h *harness) scriptPkgConfig(cflags, libs string) {
	h.runner.results["--cflags"] = framework.ProcessResult{Output: cflags}
	h.runner.results["--libs"] = framework.ProcessResult{Output: libs}
}

func TestPkgConfigPrintsSortedJSON(t *testing.T) {
	h := newHarness(t, "PKG_CONFIG_PATH=/usr/lib/pkgconfig")
	h.scriptPkgConfig("-DZLIB_CONST -I/opt/zlib/include\n", "-L/opt/zlib/lib -lz -pthread\n")

	require.NoError(t, h.run("pkg-config", "zlib"))
	require.Equal(t,
		`{"cflags":["-DZLIB_CONST"],"include_dirs":["/opt/zlib/include"],"ldflags":["-pthread"],"lib_dirs":["/opt/zlib/lib"],"libs":["z"]}`,
		h.stdout.String())

	require.Len(t, h.runner.requests, 2)
	require.Equal(t, []string{"pkg-config", "zlib", "--cflags"}, h.runner.requests[0].Args)
	require.Equal(t, []string{"pkg-config", "zlib", "--libs"}, h.runner.requests[1].Args)
	require.Contains(t, h.runner.requests[0].Env, "PKG_CONFIG_PATH=/usr/lib/pkgconfig:/src/proj")
}

func TestPkgConfigExplicitPathWithoutInheritedValue(t *testing.T) {
	h := newHarness(t)
	h.scriptPkgConfig("", "")

	require.NoError(t, h.run("pkg-config", "-p", "/opt/sdk/pkgconfig", "a", "b"))
	require.Equal(t, `{"cflags":[],"include_dirs":[],"ldflags":[],"lib_dirs":[],"libs":[]}`, h.stdout.String())
	require.Equal(t, []string{"pkg-config", "a", "b", "--cflags"}, h.runner.requests[0].Args)
	require.Contains(t, h.runner.requests[0].Env, "PKG_CONFIG_PATH=/opt/sdk/pkgconfig")
}

func TestPkgConfigEmptyInheritedValueKeepsSeparator(t *testing.T) {
	h := newHarness(t, "PKG_CONFIG_PATH=")
	h.scriptPkgConfig("", "")

	require.NoError(t, h.run("pkg-config", "--path", "/x", "a"))
	require.Contains(t, h.runner.requests[0].Env, "PKG_CONFIG_PATH=:/x")
}

func TestPkgConfigUnsupportedCompilerFlag(t *testing.T) {
	h := newHarness(t)
	h.scriptPkgConfig("-DA -pthread\n", "-lz\n")

	err := h.run("pkg-config", "zlib")
	require.Error(t, err)
	require.ErrorIs(t, err, framework.ErrUnsupportedFlag)
	require.Equal(t, int(syscall.ENOTSUP), framework.ExitCodeFor(err))
	require.Empty(t, h.stdout.String())
	require.Len(t, h.runner.requests, 1, "linker query must not run")
}

func TestPkgConfigForwardsChildStatus(t *testing.T) {
	h := newHarness(t)
	h.runner.results["--cflags"] = framework.ProcessResult{ExitCode: 3, Stderr: "Package missing was not found\n"}

	err := h.run("pkg-config", "missing")
	require.Error(t, err)
	require.Equal(t, 3, framework.ExitCodeFor(err))
	require.Empty(t, h.stdout.String())
}

func TestPkgConfigUsageErrors(t *testing.T) {
	cases := map[string][]string{
		"no packages":  {"pkg-config"},
		"bad format":   {"pkg-config", "--format", "toml", "zlib"},
		"unknown flag": {"pkg-config", "--bogus", "zlib"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			err := h.run(args...)
			require.Error(t, err)
			require.Equal(t, framework.ExitUsage, framework.ExitCodeFor(err))
			require.Empty(t, h.runner.requests)
		})
	}
}

func TestPkgConfigYAMLFormat(t *testing.T) {
	h := newHarness(t)
	h.scriptPkgConfig("-I/inc\n", "-lm\n")

	require.NoError(t, h.run("pkg-config", "--format", "yaml", "m"))
	out := h.stdout.String()
	require.Contains(t, out, "include_dirs:\n    - /inc\n")
	require.Contains(t, out, "libs:\n    - m\n")
	require.Less(t, strings.Index(out, "cflags:"), strings.Index(out, "include_dirs:"))
}

func TestPkgConfigSilenceErrors(t *testing.T) {
	h := newHarness(t)
	h.scriptPkgConfig("", "")

	require.NoError(t, h.run("pkg-config", "--silence-errors", "zlib"))
	require.Equal(t, []string{"pkg-config", "--silence-errors", "zlib", "--cflags"}, h.runner.requests[0].Args)
}

func TestPkgConfigDotEnvLayersUnderProcessEnv(t *testing.T) {
	h := newHarness(t, "OTHER=1")
	require.NoError(t, afero.WriteFile(h.fs, "/src/proj/.env", []byte("PKG_CONFIG_PATH=/from/dotenv\n"), 0o644))
	h.scriptPkgConfig("", "")

	require.NoError(t, h.run("pkg-config", "zlib"))
	require.Contains(t, h.runner.requests[0].Env, "PKG_CONFIG_PATH=/from/dotenv:/src/proj")
}

func TestPkgConfigSettingsFileCommand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/src/proj/.gnhelper.yaml", []byte("pkg_config:\n  command: pkgconf\n"), 0o644))
	h.scriptPkgConfig("", "")

	require.NoError(t, h.run("pkg-config", "zlib"))
	require.Equal(t, "pkgconf", h.runner.requests[0].Args[0])
}

func TestConanPassesArgumentsVerbatim(t *testing.T) {
	h := newHarness(t)
	h.runner.results["conan"] = framework.ProcessResult{Output: "installed\n"}

	require.NoError(t, h.run("--log-level", "debug", "conan", "install", ".", "--build=missing", "-s", "build_type=Release"))
	require.Len(t, h.runner.requests, 1)
	require.Equal(t, []string{"conan", "install", ".", "--build=missing", "-s", "build_type=Release"}, h.runner.requests[0].Args)
	require.Empty(t, h.stdout.String())
	require.Contains(t, h.stderr.String(), "installed")
}

func TestConanForwardsExitStatus(t *testing.T) {
	h := newHarness(t)
	h.runner.results["conan"] = framework.ProcessResult{ExitCode: 6}

	err := h.run("conan", "create", ".")
	require.Error(t, err)
	require.Equal(t, 6, framework.ExitCodeFor(err))
}

func TestInvocationLogFromSettingsFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/src/proj/.gnhelper.yaml", []byte("invocation_log: out/gnhelper.log\n"), 0o644))
	h.runner.results["conan"] = framework.ProcessResult{}

	require.NoError(t, h.run("conan", "--help"))
	require.NoError(t, h.run("conan", "--help"))
	data, err := afero.ReadFile(h.fs, "/src/proj/out/gnhelper.log")
	require.NoError(t, err)
	require.Equal(t, "4242 - 2024-03-01 12:00:00\n4242 - 2024-03-01 12:00:00\n", string(data))
}

func TestInvocationLogFlag(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("--invocation-log", "calls.log", "root"))
	data, err := afero.ReadFile(h.fs, "/src/proj/calls.log")
	require.NoError(t, err)
	require.Equal(t, "4242 - 2024-03-01 12:00:00\n", string(data))
}

func TestInvocationLogFailureOnlyWarns(t *testing.T) {
	h := newHarness(t)
	h.app.fs = afero.NewReadOnlyFs(h.fs)

	require.NoError(t, h.run("--invocation-log", "calls.log", "root"))
	require.Equal(t, "/src/proj\n", h.stdout.String())
	require.Contains(t, h.stderr.String(), "unable to record invocation")
}

func TestRootCommand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("root"))
	require.Equal(t, "/src/proj\n", h.stdout.String())
}

func TestRootCommandFallback(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.fs.Remove("/src/proj/.gn"))

	require.NoError(t, h.run("root"))
	require.Equal(t, "./\n", h.stdout.String())
	require.Contains(t, h.stderr.String(), "marker not found")
}

func TestRootMarkerFromSettingsFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/src/proj/.gnhelper.yaml", []byte("marker: WORKSPACE\n"), 0o644))
	require.NoError(t, afero.WriteFile(h.fs, "/src/proj/out/WORKSPACE", nil, 0o644))

	require.NoError(t, h.run("root"))
	require.Equal(t, "/src/proj/out\n", h.stdout.String())

	h.stdout.Reset()
	require.NoError(t, h.run("config"))
	require.Contains(t, h.stdout.String(), "marker: WORKSPACE\n")
}

func TestRootMarkerFromExplicitSettingsFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.fs.Remove("/src/proj/.gn"))
	require.NoError(t, afero.WriteFile(h.fs, "/etc/gnhelper.yaml", []byte("marker: BUILD.root\n"), 0o644))
	require.NoError(t, afero.WriteFile(h.fs, "/src/BUILD.root", nil, 0o644))

	require.NoError(t, h.run("--config", "/etc/gnhelper.yaml", "root"))
	require.Equal(t, "/src\n", h.stdout.String())
	require.NotContains(t, h.stderr.String(), "marker not found")
}

func TestRootMarkerOverrides(t *testing.T) {
	cases := []struct {
		name string
		env  []string
		args []string
	}{
		{name: "flag", args: []string{"--marker", "WORKSPACE", "root"}},
		{name: "flag over settings file", args: []string{"--config", "/src/proj/.gnhelper.yaml", "--marker", "WORKSPACE", "root"}},
		{name: "environment", env: []string{"GNHELPER_MARKER=WORKSPACE"}, args: []string{"root"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.env...)
			require.NoError(t, afero.WriteFile(h.fs, "/src/proj/.gnhelper.yaml", []byte("marker: .gn\n"), 0o644))
			require.NoError(t, afero.WriteFile(h.fs, "/src/proj/out/WORKSPACE", nil, 0o644))

			require.NoError(t, h.run(tc.args...))
			require.Equal(t, "/src/proj/out\n", h.stdout.String())
		})
	}
}

func TestSettingsOverrideFromInjectedEnvironment(t *testing.T) {
	h := newHarness(t, "GNHELPER_PKG_CONFIG_COMMAND=pkgconf", "GNHELPER_PKG_CONFIG_SILENCE_ERRORS=true")
	require.NoError(t, afero.WriteFile(h.fs, "/src/proj/.gnhelper.yaml", []byte("pkg_config:\n  command: from-file\n"), 0o644))
	h.scriptPkgConfig("", "")

	require.NoError(t, h.run("pkg-config", "zlib"))
	require.Equal(t, []string{"pkgconf", "--silence-errors", "zlib", "--cflags"}, h.runner.requests[0].Args)
}

func TestMalformedEnvironmentOverride(t *testing.T) {
	h := newHarness(t, "GNHELPER_TIMEOUT=soon")
	err := h.run("root")
	require.Error(t, err)
	require.Equal(t, framework.ExitFailure, framework.ExitCodeFor(err))
}

func TestPkgConfigFallbackRootInSearchPath(t *testing.T) {
	h := newHarness(t, "PKG_CONFIG_PATH=/usr/lib/pkgconfig")
	require.NoError(t, h.fs.Remove("/src/proj/.gn"))
	h.scriptPkgConfig("", "")

	require.NoError(t, h.run("pkg-config", "zlib"))
	require.Contains(t, h.runner.requests[0].Env, "PKG_CONFIG_PATH=/usr/lib/pkgconfig:./")
}

func TestDoctor(t *testing.T) {
	found := func(file string) (string, error) { return "/usr/bin/" + file, nil }
	cases := []struct {
		name     string
		lookPath func(string) (string, error)
		conan    string
		wantErr  bool
		summary  string
	}{
		{name: "healthy", lookPath: found, conan: "Conan version 2.3.0\n", summary: "all build tools available"},
		{name: "outdated conan", lookPath: found, conan: "Conan version 1.66.0\n", wantErr: true, summary: "tool check failed: conan"},
		{
			name: "missing conan",
			lookPath: func(file string) (string, error) {
				if file == "conan" {
					return "", exec.ErrNotFound
				}
				return found(file)
			},
			wantErr: true,
			summary: "tool check failed: conan",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.app.lookPath = tc.lookPath
			h.app.runner = &routeRunner{byCommand: map[string]framework.ProcessResult{
				"pkg-config": {Output: "0.29.2\n"},
				"conan":      {Output: tc.conan},
			}}

			err := h.run("doctor")
			if tc.wantErr {
				require.Error(t, err)
				require.Equal(t, framework.ExitFailure, framework.ExitCodeFor(err))
			} else {
				require.NoError(t, err)
			}
			require.Contains(t, h.stdout.String(), tc.summary)
			require.Contains(t, h.stdout.String(), "/usr/bin/pkg-config")
		})
	}
}

// routeRunner answers by command name.
type routeRunner struct {
	byCommand map[string]framework.ProcessResult
}

func (r *routeRunner) Run(ctx context.Context, req framework.CommandRequest) (framework.ProcessResult, error) {
	result, ok := r.byCommand[req.Args[0]]
	if !ok {
		return framework.ProcessResult{}, errors.New("unexpected command " + req.Args[0])
	}
	return result, nil
}

func TestConfigPrintsEffectiveSettings(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/src/proj/.gnhelper.yaml", []byte("conan:\n  min_version: 2.1.0\ntimeout: 30s\n"), 0o644))

	require.NoError(t, h.run("config"))
	out := h.stdout.String()
	require.Contains(t, out, "marker: .gn\n")
	require.Contains(t, out, "search_path_var: PKG_CONFIG_PATH\n")
	require.Contains(t, out, "min_version: 2.1.0\n")
	require.Contains(t, out, "timeout: 30s\n")
	require.Contains(t, out, "command: pkg-config\n")
}

func TestInvalidLogLevel(t *testing.T) {
	h := newHarness(t)
	err := h.run("--log-level", "loud", "root")
	require.Error(t, err)
	require.Equal(t, framework.ExitUsage, framework.ExitCodeFor(err))
}

func TestMissingExplicitSettingsFile(t *testing.T) {
	h := newHarness(t)
	err := h.run("--config", "/nowhere/settings.yaml", "root")
	require.Error(t, err)
	require.Equal(t, framework.ExitFailure, framework.ExitCodeFor(err))
}

type failingSink struct{}

func (failingSink) Record(int, time.Time) error { return errors.New("disk full") }

func TestRecordInvocationLogsSinkFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	app := &application{
		logger: zap.New(core),
		pid:    7,
		now:    time.Now,
	}

	app.recordInvocation(failingSink{})
	entries := logs.FilterMessage("unable to record invocation").All()
	require.Len(t, entries, 1)
	require.Equal(t, "disk full", entries[0].ContextMap()["error"])
}
