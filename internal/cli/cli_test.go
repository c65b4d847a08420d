package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"cpm/internal/errs"
	"cpm/internal/logx"
	"cpm/internal/paths"
	"cpm/internal/platform"
	"cpm/internal/platform/platformtest"
	"cpm/internal/settings"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// withSettingsDir points the settings document at a fresh directory.
func withSettingsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(paths.SettingsDirEnv, dir)
	t.Setenv(logLevelEnv, "")
	return dir
}

func requireSupportedHost(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "windows" {
		t.Skipf("cpm does not drive %s", runtime.GOOS)
	}
}

func initProject(t *testing.T) (string, string) {
	t.Helper()
	requireSupportedHost(t)
	settingsDir := withSettingsDir(t)
	project := t.TempDir()
	if _, stderr, err := execute(t, "init", project); err != nil {
		t.Fatalf("init: %v\n%s", err, stderr)
	}
	return settingsDir, project
}

func loadSettings(t *testing.T, dir string) settings.Settings {
	t.Helper()
	s, err := settings.Load(settings.Path(dir))
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	return s
}

func TestInit(t *testing.T) {
	settingsDir, project := initProject(t)

	s := loadSettings(t, settingsDir)
	if !s.Initialized {
		t.Fatal("expected initialized settings")
	}
	if s.WorkingDir != project {
		t.Errorf("working_dir = %s, want %s", s.WorkingDir, project)
	}
	if s.BuildDir != filepath.Join(project, "build") || s.InstallDir != filepath.Join(project, "install") {
		t.Errorf("build_dir=%s install_dir=%s", s.BuildDir, s.InstallDir)
	}
	if s.InstallJSONPath != filepath.Join(project, paths.DescriptorFileName) {
		t.Errorf("install_json_path = %s", s.InstallJSONPath)
	}
	if _, err := os.Stat(s.InstallJSONPath); err != nil {
		t.Errorf("descriptor not written: %v", err)
	}

	entry := "cpm.sh"
	if runtime.GOOS == "windows" {
		entry = "cpm.bat"
	}
	data, err := os.ReadFile(filepath.Join(project, entry))
	if err != nil {
		t.Fatalf("entrypoint not written: %v", err)
	}
	if !strings.Contains(string(data), "--no-init") {
		t.Errorf("entrypoint should pass --no-init: %q", data)
	}
}

func TestInitKeepsExistingDescriptor(t *testing.T) {
	requireSupportedHost(t)
	withSettingsDir(t)
	project := t.TempDir()
	descriptor := filepath.Join(project, paths.DescriptorFileName)
	custom := []byte(`{"os_target":"linux","config":{"linux":{"prerequisites":["ninja"]}}}`)
	if err := os.WriteFile(descriptor, custom, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := execute(t, "init", project); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(descriptor)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, custom) {
		t.Fatalf("descriptor overwritten: %s", got)
	}
}

func TestInitRefusedWithNoInit(t *testing.T) {
	settingsDir := withSettingsDir(t)
	_, _, err := execute(t, "--no-init", "init", t.TempDir())
	if !errs.Is(err, errs.NoInitFlagSet) {
		t.Fatalf("expected NoInitFlagSet, got %v", err)
	}
	if _, err := os.Stat(settings.Path(settingsDir)); !os.IsNotExist(err) {
		t.Fatalf("settings should not be created: %v", err)
	}
}

func TestInitRejectsExecutableDir(t *testing.T) {
	requireSupportedHost(t)
	withSettingsDir(t)
	exe, err := paths.Executable()
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = execute(t, "init", exe.ExeDir)
	if !errs.Is(err, errs.WorkingDirSameAsExePath) {
		t.Fatalf("expected WorkingDirSameAsExePath, got %v", err)
	}
}

func TestCommandsRequireInit(t *testing.T) {
	withSettingsDir(t)
	for _, args := range [][]string{
		{"setup"},
		{"build", "--build-project", "-d"},
	} {
		_, _, err := execute(t, args...)
		if !errs.Is(err, errs.ProjectNotInitialized) {
			t.Errorf("%v: expected ProjectNotInitialized, got %v", args, err)
		}
	}
}

func TestCache(t *testing.T) {
	settingsDir, project := initProject(t)

	t.Run("print key", func(t *testing.T) {
		out, _, err := execute(t, "cache", "--print-cache=working_dir")
		if err != nil {
			t.Fatal(err)
		}
		if out != "working_dir: "+project+"\n" {
			t.Fatalf("got %q", out)
		}
	})

	t.Run("print all", func(t *testing.T) {
		out, _, err := execute(t, "cache", "--print-cache")
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(out), &doc); err != nil {
			t.Fatalf("expected JSON, got %q: %v", out, err)
		}
		if doc["initialized"] != true {
			t.Fatalf("initialized = %v", doc["initialized"])
		}
	})

	t.Run("yaml", func(t *testing.T) {
		out, _, err := execute(t, "cache", "--format", "yaml")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "initialized: true") {
			t.Fatalf("got %q", out)
		}
	})

	t.Run("edit", func(t *testing.T) {
		if _, _, err := execute(t, "cache", "--edit-cache-key", "cmake_targets", "app,tests"); err != nil {
			t.Fatal(err)
		}
		s := loadSettings(t, settingsDir)
		if strings.Join(s.CMakeTargets, " ") != "app tests" {
			t.Fatalf("cmake_targets = %v", s.CMakeTargets)
		}
	})

	t.Run("invalid value leaves file alone", func(t *testing.T) {
		before, _ := os.ReadFile(settings.Path(settingsDir))
		if _, _, err := execute(t, "cache", "-e", "initialized", "maybe"); err == nil {
			t.Fatal("expected error for non-bool value")
		}
		after, _ := os.ReadFile(settings.Path(settingsDir))
		if !bytes.Equal(before, after) {
			t.Fatal("settings changed after a rejected edit")
		}
	})

	t.Run("edit keeps project directories valid", func(t *testing.T) {
		before, _ := os.ReadFile(settings.Path(settingsDir))
		exeDir := loadSettings(t, settingsDir).ExeDir
		cases := [][]string{
			{"working_dir", ""},
			{"install_dir", ""},
			{"build_dir", exeDir},
		}
		for _, c := range cases {
			if _, _, err := execute(t, "cache", "-e", c[0], c[1]); err == nil {
				t.Errorf("%s=%q: expected error", c[0], c[1])
			}
		}
		after, _ := os.ReadFile(settings.Path(settingsDir))
		if !bytes.Equal(before, after) {
			t.Fatal("settings changed after a rejected edit")
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		_, _, err := execute(t, "cache", "--print-cache=compiler")
		if !errs.Is(err, errs.InvalidCacheKey) {
			t.Fatalf("expected InvalidCacheKey, got %v", err)
		}
	})
}

func TestBuildValidation(t *testing.T) {
	settingsDir, project := initProject(t)

	t.Run("build type required", func(t *testing.T) {
		_, _, err := execute(t, "build", "--build-project")
		if !errs.Is(err, errs.BuildTypeNotSet) {
			t.Fatalf("expected BuildTypeNotSet, got %v", err)
		}
	})

	t.Run("unknown system type", func(t *testing.T) {
		_, _, err := execute(t, "build", "--generate-project=xcode/clang", "-d")
		if !errs.Is(err, errs.InvalidSystemType) {
			t.Fatalf("expected InvalidSystemType, got %v", err)
		}
		if s := loadSettings(t, settingsDir); s.CMakeSystemType != "" {
			t.Fatalf("system type cached after failure: %q", s.CMakeSystemType)
		}
	})

	t.Run("msvc needs toolchain", func(t *testing.T) {
		_, _, err := execute(t, "build", "-g=nt/msvc", "-r")
		if !errs.Is(err, errs.GenerateProjectNtMsvcNoToolchain) {
			t.Fatalf("expected GenerateProjectNtMsvcNoToolchain, got %v", err)
		}
	})

	t.Run("bare generate flag", func(t *testing.T) {
		cmd := newBuildCmd()
		if err := cmd.ParseFlags([]string{"-g", "-d"}); err != nil {
			t.Fatal(err)
		}
		plat := platformtest.New(platform.Linux)
		if got := systemTypeFor(plat, buildGenerate); got != plat.DefaultSystemType() {
			t.Fatalf("bare -g resolved to %q", got)
		}
		if got := systemTypeFor(plat, "make/clang"); got != "make/clang" {
			t.Fatalf("explicit system type resolved to %q", got)
		}
	})

	t.Run("clean", func(t *testing.T) {
		build := filepath.Join(project, "build")
		if err := os.MkdirAll(filepath.Join(build, "CMakeFiles"), 0o755); err != nil {
			t.Fatal(err)
		}
		if _, _, err := execute(t, "build", "-c", "bx"); !errs.Is(err, errs.InvalidCleanCommand) {
			t.Fatalf("expected InvalidCleanCommand, got %v", err)
		}
		if _, err := os.Stat(build); err != nil {
			t.Fatal("invalid clean code must not remove anything")
		}
		if _, _, err := execute(t, "build", "-c", "bi"); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(build); !os.IsNotExist(err) {
			t.Fatal("build directory should be removed")
		}
	})

	t.Run("targets before generate", func(t *testing.T) {
		_, _, err := execute(t, "build", "--source-targets", "-d")
		if !errs.Is(err, errs.CMakeProjectNotGenerated) {
			t.Fatalf("expected CMakeProjectNotGenerated, got %v", err)
		}
	})
}

func TestSetupWithoutChecks(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("default descriptor section differs per OS")
	}
	initProject(t)

	out, _, err := execute(t, "setup", "--ndc", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var payload setupPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if payload.Platform != "linux" || len(payload.Steps) == 0 {
		t.Fatalf("payload = %+v", payload)
	}
	for _, step := range payload.Steps {
		if step.Status != "skipped" {
			t.Errorf("%s should be skipped, got %s", step.Name, step.Status)
		}
	}

	out, _, err = execute(t, "setup", "--ndc", "--no-progress")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "STEP") || !strings.Contains(out, "cmake") {
		t.Fatalf("expected plain table, got %q", out)
	}
}

func TestSetupIgnoresOtherSections(t *testing.T) {
	_, project := initProject(t)
	descriptor := filepath.Join(project, paths.DescriptorFileName)
	body := `{
  "os_target": "linux",
  "config": {
    "linux": {"prerequisites": ["cmake"]},
    "windows": {"toolchain": "vcpkg", "packages": [{"library": "fmt"}]}
  }
}`
	if err := os.WriteFile(descriptor, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, stderr, err := execute(t, "setup", "--platform", "linux", "--ndc", "--spc", "--json"); err != nil {
		t.Fatalf("setup: %v\n%s", err, stderr)
	}
	_, _, err := execute(t, "setup", "--platform", "windows", "--ndc", "--spc", "--json")
	if !errs.Is(err, errs.ConfigParseError) {
		t.Fatalf("expected ConfigParseError for the windows section, got %v", err)
	}
}

func TestSetupUnsupportedPlatform(t *testing.T) {
	initProject(t)
	_, _, err := execute(t, "setup", "--platform", "macos")
	if !errs.Is(err, errs.NotSupportedOS) {
		t.Fatalf("expected NotSupportedOS, got %v", err)
	}
}

func TestDisplayOS(t *testing.T) {
	for in, want := range map[string]string{"linux": "Linux", "windows": "Windows", "macos": "Macos"} {
		if got := displayOS(in); got != want {
			t.Errorf("displayOS(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveLevel(t *testing.T) {
	t.Setenv(logLevelEnv, "warn")
	logLevel, verbose = "", false
	t.Cleanup(func() { logLevel, verbose = "", false })

	if level, err := resolveLevel(); err != nil || level != logx.LevelWarn {
		t.Fatalf("env level: %v %v", level, err)
	}
	logLevel = "error"
	if level, _ := resolveLevel(); level != logx.LevelError {
		t.Fatalf("flag should win over env, got %v", level)
	}
	verbose = true
	if level, _ := resolveLevel(); level != logx.LevelDebug {
		t.Fatalf("--verbose should lower the level to debug, got %v", level)
	}
	logLevel = "trace"
	if level, _ := resolveLevel(); level != logx.LevelTrace {
		t.Fatalf("--verbose must not raise trace, got %v", level)
	}
	logLevel = "chatty"
	if _, err := resolveLevel(); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
