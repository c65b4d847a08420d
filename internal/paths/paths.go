package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// SettingsFileName is the name of the settings document stored next to
	// the executable.
	SettingsFileName = "settings.json"
	// DescriptorFileName is the install descriptor written by cpm init.
	DescriptorFileName = "cpm_install.json"
	// SettingsDirEnv overrides the directory holding settings.json.
	SettingsDirEnv = "CPM_SETTINGS_DIR"
)

// ExePaths describes where the running cpm binary lives.
type ExePaths struct {
	ExePath string
	ExeDir  string
}

// Executable resolves the running binary, following symlinks.
func Executable() (ExePaths, error) {
	exe, err := os.Executable()
	if err != nil {
		return ExePaths{}, fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return ExePaths{ExePath: exe, ExeDir: filepath.Dir(exe)}, nil
}

// SettingsDir returns the directory holding settings.json: the value of
// CPM_SETTINGS_DIR when set, otherwise exeDir.
func SettingsDir(exeDir string) (string, error) {
	if override, ok := os.LookupEnv(SettingsDirEnv); ok && override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", SettingsDirEnv, err)
		}
		return abs, nil
	}
	return exeDir, nil
}

// LogsDir returns the logs directory under the settings directory.
func LogsDir(settingsDir string) string {
	return filepath.Join(settingsDir, "logs")
}

// ProjectPaths captures canonical locations for a cpm project.
type ProjectPaths struct {
	Root           string
	BuildDir       string
	InstallDir     string
	DescriptorFile string
}

// Resolve determines the project root from dir, or the current working
// directory when dir is empty.
func Resolve(dir string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if dir != "" {
		root, err = filepath.Abs(dir)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	return ProjectPaths{
		Root:           root,
		BuildDir:       filepath.Join(root, "build"),
		InstallDir:     filepath.Join(root, "install"),
		DescriptorFile: filepath.Join(root, DescriptorFileName),
	}
}

// SamePath reports whether a and b name the same directory after cleaning.
// Comparison is case-insensitive when caseFold is set (Windows volumes).
func SamePath(a, b string, caseFold bool) bool {
	a = filepath.Clean(a)
	b = filepath.Clean(b)
	if caseFold {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// TrimTrailingSeparators strips every trailing '/' and '\' from path.
func TrimTrailingSeparators(path string) string {
	return strings.TrimRight(path, `/\`)
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
