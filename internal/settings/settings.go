// Package settings persists the per-installation state of cpm in a JSON
// document stored next to the executable.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cpm/internal/errs"
	"cpm/internal/paths"
)

// Settings is the full settings document. Every write replaces the whole
// file.
type Settings struct {
	OS                            string   `json:"os" yaml:"os"`
	OSRelease                     string   `json:"os_release" yaml:"os_release"`
	ExePath                       string   `json:"exe_path" yaml:"exe_path"`
	ExeDir                        string   `json:"exe_dir" yaml:"exe_dir"`
	WorkingDir                    string   `json:"working_dir" yaml:"working_dir"`
	Initialized                   bool     `json:"initialized" yaml:"initialized"`
	InstallJSONPath               string   `json:"install_json_path" yaml:"install_json_path"`
	BuildDir                      string   `json:"build_dir" yaml:"build_dir"`
	InstallDir                    string   `json:"install_dir" yaml:"install_dir"`
	UsingToolchain                bool     `json:"using_toolchain" yaml:"using_toolchain"`
	ToolchainPath                 string   `json:"toolchain_path" yaml:"toolchain_path"`
	VcpkgPath                     string   `json:"vcpkg_path" yaml:"vcpkg_path"`
	CMakeSystemType               string   `json:"cmake_system_type" yaml:"cmake_system_type"`
	CMakeBuildType                string   `json:"cmake_build_type" yaml:"cmake_build_type"`
	LastCMakeConfigurationCommand []string `json:"last_cmake_configuration_command" yaml:"last_cmake_configuration_command"`
	LastCommand                   []string `json:"last_command" yaml:"last_command"`
	CMakeTargets                  []string `json:"cmake_targets" yaml:"cmake_targets"`
}

// Host carries the values detected at startup that seed a fresh document.
type Host struct {
	OS        string
	OSRelease string
	ExePath   string
	ExeDir    string
}

// New returns the default document for host.
func New(host Host) Settings {
	return Settings{
		OS:                            host.OS,
		OSRelease:                     host.OSRelease,
		ExePath:                       host.ExePath,
		ExeDir:                        host.ExeDir,
		LastCMakeConfigurationCommand: []string{},
		LastCommand:                   []string{},
		CMakeTargets:                  []string{},
	}
}

// Path returns the settings file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, paths.SettingsFileName)
}

// Load reads and strictly decodes the settings document at path. Unknown
// fields are rejected.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errs.Wrap(errs.SettingsIO, err, path)
	}
	return decode(data, path)
}

func decode(data []byte, path string) (Settings, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var s Settings
	if err := dec.Decode(&s); err != nil {
		return Settings{}, errs.Wrap(errs.SettingsCorrupt, err, path)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Settings{}, errs.Wrap(errs.SettingsCorrupt, fmt.Errorf("trailing data after settings object"), path)
	}
	return s, nil
}

// Marshal renders the document the way Save writes it.
func (s Settings) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Save replaces the document at path atomically.
func Save(s Settings, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.SettingsIO, err, path)
	}

	buf, err := s.Marshal()
	if err != nil {
		return errs.Wrap(errs.SettingsIO, err, path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "settings-*.json")
	if err != nil {
		return errs.Wrap(errs.SettingsIO, err, path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return errs.Wrap(errs.SettingsIO, err, path)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.SettingsIO, err, path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errs.Wrap(errs.SettingsIO, err, path)
	}
	return nil
}

// RequireInitialized fails with ProjectNotInitialized until cpm init ran.
func (s Settings) RequireInitialized() error {
	if !s.Initialized {
		return errs.New(errs.ProjectNotInitialized, "")
	}
	return s.Validate()
}

// Validate checks that an initialized document points at a project
// directory distinct from the executable directory.
func (s Settings) Validate() error {
	if !s.Initialized {
		return nil
	}
	dirs := []struct {
		key   Key
		value string
	}{
		{KeyWorkingDir, s.WorkingDir},
		{KeyBuildDir, s.BuildDir},
		{KeyInstallDir, s.InstallDir},
	}
	for _, d := range dirs {
		if d.value == "" {
			return errs.Newf(errs.ProjectNotInitialized, "%s is empty", d.key)
		}
		if s.ExeDir != "" && paths.SamePath(d.value, s.ExeDir, s.OS == "windows") {
			return errs.Newf(errs.WorkingDirSameAsExePath, "%s equals %s", d.key, s.ExeDir)
		}
	}
	return nil
}
