// Package config loads the per-project install descriptor that lists the
// prerequisites, packages and post-install steps for each operating system.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cpm/internal/errs"
)

//go:embed cpm_install.json
var defaultDescriptor []byte

// PostInstallVcpkgIntegrate runs `vcpkg integrate install`.
const PostInstallVcpkgIntegrate = "vcpkg_integrate_install"

// KnownPostInstall lists the post-install identifiers cpm can execute.
func KnownPostInstall() []string {
	return []string{PostInstallVcpkgIntegrate}
}

// Config is the install descriptor.
type Config struct {
	OSTarget string             `json:"os_target" yaml:"os_target"`
	Config   map[string]Section `json:"config" yaml:"config"`
}

// Section describes what one operating system needs before a build.
type Section struct {
	Prerequisites []string  `json:"prerequisites" yaml:"prerequisites"`
	Toolchain     string    `json:"toolchain,omitempty" yaml:"toolchain,omitempty"`
	Packages      []Package `json:"packages" yaml:"packages"`
	PostInstall   []string  `json:"post_install" yaml:"post_install"`
	Instructions  []string  `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// UnmarshalJSON accepts the older per-OS spellings: "dependencies" and
// "tools" for prerequisites, "libraries" for packages and "setup_steps"
// for instructions.
func (s *Section) UnmarshalJSON(data []byte) error {
	type plain Section
	var raw struct {
		plain
		Dependencies []string  `json:"dependencies"`
		Tools        []string  `json:"tools"`
		Libraries    []Package `json:"libraries"`
		SetupSteps   []string  `json:"setup_steps"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Section(raw.plain)
	s.Prerequisites = append(s.Prerequisites, raw.Dependencies...)
	s.Prerequisites = append(s.Prerequisites, raw.Tools...)
	s.Packages = append(s.Packages, raw.Libraries...)
	s.Instructions = append(s.Instructions, raw.SetupSteps...)
	return nil
}

// Package is a library to install, optionally pinned to a vcpkg triplet.
type Package struct {
	Library string `json:"library" yaml:"library"`
	Triplet string `json:"triplet,omitempty" yaml:"triplet,omitempty"`
}

// UnmarshalJSON also accepts the "library:triplet" shorthand.
func (p *Package) UnmarshalJSON(data []byte) error {
	var spec string
	if err := json.Unmarshal(data, &spec); err == nil {
		p.Library, p.Triplet, _ = strings.Cut(strings.TrimSpace(spec), ":")
		return nil
	}
	type plain Package
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Package(raw)
	return nil
}

// String renders the package the way vcpkg names it.
func (p Package) String() string {
	if p.Triplet == "" {
		return p.Library
	}
	return p.Library + ":" + p.Triplet
}

// DefaultJSON returns the embedded template bytes.
func DefaultJSON() []byte {
	return append([]byte(nil), defaultDescriptor...)
}

// Load reads the descriptor at path. YAML is accepted for .yaml and .yml
// files; everything else is parsed as JSON.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, errs.Wrap(errs.JSONFileNotFound, err, path)
		}
		return Config{}, errs.Wrap(errs.ConfigParseError, err, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return Config{}, errs.Wrap(errs.ConfigParseError, err, path)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errs.Wrap(errs.ConfigParseError, err, path)
	}
	return cfg, nil
}

// Parse decodes a JSON descriptor.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse install descriptor: %w", err)
	}
	if cfg.Config == nil {
		cfg.Config = map[string]Section{}
	}
	return cfg, nil
}

// yamlToJSON routes YAML through the JSON decoder so both formats share
// one schema, including its legacy aliases.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return out, nil
}

// Section returns the section for osName.
func (c Config) Section(osName string) (Section, error) {
	s, ok := c.Config[strings.ToLower(osName)]
	if !ok {
		return Section{}, errs.Newf(errs.ConfigParseError, "no %q section in install descriptor", osName)
	}
	return s, nil
}

// WriteDefault writes the embedded template to path unless a file is
// already there. It reports whether a file was created.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, errs.Wrap(errs.InstallDescriptorWrite, err, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errs.Wrap(errs.InstallDescriptorWrite, err, path)
	}
	if err := os.WriteFile(path, DefaultJSON(), 0o644); err != nil {
		return false, errs.Wrap(errs.InstallDescriptorWrite, err, path)
	}
	return true, nil
}
