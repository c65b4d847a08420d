package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cpm/internal/errs"
)

// Key names a settings field by its JSON name.
type Key string

const (
	KeyOS                            Key = "os"
	KeyOSRelease                     Key = "os_release"
	KeyExePath                       Key = "exe_path"
	KeyExeDir                        Key = "exe_dir"
	KeyWorkingDir                    Key = "working_dir"
	KeyInitialized                   Key = "initialized"
	KeyInstallJSONPath               Key = "install_json_path"
	KeyBuildDir                      Key = "build_dir"
	KeyInstallDir                    Key = "install_dir"
	KeyUsingToolchain                Key = "using_toolchain"
	KeyToolchainPath                 Key = "toolchain_path"
	KeyVcpkgPath                     Key = "vcpkg_path"
	KeyCMakeSystemType               Key = "cmake_system_type"
	KeyCMakeBuildType                Key = "cmake_build_type"
	KeyLastCMakeConfigurationCommand Key = "last_cmake_configuration_command"
	KeyLastCommand                   Key = "last_command"
	KeyCMakeTargets                  Key = "cmake_targets"
)

type fieldKind int

const (
	stringField fieldKind = iota
	boolField
	listField
)

type field struct {
	key  Key
	kind fieldKind
	str  func(*Settings) *string
	flag func(*Settings) *bool
	list func(*Settings) *[]string
}

func strField(k Key, f func(*Settings) *string) field {
	return field{key: k, kind: stringField, str: f}
}

func boolFieldOf(k Key, f func(*Settings) *bool) field {
	return field{key: k, kind: boolField, flag: f}
}

func listFieldOf(k Key, f func(*Settings) *[]string) field {
	return field{key: k, kind: listField, list: f}
}

var fields = []field{
	strField(KeyOS, func(s *Settings) *string { return &s.OS }),
	strField(KeyOSRelease, func(s *Settings) *string { return &s.OSRelease }),
	strField(KeyExePath, func(s *Settings) *string { return &s.ExePath }),
	strField(KeyExeDir, func(s *Settings) *string { return &s.ExeDir }),
	strField(KeyWorkingDir, func(s *Settings) *string { return &s.WorkingDir }),
	boolFieldOf(KeyInitialized, func(s *Settings) *bool { return &s.Initialized }),
	strField(KeyInstallJSONPath, func(s *Settings) *string { return &s.InstallJSONPath }),
	strField(KeyBuildDir, func(s *Settings) *string { return &s.BuildDir }),
	strField(KeyInstallDir, func(s *Settings) *string { return &s.InstallDir }),
	boolFieldOf(KeyUsingToolchain, func(s *Settings) *bool { return &s.UsingToolchain }),
	strField(KeyToolchainPath, func(s *Settings) *string { return &s.ToolchainPath }),
	strField(KeyVcpkgPath, func(s *Settings) *string { return &s.VcpkgPath }),
	strField(KeyCMakeSystemType, func(s *Settings) *string { return &s.CMakeSystemType }),
	strField(KeyCMakeBuildType, func(s *Settings) *string { return &s.CMakeBuildType }),
	listFieldOf(KeyLastCMakeConfigurationCommand, func(s *Settings) *[]string { return &s.LastCMakeConfigurationCommand }),
	listFieldOf(KeyLastCommand, func(s *Settings) *[]string { return &s.LastCommand }),
	listFieldOf(KeyCMakeTargets, func(s *Settings) *[]string { return &s.CMakeTargets }),
}

var fieldIndex = func() map[Key]field {
	m := make(map[Key]field, len(fields))
	for _, f := range fields {
		m[f.key] = f
	}
	return m
}()

// Keys lists every settings key in document order.
func Keys() []Key {
	out := make([]Key, len(fields))
	for i, f := range fields {
		out[i] = f.key
	}
	return out
}

// ParseKey validates a user-supplied key name.
func ParseKey(name string) (Key, error) {
	k := Key(strings.TrimSpace(name))
	if _, ok := fieldIndex[k]; !ok {
		return "", errs.New(errs.InvalidCacheKey, name)
	}
	return k, nil
}

// Get renders a single field. Lists render as a JSON array.
func (s *Settings) Get(key Key) (string, error) {
	f, ok := fieldIndex[key]
	if !ok {
		return "", errs.New(errs.InvalidCacheKey, string(key))
	}
	switch f.kind {
	case boolField:
		return strconv.FormatBool(*f.flag(s)), nil
	case listField:
		list := *f.list(s)
		if list == nil {
			list = []string{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return *f.str(s), nil
	}
}

// Set assigns a single field from its textual form. Lists accept a JSON
// array or a comma separated value.
func (s *Settings) Set(key Key, value string) error {
	f, ok := fieldIndex[key]
	if !ok {
		return errs.New(errs.InvalidCacheKey, string(key))
	}
	switch f.kind {
	case boolField:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s expects true or false: %w", key, err)
		}
		*f.flag(s) = b
	case listField:
		list, err := parseList(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*f.list(s) = list
	default:
		*f.str(s) = value
	}
	return nil
}

func parseList(value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(value, "[") {
		var list []string
		if err := json.Unmarshal([]byte(value), &list); err != nil {
			return nil, fmt.Errorf("parse list: %w", err)
		}
		if list == nil {
			list = []string{}
		}
		return list, nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list, nil
}
