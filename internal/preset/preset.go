// Package preset maps a system/compiler pair onto the CMake invocations cpm
// runs for configure, build, install and clean.
package preset

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"cpm/internal/errs"
	"cpm/internal/logx"
)

// System types accepted by Generate.
const (
	NTMSVC    = "nt/msvc"
	UnixClang = "unix/clang"
	UnixGCC   = "unix/gcc"
	MakeClang = "make/clang"
	MakeGCC   = "make/gcc"
)

// Build types.
const (
	Debug   = "Debug"
	Release = "Release"
)

type generator struct {
	name string
	cc   string
	cxx  string
}

var systems = map[string]generator{
	NTMSVC:    {name: "Visual Studio 17 2022"},
	UnixClang: {name: "Ninja", cc: "clang", cxx: "clang++"},
	UnixGCC:   {name: "Ninja", cc: "gcc", cxx: "g++"},
	MakeClang: {name: "Unix Makefiles", cc: "clang", cxx: "clang++"},
	MakeGCC:   {name: "Unix Makefiles", cc: "gcc", cxx: "g++"},
}

// SystemTypes lists the accepted system type tokens, sorted.
func SystemTypes() []string {
	out := make([]string, 0, len(systems))
	for name := range systems {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsMultiConfig reports whether the generator for systemType keeps several
// build configurations in one build tree.
func IsMultiConfig(systemType string) bool {
	return systemType == NTMSVC
}

// Generate returns the configure command for systemType. nt/msvc needs the
// vcpkg toolchain file.
func Generate(systemType, sourceDir, buildDir, toolchainPath string) ([]string, error) {
	gen, ok := systems[systemType]
	if !ok {
		return nil, errs.Newf(errs.InvalidSystemType, "%s (want one of %s)", systemType, strings.Join(SystemTypes(), ", "))
	}
	if systemType == NTMSVC && toolchainPath == "" {
		return nil, errs.New(errs.GenerateProjectNtMsvcNoToolchain, "")
	}

	argv := []string{"cmake", "-S", sourceDir, "-B", buildDir, "-G", gen.name}
	if systemType == NTMSVC {
		return append(argv, "-DCMAKE_TOOLCHAIN_FILE="+toolchainPath), nil
	}
	return append(argv,
		"-DCMAKE_C_COMPILER="+gen.cc,
		"-DCMAKE_CXX_COMPILER="+gen.cxx,
	), nil
}

// Build returns `cmake --build`.
func Build(buildDir, buildType string) []string {
	return []string{"cmake", "--build", buildDir, "--config", buildType}
}

// InstallPrefix is <installDir>/<osRelease>/<buildType>.
func InstallPrefix(installDir, osRelease, buildType string) string {
	return strings.TrimRight(installDir, `/\`) + "/" + osRelease + "/" + buildType
}

// Install returns `cmake --install` into InstallPrefix.
func Install(buildDir, installDir, osRelease, buildType string) []string {
	return []string{
		"cmake", "--install", buildDir,
		"--prefix", InstallPrefix(installDir, osRelease, buildType),
		"--config", buildType,
		"-v",
	}
}

// ParseBuildType turns the --debug/--release pair into a build type.
// Exactly one must be set.
func ParseBuildType(debug, release bool) (string, error) {
	switch {
	case debug && release:
		return "", errs.New(errs.BuildTypeBothSet, "")
	case debug:
		return Debug, nil
	case release:
		return Release, nil
	default:
		return "", errs.New(errs.BuildTypeNotSet, "")
	}
}

// Clean removes the directories named by codes: b for the build directory,
// i for the install directory. The whole string is validated before
// anything is removed. Removal problems are logged, never returned.
func Clean(codes, buildDir, installDir string, log *logx.Logger) error {
	if log == nil {
		log = logx.Discard()
	}
	targets := make([]string, 0, len(codes))
	for _, c := range codes {
		switch c {
		case 'b':
			targets = append(targets, buildDir)
		case 'i':
			targets = append(targets, installDir)
		default:
			return errs.New(errs.InvalidCleanCommand, string(c))
		}
	}

	for _, dir := range targets {
		removeDir(dir, log)
	}
	return nil
}

func removeDir(dir string, log *logx.Logger) {
	if dir == "" {
		log.Warnf("clean: directory not configured")
		return
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		log.Warnf("clean: %s does not exist", dir)
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		log.Errorf("clean %s: %v", dir, err)
		return
	}
	log.Infof("removed %s", dir)
}
