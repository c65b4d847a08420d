// Package platform isolates everything that differs between the operating
// systems cpm drives: shell dispatch, executable lookup, path separators
// and the files cpm writes into a project.
package platform

import (
	"context"
	"runtime"
	"strings"

	"cpm/internal/errs"
	"cpm/internal/runner"
)

const (
	Windows = "windows"
	Linux   = "linux"
	MacOS   = "macos"
)

// Platform is implemented once per supported operating system.
type Platform interface {
	Name() string
	// LocateExecutable returns the full path of name, or "" when the
	// lookup printed nothing.
	LocateExecutable(ctx context.Context, name string) (string, error)
	NormalizePathSeparators(path string) string
	JoinPath(elem ...string) string
	// TrimExecutable strips the trailing file name from an executable path.
	TrimExecutable(path string) string
	ExecutableName(base string) string
	RunShellCaptured(ctx context.Context, argv []string) (string, error)
	// RunShellDisplay logs the command's output instead of returning it.
	RunShellDisplay(ctx context.Context, argv []string) (runner.Result, error)
	RunDirect(ctx context.Context, argv []string) error
	OpenCommand(path string) []string
	// Entrypoint returns the file name and contents of the per-project
	// launcher script.
	Entrypoint(exePath string) (name, body string)
	DefaultSystemType() string
}

// HostOS maps runtime.GOOS onto the names used in settings and install
// descriptors.
func HostOS() string {
	return normalizeOS(runtime.GOOS)
}

func normalizeOS(goos string) string {
	switch goos {
	case "darwin":
		return MacOS
	default:
		return goos
	}
}

// Supported lists the operating systems cpm can drive.
func Supported() []string {
	return []string{Windows, Linux}
}

// IsSupported reports whether name is in Supported.
func IsSupported(name string) bool {
	for _, s := range Supported() {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// New returns the platform for name. The runner is created with the
// platform's shell so captured commands dispatch correctly.
func New(name string, opts runner.Options) (Platform, error) {
	switch strings.ToLower(name) {
	case Windows:
		p := &windowsPlatform{}
		p.r = runner.New(windowsShell{}, opts)
		return p, nil
	case Linux:
		p := &linuxPlatform{osRelease: osReleasePath}
		p.r = runner.New(posixShell{}, opts)
		return p, nil
	default:
		return nil, errs.New(errs.NotSupportedOS, name)
	}
}

// joinWith joins elem with sep, collapsing separators at the seams.
func joinWith(sep string, elem []string) string {
	parts := make([]string, 0, len(elem))
	for i, e := range elem {
		if e == "" {
			continue
		}
		if len(parts) > 0 {
			e = strings.TrimLeft(e, `/\`)
		}
		if i < len(elem)-1 {
			e = strings.TrimRight(e, `/\`)
		}
		parts = append(parts, e)
	}
	return strings.Join(parts, sep)
}

func trimLastComponent(path string) string {
	idx := strings.LastIndexAny(path, `/\`)
	if idx < 0 {
		return path
	}
	if idx == 0 {
		return path[:1]
	}
	return path[:idx]
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}
