// Package pkgmgr queries and drives the package managers cpm knows about.
package pkgmgr

import (
	"context"
	"strings"

	"cpm/internal/config"
	"cpm/internal/errs"
)

// Capturer runs a command through the platform shell and returns its
// trimmed stdout. platform.Platform satisfies it.
type Capturer interface {
	RunShellCaptured(ctx context.Context, argv []string) (string, error)
}

// Manager is a package backend.
type Manager interface {
	Name() string
	Installed(ctx context.Context, pkg config.Package) (bool, error)
	Install(ctx context.Context, pkg config.Package) error
	// AutoInstall reports whether Install actually installs. System package
	// managers need root, so cpm only reports what is missing.
	AutoInstall() bool
}

var distroManagers = map[string]string{
	"arch":        "pacman",
	"manjaro":     "pacman",
	"endeavouros": "pacman",
	"debian":      "dpkg",
	"ubuntu":      "dpkg",
	"linuxmint":   "dpkg",
	"pop":         "dpkg",
}

// ForLinux picks the backend for a distribution by its os-release ID,
// falling back to each ID_LIKE entry in order.
func ForLinux(id string, idLike []string, run Capturer) (Manager, error) {
	for _, candidate := range append([]string{id}, idLike...) {
		switch distroManagers[strings.ToLower(candidate)] {
		case "pacman":
			return &Pacman{Run: run}, nil
		case "dpkg":
			return &Dpkg{Run: run}, nil
		}
	}
	return nil, errs.New(errs.UnsupportedLinuxDistribution, id)
}

func lines(out string) []string {
	var result []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			result = append(result, line)
		}
	}
	return result
}
