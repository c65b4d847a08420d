package pkgmgr

import (
	"context"
	"strings"

	"cpm/internal/config"
	"cpm/internal/errs"
)

// Pacman queries Arch based systems.
type Pacman struct {
	Run Capturer
}

func (p *Pacman) Name() string { return "pacman" }

func (p *Pacman) AutoInstall() bool { return false }

// Installed runs `pacman -Q`, which prints "<name> <version>" for installed
// packages and nothing on stdout otherwise.
func (p *Pacman) Installed(ctx context.Context, pkg config.Package) (bool, error) {
	out, err := p.Run.RunShellCaptured(ctx, []string{"pacman", "-Q", pkg.Library})
	if err != nil {
		return false, err
	}
	for _, line := range lines(out) {
		if strings.Fields(line)[0] == pkg.Library {
			return true, nil
		}
	}
	return false, nil
}

func (p *Pacman) Install(_ context.Context, pkg config.Package) error {
	return errs.Newf(errs.PackageNotFound, "%s (sudo pacman -S %s)", pkg.Library, pkg.Library)
}

// Dpkg queries Debian based systems.
type Dpkg struct {
	Run Capturer
}

func (d *Dpkg) Name() string { return "dpkg" }

func (d *Dpkg) AutoInstall() bool { return false }

// Installed looks for an "ii" row for the package in `dpkg -l` output.
// Architecture qualified names such as libfoo:amd64 also match.
func (d *Dpkg) Installed(ctx context.Context, pkg config.Package) (bool, error) {
	out, err := d.Run.RunShellCaptured(ctx, []string{"dpkg", "-l", pkg.Library})
	if err != nil {
		return false, err
	}
	for _, line := range lines(out) {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "ii" {
			continue
		}
		name, _, _ := strings.Cut(fields[1], ":")
		if name == pkg.Library {
			return true, nil
		}
	}
	return false, nil
}

func (d *Dpkg) Install(_ context.Context, pkg config.Package) error {
	return errs.Newf(errs.PackageNotFound, "%s (sudo apt install %s)", pkg.Library, pkg.Library)
}
