package pkgmgr

import (
	"context"
	"strings"

	"cpm/internal/config"
	"cpm/internal/errs"
)

// Vcpkg installs packages through a vcpkg toolchain.
type Vcpkg struct {
	// Exe is the vcpkg executable, usually <toolchain root>/vcpkg(.exe).
	Exe string
	Run Capturer
}

func (v *Vcpkg) Name() string { return "vcpkg" }

func (v *Vcpkg) AutoInstall() bool { return true }

func (v *Vcpkg) exe() string {
	if v.Exe == "" {
		return "vcpkg"
	}
	return v.Exe
}

// Installed looks for pkg in `vcpkg list` output. A package without a
// triplet matches any triplet.
func (v *Vcpkg) Installed(ctx context.Context, pkg config.Package) (bool, error) {
	out, err := v.Run.RunShellCaptured(ctx, []string{v.exe(), "list", pkg.Library})
	if err != nil {
		return false, err
	}
	for _, line := range lines(out) {
		name := strings.Fields(line)[0]
		lib, triplet, _ := strings.Cut(name, ":")
		if lib != pkg.Library {
			continue
		}
		if pkg.Triplet == "" || triplet == pkg.Triplet {
			return true, nil
		}
	}
	return false, nil
}

// Install runs `vcpkg install`. Empty output means vcpkg never ran.
func (v *Vcpkg) Install(ctx context.Context, pkg config.Package) error {
	argv := []string{v.exe(), "install", pkg.Library}
	if pkg.Triplet != "" {
		argv = append(argv, "--triplet", pkg.Triplet)
	}
	out, err := v.Run.RunShellCaptured(ctx, argv)
	if err != nil {
		return err
	}
	if out == "" {
		return errs.New(errs.PackageInstallFailed, pkg.String())
	}
	return nil
}

// IntegrateInstall runs `vcpkg integrate install`.
func (v *Vcpkg) IntegrateInstall(ctx context.Context) error {
	out, err := v.Run.RunShellCaptured(ctx, []string{v.exe(), "integrate", "install"})
	if err != nil {
		return err
	}
	if out == "" {
		return errs.New(errs.PostInstallFailed, config.PostInstallVcpkgIntegrate)
	}
	return nil
}
