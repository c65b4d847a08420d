// Package toolchain locates the package-manager toolchain and derives the
// CMake toolchain file cpm passes to configure.
package toolchain

import (
	"context"
	"strings"

	"cpm/internal/config"
	"cpm/internal/errs"
	"cpm/internal/logx"
	"cpm/internal/paths"
	"cpm/internal/platform"
	"cpm/internal/settings"
)

// Resolver detects and validates toolchains, caching results in settings.
type Resolver struct {
	Platform platform.Platform
	Settings *settings.Handle
	Log      *logx.Logger
}

// Result describes the toolchain in use after resolution.
type Result struct {
	UsingToolchain bool
	Root           string
	File           string
	Cached         bool
}

func (r *Resolver) log() *logx.Logger {
	if r.Log == nil {
		return logx.Discard()
	}
	return r.Log
}

// Resolve runs the auto-detection flow for section. A cached toolchain path
// short-circuits detection. An empty toolchain entry, or a toolchain that
// is not on PATH, disables toolchain use without failing.
func (r *Resolver) Resolve(ctx context.Context, section config.Section) (Result, error) {
	log := r.log()
	s := r.Settings.Settings()

	if s.ToolchainPath != "" {
		log.Debugf("toolchain path already set: %s", s.ToolchainPath)
		if err := r.Settings.Update(func(s *settings.Settings) { s.UsingToolchain = true }); err != nil {
			return Result{}, err
		}
		res := Result{UsingToolchain: true, Root: s.ToolchainPath, File: s.VcpkgPath, Cached: true}
		if res.File == "" {
			file, err := r.CheckToolchain(s.ToolchainPath)
			if err != nil {
				return res, err
			}
			res.File = file
		}
		return res, nil
	}

	name := strings.TrimSpace(section.Toolchain)
	if name == "" {
		log.Warnf("no toolchain listed in the install descriptor, continuing without one")
		return Result{}, r.disable()
	}

	exe, err := r.Platform.LocateExecutable(ctx, r.Platform.ExecutableName(name))
	if err != nil {
		return Result{}, err
	}
	if exe == "" {
		log.Warnf("%s was not found on PATH, continuing without a toolchain", name)
		return Result{}, r.disable()
	}

	root := r.Platform.TrimExecutable(exe)
	log.Infof("found %s at %s", name, root)
	if err := r.Settings.Update(func(s *settings.Settings) {
		s.ToolchainPath = root
		s.UsingToolchain = true
	}); err != nil {
		return Result{}, err
	}

	file, err := r.CheckToolchain(root)
	if err != nil {
		return Result{UsingToolchain: true, Root: root}, err
	}
	return Result{UsingToolchain: true, Root: root, File: file}, nil
}

// UseExplicit validates a user-supplied toolchain root and caches it.
func (r *Resolver) UseExplicit(root string) (Result, error) {
	root = paths.TrimTrailingSeparators(root)
	if err := r.Settings.Update(func(s *settings.Settings) {
		s.ToolchainPath = root
		s.UsingToolchain = true
	}); err != nil {
		return Result{}, err
	}
	file, err := r.CheckToolchain(root)
	if err != nil {
		return Result{UsingToolchain: true, Root: root}, err
	}
	return Result{UsingToolchain: true, Root: root, File: file}, nil
}

// CheckToolchain derives the CMake toolchain file for the toolchain rooted
// at root and caches it. The family is the root's final path component.
func (r *Resolver) CheckToolchain(root string) (string, error) {
	log := r.log()
	normalized := paths.TrimTrailingSeparators(r.Platform.NormalizePathSeparators(root))
	name := baseName(normalized)

	family, ok := Lookup(name)
	if !ok {
		log.Errorf("toolchain %q is not one of: %s", name, strings.Join(Names(), ", "))
		return "", errs.New(errs.ToolchainNotFound, name)
	}

	elems := append([]string{normalized}, family.ToolchainFile...)
	file := r.Platform.JoinPath(elems...)
	exists, err := paths.FileExists(file)
	if err != nil || !exists {
		log.Errorf("%s CMake toolchain file not found at: %s", family.Display(), file)
		return "", errs.Wrap(errs.ToolchainNotFound, err, family.Display())
	}

	log.Infof("detected %s CMake toolchain file: %s", family.Display(), file)
	if err := r.Settings.Update(func(s *settings.Settings) { s.VcpkgPath = file }); err != nil {
		return "", err
	}
	return file, nil
}

func (r *Resolver) disable() error {
	return r.Settings.Update(func(s *settings.Settings) { s.UsingToolchain = false })
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
