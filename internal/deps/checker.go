// Package deps verifies the prerequisites, packages and post-install steps
// an install descriptor declares for the active operating system.
package deps

import (
	"context"
	"strings"

	"cpm/internal/config"
	"cpm/internal/errs"
	"cpm/internal/logx"
	"cpm/internal/pkgmgr"
	"cpm/internal/platform"
)

// versionProbed lists tools whose presence is checked by running
// `<tool> --version`; everything else is looked up on PATH.
var versionProbed = map[string]bool{
	"cmake": true,
	"git":   true,
	"vcpkg": true,
	"rustc": true,
	"cargo": true,
}

// Checker runs the three setup passes in order: prerequisites, packages,
// post-install.
type Checker struct {
	Platform platform.Platform
	// Packages installs or queries libraries. Nil skips the package pass.
	Packages pkgmgr.Manager
	// Executables overrides the command used for a prerequisite, e.g. the
	// vcpkg binary inside a toolchain root that is not on PATH.
	Executables map[string]string
	Log         *logx.Logger
	Observer    Observer
	Options     Options
}

type run struct {
	*Checker
	report Report
}

// Run checks section. A fatal error stops the run and is returned with the
// report so far; warnings are collected in Report.Warnings.
func (c *Checker) Run(ctx context.Context, section config.Section) (Report, error) {
	r := &run{Checker: c}

	steps := []func(context.Context, config.Section) error{
		r.prerequisites,
		r.packages,
		r.postInstall,
		r.instructions,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return r.report, errs.Wrap(errs.CommandCancelled, err, "setup")
		}
		if err := step(ctx, section); err != nil {
			return r.report, err
		}
	}
	return r.report, nil
}

// Plan lists the steps Run will report for section, all pending. The
// progress table uses it to lay out rows before work starts.
func (c *Checker) Plan(section config.Section) []StepResult {
	var steps []StepResult
	for _, name := range section.Prerequisites {
		steps = append(steps, StepResult{Stage: StagePrerequisites, Name: name, Status: "pending"})
	}
	for _, pkg := range section.Packages {
		steps = append(steps, StepResult{Stage: StagePackages, Name: pkg.String(), Status: "pending"})
	}
	for _, id := range section.PostInstall {
		steps = append(steps, StepResult{Stage: StagePostInstall, Name: id, Status: "pending"})
	}
	for _, text := range section.Instructions {
		steps = append(steps, StepResult{Stage: StageInstructions, Name: text, Status: "pending"})
	}
	return steps
}

func (r *run) log() *logx.Logger {
	if r.Log == nil {
		return logx.Discard()
	}
	return r.Log
}

func (r *run) emit(stage Stage, name, status, detail string) {
	res := StepResult{Stage: stage, Name: name, Status: status, Detail: detail}
	if r.Observer != nil {
		r.Observer.Step(res)
	}
	if status == StatusChecking || status == StatusInstalling {
		return
	}
	r.report.Steps = append(r.report.Steps, res)
}

func (r *run) warn(err error) {
	r.log().Warnf("%v", err)
	r.report.Warnings = append(r.report.Warnings, err)
}

func (r *run) prerequisites(ctx context.Context, section config.Section) error {
	if r.Options.SkipPrerequisites {
		r.log().Infof("skipping prerequisite check")
		for _, name := range section.Prerequisites {
			r.emit(StagePrerequisites, name, StatusSkipped, "")
		}
		return nil
	}

	for _, name := range section.Prerequisites {
		r.emit(StagePrerequisites, name, StatusChecking, "")
		detail, err := r.probe(ctx, name)
		if err != nil {
			r.emit(StagePrerequisites, name, StatusError, err.Error())
			return err
		}
		if detail == "" {
			r.emit(StagePrerequisites, name, StatusMissing, "")
			r.log().Errorf("prerequisite %s not found", name)
			return errs.New(errs.PrerequisiteNotFound, name)
		}
		r.log().Infof("%s: %s", name, detail)
		r.emit(StagePrerequisites, name, StatusFound, detail)
	}
	return nil
}

// probe returns the version line or executable path of a prerequisite, or
// "" when it is missing.
func (r *run) probe(ctx context.Context, name string) (string, error) {
	exe := name
	if override := r.Executables[name]; override != "" {
		exe = override
	}
	if versionProbed[strings.ToLower(name)] {
		out, err := r.Platform.RunShellCaptured(ctx, []string{exe, "--version"})
		if err != nil {
			return "", err
		}
		return firstLine(out), nil
	}
	return r.Platform.LocateExecutable(ctx, r.Platform.ExecutableName(exe))
}

func (r *run) packages(ctx context.Context, section config.Section) error {
	if len(section.Packages) == 0 {
		return nil
	}
	if r.Options.SkipPackages {
		r.log().Infof("skipping package configuration")
		for _, pkg := range section.Packages {
			r.emit(StagePackages, pkg.String(), StatusSkipped, "")
		}
		return nil
	}
	if r.Packages == nil {
		for _, pkg := range section.Packages {
			r.emit(StagePackages, pkg.String(), StatusSkipped, "no package manager")
			r.warn(errs.Newf(errs.PackageNotFound, "%s (no package manager available)", pkg))
		}
		return nil
	}

	for _, pkg := range section.Packages {
		if err := r.ensurePackage(ctx, pkg); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) ensurePackage(ctx context.Context, pkg config.Package) error {
	name := pkg.String()
	mgr := r.Packages

	if !r.Options.ForceInstall {
		r.emit(StagePackages, name, StatusChecking, mgr.Name())
		installed, err := mgr.Installed(ctx, pkg)
		if err != nil {
			r.emit(StagePackages, name, StatusError, err.Error())
			return err
		}
		if installed {
			r.log().Infof("%s is already installed", name)
			r.emit(StagePackages, name, StatusFound, mgr.Name())
			return nil
		}
	}

	if !mgr.AutoInstall() {
		err := mgr.Install(ctx, pkg)
		if err != nil && errs.IsFatal(err) {
			r.emit(StagePackages, name, StatusError, err.Error())
			return err
		}
		if err != nil {
			r.warn(err)
		}
		r.emit(StagePackages, name, StatusManual, "install manually")
		return nil
	}

	r.log().Infof("installing %s with %s", name, mgr.Name())
	r.emit(StagePackages, name, StatusInstalling, mgr.Name())
	if err := mgr.Install(ctx, pkg); err != nil {
		r.emit(StagePackages, name, StatusError, err.Error())
		return err
	}
	r.emit(StagePackages, name, StatusInstalled, mgr.Name())
	return nil
}

func (r *run) postInstall(ctx context.Context, section config.Section) error {
	for _, id := range section.PostInstall {
		action, ok := r.postInstallAction(id)
		if !ok {
			r.emit(StagePostInstall, id, StatusSkipped, "no definition")
			r.warn(errs.New(errs.PostInstallNoDefinition, id))
			continue
		}
		r.emit(StagePostInstall, id, StatusChecking, "")
		if err := action(ctx); err != nil {
			r.emit(StagePostInstall, id, StatusError, err.Error())
			return err
		}
		r.log().Infof("post-install %s done", id)
		r.emit(StagePostInstall, id, StatusDone, "")
	}
	return nil
}

func (r *run) postInstallAction(id string) (func(context.Context) error, bool) {
	switch id {
	case config.PostInstallVcpkgIntegrate:
		v, ok := r.Packages.(*pkgmgr.Vcpkg)
		if !ok {
			v = &pkgmgr.Vcpkg{Exe: r.Executables["vcpkg"], Run: r.Platform}
		}
		return v.IntegrateInstall, true
	}
	return nil, false
}

func (r *run) instructions(_ context.Context, section config.Section) error {
	for _, text := range section.Instructions {
		r.log().Infof("manual step: %s", text)
		r.emit(StageInstructions, text, StatusManual, "")
	}
	return nil
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}
