package deps

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"cpm/internal/config"
	"cpm/internal/errs"
	"cpm/internal/pkgmgr"
	"cpm/internal/platform/platformtest"
)

type fakeManager struct {
	auto      bool
	installed map[string]bool
	failing   map[string]bool
	installs  []string
}

func (m *fakeManager) Name() string      { return "fake" }
func (m *fakeManager) AutoInstall() bool { return m.auto }

func (m *fakeManager) Installed(_ context.Context, pkg config.Package) (bool, error) {
	return m.installed[pkg.String()], nil
}

func (m *fakeManager) Install(_ context.Context, pkg config.Package) error {
	m.installs = append(m.installs, pkg.String())
	if !m.auto {
		return errs.New(errs.PackageNotFound, pkg.Library)
	}
	if m.failing[pkg.String()] {
		return errs.New(errs.PackageInstallFailed, pkg.String())
	}
	return nil
}

func TestPrerequisites(t *testing.T) {
	fake := platformtest.New("linux")
	fake.Outputs["cmake --version"] = "cmake version 3.29.2\n\nCMake suite maintained by Kitware"
	fake.Located["ninja"] = "/usr/bin/ninja"

	c := &Checker{Platform: fake}
	report, err := c.Run(context.Background(), config.Section{Prerequisites: []string{"cmake", "ninja"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []StepResult{
		{Stage: StagePrerequisites, Name: "cmake", Status: StatusFound, Detail: "cmake version 3.29.2"},
		{Stage: StagePrerequisites, Name: "ninja", Status: StatusFound, Detail: "/usr/bin/ninja"},
	}
	if !reflect.DeepEqual(report.Steps, want) {
		t.Fatalf("steps = %+v", report.Steps)
	}
}

func TestPrerequisiteMissingStopsRun(t *testing.T) {
	fake := platformtest.New("linux")
	fake.Outputs["cmake --version"] = "cmake version 3.29.2"

	c := &Checker{Platform: fake, Packages: &fakeManager{auto: true}}
	section := config.Section{
		Prerequisites: []string{"cmake", "git", "rustc"},
		Packages:      []config.Package{{Library: "fmt"}},
	}
	report, err := c.Run(context.Background(), section)

	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.PrerequisiteNotFound || e.Detail != "git" {
		t.Fatalf("expected PrerequisiteNotFound(git), got %v", err)
	}
	if len(report.Steps) != 2 {
		t.Fatalf("rustc and packages should not run, steps = %+v", report.Steps)
	}
	if len(fake.Shell) != 2 {
		t.Fatalf("expected two probes, ran %v", fake.Shell)
	}
}

func TestExecutableOverride(t *testing.T) {
	fake := platformtest.New("windows")
	fake.Outputs[`C:/vcpkg/vcpkg --version`] = "vcpkg package management program version 2024-05-01"

	c := &Checker{Platform: fake, Executables: map[string]string{"vcpkg": "C:/vcpkg/vcpkg"}}
	if _, err := c.Run(context.Background(), config.Section{Prerequisites: []string{"vcpkg"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSkipPrerequisites(t *testing.T) {
	fake := platformtest.New("linux")
	c := &Checker{Platform: fake, Options: Options{SkipPrerequisites: true}}

	report, err := c.Run(context.Background(), config.Section{Prerequisites: []string{"cmake"}})
	if err != nil {
		t.Fatal(err)
	}
	if report.Steps[0].Status != StatusSkipped || len(fake.Shell) != 0 {
		t.Fatalf("prerequisites should be skipped: %+v %v", report.Steps, fake.Shell)
	}
}

func TestPackagesAutoInstall(t *testing.T) {
	mgr := &fakeManager{auto: true, installed: map[string]bool{"fmt:x64-windows": true}}
	c := &Checker{Platform: platformtest.New("windows"), Packages: mgr}

	section := config.Section{Packages: []config.Package{
		{Library: "fmt", Triplet: "x64-windows"},
		{Library: "zlib", Triplet: "x64-windows"},
	}}
	report, err := c.Run(context.Background(), section)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(mgr.installs, []string{"zlib:x64-windows"}) {
		t.Fatalf("installs = %v", mgr.installs)
	}
	if report.Steps[0].Status != StatusFound || report.Steps[1].Status != StatusInstalled {
		t.Fatalf("steps = %+v", report.Steps)
	}
}

func TestPackagesForceInstall(t *testing.T) {
	mgr := &fakeManager{auto: true, installed: map[string]bool{"fmt:x64-windows": true}}
	c := &Checker{Platform: platformtest.New("windows"), Packages: mgr, Options: Options{ForceInstall: true}}

	if _, err := c.Run(context.Background(), config.Section{Packages: []config.Package{{Library: "fmt", Triplet: "x64-windows"}}}); err != nil {
		t.Fatal(err)
	}
	if len(mgr.installs) != 1 {
		t.Fatalf("force install should reinstall, installs = %v", mgr.installs)
	}
}

func TestPackageInstallFailureIsFatal(t *testing.T) {
	mgr := &fakeManager{auto: true, failing: map[string]bool{"zlib:x64-windows": true}}
	c := &Checker{Platform: platformtest.New("windows"), Packages: mgr}

	section := config.Section{
		Packages:    []config.Package{{Library: "zlib", Triplet: "x64-windows"}},
		PostInstall: []string{config.PostInstallVcpkgIntegrate},
	}
	_, err := c.Run(context.Background(), section)
	if !errs.Is(err, errs.PackageInstallFailed) {
		t.Fatalf("expected PackageInstallFailed, got %v", err)
	}
}

func TestManualPackagesWarn(t *testing.T) {
	mgr := &fakeManager{installed: map[string]bool{"libfmt-dev": true}}
	c := &Checker{Platform: platformtest.New("linux"), Packages: mgr}

	section := config.Section{Packages: []config.Package{{Library: "libfmt-dev"}, {Library: "libzstd-dev"}}}
	report, err := c.Run(context.Background(), section)
	if err != nil {
		t.Fatalf("missing system packages must not be fatal: %v", err)
	}
	if len(report.Warnings) != 1 || !errs.Is(report.Warnings[0], errs.PackageNotFound) {
		t.Fatalf("warnings = %v", report.Warnings)
	}
	if report.Steps[1].Status != StatusManual {
		t.Fatalf("steps = %+v", report.Steps)
	}
}

func TestSkipPackages(t *testing.T) {
	mgr := &fakeManager{auto: true}
	c := &Checker{Platform: platformtest.New("windows"), Packages: mgr, Options: Options{SkipPackages: true}}

	report, err := c.Run(context.Background(), config.Section{Packages: []config.Package{{Library: "fmt", Triplet: "x64-windows"}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(mgr.installs) != 0 || report.Steps[0].Status != StatusSkipped {
		t.Fatalf("packages should be skipped: %+v", report.Steps)
	}
}

func TestPostInstall(t *testing.T) {
	fake := platformtest.New("windows")
	fake.Outputs["C:/vcpkg/vcpkg integrate install"] = "Applied user-wide integration for this vcpkg root."
	vcpkg := &pkgmgr.Vcpkg{Exe: "C:/vcpkg/vcpkg", Run: fake}
	c := &Checker{Platform: fake, Packages: vcpkg}

	report, err := c.Run(context.Background(), config.Section{PostInstall: []string{config.PostInstallVcpkgIntegrate, "reboot"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Warnings) != 1 || !errs.Is(report.Warnings[0], errs.PostInstallNoDefinition) {
		t.Fatalf("warnings = %v", report.Warnings)
	}
	if report.Steps[0].Status != StatusDone || report.Steps[1].Status != StatusSkipped {
		t.Fatalf("steps = %+v", report.Steps)
	}
}

func TestPostInstallFailure(t *testing.T) {
	c := &Checker{Platform: platformtest.New("windows")}

	_, err := c.Run(context.Background(), config.Section{PostInstall: []string{config.PostInstallVcpkgIntegrate}})
	if !errs.Is(err, errs.PostInstallFailed) {
		t.Fatalf("expected PostInstallFailed, got %v", err)
	}
}

func TestCancelStopsBetweenStages(t *testing.T) {
	fake := platformtest.New("linux")
	fake.Outputs["cmake --version"] = "cmake version 3.29.2"
	mgr := &fakeManager{auto: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &Checker{
		Platform: fake,
		Packages: mgr,
		Observer: ObserverFunc(func(r StepResult) {
			if r.Status == StatusFound {
				cancel()
			}
		}),
	}
	section := config.Section{
		Prerequisites: []string{"cmake"},
		Packages:      []config.Package{{Library: "fmt", Triplet: "x64-linux"}},
	}

	report, err := c.Run(ctx, section)
	if !errs.Is(err, errs.CommandCancelled) {
		t.Fatalf("expected CommandCancelled, got %v", err)
	}
	if len(mgr.installs) != 0 {
		t.Fatalf("packages installed after cancel: %v", mgr.installs)
	}
	if len(report.Steps) != 1 {
		t.Fatalf("steps = %+v", report.Steps)
	}
}

func TestObserverAndPlan(t *testing.T) {
	fake := platformtest.New("linux")
	fake.Outputs["git --version"] = "git version 2.45.0"

	var seen []string
	c := &Checker{Platform: fake, Observer: ObserverFunc(func(r StepResult) {
		seen = append(seen, r.Key()+"="+r.Status)
	})}
	section := config.Section{Prerequisites: []string{"git"}, Instructions: []string{"log out and back in"}}

	plan := c.Plan(section)
	if len(plan) != 2 || plan[1].Key() != "instructions:log out and back in" {
		t.Fatalf("plan = %+v", plan)
	}

	if _, err := c.Run(context.Background(), section); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"prerequisites:git=checking",
		"prerequisites:git=found",
		"instructions:log out and back in=manual",
	}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("observed %v", seen)
	}
}
