package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cpm/internal/codemodel"
	"cpm/internal/platform"
	"cpm/internal/preset"
	"cpm/internal/settings"
	"cpm/internal/toolchain"
)

const hostSystemType = "\x00host"

var (
	buildToolchain     string
	buildDebug         bool
	buildRelease       bool
	buildGenerate      string
	buildProject       bool
	buildInstall       bool
	buildClean         string
	buildSourceTargets bool
	buildTimeout       time.Duration
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate, build, install or clean the CMake project",
		Long: `Generate, build, install or clean the CMake project.

Steps run in the order clean, generate, build, install.

System types for --generate-project: ` + strings.Join(preset.SystemTypes(), ", ") + `.
A bare --generate-project uses the host default (nt/msvc on Windows,
unix/gcc on Linux); nt/msvc needs the vcpkg toolchain.

Clean codes for --clean-project (combine to clean several):
  b  build directory
  i  install directory`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}

	cmd.Flags().StringVarP(&buildToolchain, "toolchain", "t", "", "Toolchain root directory to validate and cache first")
	cmd.Flags().BoolVarP(&buildDebug, "debug-build-type", "d", false, "Use the Debug build type")
	cmd.Flags().BoolVarP(&buildRelease, "release-build-type", "r", false, "Use the Release build type")
	cmd.Flags().StringVarP(&buildGenerate, "generate-project", "g", "", "Generate the CMake project for SYSTEM_TYPE (default: host system type)")
	cmd.Flags().Lookup("generate-project").NoOptDefVal = hostSystemType
	cmd.Flags().BoolVarP(&buildProject, "build-project", "b", false, "Build the CMake project")
	cmd.Flags().BoolVarP(&buildInstall, "install-project", "i", false, "Install the CMake project")
	cmd.Flags().StringVarP(&buildClean, "clean-project", "c", "", "Remove directories: b (build), i (install)")
	cmd.Flags().BoolVar(&buildSourceTargets, "source-targets", false, "Read build targets from the CMake file API and cache them")
	cmd.Flags().DurationVar(&buildTimeout, "timeout", 0, "Kill each CMake run after this long (0 = no limit)")
	cmd.MarkFlagsMutuallyExclusive("debug-build-type", "release-build-type")

	return cmd
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if buildToolchain == "" && buildGenerate == "" && !buildProject && !buildInstall && buildClean == "" && !buildSourceTargets {
		return cmd.Help()
	}

	a, err := loadApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	s := a.handle.Settings()
	if err := s.RequireInitialized(); err != nil {
		return err
	}

	plat, err := a.platform(s.OS, buildTimeout)
	if err != nil {
		return err
	}

	if buildToolchain != "" {
		resolver := &toolchain.Resolver{Platform: plat, Settings: a.handle, Log: a.log}
		if _, err := resolver.UseExplicit(buildToolchain); err != nil {
			return err
		}
	}

	var buildType string
	if buildGenerate != "" || buildProject || buildInstall || buildSourceTargets {
		buildType, err = preset.ParseBuildType(buildDebug, buildRelease)
		if err != nil {
			return err
		}
	}

	if buildClean != "" {
		s = a.handle.Settings()
		a.log.Infof("cleaning %q", buildClean)
		if err := preset.Clean(buildClean, s.BuildDir, s.InstallDir, a.log); err != nil {
			return err
		}
	}

	if buildGenerate != "" {
		if err := generateProject(ctx, a, plat, systemTypeFor(plat, buildGenerate), buildType); err != nil {
			return err
		}
	}

	if buildSourceTargets {
		if err := cacheTargets(cmd, a, buildType); err != nil {
			return err
		}
	}

	if buildProject {
		s = a.handle.Settings()
		a.log.Infof("building %s", buildType)
		if err := plat.RunDirect(ctx, preset.Build(s.BuildDir, buildType)); err != nil {
			return err
		}
	}

	if buildInstall {
		s = a.handle.Settings()
		a.log.Infof("installing %s into %s", buildType, preset.InstallPrefix(s.InstallDir, s.OSRelease, buildType))
		if err := plat.RunDirect(ctx, preset.Install(s.BuildDir, s.InstallDir, s.OSRelease, buildType)); err != nil {
			return err
		}
	}
	return nil
}

// systemTypeFor resolves the --generate-project value; a bare flag means
// the platform's default generator.
func systemTypeFor(plat platform.Platform, flag string) string {
	if flag == hostSystemType {
		return plat.DefaultSystemType()
	}
	return flag
}

// generateProject caches the system type, build type and configure command,
// then runs the configure step.
func generateProject(ctx context.Context, a *app, plat platform.Platform, systemType, buildType string) error {
	s := a.handle.Settings()
	systemType = strings.ToLower(strings.TrimSpace(systemType))

	argv, err := preset.Generate(systemType, s.WorkingDir, s.BuildDir, s.VcpkgPath)
	if err != nil {
		return err
	}

	a.log.Infof("generating CMake project for system type %q with build type %q", systemType, buildType)
	if err := a.handle.Update(func(s *settings.Settings) {
		s.CMakeSystemType = systemType
		s.CMakeBuildType = buildType
		s.LastCMakeConfigurationCommand = argv
	}); err != nil {
		return err
	}

	if buildSourceTargets {
		if err := codemodel.EmitQuery(s.BuildDir); err != nil {
			a.log.Warnf("codemodel query: %v", err)
		}
	}
	return plat.RunDirect(ctx, argv)
}

func cacheTargets(cmd *cobra.Command, a *app, buildType string) error {
	s := a.handle.Settings()
	targets, err := codemodel.ReadTargets(s.BuildDir, s.CMakeSystemType, buildType)
	if err != nil {
		return err
	}
	if err := a.handle.Update(func(s *settings.Settings) { s.CMakeTargets = targets }); err != nil {
		return err
	}
	a.log.Infof("cached %d targets", len(targets))
	for _, t := range targets {
		cmd.Printf("  %s\n", t)
	}
	return nil
}
