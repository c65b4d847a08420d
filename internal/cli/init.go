package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cpm/internal/config"
	"cpm/internal/errs"
	"cpm/internal/paths"
	"cpm/internal/platform"
	"cpm/internal/settings"
)

var initForce bool

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize cpm for a CMake project (default: current directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}

	cmd.Flags().BoolVarP(&initForce, "force", "f", false, "Recreate the settings document from defaults first")

	return cmd
}

func resolveInitDir(args []string) (string, error) {
	if len(args) > 0 {
		return filepath.Abs(args[0])
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	if noInit {
		return errs.New(errs.NoInitFlagSet, "")
	}

	a, err := loadApp(cmd, initForce)
	if err != nil {
		return err
	}
	defer a.close()

	dir, err := resolveInitDir(args)
	if err != nil {
		return err
	}
	s := a.handle.Settings()
	if paths.SamePath(dir, s.ExeDir, s.OS == platform.Windows) {
		return errs.Newf(errs.WorkingDirSameAsExePath, "%s equals %s", dir, s.ExeDir)
	}

	plat, err := a.platform(s.OS, 0)
	if err != nil {
		return err
	}

	pp, err := paths.Resolve(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(pp.Root, 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	a.log.Infof("working directory: %s", pp.Root)

	created := make([]string, 0, 2)

	wrote, err := config.WriteDefault(pp.DescriptorFile)
	if err != nil {
		return err
	}
	if wrote {
		a.log.Debugf("created install descriptor: %s", pp.DescriptorFile)
		created = append(created, paths.DescriptorFileName)
	} else {
		a.log.Debugf("install descriptor exists: %s", pp.DescriptorFile)
	}

	name, err := writeEntrypoint(plat, pp.Root, s.ExePath)
	if err != nil {
		return err
	}
	created = append(created, name)

	if err := a.handle.Update(func(s *settings.Settings) {
		s.WorkingDir = pp.Root
		s.BuildDir = pp.BuildDir
		s.InstallDir = pp.InstallDir
		s.InstallJSONPath = pp.DescriptorFile
		s.Initialized = true
	}); err != nil {
		return err
	}

	cmd.Printf("Initialized project at %s\n", pp.Root)
	for _, entry := range created {
		cmd.Printf("  wrote %s\n", entry)
	}
	return nil
}

// writeEntrypoint writes the launcher script that forwards to this binary
// with --no-init. It is rewritten on every init so it follows the binary.
func writeEntrypoint(plat platform.Platform, dir, exePath string) (string, error) {
	name, body := plat.Entrypoint(exePath)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		return "", fmt.Errorf("write entrypoint: %w", err)
	}
	return name, nil
}
