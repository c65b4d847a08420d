package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cpm/internal/config"
	"cpm/internal/deps"
	"cpm/internal/errs"
	"cpm/internal/paths"
	"cpm/internal/pkgmgr"
	"cpm/internal/platform"
	"cpm/internal/settings"
	"cpm/internal/toolchain"
	"cpm/internal/tui"
)

var (
	setupAutoToolchain bool
	setupNoToolchain   bool
	setupToolchainPath string
	setupPlatform      string
	setupSkipPackages  bool
	setupNoDepsCheck   bool
	setupForceInstall  bool
	setupJSON          bool
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Resolve the toolchain and check the dependencies in the install descriptor",
		Args:  cobra.NoArgs,
		RunE:  runSetup,
	}

	cmd.Flags().BoolVarP(&setupAutoToolchain, "auto-toolchain-path", "a", false, "Find the toolchain on PATH, then run the setup")
	cmd.Flags().BoolVarP(&setupNoToolchain, "no-toolchain-path", "n", false, "Run the setup without a toolchain")
	cmd.Flags().StringVarP(&setupToolchainPath, "toolchain-path", "t", "",
		fmt.Sprintf("Use the toolchain rooted at this directory and stop (one of: %s)", strings.Join(toolchain.Names(), ", ")))
	cmd.Flags().StringVar(&setupPlatform, "platform", "", "Descriptor section and platform to use (default: host OS)")
	cmd.Flags().BoolVar(&setupSkipPackages, "spc", false, "Skip package configuration")
	cmd.Flags().BoolVar(&setupNoDepsCheck, "ndc", false, "Skip the runtime dependency check (CI only)")
	cmd.Flags().BoolVar(&setupForceInstall, "fpi", false, "Reinstall packages even when already present")
	cmd.Flags().BoolVar(&setupJSON, "json", false, "Output the setup report as JSON")
	cmd.MarkFlagsMutuallyExclusive("auto-toolchain-path", "no-toolchain-path", "toolchain-path")

	return cmd
}

func runSetup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
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

	osName := s.OS
	if setupPlatform != "" {
		osName = strings.ToLower(setupPlatform)
	}
	if !platform.IsSupported(osName) {
		return errs.New(errs.NotSupportedOS, osName)
	}

	cfg, err := loadDescriptor(a, s, osName)
	if err != nil {
		return err
	}
	section, err := cfg.Section(osName)
	if err != nil {
		return err
	}

	plat, err := a.platform(osName, 0)
	if err != nil {
		return err
	}
	resolver := &toolchain.Resolver{Platform: plat, Settings: a.handle, Log: a.log}

	if setupToolchainPath != "" {
		res, err := resolver.UseExplicit(setupToolchainPath)
		if err != nil {
			return err
		}
		cmd.Printf("Toolchain file: %s\n", res.File)
		return nil
	}

	var tc toolchain.Result
	switch {
	case setupAutoToolchain:
		var status *tui.StatusWriter
		if tui.DetectMode(cmd.ErrOrStderr(), noProgress, setupJSON) == tui.ModeTUI {
			status = tui.NewStatusWriter(cmd.ErrOrStderr())
			status.Update("Locating toolchain...")
		}
		tc, err = resolver.Resolve(ctx, section)
		if status != nil {
			status.Stop()
		}
		if err != nil {
			return err
		}
	case setupNoToolchain:
		if err := a.handle.Update(func(s *settings.Settings) { s.UsingToolchain = false }); err != nil {
			return err
		}
	default:
		cur := a.handle.Settings()
		tc = toolchain.Result{UsingToolchain: cur.UsingToolchain, Root: cur.ToolchainPath, File: cur.VcpkgPath, Cached: true}
	}

	checker, err := newChecker(a, plat, section, tc)
	if err != nil {
		return err
	}
	return runChecker(ctx, cmd, a, checker, section, osName)
}

// loadDescriptor loads the install descriptor recorded at init and logs
// the validation findings for osName. Validation errors are fatal.
func loadDescriptor(a *app, s settings.Settings, osName string) (config.Config, error) {
	path := s.InstallJSONPath
	if path == "" {
		path = paths.DescriptorFileName
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	results := cfg.Validate(osName)
	for _, r := range results {
		if r.Level == "error" {
			a.log.Errorf("%s: %s", path, r.Message)
		} else {
			a.log.Warnf("%s: %s", path, r.Message)
		}
	}
	if config.HasErrors(results) {
		return config.Config{}, errs.New(errs.ConfigParseError, path)
	}
	return cfg, nil
}

// newChecker wires the package backend for osName: vcpkg when a vcpkg
// toolchain is in use, the distribution's manager on Linux.
func newChecker(a *app, plat platform.Platform, section config.Section, tc toolchain.Result) (*deps.Checker, error) {
	checker := &deps.Checker{
		Platform:    plat,
		Log:         a.log,
		Executables: map[string]string{},
		Options: deps.Options{
			SkipPrerequisites: setupNoDepsCheck,
			SkipPackages:      setupSkipPackages,
			ForceInstall:      setupForceInstall,
		},
	}

	if tc.UsingToolchain && tc.Root != "" {
		root := paths.TrimTrailingSeparators(plat.NormalizePathSeparators(tc.Root))
		if fam, ok := toolchain.Lookup(lastComponent(root)); ok && fam.Name == "vcpkg" {
			exe := plat.JoinPath(root, plat.ExecutableName("vcpkg"))
			checker.Executables["vcpkg"] = exe
			checker.Packages = &pkgmgr.Vcpkg{Exe: exe, Run: plat}
			return checker, nil
		}
	}

	if plat.Name() == platform.Linux && len(section.Packages) > 0 && !setupSkipPackages {
		id, idLike, err := platform.Distro(plat)
		if err != nil {
			return nil, fmt.Errorf("read os-release: %w", err)
		}
		mgr, err := pkgmgr.ForLinux(id, idLike, plat)
		if err != nil {
			return nil, err
		}
		a.log.Debugf("package manager: %s (%s)", mgr.Name(), id)
		checker.Packages = mgr
	}
	return checker, nil
}

// displayOS title-cases an OS name for headings ("linux" -> "Linux").
func displayOS(name string) string {
	return cases.Title(language.English).String(name)
}

func lastComponent(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

type setupPayload struct {
	Platform string            `json:"platform"`
	Steps    []deps.StepResult `json:"steps"`
	Warnings []string          `json:"warnings"`
	Error    string            `json:"error,omitempty"`
}

func runChecker(ctx context.Context, cmd *cobra.Command, a *app, checker *deps.Checker, section config.Section, osName string) error {
	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, noProgress, setupJSON)

	var (
		report deps.Report
		runErr error
	)
	switch mode {
	case tui.ModeTUI:
		model := tui.NewStepModel(fmt.Sprintf("cpm setup (%s)", displayOS(osName)), checker.Plan(section))
		a.log.SetConsole(io.Discard)
		err := tui.RunWithWork(ctx, out, model, func(ctx context.Context, send func(tea.Msg)) {
			checker.Observer = tui.NewStepReporter(send)
			report, runErr = checker.Run(ctx, section)
			if runErr != nil {
				send(tui.ErrorMsg{Err: runErr})
			}
		})
		a.log.SetConsole(cmd.ErrOrStderr())
		if err != nil && (runErr == nil || errs.Is(err, errs.CommandCancelled)) {
			runErr = err
		}
	default:
		report, runErr = checker.Run(ctx, section)
	}

	if mode == tui.ModeJSON {
		if err := writeSetupJSON(out, osName, report, runErr); err != nil {
			return err
		}
		return runErr
	}
	if mode == tui.ModePlain {
		writeSetupTable(out, report)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
	}
	if runErr != nil {
		return runErr
	}
	if mode == tui.ModeTUI {
		fmt.Fprintf(out, "\n%s setup complete: %d steps, %d warnings\n", displayOS(osName), len(report.Steps), len(report.Warnings))
	}
	return nil
}

func writeSetupJSON(out io.Writer, osName string, report deps.Report, runErr error) error {
	payload := setupPayload{Platform: osName, Steps: report.Steps, Warnings: []string{}}
	if payload.Steps == nil {
		payload.Steps = []deps.StepResult{}
	}
	for _, w := range report.Warnings {
		payload.Warnings = append(payload.Warnings, w.Error())
	}
	if runErr != nil {
		payload.Error = runErr.Error()
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode setup json: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func writeSetupTable(out io.Writer, report deps.Report) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tNAME\tSTATUS\tDETAIL")
	for _, step := range report.Steps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", step.Stage, step.Name, step.Status, tui.NonEmptyOrDash(step.Detail))
	}
	w.Flush()
}
