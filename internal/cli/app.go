package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cpm/internal/logx"
	"cpm/internal/paths"
	"cpm/internal/platform"
	"cpm/internal/runner"
	"cpm/internal/settings"
)

const logLevelEnv = "CPM_LOG_LEVEL"

// app bundles what every command needs: the logger, the settings handle
// and where both live.
type app struct {
	exe         paths.ExePaths
	settingsDir string
	handle      *settings.Handle
	log         *logx.Logger
	cmd         *cobra.Command
}

func resolveLevel() (logx.Level, error) {
	raw := logLevel
	if raw == "" {
		raw = os.Getenv(logLevelEnv)
	}
	level, err := logx.ParseLevel(raw)
	if err != nil {
		return logx.LevelInfo, err
	}
	if verbose && level > logx.LevelDebug {
		level = logx.LevelDebug
	}
	return level, nil
}

// loadApp opens the settings document next to the executable (or under
// $CPM_SETTINGS_DIR), creating it with host defaults when absent.
func loadApp(cmd *cobra.Command, forceReinit bool) (*app, error) {
	level, err := resolveLevel()
	if err != nil {
		return nil, err
	}
	log := logx.New(cmd.ErrOrStderr(), level)

	exe, err := paths.Executable()
	if err != nil {
		return nil, err
	}
	dir, err := paths.SettingsDir(exe.ExeDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}

	if logToFile {
		path, err := log.OpenFile(paths.LogsDir(dir))
		if err != nil {
			log.Warnf("log file disabled: %v", err)
		} else {
			log.Debugf("logging to %s", path)
		}
	}

	host := settings.Host{
		OS:        platform.HostOS(),
		OSRelease: platform.Release(),
		ExePath:   exe.ExePath,
		ExeDir:    exe.ExeDir,
	}
	h, err := settings.InitDefault(dir, host, forceReinit)
	if err != nil {
		log.Close()
		return nil, err
	}
	log.Debugf("settings: %s", h.Path())
	log.Debugf("%s %s", cmd.CommandPath(), strings.Join(os.Args[1:], " "))

	return &app{exe: exe, settingsDir: dir, handle: h, log: log, cmd: cmd}, nil
}

// platform builds the platform named osName. Every command it runs is
// recorded as last_command first.
func (a *app) platform(osName string, timeout time.Duration) (platform.Platform, error) {
	return platform.New(osName, runner.Options{
		Stdout:   a.cmd.OutOrStdout(),
		Stderr:   a.cmd.ErrOrStderr(),
		Timeout:  timeout,
		Recorder: a.handle.RecordCommand,
		Log:      a.log,
	})
}

func (a *app) close() {
	if err := a.log.Close(); err != nil {
		fmt.Fprintf(a.cmd.ErrOrStderr(), "close log: %v\n", err)
	}
}
