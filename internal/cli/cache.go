package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cpm/internal/settings"
)

const printAll = "\x00all"

var (
	cachePrint  string
	cacheEdit   string
	cacheOpen   bool
	cacheFormat string
)

var cacheKeyStyle = lipgloss.NewStyle().Bold(true)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache [VALUE]",
		Short: "Print, edit or open the settings cache",
		Long: `Print, edit or open the settings cache.

Without flags the whole cache is printed.
  cpm cache --print-cache               print every key
  cpm cache --print-cache=build_dir     print one key
  cpm cache --edit-cache-key KEY VALUE  change a value
  cpm cache --open-cache                open the directory holding settings.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCache,
	}

	cmd.Flags().StringVarP(&cachePrint, "print-cache", "p", "", "Print the cache, or only KEY")
	cmd.Flags().Lookup("print-cache").NoOptDefVal = printAll
	cmd.Flags().StringVarP(&cacheEdit, "edit-cache-key", "e", "", "Set KEY to the VALUE argument")
	cmd.Flags().BoolVarP(&cacheOpen, "open-cache", "o", false, "Open the settings directory in the file manager")
	cmd.Flags().StringVar(&cacheFormat, "format", "json", "Output format for printing the whole cache: json, yaml or table")
	cmd.MarkFlagsMutuallyExclusive("print-cache", "edit-cache-key", "open-cache")

	return cmd
}

func runCache(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	switch {
	case cacheEdit != "":
		if len(args) != 1 {
			return fmt.Errorf("--edit-cache-key needs a VALUE argument")
		}
		return editCache(a, cacheEdit, args[0])
	case cacheOpen:
		return openCache(cmd, a)
	case cachePrint != "" && cachePrint != printAll:
		return printCacheKey(out, a.handle.Settings(), cachePrint)
	default:
		if len(args) > 0 {
			return fmt.Errorf("unexpected argument %q", args[0])
		}
		return printCache(out, a.handle.Settings(), cacheFormat)
	}
}

func printCacheKey(out io.Writer, s settings.Settings, name string) error {
	key, err := settings.ParseKey(name)
	if err != nil {
		return err
	}
	value, err := s.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", key, value)
	return nil
}

func printCache(out io.Writer, s settings.Settings, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		data, err := s.Marshal()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "yaml", "yml":
		data, err := yaml.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode settings yaml: %w", err)
		}
		_, err = out.Write(data)
		return err
	case "table":
		width := 0
		for _, key := range settings.Keys() {
			width = max(width, len(key))
		}
		for _, key := range settings.Keys() {
			value, err := s.Get(key)
			if err != nil {
				return err
			}
			label := fmt.Sprintf("%-*s", width, key)
			fmt.Fprintf(out, "%s  %s\n", cacheKeyStyle.Render(label), value)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want json, yaml or table)", format)
	}
}

func editCache(a *app, name, value string) error {
	key, err := settings.ParseKey(name)
	if err != nil {
		return err
	}
	next := a.handle.Settings()
	if err := next.Set(key, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if err := a.handle.Update(func(s *settings.Settings) { *s = next }); err != nil {
		return err
	}
	a.log.Infof("changed %s to %q", key, value)
	return nil
}

// openCache opens the settings directory. File managers often exit
// non-zero on success, so the exit status is ignored.
func openCache(cmd *cobra.Command, a *app) error {
	s := a.handle.Settings()
	plat, err := a.platform(s.OS, 0)
	if err != nil {
		return err
	}
	if _, err := plat.RunShellDisplay(cmd.Context(), plat.OpenCommand(a.settingsDir)); err != nil {
		return err
	}
	return nil
}
