package platform

import (
	"context"
	"fmt"
	"strings"

	"cpm/internal/runner"
)

type windowsShell struct{}

func (windowsShell) Wrap(argv []string) []string {
	return append([]string{"cmd", "/C"}, argv...)
}

type windowsPlatform struct {
	r *runner.Runner
}

func (p *windowsPlatform) Name() string { return Windows }

func (p *windowsPlatform) LocateExecutable(ctx context.Context, name string) (string, error) {
	out, err := p.r.Output(ctx, []string{"where", name})
	if err != nil {
		return "", err
	}
	// where lists every match on PATH; the first one wins.
	return firstLine(out), nil
}

func (p *windowsPlatform) NormalizePathSeparators(path string) string {
	return strings.ReplaceAll(path, "/", `\`)
}

func (p *windowsPlatform) JoinPath(elem ...string) string {
	return p.NormalizePathSeparators(joinWith(`\`, elem))
}

func (p *windowsPlatform) TrimExecutable(path string) string {
	return trimLastComponent(p.NormalizePathSeparators(path))
}

func (p *windowsPlatform) ExecutableName(base string) string {
	if strings.HasSuffix(strings.ToLower(base), ".exe") {
		return base
	}
	return base + ".exe"
}

func (p *windowsPlatform) RunShellCaptured(ctx context.Context, argv []string) (string, error) {
	return p.r.Output(ctx, argv)
}

func (p *windowsPlatform) RunShellDisplay(ctx context.Context, argv []string) (runner.Result, error) {
	return p.r.Display(ctx, argv)
}

func (p *windowsPlatform) RunDirect(ctx context.Context, argv []string) error {
	return p.r.Live(ctx, argv)
}

func (p *windowsPlatform) OpenCommand(path string) []string {
	return []string{"explorer", p.NormalizePathSeparators(path)}
}

func (p *windowsPlatform) Entrypoint(exePath string) (string, string) {
	return "cpm.bat", fmt.Sprintf("@echo off\r\n\"%s\" --no-init %%*\r\n", exePath)
}

func (p *windowsPlatform) DefaultSystemType() string { return "nt/msvc" }
