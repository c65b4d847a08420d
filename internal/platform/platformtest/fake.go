// Package platformtest provides an in-memory Platform for tests.
package platformtest

import (
	"context"
	"strings"
	"sync"

	"cpm/internal/platform"
	"cpm/internal/runner"
)

var _ platform.Platform = (*Fake)(nil)

// Fake answers lookups and captured commands from maps and records every
// command it is asked to run. Paths use forward slashes.
type Fake struct {
	OSName     string
	Located    map[string]string
	Outputs    map[string]string
	DirectErrs map[string]error

	mu     sync.Mutex
	Shell  [][]string
	Direct [][]string
}

// New returns a fake named osName.
func New(osName string) *Fake {
	return &Fake{
		OSName:     osName,
		Located:    map[string]string{},
		Outputs:    map[string]string{},
		DirectErrs: map[string]error{},
	}
}

func (f *Fake) Name() string { return f.OSName }

func (f *Fake) LocateExecutable(_ context.Context, name string) (string, error) {
	return f.Located[name], nil
}

func (f *Fake) NormalizePathSeparators(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

func (f *Fake) JoinPath(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for i, e := range elem {
		if i > 0 {
			e = strings.Trim(e, "/")
		} else if len(elem) > 1 {
			e = strings.TrimRight(e, "/")
		}
		parts = append(parts, e)
	}
	return strings.Join(parts, "/")
}

func (f *Fake) TrimExecutable(path string) string {
	path = f.NormalizePathSeparators(path)
	if idx := strings.LastIndexByte(path, '/'); idx > 0 {
		return path[:idx]
	}
	return path
}

func (f *Fake) ExecutableName(base string) string { return base }

func (f *Fake) RunShellCaptured(_ context.Context, argv []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Shell = append(f.Shell, argv)
	return f.Outputs[strings.Join(argv, " ")], nil
}

func (f *Fake) RunShellDisplay(ctx context.Context, argv []string) (runner.Result, error) {
	out, err := f.RunShellCaptured(ctx, argv)
	return runner.Result{Stdout: out}, err
}

func (f *Fake) RunDirect(_ context.Context, argv []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Direct = append(f.Direct, argv)
	return f.DirectErrs[strings.Join(argv, " ")]
}

func (f *Fake) OpenCommand(path string) []string { return []string{"open", path} }

func (f *Fake) Entrypoint(exePath string) (string, string) {
	return "cpm.sh", "#!/bin/sh\nexec " + exePath + " --no-init \"$@\"\n"
}

func (f *Fake) DefaultSystemType() string { return "unix/gcc" }
