package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"cpm/internal/runner"
)

const osReleasePath = "/etc/os-release"

var shellOperators = map[string]bool{
	"|": true, "||": true, "&&": true, "&": true, ";": true,
	">": true, ">>": true, "<": true, "2>&1": true, "2>/dev/null": true,
}

// posixShell dispatches through /bin/sh. Arguments are quoted so paths with
// spaces survive; bare shell operators pass through untouched.
type posixShell struct{}

func (posixShell) Wrap(argv []string) []string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return []string{"/bin/sh", "-c", strings.Join(quoted, " ")}
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if shellOperators[arg] {
		return arg
	}
	if strings.IndexFunc(arg, unsafeShellRune) < 0 {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

func unsafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./:=@%+,", r):
		return false
	}
	return true
}

type linuxPlatform struct {
	r         *runner.Runner
	osRelease string
}

func (p *linuxPlatform) Name() string { return Linux }

// LocateExecutable uses the shell's command -v and resolves symlinks so a
// launcher in /usr/local/bin maps back to its real root.
func (p *linuxPlatform) LocateExecutable(ctx context.Context, name string) (string, error) {
	out, err := p.r.Output(ctx, []string{"command", "-v", name})
	if err != nil {
		return "", err
	}
	path := firstLine(out)
	if path == "" || !strings.HasPrefix(path, "/") {
		// Builtins and aliases print a bare name.
		return "", nil
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return path, nil
}

func (p *linuxPlatform) NormalizePathSeparators(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

func (p *linuxPlatform) JoinPath(elem ...string) string {
	return p.NormalizePathSeparators(joinWith("/", elem))
}

func (p *linuxPlatform) TrimExecutable(path string) string {
	return trimLastComponent(p.NormalizePathSeparators(path))
}

func (p *linuxPlatform) ExecutableName(base string) string { return base }

func (p *linuxPlatform) RunShellCaptured(ctx context.Context, argv []string) (string, error) {
	return p.r.Output(ctx, argv)
}

func (p *linuxPlatform) RunShellDisplay(ctx context.Context, argv []string) (runner.Result, error) {
	return p.r.Display(ctx, argv)
}

func (p *linuxPlatform) RunDirect(ctx context.Context, argv []string) error {
	return p.r.Live(ctx, argv)
}

func (p *linuxPlatform) OpenCommand(path string) []string {
	return []string{"xdg-open", path}
}

func (p *linuxPlatform) Entrypoint(exePath string) (string, string) {
	return "cpm.sh", fmt.Sprintf("#!/bin/sh\nexec %s --no-init \"$@\"\n", shellQuote(exePath))
}

func (p *linuxPlatform) DefaultSystemType() string { return "unix/gcc" }

// Distro reads ID and ID_LIKE from os-release.
func (p *linuxPlatform) Distro() (id string, idLike []string, err error) {
	fields, err := ReadOSRelease(p.osRelease)
	if err != nil {
		return "", nil, err
	}
	return fields["ID"], strings.Fields(fields["ID_LIKE"]), nil
}

// Distro returns the distribution of a Linux platform. Other platforms
// report an empty id.
func Distro(p Platform) (string, []string, error) {
	lp, ok := p.(*linuxPlatform)
	if !ok {
		return "", nil, nil
	}
	return lp.Distro()
}
