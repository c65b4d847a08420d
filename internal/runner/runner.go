// Package runner executes external commands in the three modes cpm needs:
// live (streamed, direct spawn), captured-display and captured-return
// (both dispatched through the platform shell).
package runner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"cpm/internal/errs"
	"cpm/internal/logx"
)

// Shell wraps an argument vector for dispatch through the platform command
// interpreter.
type Shell interface {
	Wrap(argv []string) []string
}

// Recorder persists the last command before it runs.
type Recorder func(argv []string) error

// Options configures a Runner.
type Options struct {
	Dir      string
	Env      []string
	Stdout   io.Writer
	Stderr   io.Writer
	Timeout  time.Duration
	Recorder Recorder
	Log      *logx.Logger
	Executor Executor
}

// Result is the outcome of a captured run. Warning holds a non-fatal
// CmdCaughtStdErr when the command wrote to stderr.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Warning  error
}

// Runner executes commands. A nil shell marks an unsupported host; every
// mode then fails before spawning anything.
type Runner struct {
	shell Shell
	opts  Options
}

// New returns a runner dispatching captured commands through shell.
func New(shell Shell, opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Log == nil {
		opts.Log = logx.Discard()
	}
	if opts.Executor == nil {
		opts.Executor = CmdExecutor{}
	}
	return &Runner{shell: shell, opts: opts}
}

func (r *Runner) prepare(argv []string) error {
	if len(argv) == 0 {
		return errs.New(errs.EmptyCommand, "")
	}
	if r.shell == nil {
		return errs.New(errs.NotSupportedOS, "")
	}
	if r.opts.Recorder != nil {
		if err := r.opts.Recorder(argv); err != nil {
			r.opts.Log.Debugf("record last command: %v", err)
		}
	}
	r.opts.Log.Debugf("exec: %s", Join(argv))
	return nil
}

// Live spawns argv directly and streams each stdout and stderr line as it
// is produced. Both readers are joined before Live returns. Cancelling ctx
// (or hitting the configured timeout) kills the child.
func (r *Runner) Live(ctx context.Context, argv []string) error {
	if err := r.prepare(argv); err != nil {
		return err
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	cmd := newCommand(ctx, argv[0], argv[1:], r.opts.Dir, r.opts.Env)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errs.Wrap(errs.CommandFailed, err, Join(argv))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errs.Wrap(errs.CommandFailed, err, Join(argv))
	}
	if err := cmd.Start(); err != nil {
		return errs.Wrap(errs.CommandFailed, err, Join(argv))
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)
	go pumpLines(&wg, &mu, stdout, r.opts.Stdout)
	go pumpLines(&wg, &mu, stderr, r.opts.Stderr)
	wg.Wait()

	err = cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errs.Wrap(errs.CommandCancelled, ctxErr, Join(argv))
	}
	if err != nil {
		return errs.Wrap(errs.CommandFailed, err, Join(argv))
	}
	return nil
}

func pumpLines(wg *sync.WaitGroup, mu *sync.Mutex, src io.Reader, dst io.Writer) {
	defer wg.Done()
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		mu.Lock()
		_, _ = io.WriteString(dst, scanner.Text()+"\n")
		mu.Unlock()
	}
	// Drain whatever a too-long line left behind so the child never blocks
	// on a full pipe.
	_, _ = io.Copy(io.Discard, src)
}

// Display runs argv through the shell and logs stdout at info and stderr
// at error. Output on stderr is reported as a CmdCaughtStdErr warning.
func (r *Runner) Display(ctx context.Context, argv []string) (Result, error) {
	res, err := r.capture(ctx, argv)
	if err != nil {
		return res, err
	}
	r.opts.Log.Block(logx.LevelInfo, "stdout:", res.Stdout)
	if res.Stderr != "" {
		r.opts.Log.Block(logx.LevelError, "stderr:", res.Stderr)
		res.Warning = errs.New(errs.CmdCaughtStdErr, Join(argv))
		r.opts.Log.Warnf("%v", res.Warning)
	}
	return res, nil
}

// Output runs argv through the shell and returns its trimmed stdout. Both
// streams are logged at debug level; callers treat empty output as failure.
func (r *Runner) Output(ctx context.Context, argv []string) (string, error) {
	res, err := r.capture(ctx, argv)
	if err != nil {
		return "", err
	}
	r.opts.Log.Block(logx.LevelDebug, "stdout:", res.Stdout)
	r.opts.Log.Block(logx.LevelDebug, "stderr:", res.Stderr)
	return res.Stdout, nil
}

func (r *Runner) capture(ctx context.Context, argv []string) (Result, error) {
	if err := r.prepare(argv); err != nil {
		return Result{}, err
	}
	wrapped := r.shell.Wrap(argv)
	raw, err := r.opts.Executor.Run(ctx, wrapped[0], wrapped[1:], RunOptions{Dir: r.opts.Dir, Env: r.opts.Env})
	res := Result{
		Stdout:   TrimEOL(string(raw.Stdout)),
		Stderr:   TrimEOL(string(raw.Stderr)),
		ExitCode: raw.ExitCode,
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, errs.Wrap(errs.CommandCancelled, ctxErr, Join(argv))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, errs.Wrap(errs.CommandFailed, err, Join(argv))
		}
		r.opts.Log.Debugf("%s exited with status %d", argv[0], res.ExitCode)
	}
	return res, nil
}

// TrimEOL removes trailing carriage returns and newlines.
func TrimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// Join renders argv for logs, quoting arguments that contain spaces.
func Join(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t") {
			parts[i] = `"` + a + `"`
			continue
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}
