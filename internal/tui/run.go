package tui

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork shows model on out while workFn runs in a goroutine. workFn
// gets a context that is cancelled when the user quits the program, and a
// send callback for row updates. RunWithWork does not return before workFn
// has.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, workFn func(ctx context.Context, send func(tea.Msg))) error {
	return runWithWork(ctx, model, workFn, tea.WithOutput(out))
}

func runWithWork(ctx context.Context, model ProgressModel, workFn func(ctx context.Context, send func(tea.Msg)), opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, opts...)
	done := make(chan struct{})

	go func() {
		defer close(done)

		// Give the first frame a chance to draw before rows start moving.
		select {
		case <-ctx.Done():
		case <-time.After(50 * time.Millisecond):
		}

		workFn(ctx, func(msg tea.Msg) {
			p.Send(msg)
			// Steps can finish back to back; pace updates so each one renders.
			time.Sleep(5 * time.Millisecond)
		})

		p.Send(WorkDoneMsg{})
	}()

	finalModel, err := p.Run()
	cancel()
	<-done

	if err != nil {
		return err
	}
	if m, ok := finalModel.(ProgressModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
