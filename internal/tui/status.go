package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// StatusWriter keeps a single spinner line on w for work that has no
// table of its own, such as locating the toolchain before setup's checks.
type StatusWriter struct {
	w    io.Writer
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	mu    sync.Mutex
	text  string
	since time.Time
}

// NewStatusWriter starts redrawing the line at the spinner's frame rate
// until Stop is called.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{w: w, stop: make(chan struct{}), since: time.Now()}
	sw.wg.Add(1)
	go sw.loop(spinner.Dot)
	return sw
}

// Update replaces the text and restarts the elapsed timer.
func (sw *StatusWriter) Update(text string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.text = text
	sw.since = time.Now()
}

// Stop ends the redraw loop and erases the line. Calling it twice is safe.
func (sw *StatusWriter) Stop() {
	sw.once.Do(func() {
		close(sw.stop)
		sw.wg.Wait()
		fmt.Fprint(sw.w, "\r\033[K")
	})
}

func (sw *StatusWriter) loop(s spinner.Spinner) {
	defer sw.wg.Done()
	ticker := time.NewTicker(s.FPS)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-sw.stop:
			return
		case <-ticker.C:
		}
		sw.mu.Lock()
		text, since := sw.text, sw.since
		sw.mu.Unlock()

		glyph := spinnerStyle.Render(s.Frames[frame%len(s.Frames)])
		fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", glyph, text, formatElapsed(time.Since(since)))
	}
}

// formatElapsed renders d the way the spinner footers show it.
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
