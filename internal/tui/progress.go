package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"cpm/internal/errs"
)

const columnGap = "  "

// Column is one column of the progress table. Cells longer than Width are
// cut with an ellipsis.
type Column struct {
	Header string
	Width  int
}

// Row holds the field values for a single table row.
type Row struct {
	Key    string
	Fields []string
}

// ProgressModel renders a table of steps whose STATUS cells change while
// work runs in the background, with a spinner footer until it finishes.
type ProgressModel struct {
	columns   []Column
	rows      []Row
	rowIndex  map[string]int
	statusCol int
	title     string

	spinner spinner.Model
	started time.Time
	done    bool
	err     error
}

// NewProgressModel creates a progress model with the given title and columns.
func NewProgressModel(title string, columns []Column) ProgressModel {
	statusCol := -1
	for i, c := range columns {
		if strings.EqualFold(c.Header, "STATUS") {
			statusCol = i
			break
		}
	}
	return ProgressModel{
		columns:   columns,
		rowIndex:  make(map[string]int),
		statusCol: statusCol,
		title:     title,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		started:   time.Now(),
	}
}

// AddRow pre-populates a row. Call this before the program starts.
func (m *ProgressModel) AddRow(key string, fields []string) {
	padded := make([]string, len(m.columns))
	copy(padded, fields)
	m.rowIndex[key] = len(m.rows)
	m.rows = append(m.rows, Row{Key: key, Fields: padded})
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case RowUpdateMsg:
		m.apply(msg)
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.err = errs.New(errs.CommandCancelled, "interrupted")
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) apply(msg RowUpdateMsg) {
	idx, ok := m.rowIndex[msg.Key]
	if !ok {
		return
	}
	row := &m.rows[idx]
	for j, col := range m.columns {
		if val, exists := msg.Fields[col.Header]; exists {
			row.Fields[j] = val
		}
	}
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	var b strings.Builder

	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	widths := m.widths()
	header := make([]string, len(m.columns))
	for i, col := range m.columns {
		header[i] = HeaderStyle.Render(pad(col.Header, widths[i]))
	}
	b.WriteString(strings.Join(header, columnGap))
	b.WriteByte('\n')

	for _, row := range m.rows {
		cells := make([]string, len(m.columns))
		for i := range m.columns {
			val := TruncateWithEllipsis(row.Fields[i], widths[i])
			if i == m.statusCol {
				cells[i] = StatusStyle(val).Render(pad(val, widths[i]))
			} else {
				cells[i] = pad(val, widths[i])
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, columnGap), " "))
		b.WriteByte('\n')
	}

	switch {
	case m.err != nil:
		fmt.Fprintf(&b, "\nError: %v\n", m.err)
	case !m.done:
		processed, total := m.progressCounts()
		fmt.Fprintf(&b, "\n%s %d/%d steps (%s)\n", m.spinner.View(), processed, total, formatElapsed(time.Since(m.started)))
	}
	return b.String()
}

// widths sizes each column to its widest cell, capped at Column.Width.
func (m ProgressModel) widths() []int {
	widths := make([]int, len(m.columns))
	for i, col := range m.columns {
		widths[i] = len(col.Header)
		for _, row := range m.rows {
			if n := len(strings.TrimSpace(row.Fields[i])); n > widths[i] {
				widths[i] = n
			}
		}
		if col.Width > len(col.Header) && widths[i] > col.Width {
			widths[i] = col.Width
		}
	}
	return widths
}

// progressCounts returns (processed, total). A row counts as processed once
// its status is neither pending nor an active state.
func (m ProgressModel) progressCounts() (int, int) {
	total := len(m.rows)
	if m.statusCol < 0 {
		return 0, total
	}
	processed := 0
	for _, row := range m.rows {
		switch strings.TrimSpace(row.Fields[m.statusCol]) {
		case "", "pending", "checking", "installing":
		default:
			processed++
		}
	}
	return processed, total
}

// Done returns whether the model has finished (work done or error).
func (m ProgressModel) Done() bool {
	return m.done
}

// Err returns any fatal error that occurred.
func (m ProgressModel) Err() error {
	return m.err
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max length.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
