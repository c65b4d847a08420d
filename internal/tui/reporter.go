package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"cpm/internal/deps"
)

// Setup table columns.
var StepColumns = []Column{
	{Header: "STEP", Width: 13},
	{Header: "NAME", Width: 28},
	{Header: "STATUS", Width: 10},
	{Header: "DETAIL", Width: 40},
}

// StepReporter forwards dependency checker events to a running program as
// row updates.
type StepReporter struct {
	send func(tea.Msg)
}

// NewStepReporter wraps send, typically the callback RunWithWork hands to
// its work function.
func NewStepReporter(send func(tea.Msg)) *StepReporter {
	return &StepReporter{send: send}
}

// Step implements deps.Observer.
func (r *StepReporter) Step(res deps.StepResult) {
	r.send(RowUpdateMsg{
		Key: res.Key(),
		Fields: map[string]string{
			"STATUS": res.Status,
			"DETAIL": NonEmptyOrDash(res.Detail),
		},
	})
}

// NewStepModel lays out one pending row per planned step.
func NewStepModel(title string, plan []deps.StepResult) ProgressModel {
	m := NewProgressModel(title, StepColumns)
	for _, step := range plan {
		m.AddRow(step.Key(), []string{string(step.Stage), step.Name, "pending", "-"})
	}
	return m
}

var _ deps.Observer = (*StepReporter)(nil)
