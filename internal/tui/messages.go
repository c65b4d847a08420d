package tui

// RowUpdateMsg sets fields of the row identified by Key. Fields is keyed by
// column header; columns not named keep their value.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// WorkDoneMsg is sent by RunWithWork once the work function returns.
type WorkDoneMsg struct{}

// ErrorMsg stops the program and keeps Err for RunWithWork to return.
type ErrorMsg struct {
	Err error
}
