package settings

import (
	"errors"
	"os"
	"sync"

	"cpm/internal/errs"
)

// Handle is the live settings document shared by one cpm invocation.
// Mutations go through Update, which writes the whole file back.
type Handle struct {
	mu   sync.Mutex
	path string
	s    Settings
}

// InitDefault opens the settings file in dir, creating it with defaults
// for host when absent. forceReinit deletes an existing file first.
func InitDefault(dir string, host Host, forceReinit bool) (*Handle, error) {
	path := Path(dir)

	if forceReinit {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.SettingsIO, err, path)
		}
	}

	s, err := Load(path)
	switch {
	case err == nil:
		return &Handle{path: path, s: s}, nil
	case errors.Is(err, os.ErrNotExist):
		s = New(host)
		if err := Save(s, path); err != nil {
			return nil, err
		}
		return &Handle{path: path, s: s}, nil
	default:
		return nil, err
	}
}

// Path returns the backing file.
func (h *Handle) Path() string { return h.path }

// Settings returns a snapshot of the document.
func (h *Handle) Settings() Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.s
}

// Update applies fn and persists the result. The in-memory document keeps
// the change even when the write fails.
func (h *Handle) Update(fn func(*Settings)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.s)
	return Save(h.s, h.path)
}

// Save writes the current document.
func (h *Handle) Save() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Save(h.s, h.path)
}

// RecordCommand stores argv as the last executed command.
func (h *Handle) RecordCommand(argv []string) error {
	return h.Update(func(s *Settings) {
		s.LastCommand = append([]string(nil), argv...)
	})
}
