// Package tempdir scopes temporary extraction folders per page request and
// guarantees cleanup on success, failure, and password-prompt interruptions.
package tempdir

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
)

// Manager owns a session-scoped root under which per-extraction folders are
// created. Sweep removes everything, which also covers folders leaked by an
// earlier crash when pointed at the same root.
type Manager struct {
	fs   afero.Fs
	root string
	seq  int
}

func NewManager(fs afero.Fs, root string) *Manager {
	return &Manager{fs: fs, root: root}
}

// New creates a fresh extraction folder and returns its path with a cleanup
// function. Callers must invoke cleanup on every exit path.
func (m *Manager) New() (string, func(), error) {
	m.seq++
	dir := filepath.Join(m.root, fmt.Sprintf("extract-%d", m.seq))
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("tempdir: create %s: %w", dir, err)
	}
	cleanup := func() {
		if err := m.fs.RemoveAll(dir); err != nil {
			log.Printf("Warning: failed to remove temp folder %s: %v", dir, err)
		}
	}
	return dir, cleanup, nil
}

// Sweep removes the whole root, including folders from interrupted runs.
func (m *Manager) Sweep() {
	if err := m.fs.RemoveAll(m.root); err != nil {
		log.Printf("Warning: failed to sweep temp root %s: %v", m.root, err)
	}
}

// Root returns the managed root folder.
func (m *Manager) Root() string {
	return m.root
}
