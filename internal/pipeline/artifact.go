package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Artifact is the on-disk temporary file owned by a single pipeline
// invocation. It must be released on every exit path; Release is idempotent
// and tolerates files that are already gone.
type Artifact struct {
	path string

	mu   sync.Mutex
	file *os.File
	gone bool
}

// NewArtifact creates a uniquely named temp file under dir. The prefix keys
// the file to its transfer type so the orphan sweep can reason about it.
func NewArtifact(dir, prefix, ext string) (*Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), ext)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	return &Artifact{path: path, file: f}, nil
}

// Path returns the artifact's location on disk.
func (a *Artifact) Path() string {
	return a.path
}

// Write appends downloaded bytes to the artifact.
func (a *Artifact) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return 0, errors.New("artifact: write after close")
	}
	return a.file.Write(p)
}

// Close flushes and closes the underlying file without removing it. Needed
// before handing the path to an external process.
func (a *Artifact) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *Artifact) closeLocked() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// Size reports the artifact's current byte length.
func (a *Artifact) Size() (int64, error) {
	info, err := os.Stat(a.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Release closes and deletes the artifact. Safe to call multiple times and
// after the sweep already removed the file.
func (a *Artifact) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.closeLocked()
	if a.gone {
		return
	}
	a.gone = true
	// The background sweep may have removed the file first.
	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.gone = false
	}
}
