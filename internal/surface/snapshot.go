package surface

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Snapshotter writes numbered debug images into a directory. Files are
// named outp<N>_<tag>.<ext> with N counting up from 0.
type Snapshotter struct {
	dir string

	mu   sync.Mutex
	next int
}

// NewSnapshotter returns a snapshotter writing into dir.
func NewSnapshotter(dir string) *Snapshotter {
	return &Snapshotter{dir: dir}
}

// Dir returns the output directory.
func (s *Snapshotter) Dir() string { return s.dir }

// Write creates the next numbered file and fills it with write.
func (s *Snapshotter) Write(tag, ext string, write func(io.Writer) error) (string, error) {
	s.mu.Lock()
	n := s.next
	s.next++
	s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("outp%d_%s.%s", n, tag, ext))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot %s: %w", path, err)
	}
	return path, nil
}
