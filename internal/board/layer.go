package board

import (
	"slices"
	"sync"

	"github.com/piwi3910/pcbmill/internal/model"
	"github.com/piwi3910/pcbmill/internal/surface"
)

// Layer is a composed board layer. Its toolpaths are computed on first use.
type Layer struct {
	Name    string
	Tool    model.Tool
	Side    model.Side
	Surface surface.Surface

	once  sync.Once
	paths []model.Toolpath
	err   error
}

// Toolpaths returns the ordered cuts of the layer. Back side layers are
// mirrored. Safe for concurrent use; each call returns its own copy.
func (l *Layer) Toolpaths() ([]model.Toolpath, error) {
	l.once.Do(func() {
		l.paths, l.err = l.Surface.Toolpaths(l.Tool, l.Side == model.SideBack)
	})
	if l.err != nil {
		return nil, l.err
	}
	paths := make([]model.Toolpath, len(l.paths))
	for i, p := range l.paths {
		paths[i] = slices.Clone(p)
	}
	return paths, nil
}
