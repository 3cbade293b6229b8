package storage

import (
	"fmt"

	"github.com/equinor/geomodelgrids-query/internal/model"
)

// MemoryLoader is a synthetic, in-memory model.Loader: filenames are
// arbitrary keys into a map of pre-built *model.Model values. It exists
// so tests build fixtures entirely in Go without touching real storage.
type MemoryLoader struct {
	models map[string]*model.Model
}

// NewMemoryLoader builds a MemoryLoader from a name->Model map.
func NewMemoryLoader(models map[string]*model.Model) *MemoryLoader {
	return &MemoryLoader{models: models}
}

func (l *MemoryLoader) Load(filename string) (*model.Model, error) {
	m, ok := l.models[filename]
	if !ok {
		return nil, fmt.Errorf("no synthetic model registered for %q", filename)
	}
	return m, nil
}
