package nutrition

import (
	"sync/atomic"

	apperrors "github.com/pageza/alchemorsel-engine/backend/pkg/errors"
)

// TableStore publishes nutrient tables with a single atomic swap.
type TableStore struct {
	current atomic.Pointer[Table]
}

func NewTableStore() *TableStore {
	return &TableStore{}
}

// Current returns the published table or an IndexUnavailable error.
func (s *TableStore) Current() (*Table, error) {
	t := s.current.Load()
	if t == nil {
		return nil, apperrors.NewIndexUnavailableError("nutrient reference table not loaded yet")
	}
	return t, nil
}

func (s *TableStore) Publish(t *Table) {
	s.current.Store(t)
}
