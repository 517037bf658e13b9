package corpus

import (
	"sync/atomic"

	apperrors "github.com/pageza/alchemorsel-engine/backend/pkg/errors"
)

// Store publishes corpus snapshots. Readers never block; a publish is a
// single atomic pointer swap.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the published snapshot, or an IndexUnavailable error when
// nothing has been published yet.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, apperrors.NewIndexUnavailableError("recipe corpus snapshot not built yet")
	}
	return snap, nil
}

// Publish makes snap the current snapshot.
func (s *Store) Publish(snap *Snapshot) {
	s.current.Store(snap)
}
