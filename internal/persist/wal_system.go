package persist

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/intrets/mem/internal/core/entitystore"
	"github.com/intrets/mem/internal/core/scheduler"
)

// WALSystem writes one WALEntry per entity removed this tick, running at
// PhasePersist — strictly before CollectRemovedSystem's PhaseCleanup fence,
// so a removal's WAL write is attempted before the entity store recycles
// its index. A failed write is logged and the batch is not retried; the
// entities are still recycled at PhaseCleanup.
type WALSystem struct {
	Store *entitystore.Store
	WAL   *WALRepo
	Log   *zap.Logger
}

func (s *WALSystem) Phase() scheduler.Phase { return scheduler.PhasePersist }

func (s *WALSystem) Update(time.Duration) {
	removed := s.Store.Removed()
	if len(removed) == 0 {
		return
	}
	entries := make([]WALEntry, len(removed))
	for i, e := range removed {
		entries[i] = WALEntry{
			Entity:    e,
			Qualifier: s.Store.GetQualifier(e),
			Op:        OpRemoveEntity,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.WAL.WriteWAL(ctx, entries); err != nil {
		s.Log.Error("wal write failed", zap.Error(err))
	}
}
