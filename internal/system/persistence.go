package system

import (
	"context"
	"encoding/hex"
	"time"

	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/world"
	"go.uber.org/zap"
)

// SnapshotSaver stores world snapshots. persist.SnapshotRepo implements it.
type SnapshotSaver interface {
	Save(ctx context.Context, snap world.Snapshot) (int64, error)
}

// PersistenceSystem periodically saves a snapshot of every actor.
// Phase 6 (Persist).
type PersistenceSystem struct {
	world     *world.State
	saver     SnapshotSaver
	log       *zap.Logger
	tickCount int
	interval  int // snapshot every N ticks
	timeout   time.Duration
}

func NewPersistenceSystem(ws *world.State, saver SnapshotSaver, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{
		world:    ws,
		saver:    saver,
		log:      log,
		interval: intervalTicks,
		timeout:  5 * time.Second,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_ = s.SaveNow(ctx)
}

// SaveNow writes a snapshot immediately. Called for graceful shutdown.
func (s *PersistenceSystem) SaveNow(ctx context.Context) error {
	snap := s.world.Snapshot()
	id, err := s.saver.Save(ctx, snap)
	if err != nil {
		s.log.Error("snapshot save failed", zap.Uint64("tick", snap.Tick), zap.Error(err))
		return err
	}
	s.log.Info("snapshot saved",
		zap.Int64("id", id),
		zap.Uint64("tick", snap.Tick),
		zap.Int("actors", len(snap.Actors)),
		zap.String("digest", hex.EncodeToString(snap.Digest[:8])))
	return nil
}
