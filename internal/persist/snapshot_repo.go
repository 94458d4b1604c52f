package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/world"
	"github.com/jackc/pgx/v5"
)

var ErrNoSnapshot = errors.New("persist: no snapshot stored")

// SnapshotInfo is the header row of one stored snapshot.
type SnapshotInfo struct {
	ID         int64
	Tick       uint64
	Elapsed    float64
	Digest     [32]byte
	ActorCount int
	TakenAt    time.Time
}

var snapshotRowColumns = []string{
	"snapshot_id", "slot", "entity_id", "name",
	"pos_x", "pos_y", "pos_z",
	"rot_w", "rot_x", "rot_y", "rot_z",
	"vel_x", "vel_y", "vel_z",
	"grounded",
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save writes the snapshot header and every actor row in one transaction and
// returns the new snapshot id.
func (r *SnapshotRepo) Save(ctx context.Context, snap world.Snapshot) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO actor_snapshots (tick, elapsed_sec, digest, actor_count, taken_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		int64(snap.Tick), snap.Elapsed, snap.Digest[:], len(snap.Actors), snap.TakenAt,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("snapshot insert: %w", err)
	}

	if len(snap.Actors) > 0 {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"actor_snapshot_rows"}, snapshotRowColumns,
			pgx.CopyFromRows(snapshotRows(id, snap.Actors)))
		if err != nil {
			return 0, fmt.Errorf("snapshot rows: %w", err)
		}
		if int(n) != len(snap.Actors) {
			return 0, fmt.Errorf("snapshot rows: copied %d of %d", n, len(snap.Actors))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("snapshot commit: %w", err)
	}
	return id, nil
}

// Latest returns the header of the most recent snapshot.
func (r *SnapshotRepo) Latest(ctx context.Context) (*SnapshotInfo, error) {
	var (
		info   SnapshotInfo
		tick   int64
		digest []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, tick, elapsed_sec, digest, actor_count, taken_at
		 FROM actor_snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&info.ID, &tick, &info.Elapsed, &digest, &info.ActorCount, &info.TakenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	info.Tick = uint64(tick)
	copy(info.Digest[:], digest)
	return &info, nil
}

// LoadActors returns the actor rows of one snapshot in slot order.
func (r *SnapshotRepo) LoadActors(ctx context.Context, snapshotID int64) ([]world.ActorState, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, entity_id, name, pos_x, pos_y, pos_z, rot_w, rot_x, rot_y, rot_z,
		        vel_x, vel_y, vel_z, grounded
		 FROM actor_snapshot_rows WHERE snapshot_id = $1 ORDER BY slot`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("load snapshot rows: %w", err)
	}
	defer rows.Close()

	var out []world.ActorState
	for rows.Next() {
		var (
			a   world.ActorState
			eid int64
		)
		if err := rows.Scan(&a.Slot, &eid, &a.Name,
			&a.Position[0], &a.Position[1], &a.Position[2],
			&a.Rotation.W, &a.Rotation.V[0], &a.Rotation.V[1], &a.Rotation.V[2],
			&a.Velocity[0], &a.Velocity[1], &a.Velocity[2],
			&a.Grounded,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		a.EntityID = ecs.EntityID(uint64(eid))
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep snapshots. Rows cascade.
func (r *SnapshotRepo) Prune(ctx context.Context, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM actor_snapshots
		 WHERE id NOT IN (SELECT id FROM actor_snapshots ORDER BY id DESC LIMIT $1)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// snapshotRows flattens actors into CopyFrom rows matching snapshotRowColumns.
func snapshotRows(id int64, actors []world.ActorState) [][]any {
	rows := make([][]any, 0, len(actors))
	for _, a := range actors {
		rows = append(rows, []any{
			id, int32(a.Slot), int64(a.EntityID), a.Name,
			a.Position[0], a.Position[1], a.Position[2],
			a.Rotation.W, a.Rotation.V[0], a.Rotation.V[1], a.Rotation.V[2],
			a.Velocity[0], a.Velocity[1], a.Velocity[2],
			a.Grounded,
		})
	}
	return rows
}
