package cluster

// StorageManager is the narrow surface rollback needs from the array
// catalog/storage layer: rewind an array's version pointer and learn
// its last-committed version.
type StorageManager interface {
	Rollback(targets map[int64]int64) error
	LastVersion(arrayID int64) (int64, error)
}

// ChunkDropper drops an array's resident in-memory chunks; the cache's
// Drop is called per-chunk by the array layer, which knows the
// addresses — this is the narrow per-array surface rollback needs.
type ChunkDropper interface {
	DropArray(arrayID int64) error
}

// Write is one writer's input to spec.md §4.6's "Rollback" predicate,
// evaluated by ShouldRollback.
type Write struct {
	ArrayID        int64
	NewVersion     int64
	NewVersionID   int64
	NewArrayID     int64
	Transient      bool
	LastVersion    int64
}

// ShouldRollback implements spec.md §4.6: "if arrayId>0 ∧ newVersion>0
// ∧ newVersionId>0 ∧ lastVersion<newVersion, invoke rollback". Transient
// arrays are never rolled back.
func ShouldRollback(w Write) bool {
	if w.Transient {
		return false
	}
	return w.ArrayID > 0 && w.NewVersion > 0 && w.NewVersionID > 0 && w.LastVersion < w.NewVersion
}

// Rollback performs the rollback of spec.md §4.6 for every write in
// ws that ShouldRollback approves: it asks the storage manager to
// rewind each qualifying array to its last-committed version, and
// drops in-memory chunks for the new (uncommitted) array id.
func Rollback(sm StorageManager, drop ChunkDropper, ws []Write) error {
	targets := make(map[int64]int64)
	for _, w := range ws {
		if !ShouldRollback(w) {
			continue
		}
		targets[w.ArrayID] = w.LastVersion
	}
	if len(targets) == 0 {
		return nil
	}
	if err := sm.Rollback(targets); err != nil {
		return err
	}
	for _, w := range ws {
		if !ShouldRollback(w) {
			continue
		}
		if err := drop.DropArray(w.NewArrayID); err != nil {
			return err
		}
	}
	return nil
}
