package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStorageManager struct {
	rolledBackTo map[int64]int64
	lastVersions map[int64]int64
}

func (f *fakeStorageManager) Rollback(targets map[int64]int64) error {
	f.rolledBackTo = targets
	return nil
}

func (f *fakeStorageManager) LastVersion(arrayID int64) (int64, error) {
	return f.lastVersions[arrayID], nil
}

type fakeChunkDropper struct {
	dropped []int64
}

func (f *fakeChunkDropper) DropArray(arrayID int64) error {
	f.dropped = append(f.dropped, arrayID)
	return nil
}

func TestShouldRollback(t *testing.T) {
	require.True(t, ShouldRollback(Write{ArrayID: 1, NewVersion: 2, NewVersionID: 2, LastVersion: 1}))
	require.False(t, ShouldRollback(Write{ArrayID: 1, NewVersion: 2, NewVersionID: 2, LastVersion: 1, Transient: true}))
	require.False(t, ShouldRollback(Write{ArrayID: 0, NewVersion: 2, NewVersionID: 2, LastVersion: 1}))
	require.False(t, ShouldRollback(Write{ArrayID: 1, NewVersion: 1, NewVersionID: 2, LastVersion: 1}))
}

func TestRollbackOnlyActsOnQualifyingWrites(t *testing.T) {
	sm := &fakeStorageManager{}
	dropper := &fakeChunkDropper{}

	ws := []Write{
		{ArrayID: 1, NewVersion: 2, NewVersionID: 2, NewArrayID: 20, LastVersion: 1},
		{ArrayID: 2, NewVersion: 2, NewVersionID: 2, NewArrayID: 21, LastVersion: 1, Transient: true},
	}

	require.NoError(t, Rollback(sm, dropper, ws))
	require.Equal(t, map[int64]int64{1: 1}, sm.rolledBackTo)
	require.Equal(t, []int64{20}, dropper.dropped)
}

func TestRollbackIsNoOpWhenNothingQualifies(t *testing.T) {
	sm := &fakeStorageManager{}
	dropper := &fakeChunkDropper{}

	ws := []Write{{ArrayID: 1, NewVersion: 1, NewVersionID: 1, LastVersion: 1}}

	require.NoError(t, Rollback(sm, dropper, ws))
	require.Nil(t, sm.rolledBackTo)
	require.Empty(t, dropper.dropped)
}
