package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLifecycleHappyPath(t *testing.T) {
	q := New(ID{InstanceID: 1, Time: 1, Clock: 1, Counter: 1})
	require.Equal(t, Init, q.Completion())

	require.NoError(t, q.Begin())
	require.Equal(t, Start, q.Completion())

	require.NoError(t, q.Done())
	require.Equal(t, OK, q.Completion())

	require.NoError(t, q.HandleCommit())
	require.Equal(t, Committed, q.Commit())
}

func TestBeginIsIllegalAfterStart(t *testing.T) {
	q := New(ID{})
	require.NoError(t, q.Begin())
	require.Error(t, q.Begin())
}

func TestDoneRequiresStart(t *testing.T) {
	q := New(ID{})
	require.Error(t, q.Done())
}

func TestHandleCommitRequiresOK(t *testing.T) {
	q := New(ID{})
	require.Error(t, q.HandleCommit())

	require.NoError(t, q.Begin())
	require.Error(t, q.HandleCommit())
}

func TestHandleAbortIllegalOnceCommitted(t *testing.T) {
	q := New(ID{})
	require.NoError(t, q.Begin())
	require.NoError(t, q.Done())
	require.NoError(t, q.HandleCommit())

	require.Error(t, q.HandleAbort())
}

func TestHandleCommitIllegalOnceAborted(t *testing.T) {
	q := New(ID{})
	require.NoError(t, q.Begin())
	require.NoError(t, q.HandleAbort())
	require.Equal(t, Aborted, q.Commit())

	require.NoError(t, q.Done())
	require.Error(t, q.HandleCommit())
}

func TestFailRecordsFirstErrorOnly(t *testing.T) {
	q := New(ID{})
	first := errors.New("first")
	second := errors.New("second")

	q.Fail(first)
	q.Fail(second)

	require.Equal(t, Error, q.Completion())
	require.Equal(t, first, q.Err())
}

func TestTerminateRunsHandlersAndFinalizersLIFO(t *testing.T) {
	q := New(ID{})
	q.Fail(errors.New("boom"))

	var order []string
	q.PushHandler(func(err error) { order = append(order, "handler1") })
	q.PushHandler(func(err error) { order = append(order, "handler2") })
	q.PushFinalizer(func() { order = append(order, "finalizer1") })
	q.PushFinalizer(func() { order = append(order, "finalizer2") })

	q.Terminate()

	require.Equal(t, []string{"handler2", "handler1", "finalizer2", "finalizer1"}, order)
}

func TestTerminateSkipsHandlersWithoutError(t *testing.T) {
	q := New(ID{})
	var ran bool
	q.PushHandler(func(err error) { ran = true })
	q.PushFinalizer(func() {})

	q.Terminate()
	require.False(t, ran)
}

func TestAcquireLockSubsumesLowerMode(t *testing.T) {
	q := New(ID{})
	q.AcquireLock(ArrayLock{ArrayName: "a", InstanceID: 1, Mode: LockRD})
	q.AcquireLock(ArrayLock{ArrayName: "a", InstanceID: 1, Mode: LockWR})

	locks := q.Locks()
	require.Len(t, locks, 1)
	require.Equal(t, LockWR, locks[0].Mode)
}

func TestAcquireLockKeepsHigherModeOnLowerReinsertion(t *testing.T) {
	q := New(ID{})
	q.AcquireLock(ArrayLock{ArrayName: "a", InstanceID: 1, Mode: LockCRT})
	q.AcquireLock(ArrayLock{ArrayName: "a", InstanceID: 1, Mode: LockRD})

	locks := q.Locks()
	require.Len(t, locks, 1)
	require.Equal(t, LockCRT, locks[0].Mode)
}

func TestAcquireLockTracksDistinctInstancesSeparately(t *testing.T) {
	q := New(ID{})
	q.AcquireLock(ArrayLock{ArrayName: "a", InstanceID: 1, Mode: LockRD})
	q.AcquireLock(ArrayLock{ArrayName: "a", InstanceID: 2, Mode: LockWR})

	require.Len(t, q.Locks(), 2)
}
