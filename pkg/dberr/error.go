// Package dberr implements the error taxonomy of the array engine: every
// error carries a short code, a long code, and the source location at which
// it was raised, grouped into numeric bands by subsystem.
package dberr

import (
	"fmt"
	"runtime"
)

// Short codes group errors by subsystem, mirroring the taxonomy table of
// the design: QPROC, MERGE, EXECUTION, NO_MEMORY, INTERNAL, SYNTAX, and the
// QPROC.NO_QUORUM cluster sub-group.
type ShortCode string

const (
	ShortInternal  ShortCode = "INTERNAL"
	ShortQProc     ShortCode = "QPROC"
	ShortNoQuorum  ShortCode = "QPROC.NO_QUORUM"
	ShortMerge     ShortCode = "MERGE"
	ShortExecution ShortCode = "EXECUTION"
	ShortNoMemory  ShortCode = "NO_MEMORY"
	ShortSyntax    ShortCode = "SYNTAX"
	ShortCatalog   ShortCode = "CATALOG"
	ShortCluster   ShortCode = "CLUSTER"
	ShortClient    ShortCode = "CLIENT"
)

// Long codes. Grouped by numeric band: 2010x internal, 2020x capacity,
// 2030x catalog, 2040x invariant, 2050x cluster, 2060x semantic, 2070x
// client.
type LongCode uint32

const (
	Internal LongCode = 20101 + iota
	NotImplemented
	QueryInterrupted
)

const (
	NoMemory LongCode = 20200 + iota
	TooManyQueries
	ReplicationQueueFull
	CantAllocateMemory
)

const (
	ArrayAlreadyExists LongCode = 20300 + iota
	ArrayNotFound
	LockBusy
	InvalidCommitState
)

const (
	IllegalReadOnlyChunk LongCode = 20400 + iota
	SetPositionOutOfChunk
	AssigningNullToNonNullable
	MergeFailed
)

const (
	NoQuorum LongCode = 20500 + iota
	InstanceOffline
	LivenessChanged
)

const (
	TypeMismatch LongCode = 20600 + iota
	FunctionNotFound
	ParameterTypeError
	WrongDimensionality
)

const (
	UnknownMessageType LongCode = 20700 + iota
	ConnectionSetup
)

// names maps a long code to a human string used in Display.
var names = map[LongCode]string{
	Internal:                   "internal error",
	NotImplemented:             "not implemented",
	QueryInterrupted:           "query interrupted",
	NoMemory:                   "out of memory",
	TooManyQueries:             "too many concurrent queries",
	ReplicationQueueFull:       "replication queue full",
	CantAllocateMemory:         "cannot allocate memory for chunk",
	ArrayAlreadyExists:         "array already exists",
	ArrayNotFound:              "array not found",
	LockBusy:                   "array lock busy",
	InvalidCommitState:         "invalid commit state transition",
	IllegalReadOnlyChunk:       "illegal operation on read-only chunk",
	SetPositionOutOfChunk:      "setPosition out of chunk bounds",
	AssigningNullToNonNullable: "assigning null to non-nullable attribute",
	MergeFailed:                "chunk merge failed",
	NoQuorum:                   "no quorum",
	InstanceOffline:            "instance offline",
	LivenessChanged:            "cluster liveness changed since snapshot",
	TypeMismatch:               "type mismatch",
	FunctionNotFound:           "function not found",
	ParameterTypeError:         "parameter type error",
	WrongDimensionality:        "wrong dimensionality",
	UnknownMessageType:         "unknown request",
	ConnectionSetup:            "connection setup failed",
}

// shortOf maps a long code to the short code band it belongs to.
func shortOf(l LongCode) ShortCode {
	switch {
	case l == NoQuorum:
		return ShortNoQuorum
	case l >= 20500 && l < 20600:
		return ShortCluster
	case l >= 20400 && l < 20500:
		if l == MergeFailed {
			return ShortMerge
		}
		return ShortExecution
	case l >= 20300 && l < 20400:
		return ShortCatalog
	case l >= 20200 && l < 20300:
		return ShortNoMemory
	case l >= 20700:
		return ShortClient
	case l >= 20600 && l < 20700:
		return ShortQProc
	default:
		return ShortInternal
	}
}

// Error is the sticky, fully-located error type threaded through the
// engine: (shortCode, longCode, file, function, line, stringified,
// namespace, what).
type Error struct {
	Short     ShortCode
	Long      LongCode
	File      string
	Function  string
	Line      int
	Namespace string
	What      string
}

func (e *Error) Error() string {
	msg := names[e.Long]
	if msg == "" {
		msg = "unknown error"
	}
	if e.What != "" {
		return fmt.Sprintf("%s: %s: %s (%s:%d in %s)", e.Short, msg, e.What, e.File, e.Line, e.Function)
	}
	return fmt.Sprintf("%s: %s (%s:%d in %s)", e.Short, msg, e.File, e.Line, e.Function)
}

// New constructs an Error, capturing the caller's location and tagging it
// with the namespace it originated in (typically the package name).
func New(long LongCode, namespace, what string) *Error {
	short := shortOf(long)
	pc, file, line, ok := runtime.Caller(1)
	fn := "unknown"
	if ok {
		if f := runtime.FuncForPC(pc); f != nil {
			fn = f.Name()
		}
	}
	return &Error{
		Short:     short,
		Long:      long,
		File:      file,
		Function:  fn,
		Line:      line,
		Namespace: namespace,
		What:      what,
	}
}

// Newf is New with a formatted What.
func Newf(long LongCode, namespace, format string, args ...any) *Error {
	short := shortOf(long)
	pc, file, line, ok := runtime.Caller(1)
	fn := "unknown"
	if ok {
		if f := runtime.FuncForPC(pc); f != nil {
			fn = f.Name()
		}
	}
	return &Error{
		Short:     short,
		Long:      long,
		File:      file,
		Function:  fn,
		Line:      line,
		Namespace: namespace,
		What:      fmt.Sprintf(format, args...),
	}
}

// Is reports whether err is a dberr.Error with the given long code.
func Is(err error, long LongCode) bool {
	e, ok := err.(*Error)
	return ok && e.Long == long
}
