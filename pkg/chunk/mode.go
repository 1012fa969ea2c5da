package chunk

// Mode is the bitmask of iterator mode flags honored by every encoding's
// iterator: they govern cell visibility and write behavior.
type Mode uint32

const (
	IgnoreOverlaps Mode = 1 << iota
	IgnoreEmptyCells
	IgnoreNullValues
	IgnoreDefaultValues
	TileMode
	AppendChunk
	NoEmptyCheck
	SequentialWrite
	SparseChunkMode
)

func (m Mode) has(f Mode) bool { return m&f != 0 }
