package chunk

// MaterializeDense re-encodes a logical chunk into a concrete dense
// buffer for repeated access, per the array abstraction's delegate
// contract: "materializes through iteration" when the fast clone path
// does not apply.
func MaterializeDense(in Chunk) (Chunk, error) {
	if in.Encoding() == Dense {
		return in, nil
	}
	lo, hi := in.Bounds()
	loOv, hiOv := in.BoundsWithOverlap()
	out := NewDenseChunk(in.Addr(), in.Attribute(), lo, hi, loOv, hiOv, in.Compression())

	rit, err := in.NewIterator(0)
	if err != nil {
		return nil, err
	}
	wit, err := out.NewWriteIterator(0)
	if err != nil {
		return nil, err
	}
	for !rit.End() {
		pos := rit.GetPosition()
		if wit.SetPosition(pos) {
			if err := wit.WriteItem(rit.GetItem()); err != nil {
				return nil, err
			}
		}
		rit.Next()
	}
	if err := wit.Flush(); err != nil {
		return nil, err
	}
	return out, nil
}
