package array

import "github.com/arraydb/arraydb/pkg/container/types"

// Attribute is a named, typed column of an array.
type Attribute struct {
	ID                int
	Name              string
	Type              types.Type
	Nullable          bool
	Default           types.Value
	DefaultCompressor string
	IsEmptyBitmap     bool
}
