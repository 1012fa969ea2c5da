package array

import (
	"fmt"

	"github.com/arraydb/arraydb/pkg/dberr"
	"github.com/arraydb/arraydb/pkg/plan/distro"
)

// Descriptor is the ordered list of attributes and dimensions that define
// an array's shape: at most one attribute may be the empty-bitmap
// attribute, and when one exists, every chunk of every other attribute
// must have a same-positioned bitmap chunk (enforced by the chunk store,
// not here).
type Descriptor struct {
	Name         string
	ArrayID      int64
	VersionID    int64
	Attributes   []Attribute
	Dimensions   []Dimension
	Distribution *distro.Distribution
}

// Validate checks the array-level invariants: at most one empty-bitmap
// attribute, and well-formed dimensions.
func (d *Descriptor) Validate() error {
	bitmaps := 0
	for _, a := range d.Attributes {
		if a.IsEmptyBitmap {
			bitmaps++
		}
	}
	if bitmaps > 1 {
		return dberr.Newf(dberr.TypeMismatch, "array", "array %q: at most one empty-bitmap attribute allowed, found %d", d.Name, bitmaps)
	}
	for _, dim := range d.Dimensions {
		if err := dim.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EmptyBitmapAttribute returns the descriptor's empty-bitmap attribute, if
// any.
func (d *Descriptor) EmptyBitmapAttribute() (Attribute, bool) {
	for _, a := range d.Attributes {
		if a.IsEmptyBitmap {
			return a, true
		}
	}
	return Attribute{}, false
}

// AttributeByName looks up an attribute by name.
func (d *Descriptor) AttributeByName(name string) (Attribute, bool) {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s@v%d", d.Name, d.VersionID)
}
