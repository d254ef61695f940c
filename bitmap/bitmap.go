// Package bitmap implements the QRFS allocation bitmap: a packed array of
// per-block allocation bits with first-fit allocation, grounded on the
// teacher's own allocator in drivers/common/allocatormap.go, which wraps
// the same underlying library, github.com/boljen/go-bitmap.
package bitmap

import (
	"github.com/ajrojasfuentes/qrfs/errors"
	"github.com/boljen/go-bitmap"
)

// Bitmap is size distinct single-bit cells addressable by index [0, size).
// All bits start clear. Allocation is first-fit by ascending index, which
// keeps low block numbers hot and makes the checker's reasoning (spec.md
// §4.7) straightforward: a clean volume's used blocks are always a prefix
// plus whatever scattered data blocks live inodes still reference.
type Bitmap struct {
	bits bitmap.Bitmap
	size int
}

// New creates a zeroed bitmap of the given size.
func New(size int) *Bitmap {
	return &Bitmap{bits: bitmap.NewSlice(size), size: size}
}

// Size returns the number of addressable bits.
func (b *Bitmap) Size() int {
	return b.size
}

// Get reports whether bit i is set. Out-of-range indices read as clear.
func (b *Bitmap) Get(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	return b.bits.Get(i)
}

// Set assigns bit i. Out-of-range indices are a no-op.
func (b *Bitmap) Set(i int, v bool) {
	if i < 0 || i >= b.size {
		return
	}
	b.bits.Set(i, v)
}

// Allocate finds the lowest clear bit, sets it, and returns its index. It
// returns ok=false if every bit is set.
func (b *Bitmap) Allocate() (index int, ok bool) {
	for i := 0; i < b.size; i++ {
		if !b.bits.Get(i) {
			b.bits.Set(i, true)
			return i, true
		}
	}
	return 0, false
}

// Resize grows or shrinks the bitmap. Growing always succeeds, extending
// the tail with clear bits. Shrinking fails with an errors.ErrNoSpace-
// wrapped detail if any bit in the truncated tail [newSize, size) is set;
// the caller (qrfs/volume.Resize) must free those blocks first.
func (b *Bitmap) Resize(newSize int) error {
	if newSize >= b.size {
		grown := bitmap.NewSlice(newSize)
		copy(grown, b.bits)
		b.bits = grown
		b.size = newSize
		return nil
	}

	for i := newSize; i < b.size; i++ {
		if b.bits.Get(i) {
			return errors.ErrNoSpace.WithMessage("cannot shrink: block still allocated in the truncated range")
		}
	}

	shrunk := bitmap.NewSlice(newSize)
	copy(shrunk, b.bits)
	b.bits = shrunk
	b.size = newSize
	return nil
}

// CountFree returns the number of clear bits.
func (b *Bitmap) CountFree() int {
	free := 0
	for i := 0; i < b.size; i++ {
		if !b.bits.Get(i) {
			free++
		}
	}
	return free
}

// MarshalBinary encodes the bitmap as a 4-byte little-endian bit count
// followed by its packed byte representation.
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	out := make([]byte, 4+len(b.bits))
	out[0] = byte(b.size)
	out[1] = byte(b.size >> 8)
	out[2] = byte(b.size >> 16)
	out[3] = byte(b.size >> 24)
	copy(out[4:], b.bits)
	return out, nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (b *Bitmap) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return errors.ErrInvalidFormat.WithMessage("bitmap record truncated")
	}
	size := int(data[0]) | int(data[1])<<8 | int(data[2])<<16 | int(data[3])<<24
	bits := bitmap.NewSlice(size)
	copy(bits, data[4:])
	b.bits = bits
	b.size = size
	return nil
}
