// Package qrfs defines the on-disk data model shared by every QRFS
// component: the superblock, inode, and directory-entry records, and the
// geometry constants that tie them together.
package qrfs

import (
	"os"
	"time"
)

// BlockSize is the fixed logical block size, in bytes, of every QRFS
// volume. Block 0 is reserved for the superblock header.
const BlockSize = 1024

// Magic is the fixed 32-bit signature stored in every superblock.
const Magic uint32 = 0x51524653

// MaxNameLength is the longest a directory entry name may be.
const MaxNameLength = 64

// WriteChunkSize is the size of each fragment a whole-file write is split
// into before being assigned to a direct block. It is conservative: it
// leaves BlockSize-WriteChunkSize bytes of headroom inside each block for
// the AEAD overhead (a 12-byte nonce and 16-byte tag), which is the only
// thing added to a chunk before it is written.
const WriteChunkSize = 900

// DefaultDirectPointers is the compatibility default for
// Superblock.DirectPointersCount. It has no other significance: the
// authoritative value for a given volume always comes from its superblock
// (spec.md §9).
const DefaultDirectPointers = 12

// RootInode is the fixed inode index of the volume's root directory.
const RootInode = 1

// NullInode is the reserved "no inode" index.
const NullInode = 0

// SaltSize is the length, in bytes, of the random salt stored in the clear
// at the start of block 0.
const SaltSize = 16

// FileType distinguishes a regular file from a directory. QRFS has no other
// object kinds: no symlinks, hard links, or device nodes (spec.md §1).
type FileType uint8

const (
	// FileTypeRegular is an ordinary file.
	FileTypeRegular FileType = iota
	// FileTypeDirectory is a directory. Only inode 1, the root, is ever
	// traversed (spec.md §4.6); other directory inodes may exist but are
	// unreachable, a known open question carried over from the original
	// design (spec.md §9).
	FileTypeDirectory
)

// Superblock is the invariant, single-instance volume descriptor. It is
// written once at format time (qrfs/volume.Format) and rewritten only by
// qrfs/volume.Resize.
type Superblock struct {
	Magic             uint32
	TotalBlocks       uint64
	TotalInodes       uint64
	FreeBlocksCount   uint64
	InodeTableStart   uint64
	BitmapStart       uint64
	RootDirInode      uint64
	UUID              [16]byte
	DirectPointersCount uint32
}

// Inode describes one file-system object: a regular file or a directory.
// Mode 0 marks a free slot; index 0 is reserved and index 1 is always the
// root directory (spec.md §3).
type Inode struct {
	Mode         os.FileMode
	Size         uint64
	FileType     FileType
	CreatedAt    time.Time
	ModifiedAt   time.Time
	DirectBlocks []uint64
	// IndirectBlock is reserved and always 0 in this design (spec.md §3).
	IndirectBlock uint64
}

// NewInode builds a live inode with numPointers empty direct-block slots.
func NewInode(fileType FileType, mode os.FileMode, numPointers uint32) Inode {
	now := time.Now()
	return Inode{
		Mode:         mode,
		FileType:     fileType,
		CreatedAt:    now,
		ModifiedAt:   now,
		DirectBlocks: make([]uint64, numPointers),
	}
}

// IsFree reports whether the inode slot holds no live object.
func (inode *Inode) IsFree() bool {
	return inode.Mode == 0
}

// DirEntry is one (inode index, name) pair inside a directory's serialized
// contents.
type DirEntry struct {
	InodeIndex uint64
	Name       string
}
