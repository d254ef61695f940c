package qrfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ajrojasfuentes/qrfs/errors"
)

func fileModeFromRaw(mode uint32) os.FileMode {
	return os.FileMode(mode)
}

func unixTime(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}

// rawSuperblock is the fixed-width wire layout of [Superblock]. All fields
// are fixed size, so binary.Write/Read round-trip it directly, the same
// pattern the corpus's disk-format drivers (ext4, FAT, unixv1) use for
// their own superblocks and inodes instead of a generic codec.
type rawSuperblock struct {
	Magic               uint32
	_                   uint32 // padding, keeps 8-byte fields aligned
	TotalBlocks         uint64
	TotalInodes         uint64
	FreeBlocksCount     uint64
	InodeTableStart     uint64
	BitmapStart         uint64
	RootDirInode        uint64
	UUID                [16]byte
	DirectPointersCount uint32
	_                   uint32 // padding
}

// MarshalBinary encodes the superblock to its fixed-width wire form.
func (sb *Superblock) MarshalBinary() ([]byte, error) {
	raw := rawSuperblock{
		Magic:               sb.Magic,
		TotalBlocks:         sb.TotalBlocks,
		TotalInodes:         sb.TotalInodes,
		FreeBlocksCount:     sb.FreeBlocksCount,
		InodeTableStart:     sb.InodeTableStart,
		BitmapStart:         sb.BitmapStart,
		RootDirInode:        sb.RootDirInode,
		UUID:                sb.UUID,
		DirectPointersCount: sb.DirectPointersCount,
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, &raw); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a superblock from its fixed-width wire form.
func (sb *Superblock) UnmarshalBinary(data []byte) error {
	var raw rawSuperblock
	reader := bytes.NewReader(data)
	if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
		return errors.ErrInvalidFormat.WrapError(err)
	}

	sb.Magic = raw.Magic
	sb.TotalBlocks = raw.TotalBlocks
	sb.TotalInodes = raw.TotalInodes
	sb.FreeBlocksCount = raw.FreeBlocksCount
	sb.InodeTableStart = raw.InodeTableStart
	sb.BitmapStart = raw.BitmapStart
	sb.RootDirInode = raw.RootDirInode
	sb.UUID = raw.UUID
	sb.DirectPointersCount = raw.DirectPointersCount
	return nil
}

// MarshalInodeTable encodes a fixed-length slice of inodes as: a 4-byte
// count, then for each inode a fixed-width record (mode, size, file type,
// two Unix timestamps, a direct-block count, that many 8-byte block IDs,
// and the indirect-block field).
func MarshalInodeTable(inodes []Inode) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(inodes))); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	for i := range inodes {
		inode := &inodes[i]
		fields := []any{
			uint32(inode.Mode),
			inode.Size,
			uint8(inode.FileType),
			inode.CreatedAt.Unix(),
			inode.ModifiedAt.Unix(),
			uint32(len(inode.DirectBlocks)),
		}
		for _, f := range fields {
			if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
				return nil, errors.ErrIOFailed.WrapError(err)
			}
		}
		for _, blockID := range inode.DirectBlocks {
			if err := binary.Write(buf, binary.LittleEndian, blockID); err != nil {
				return nil, errors.ErrIOFailed.WrapError(err)
			}
		}
		if err := binary.Write(buf, binary.LittleEndian, inode.IndirectBlock); err != nil {
			return nil, errors.ErrIOFailed.WrapError(err)
		}
	}

	return buf.Bytes(), nil
}

// UnmarshalInodeTable is the inverse of [MarshalInodeTable].
func UnmarshalInodeTable(data []byte) ([]Inode, error) {
	reader := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
		return nil, errors.ErrInvalidFormat.WrapError(err)
	}

	inodes := make([]Inode, count)
	for i := range inodes {
		var mode uint32
		var size uint64
		var fileType uint8
		var createdAt, modifiedAt int64
		var numBlocks uint32

		fields := []any{&mode, &size, &fileType, &createdAt, &modifiedAt, &numBlocks}
		for _, f := range fields {
			if err := binary.Read(reader, binary.LittleEndian, f); err != nil {
				return nil, errors.ErrInvalidFormat.WrapError(err)
			}
		}

		blocks := make([]uint64, numBlocks)
		if err := binary.Read(reader, binary.LittleEndian, blocks); err != nil {
			return nil, errors.ErrInvalidFormat.WrapError(err)
		}

		var indirect uint64
		if err := binary.Read(reader, binary.LittleEndian, &indirect); err != nil {
			return nil, errors.ErrInvalidFormat.WrapError(err)
		}

		inodes[i] = Inode{
			Mode:          fileModeFromRaw(mode),
			Size:          size,
			FileType:      FileType(fileType),
			CreatedAt:     unixTime(createdAt),
			ModifiedAt:    unixTime(modifiedAt),
			DirectBlocks:  blocks,
			IndirectBlock: indirect,
		}
	}

	return inodes, nil
}

// MarshalDirEntries encodes a directory's entry sequence as a 4-byte count
// followed by each entry's 8-byte inode index, 2-byte name length, and the
// UTF-8 name bytes.
func MarshalDirEntries(entries []DirEntry) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(entries))); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	for _, entry := range entries {
		if len(entry.Name) > MaxNameLength {
			return nil, errors.ErrNameTooLong.WithMessage(entry.Name)
		}
		if err := binary.Write(buf, binary.LittleEndian, entry.InodeIndex); err != nil {
			return nil, errors.ErrIOFailed.WrapError(err)
		}
		nameBytes := []byte(entry.Name)
		if err := binary.Write(buf, binary.LittleEndian, uint16(len(nameBytes))); err != nil {
			return nil, errors.ErrIOFailed.WrapError(err)
		}
		if _, err := buf.Write(nameBytes); err != nil {
			return nil, errors.ErrIOFailed.WrapError(err)
		}
	}

	return buf.Bytes(), nil
}

// UnmarshalDirEntries is the inverse of [MarshalDirEntries].
func UnmarshalDirEntries(data []byte) ([]DirEntry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	reader := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
		return nil, errors.ErrInvalidFormat.WrapError(err)
	}

	entries := make([]DirEntry, count)
	for i := range entries {
		var inodeIndex uint64
		var nameLen uint16
		if err := binary.Read(reader, binary.LittleEndian, &inodeIndex); err != nil {
			return nil, errors.ErrInvalidFormat.WrapError(err)
		}
		if err := binary.Read(reader, binary.LittleEndian, &nameLen); err != nil {
			return nil, errors.ErrInvalidFormat.WrapError(err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(reader, nameBytes); err != nil {
			return nil, errors.ErrInvalidFormat.WrapError(err)
		}
		entries[i] = DirEntry{InodeIndex: inodeIndex, Name: string(nameBytes)}
	}

	return entries, nil
}

// CheckFitsInBlock returns ErrRecordTooLarge if a serialized-then-encrypted
// record (envelope overhead is 12-byte nonce + 16-byte tag) would not fit
// in a single BlockSize block.
func CheckFitsInBlock(plaintextLen int) error {
	const envelopeOverhead = 12 + 16
	if plaintextLen+envelopeOverhead > BlockSize {
		return errors.ErrRecordTooLarge.WithMessage(
			fmt.Sprintf("%d bytes would encrypt to more than %d", plaintextLen, BlockSize))
	}
	return nil
}
