package qrfs_test

import (
	"os"
	"testing"
	"time"

	"github.com/ajrojasfuentes/qrfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperblockRoundTrip(t *testing.T) {
	sb := qrfs.Superblock{
		Magic:               qrfs.Magic,
		TotalBlocks:         100,
		TotalInodes:         8,
		FreeBlocksCount:     90,
		InodeTableStart:     2,
		BitmapStart:         1,
		RootDirInode:        qrfs.RootInode,
		UUID:                [16]byte{1, 2, 3, 4},
		DirectPointersCount: qrfs.DefaultDirectPointers,
	}

	data, err := sb.MarshalBinary()
	require.NoError(t, err)

	var decoded qrfs.Superblock
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, sb, decoded)
}

func TestInodeTableRoundTrip(t *testing.T) {
	now := time.Unix(time.Now().Unix(), 0).UTC()
	inodes := []qrfs.Inode{
		qrfs.NewInode(qrfs.FileTypeRegular, 0, 0),
		{
			Mode:         os.FileMode(0o755),
			Size:         42,
			FileType:     qrfs.FileTypeDirectory,
			CreatedAt:    now,
			ModifiedAt:   now,
			DirectBlocks: []uint64{7, 0, 0},
		},
	}

	data, err := qrfs.MarshalInodeTable(inodes)
	require.NoError(t, err)

	decoded, err := qrfs.UnmarshalInodeTable(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.True(t, decoded[0].IsFree())
	assert.Equal(t, inodes[1].Mode, decoded[1].Mode)
	assert.Equal(t, inodes[1].Size, decoded[1].Size)
	assert.Equal(t, inodes[1].FileType, decoded[1].FileType)
	assert.Equal(t, inodes[1].CreatedAt, decoded[1].CreatedAt)
	assert.Equal(t, inodes[1].DirectBlocks, decoded[1].DirectBlocks)
}

func TestDirEntriesRoundTrip(t *testing.T) {
	entries := []qrfs.DirEntry{
		{InodeIndex: 2, Name: "a.txt"},
		{InodeIndex: 3, Name: "b.txt"},
	}

	data, err := qrfs.MarshalDirEntries(entries)
	require.NoError(t, err)

	decoded, err := qrfs.UnmarshalDirEntries(data)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestDirEntriesEmpty(t *testing.T) {
	data, err := qrfs.MarshalDirEntries(nil)
	require.NoError(t, err)

	decoded, err := qrfs.UnmarshalDirEntries(data)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestCheckFitsInBlock(t *testing.T) {
	assert.NoError(t, qrfs.CheckFitsInBlock(100))
	assert.Error(t, qrfs.CheckFitsInBlock(qrfs.BlockSize))
}
