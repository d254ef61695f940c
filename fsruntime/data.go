package fsruntime

import (
	"os"
	"time"

	"github.com/ajrojasfuentes/qrfs"
	"github.com/ajrojasfuentes/qrfs/errors"
	"github.com/ajrojasfuentes/qrfs/volume"
)

func fileModeFromBits(bits uint32) os.FileMode {
	return os.FileMode(bits)
}

// Read decrypts and concatenates ino's direct blocks in order, pads the
// result out to the inode's recorded size with zero bytes (a block that
// was never allocated reads as zero, the same sparse semantics the visual
// device itself provides), then slices to [offset, offset+size).
func (rt *Runtime) Read(ino uint64, offset, size uint64) ([]byte, error) {
	node, err := rt.inode(ino)
	if err != nil {
		return nil, err
	}
	if node.FileType != qrfs.FileTypeRegular {
		return nil, errors.ErrIsADirectory
	}

	content, err := rt.readInodeContent(node)
	if err != nil {
		return nil, err
	}

	if offset >= uint64(len(content)) {
		return []byte{}, nil
	}
	end := offset + size
	if end > uint64(len(content)) {
		end = uint64(len(content))
	}
	return content[offset:end], nil
}

// readInodeContent returns the full logical content of an inode: every
// non-zero direct block decrypted and concatenated in order, zero-padded
// and truncated to node.Size.
func (rt *Runtime) readInodeContent(node *qrfs.Inode) ([]byte, error) {
	var content []byte
	for _, blockID := range node.DirectBlocks {
		if blockID == 0 {
			continue
		}
		chunk, err := volume.DecryptBlock(rt.dev, rt.engine, blockID)
		if err != nil {
			rt.log.WithError(err).WithField("block", blockID).Error("data block decrypt failed")
			return nil, errors.ErrIOFailed.WrapError(err)
		}
		content = append(content, chunk...)
	}
	if uint64(len(content)) < node.Size {
		content = append(content, make([]byte, node.Size-uint64(len(content)))...)
	}
	if uint64(len(content)) > node.Size {
		content = content[:node.Size]
	}
	return content, nil
}

// Write replaces ino's entire contents with payload (spec.md §4.6's write
// path). Only regular files may be written through this bridge-facing
// entry point; directory content mutation goes through writeInodeData
// directly, since a directory's entries are data too but are never
// exposed to the mount bridge as a byte stream.
func (rt *Runtime) Write(ino uint64, payload []byte) error {
	node, err := rt.inode(ino)
	if err != nil {
		return err
	}
	if node.FileType != qrfs.FileTypeRegular {
		return errors.ErrIsADirectory
	}
	return rt.writeInodeData(node, payload)
}

// writeInodeData implements the chunked whole-object replacement
// described in spec.md §4.6: the payload is split into
// qrfs.WriteChunkSize chunks, one per direct block slot, allocating new
// blocks as needed and freeing any trailing slots the new, possibly
// shorter, payload no longer needs.
func (rt *Runtime) writeInodeData(node *qrfs.Inode, payload []byte) error {
	numChunks := (len(payload) + qrfs.WriteChunkSize - 1) / qrfs.WriteChunkSize
	if numChunks > len(node.DirectBlocks) {
		return errors.ErrNoSpace.WithMessage("payload exceeds the inode's direct-block capacity")
	}

	for k := 0; k < numChunks; k++ {
		start := k * qrfs.WriteChunkSize
		end := start + qrfs.WriteChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[start:end]

		if node.DirectBlocks[k] == 0 {
			index, ok := rt.bitmap.Allocate()
			if !ok {
				return errors.ErrNoSpace
			}
			node.DirectBlocks[k] = uint64(index)
		}
		if err := volume.EncryptAndWrite(rt.dev, rt.engine, node.DirectBlocks[k], chunk); err != nil {
			return err
		}
	}

	for k := numChunks; k < len(node.DirectBlocks); k++ {
		if node.DirectBlocks[k] != 0 {
			rt.bitmap.Set(int(node.DirectBlocks[k]), false)
			node.DirectBlocks[k] = 0
		}
	}

	node.Size = uint64(len(payload))
	node.ModifiedAt = time.Now()

	if err := rt.persistBitmap(); err != nil {
		return err
	}
	return rt.persistInodeTable()
}

// truncate adjusts node's recorded size to newSize, freeing any direct
// blocks that fall entirely beyond the new length. It does not rewrite
// the surviving blocks' contents; Read already truncates to node.Size.
func (rt *Runtime) truncate(node *qrfs.Inode, newSize uint64) error {
	keepChunks := (newSize + qrfs.WriteChunkSize - 1) / qrfs.WriteChunkSize
	for k := int(keepChunks); k < len(node.DirectBlocks); k++ {
		if node.DirectBlocks[k] != 0 {
			rt.bitmap.Set(int(node.DirectBlocks[k]), false)
			node.DirectBlocks[k] = 0
		}
	}
	node.Size = newSize
	return nil
}

// freeInode releases every data block node owns, clears its direct-block
// slots, and marks it free. Used by Unlink and Rmdir.
func (rt *Runtime) freeInode(node *qrfs.Inode) {
	for i, blockID := range node.DirectBlocks {
		if blockID == 0 {
			continue
		}
		rt.bitmap.Set(int(blockID), false)
		node.DirectBlocks[i] = 0
	}
	node.Mode = 0
	node.Size = 0
}
