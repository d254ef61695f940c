// Package volume implements the three offline tools that operate on a
// QRFS volume without mounting it: Format (spec.md §4.5), Check (§4.7),
// and Resize (§4.8). It is grounded on the teacher's own notion of a
// "basedriver" that owns geometry and superblock bootstrapping, generalized
// here to QRFS's encrypted, QR-image-backed medium.
package volume

import (
	"os"

	"github.com/ajrojasfuentes/qrfs"
	"github.com/ajrojasfuentes/qrfs/crypto"
	"github.com/ajrojasfuentes/qrfs/device"
	"github.com/ajrojasfuentes/qrfs/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MinBlocks is the smallest block count Format accepts. At this size the
// volume holds the superblock, the bitmap, one inode-table block, the root
// directory's data block, and one free block.
const MinBlocks = 5

// inodeRecordSize is the approximate on-disk size of one serialized inode
// record, used only to size the inode table (spec.md §4.5 step 7). It need
// not be exact: UnmarshalInodeTable trusts the stored record count, not
// this estimate.
const inodeRecordSize = 150

// layout is the fixed block geometry computed once at format time. The
// superblock records bitmapStart, inodeTableStart, and inodesPerBlock (as
// TotalInodes); inodeBlocks and firstDataBlock are not stored.
type layout struct {
	bitmapStart     uint64
	inodeTableStart uint64
	inodeBlocks     uint64
	firstDataBlock  uint64
	inodesPerBlock  uint64
}

func computeLayout(totalBlocks uint64) layout {
	inodeBlocks := totalBlocks / 8
	if inodeBlocks < 1 {
		inodeBlocks = 1
	}
	inodesPerBlock := uint64(qrfs.BlockSize / inodeRecordSize)
	if inodesPerBlock < 1 {
		inodesPerBlock = 1
	}
	return layout{
		bitmapStart:     1,
		inodeTableStart: 2,
		inodeBlocks:     inodeBlocks,
		firstDataBlock:  2 + inodeBlocks,
		inodesPerBlock:  inodesPerBlock,
	}
}

// Format initializes a fresh volume of totalBlocks blocks at path, deriving
// its crypto engine from a freshly sampled random salt. If path already
// holds a volume whose superblock decrypts under passphrase, Format refuses
// with an error; a volume formatted under a different passphrase is not
// detected and is formatted over.
func Format(path string, passphrase string, totalBlocks uint64) error {
	log := logrus.WithField("component", "volume.format").WithField("path", path)

	if totalBlocks < MinBlocks {
		return errors.ErrInvalidFormat.WithMessage("block count must be at least 5")
	}

	if exists(path) {
		if probe, probeErr := device.New(path); probeErr == nil {
			if _, _, sbErr := ReadSuperblock(probe, passphrase); sbErr == nil {
				return errors.ErrInvalidFormat.WithMessage("refusing to format: a valid QRFS volume already exists here")
			}
		}
	}

	engine, err := crypto.NewWithRandomSalt(passphrase)
	if err != nil {
		return err
	}

	dev, err := device.New(path)
	if err != nil {
		return err
	}

	lay := computeLayout(totalBlocks)

	bm := newBitmap(totalBlocks)
	for i := uint64(0); i < lay.firstDataBlock; i++ {
		bm.Set(int(i), true)
	}
	bm.Set(int(lay.firstDataBlock), true)

	emptyDir, err := qrfs.MarshalDirEntries(nil)
	if err != nil {
		return err
	}

	root := qrfs.NewInode(qrfs.FileTypeDirectory, 0o755, uint32(qrfs.DefaultDirectPointers))
	root.DirectBlocks[0] = lay.firstDataBlock
	root.Size = uint64(len(emptyDir))

	inodes := make([]qrfs.Inode, lay.inodesPerBlock)
	inodes[qrfs.RootInode] = root

	volUUID, err := uuid.New().MarshalBinary()
	if err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	var uuidBytes [16]byte
	copy(uuidBytes[:], volUUID)

	sb := qrfs.Superblock{
		Magic:               qrfs.Magic,
		TotalBlocks:         totalBlocks,
		TotalInodes:         lay.inodesPerBlock,
		FreeBlocksCount:     uint64(bm.CountFree()),
		InodeTableStart:     lay.inodeTableStart,
		BitmapStart:         lay.bitmapStart,
		RootDirInode:        qrfs.RootInode,
		UUID:                uuidBytes,
		DirectPointersCount: qrfs.DefaultDirectPointers,
	}

	if err := WriteSuperblock(dev, engine, &sb); err != nil {
		return err
	}
	if err := WriteBitmap(dev, engine, lay.bitmapStart, bm); err != nil {
		return err
	}

	inodeBytes, err := qrfs.MarshalInodeTable(inodes)
	if err != nil {
		return err
	}
	if err := qrfs.CheckFitsInBlock(len(inodeBytes)); err != nil {
		return err
	}
	if err := EncryptAndWrite(dev, engine, lay.inodeTableStart, inodeBytes); err != nil {
		return err
	}

	if err := EncryptAndWrite(dev, engine, lay.firstDataBlock, emptyDir); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"total_blocks":      totalBlocks,
		"first_data_block":  lay.firstDataBlock,
		"inode_table_start": lay.inodeTableStart,
	}).Info("volume formatted")
	return nil
}

// WriteSuperblock serializes, encrypts, and writes sb as block 0, prefixed
// with engine's salt in the clear. Shared by Format and Resize;
// qrfs/fsruntime reads the superblock through ReadSuperblock and never
// writes it.
func WriteSuperblock(dev *device.Device, engine *crypto.Engine, sb *qrfs.Superblock) error {
	plain, err := sb.MarshalBinary()
	if err != nil {
		return err
	}
	envelope, err := engine.Encrypt(plain)
	if err != nil {
		return err
	}
	salt := engine.Salt()
	block := make([]byte, 0, len(salt)+len(envelope))
	block = append(block, salt[:]...)
	block = append(block, envelope...)
	if len(block) > qrfs.BlockSize {
		return errors.ErrRecordTooLarge.WithMessage("superblock exceeds block size")
	}
	return dev.Write(0, block)
}

// ReadSuperblock performs the mount procedure's first two steps (spec.md
// §4.6): read block 0, split off the salt, derive the crypto engine,
// decrypt, and verify the magic. It is the shared entry point for every
// tool and for qrfs/fsruntime.Mount.
func ReadSuperblock(dev *device.Device, passphrase string) (*qrfs.Superblock, *crypto.Engine, error) {
	block, err := dev.Read(0)
	if err != nil {
		return nil, nil, err
	}
	if len(block) < qrfs.SaltSize {
		return nil, nil, errors.ErrInvalidFormat.WithMessage("block 0 truncated")
	}

	var salt [16]byte
	copy(salt[:], block[:qrfs.SaltSize])

	engine, err := crypto.New(passphrase, salt)
	if err != nil {
		return nil, nil, err
	}

	plain, err := engine.Decrypt(block[qrfs.SaltSize:])
	if err != nil {
		return nil, nil, err
	}

	var sb qrfs.Superblock
	if err := sb.UnmarshalBinary(plain); err != nil {
		return nil, nil, err
	}
	if sb.Magic != qrfs.Magic {
		return nil, nil, errors.ErrInvalidFormat.WithMessage("bad magic")
	}
	return &sb, engine, nil
}

// EncryptAndWrite encrypts plaintext and writes it to blockID, rejecting
// it up front if the encrypted envelope would not fit in one block
// (spec.md §4.4).
func EncryptAndWrite(dev *device.Device, engine *crypto.Engine, blockID uint64, plaintext []byte) error {
	if err := qrfs.CheckFitsInBlock(len(plaintext)); err != nil {
		return err
	}
	envelope, err := engine.Encrypt(plaintext)
	if err != nil {
		return err
	}
	return dev.Write(blockID, envelope)
}

// DecryptBlock reads and decrypts blockID's envelope.
func DecryptBlock(dev *device.Device, engine *crypto.Engine, blockID uint64) ([]byte, error) {
	envelope, err := dev.Read(blockID)
	if err != nil {
		return nil, err
	}
	return engine.Decrypt(envelope)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
