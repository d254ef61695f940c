package volume

import (
	"github.com/ajrojasfuentes/qrfs"
	"github.com/ajrojasfuentes/qrfs/device"
	"github.com/ajrojasfuentes/qrfs/errors"
	"github.com/sirupsen/logrus"
)

// Resize changes a volume's logical block count to newTotalBlocks
// (spec.md §4.8). Growing always succeeds. Shrinking fails, leaving the
// volume untouched, if any block in the truncated tail is still
// allocated; on success it also trims the now-unreachable PNG files from
// the backing directory.
func Resize(path string, passphrase string, newTotalBlocks uint64) error {
	log := logrus.WithField("component", "volume.resize").WithField("path", path)

	dev, err := device.New(path)
	if err != nil {
		return err
	}

	sb, engine, err := ReadSuperblock(dev, passphrase)
	if err != nil {
		return err
	}

	bm, err := ReadBitmap(dev, engine, sb.BitmapStart)
	if err != nil {
		return err
	}

	oldTotal := sb.TotalBlocks
	if err := bm.Resize(int(newTotalBlocks)); err != nil {
		return err
	}

	bmBytes, err := bm.MarshalBinary()
	if err != nil {
		return err
	}
	if err := qrfs.CheckFitsInBlock(len(bmBytes)); err != nil {
		return errors.ErrRecordTooLarge.WithMessage("bitmap no longer fits in one block at this size")
	}

	if newTotalBlocks < oldTotal {
		if err := dev.Trim(newTotalBlocks, oldTotal); err != nil {
			return err
		}
	}

	sb.TotalBlocks = newTotalBlocks
	sb.FreeBlocksCount = uint64(bm.CountFree())

	if err := WriteBitmap(dev, engine, sb.BitmapStart, bm); err != nil {
		return err
	}
	if err := WriteSuperblock(dev, engine, sb); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"old_total_blocks": oldTotal,
		"new_total_blocks": newTotalBlocks,
	}).Info("volume resized")
	return nil
}
