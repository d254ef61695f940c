package volume

import (
	"github.com/ajrojasfuentes/qrfs/bitmap"
	"github.com/ajrojasfuentes/qrfs/crypto"
	"github.com/ajrojasfuentes/qrfs/device"
)

func newBitmap(totalBlocks uint64) *bitmap.Bitmap {
	return bitmap.New(int(totalBlocks))
}

func WriteBitmap(dev *device.Device, engine *crypto.Engine, blockID uint64, bm *bitmap.Bitmap) error {
	plain, err := bm.MarshalBinary()
	if err != nil {
		return err
	}
	return EncryptAndWrite(dev, engine, blockID, plain)
}

func ReadBitmap(dev *device.Device, engine *crypto.Engine, blockID uint64) (*bitmap.Bitmap, error) {
	plain, err := DecryptBlock(dev, engine, blockID)
	if err != nil {
		return nil, err
	}
	bm := &bitmap.Bitmap{}
	if err := bm.UnmarshalBinary(plain); err != nil {
		return nil, err
	}
	return bm, nil
}
