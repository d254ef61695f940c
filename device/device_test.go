package device_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ajrojasfuentes/qrfs"
	"github.com/ajrojasfuentes/qrfs/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dev, err := device.New(t.TempDir())
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x5A}, 700)
	require.NoError(t, dev.Write(3, payload))

	got, err := dev.Read(3)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadAbsentBlockIsZeroFilled(t *testing.T) {
	dev, err := device.New(t.TempDir())
	require.NoError(t, err)

	got, err := dev.Read(42)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, qrfs.BlockSize), got)
}

func TestWriteOversizedPayloadRejected(t *testing.T) {
	dev, err := device.New(t.TempDir())
	require.NoError(t, err)

	err = dev.Write(0, bytes.Repeat([]byte{0x01}, qrfs.BlockSize+1))
	assert.Error(t, err)
}

func TestCountReflectsWrittenBlocks(t *testing.T) {
	root := t.TempDir()
	dev, err := device.New(root)
	require.NoError(t, err)

	count, err := dev.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, dev.Write(0, []byte("a")))
	require.NoError(t, dev.Write(1, []byte("b")))

	count, err = dev.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTrimRemovesExactRange(t *testing.T) {
	root := t.TempDir()
	dev, err := device.New(root)
	require.NoError(t, err)

	for i := uint64(0); i < 5; i++ {
		require.NoError(t, dev.Write(i, []byte("x")))
	}

	require.NoError(t, dev.Trim(1, 3))

	for _, i := range []uint64{0, 3, 4} {
		_, err := os.Stat(filepath.Join(root, blockFileName(i)))
		assert.NoError(t, err, "block %d should survive trim", i)
	}
	for _, i := range []uint64{1, 2} {
		_, err := os.Stat(filepath.Join(root, blockFileName(i)))
		assert.True(t, os.IsNotExist(err), "block %d should be removed by trim", i)
	}
}

func TestTrimOnAbsentFilesIsNotAnError(t *testing.T) {
	dev, err := device.New(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, dev.Trim(0, 10))
}

func blockFileName(blockID uint64) string {
	return fmt.Sprintf("qr_%05d.png", blockID)
}
