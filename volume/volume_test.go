package volume_test

import (
	"testing"

	"github.com/ajrojasfuentes/qrfs/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatThenCheckReportsZeroErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, volume.Format(dir, "pw", 20))

	report, err := volume.Check(dir, "pw")
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.LiveInodes, "only the root directory exists after format")
}

func TestFormatRefusesSmallBlockCount(t *testing.T) {
	dir := t.TempDir()
	err := volume.Format(dir, "pw", 4)
	assert.Error(t, err)
}

func TestFormatRefusesReformatOfValidVolume(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, volume.Format(dir, "pw", 20))

	err := volume.Format(dir, "pw", 20)
	assert.Error(t, err)
}

func TestCheckFailsWithWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, volume.Format(dir, "correct", 20))

	_, err := volume.Check(dir, "incorrect")
	assert.Error(t, err)
}

func TestResizeGrowSucceeds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, volume.Format(dir, "pw", 20))

	require.NoError(t, volume.Resize(dir, "pw", 40))

	report, err := volume.Check(dir, "pw")
	require.NoError(t, err)
	assert.Equal(t, uint64(40), report.TotalBlocks)
	assert.True(t, report.OK())
}

func TestResizeShrinkBelowLiveDataRefuses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, volume.Format(dir, "pw", 20))

	// The root directory's data block lives well inside the first few
	// blocks, so a shrink down to 2 blocks must collide with it.
	err := volume.Resize(dir, "pw", 2)
	assert.Error(t, err)
}
