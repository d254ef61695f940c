package fsruntime_test

import (
	"bytes"
	"testing"

	"github.com/ajrojasfuentes/qrfs/fsruntime"
	"github.com/ajrojasfuentes/qrfs/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountFresh(t *testing.T, totalBlocks uint64) *fsruntime.Runtime {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, volume.Format(dir, "pw", totalBlocks))
	rt, err := fsruntime.Mount(dir, "pw")
	require.NoError(t, err)
	return rt
}

func TestMountWithWrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, volume.Format(dir, "right", 20))

	_, err := fsruntime.Mount(dir, "wrong")
	assert.Error(t, err)
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	rt := mountFresh(t, 20)

	ino, inode, err := rt.Create(1, "a.txt", 0o644)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), inode.Size)

	payload := []byte("hello")
	require.NoError(t, rt.Write(ino, payload))

	got, err := rt.Read(ino, 0, uint64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	listed, _, err := rt.Lookup(1, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, ino, listed)
}

func TestCreateThenUnlinkRemovesEntry(t *testing.T) {
	rt := mountFresh(t, 20)

	ino, _, err := rt.Create(1, "x", 0o644)
	require.NoError(t, err)

	require.NoError(t, rt.Unlink(1, "x"))

	_, _, err = rt.Lookup(1, "x")
	assert.Error(t, err)

	_, err = rt.GetAttr(ino)
	assert.Error(t, err, "freed inode must no longer be readable")
}

func TestWriteFailsWithNoSpaceBeyondDirectCapacity(t *testing.T) {
	rt := mountFresh(t, 20)

	ino, _, err := rt.Create(1, "big", 0o644)
	require.NoError(t, err)

	huge := bytes.Repeat([]byte{0x01}, 11*1024) // exceeds 12 direct slots * 900 bytes
	err = rt.Write(ino, huge)
	assert.Error(t, err)
}

func TestCreateDuplicateNameFailsWithCollision(t *testing.T) {
	rt := mountFresh(t, 20)

	_, _, err := rt.Create(1, "dup", 0o644)
	require.NoError(t, err)

	_, _, err = rt.Create(1, "dup", 0o644)
	assert.Error(t, err)
}

func TestLookupUnderNonRootParentFails(t *testing.T) {
	rt := mountFresh(t, 20)
	_, _, err := rt.Lookup(99, "anything")
	assert.Error(t, err)
}

func TestReadDirListsCreatedEntries(t *testing.T) {
	rt := mountFresh(t, 20)
	_, _, err := rt.Create(1, "one", 0o644)
	require.NoError(t, err)
	_, _, err = rt.Create(1, "two", 0o644)
	require.NoError(t, err)

	listing, err := rt.ReadDir(1, 0)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, entry := range listing {
		names[entry.Name] = true
	}
	assert.True(t, names["."])
	assert.True(t, names[".."])
	assert.True(t, names["one"])
	assert.True(t, names["two"])
}

func TestRenameRejectsExistingTargetName(t *testing.T) {
	rt := mountFresh(t, 20)
	_, _, err := rt.Create(1, "a", 0o644)
	require.NoError(t, err)
	_, _, err = rt.Create(1, "b", 0o644)
	require.NoError(t, err)

	err = rt.Rename(1, "a", 1, "b")
	assert.Error(t, err)
}

func TestRenameThenLookupByNewName(t *testing.T) {
	rt := mountFresh(t, 20)
	ino, _, err := rt.Create(1, "old", 0o644)
	require.NoError(t, err)

	require.NoError(t, rt.Rename(1, "old", 1, "new"))

	found, _, err := rt.Lookup(1, "new")
	require.NoError(t, err)
	assert.Equal(t, ino, found)

	_, _, err = rt.Lookup(1, "old")
	assert.Error(t, err)
}

func TestStatFSReflectsAllocation(t *testing.T) {
	rt := mountFresh(t, 20)
	total, freeBefore := rt.StatFS()
	assert.Equal(t, uint64(20), total)

	ino, _, err := rt.Create(1, "f", 0o644)
	require.NoError(t, err)
	require.NoError(t, rt.Write(ino, []byte("data")))

	_, freeAfter := rt.StatFS()
	assert.Less(t, freeAfter, freeBefore)
}

func TestMountThenRemountSeesPersistedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, volume.Format(dir, "pw", 20))

	rt, err := fsruntime.Mount(dir, "pw")
	require.NoError(t, err)
	ino, _, err := rt.Create(1, "persisted.txt", 0o644)
	require.NoError(t, err)
	require.NoError(t, rt.Write(ino, []byte("still here")))

	rt2, err := fsruntime.Mount(dir, "pw")
	require.NoError(t, err)
	found, _, err := rt2.Lookup(1, "persisted.txt")
	require.NoError(t, err)

	got, err := rt2.Read(found, 0, uint64(len("still here")))
	require.NoError(t, err)
	assert.Equal(t, "still here", string(got))

	report, err := volume.Check(dir, "pw")
	require.NoError(t, err)
	assert.True(t, report.OK())
}
