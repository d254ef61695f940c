package fsruntime

import (
	"os"
	"time"

	"github.com/ajrojasfuentes/qrfs"
	"github.com/ajrojasfuentes/qrfs/errors"
)

// DirListing is one entry returned by ReadDir, filled in with the synthetic
// "." and ".." entries the mount bridge expects ahead of the real,
// on-disk entries (spec.md §4.6).
type DirListing struct {
	Name  string
	Inode uint64
}

func (rt *Runtime) rootDirEntries() ([]qrfs.DirEntry, *qrfs.Inode, error) {
	root, err := rt.inode(qrfs.RootInode)
	if err != nil {
		return nil, nil, err
	}
	content, err := rt.readInodeContent(root)
	if err != nil {
		return nil, nil, err
	}
	entries, err := qrfs.UnmarshalDirEntries(content)
	if err != nil {
		return nil, nil, err
	}
	return entries, root, nil
}

func (rt *Runtime) persistRootDirEntries(entries []qrfs.DirEntry) error {
	raw, err := qrfs.MarshalDirEntries(entries)
	if err != nil {
		return err
	}
	root, err := rt.inode(qrfs.RootInode)
	if err != nil {
		return err
	}
	return rt.writeInodeData(root, raw)
}

// Lookup scans the root directory's entries for name (spec.md §4.6's
// single-level namespace: any parent other than inode 1 is "no such
// entry").
func (rt *Runtime) Lookup(parent uint64, name string) (uint64, qrfs.Inode, error) {
	if parent != qrfs.RootInode {
		return 0, qrfs.Inode{}, errors.ErrNotFound
	}
	entries, _, err := rt.rootDirEntries()
	if err != nil {
		return 0, qrfs.Inode{}, err
	}
	for _, entry := range entries {
		if entry.Name == name {
			node, err := rt.inode(entry.InodeIndex)
			if err != nil {
				return 0, qrfs.Inode{}, err
			}
			return entry.InodeIndex, *node, nil
		}
	}
	return 0, qrfs.Inode{}, errors.ErrNotFound
}

// ReadDir emits "." and ".." followed by every on-disk entry starting at
// offset, matching spec.md §4.6's readdir contract. Only the root
// directory (inode 1) may be listed.
func (rt *Runtime) ReadDir(ino uint64, offset int) ([]DirListing, error) {
	if ino != qrfs.RootInode {
		node, err := rt.inode(ino)
		if err != nil {
			return nil, err
		}
		if node.FileType != qrfs.FileTypeDirectory {
			return nil, errors.ErrNotADirectory
		}
		return nil, errors.ErrNotFound
	}

	entries, _, err := rt.rootDirEntries()
	if err != nil {
		return nil, err
	}

	full := make([]DirListing, 0, len(entries)+2)
	full = append(full, DirListing{Name: ".", Inode: qrfs.RootInode})
	full = append(full, DirListing{Name: "..", Inode: qrfs.RootInode})
	for _, entry := range entries {
		full = append(full, DirListing{Name: entry.Name, Inode: entry.InodeIndex})
	}

	if offset >= len(full) {
		return []DirListing{}, nil
	}
	return full[offset:], nil
}

func (rt *Runtime) allocateInodeIndex() (uint64, error) {
	for i := uint64(2); i < uint64(len(rt.table)); i++ {
		if rt.table[i].IsFree() {
			return i, nil
		}
	}
	return 0, errors.ErrInodeTableFull
}

func (rt *Runtime) createEntry(parent uint64, name string, mode os.FileMode, fileType qrfs.FileType) (uint64, qrfs.Inode, error) {
	if parent != qrfs.RootInode {
		return 0, qrfs.Inode{}, errors.ErrNotFound
	}
	if len(name) == 0 || len(name) > qrfs.MaxNameLength {
		return 0, qrfs.Inode{}, errors.ErrNameTooLong
	}

	entries, _, err := rt.rootDirEntries()
	if err != nil {
		return 0, qrfs.Inode{}, err
	}
	for _, entry := range entries {
		if entry.Name == name {
			return 0, qrfs.Inode{}, errors.ErrNameCollision
		}
	}

	idx, err := rt.allocateInodeIndex()
	if err != nil {
		return 0, qrfs.Inode{}, err
	}

	rt.table[idx] = qrfs.NewInode(fileType, mode, rt.sb.DirectPointersCount)

	entries = append(entries, qrfs.DirEntry{InodeIndex: idx, Name: name})
	if err := rt.persistRootDirEntries(entries); err != nil {
		return 0, qrfs.Inode{}, err
	}
	return idx, rt.table[idx], nil
}

// Create installs a new regular-file inode named name under parent
// (spec.md §4.6's create).
func (rt *Runtime) Create(parent uint64, name string, mode os.FileMode) (uint64, qrfs.Inode, error) {
	return rt.createEntry(parent, name, mode, qrfs.FileTypeRegular)
}

// Mkdir installs a new directory inode named name under parent. The new
// directory's own contents are never traversed (spec.md §4.6, §9): only
// the root directory's entries are ever read back.
func (rt *Runtime) Mkdir(parent uint64, name string, mode os.FileMode) (uint64, qrfs.Inode, error) {
	return rt.createEntry(parent, name, mode, qrfs.FileTypeDirectory)
}

// Open validates that ino exists and is a regular file.
func (rt *Runtime) Open(ino uint64) error {
	node, err := rt.inode(ino)
	if err != nil {
		return err
	}
	if node.FileType != qrfs.FileTypeRegular {
		return errors.ErrIsADirectory
	}
	return nil
}

// OpenDir validates that ino exists and is a directory.
func (rt *Runtime) OpenDir(ino uint64) error {
	node, err := rt.inode(ino)
	if err != nil {
		return err
	}
	if node.FileType != qrfs.FileTypeDirectory {
		return errors.ErrNotADirectory
	}
	return nil
}

func (rt *Runtime) removeEntry(parent uint64, name string, wantType qrfs.FileType) error {
	if parent != qrfs.RootInode {
		return errors.ErrNotFound
	}

	entries, _, err := rt.rootDirEntries()
	if err != nil {
		return err
	}

	pos := -1
	for i, entry := range entries {
		if entry.Name == name {
			pos = i
			break
		}
	}
	if pos == -1 {
		return errors.ErrNotFound
	}

	target, err := rt.inode(entries[pos].InodeIndex)
	if err != nil {
		return err
	}
	if target.FileType != wantType {
		if wantType == qrfs.FileTypeDirectory {
			return errors.ErrNotADirectory
		}
		return errors.ErrIsADirectory
	}

	rt.freeInode(target)

	entries = append(entries[:pos], entries[pos+1:]...)
	return rt.persistRootDirEntries(entries)
}

// Unlink removes a regular-file entry, freeing its data blocks and
// marking its inode free (spec.md §4.6).
func (rt *Runtime) Unlink(parent uint64, name string) error {
	return rt.removeEntry(parent, name, qrfs.FileTypeRegular)
}

// Rmdir removes a directory entry. QRFS's single-level namespace means a
// non-root directory never accumulates entries of its own, so Rmdir makes
// no emptiness check and never returns errors.ErrDirectoryNotEmpty.
func (rt *Runtime) Rmdir(parent uint64, name string) error {
	return rt.removeEntry(parent, name, qrfs.FileTypeDirectory)
}

// Rename rewrites a directory entry's name in place (spec.md §4.6). Only
// the root directory may be the source or destination parent; renaming
// to an existing name fails rather than silently overwriting it.
func (rt *Runtime) Rename(parent uint64, name string, newParent uint64, newName string) error {
	if parent != qrfs.RootInode || newParent != qrfs.RootInode {
		return errors.ErrNotFound
	}
	if len(newName) == 0 || len(newName) > qrfs.MaxNameLength {
		return errors.ErrNameTooLong
	}

	entries, _, err := rt.rootDirEntries()
	if err != nil {
		return err
	}

	pos := -1
	for i, entry := range entries {
		switch entry.Name {
		case name:
			pos = i
		case newName:
			return errors.ErrNameCollision
		}
	}
	if pos == -1 {
		return errors.ErrNotFound
	}

	entries[pos].Name = newName

	node, err := rt.inode(entries[pos].InodeIndex)
	if err == nil {
		node.ModifiedAt = time.Now()
	}

	return rt.persistRootDirEntries(entries)
}
