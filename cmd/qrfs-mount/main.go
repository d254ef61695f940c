// Command qrfs-mount bridges a mounted QRFS volume to the kernel via FUSE
// (spec.md §4.6, §6's "mount" operation). It is grounded on
// distr1-distri/internal/fuse, which embeds
// fuseutil.NotImplementedFileSystem and implements only the operations its
// file system actually needs; qrfsFUSE follows the same shape, wired to a
// fsruntime.Runtime instead of a squashfs reader.
package main

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ajrojasfuentes/qrfs"
	"github.com/ajrojasfuentes/qrfs/cliutil"
	"github.com/ajrojasfuentes/qrfs/errors"
	"github.com/ajrojasfuentes/qrfs/fsruntime"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "qrfs-mount",
		Usage:     "mount a QRFS volume at a local directory until unmounted",
		ArgsUsage: "DIRECTORY MOUNTPOINT",
		Action:    runMount,
	}

	if err := app.Run(os.Args); err != nil {
		cliutil.Fail(err)
	}
}

func runMount(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: qrfs-mount DIRECTORY MOUNTPOINT")
	}
	dir := c.Args().Get(0)
	mountpoint := c.Args().Get(1)

	passphrase, err := cliutil.PromptPassphrase("passphrase: ")
	if err != nil {
		return err
	}

	rt, err := fsruntime.Mount(dir, passphrase)
	if err != nil {
		return err
	}

	fs := &qrfsFUSE{rt: rt, log: logrus.WithField("component", "qrfs-mount")}
	server := fuseutil.NewFileSystemServer(fs)

	mfs, err := fuse.Mount(mountpoint, server, &fuse.MountConfig{
		FSName: "qrfs",
	})
	if err != nil {
		return fmt.Errorf("fuse.Mount: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		if err := fuse.Unmount(mountpoint); err != nil {
			fmt.Fprintf(os.Stderr, "fuse.Unmount: %v\n", err)
		}
		cancel()
	}()

	fmt.Printf("qrfs mounted at %s\n", mountpoint)
	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("mfs.Join: %w", err)
	}
	return nil
}

// qrfsFUSE adapts fsruntime.Runtime's whole-file, single-level-namespace
// operations to jacobsa/fuse's op-based FileSystem interface. Operations the
// runtime has no equivalent for (symlinks, xattrs, hard links) are left to
// the embedded default, which reports ENOSYS.
type qrfsFUSE struct {
	fuseutil.NotImplementedFileSystem

	rt  *fsruntime.Runtime
	log *logrus.Entry
}

// toErrno maps a DriverError's DiskoError kind to the nearest POSIX errno,
// the translation spec.md §6 requires at the mount-bridge boundary.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case goerrors.Is(err, errors.ErrNotFound):
		return fuse.ENOENT
	case goerrors.Is(err, errors.ErrNameTooLong):
		return syscall.ENAMETOOLONG
	case goerrors.Is(err, errors.ErrNotADirectory):
		return syscall.ENOTDIR
	case goerrors.Is(err, errors.ErrIsADirectory):
		return syscall.EISDIR
	case goerrors.Is(err, errors.ErrNameCollision):
		return syscall.EEXIST
	case goerrors.Is(err, errors.ErrDirectoryNotEmpty):
		return syscall.ENOTEMPTY
	case goerrors.Is(err, errors.ErrNoSpace):
		return syscall.ENOSPC
	case goerrors.Is(err, errors.ErrInodeTableFull):
		return syscall.ENOSPC
	case goerrors.Is(err, errors.ErrPermissionDenied):
		return syscall.EACCES
	default:
		return fuse.EIO
	}
}

func attributesOf(node qrfs.Inode) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  node.Size,
		Nlink: 1,
		Mode:  node.Mode | fileTypeBit(node.FileType),
		Atime: node.ModifiedAt,
		Mtime: node.ModifiedAt,
		Ctime: node.CreatedAt,
	}
}

func fileTypeBit(ft qrfs.FileType) os.FileMode {
	if ft == qrfs.FileTypeDirectory {
		return os.ModeDir
	}
	return 0
}

func direntType(node qrfs.Inode) fuseutil.DirentType {
	if node.FileType == qrfs.FileTypeDirectory {
		return fuseutil.DT_Directory
	}
	return fuseutil.DT_File
}

func (fs *qrfsFUSE) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	total, free := fs.rt.StatFS()
	op.BlockSize = qrfsBlockSize
	op.Blocks = total
	op.BlocksFree = free
	op.BlocksAvailable = free
	op.IoSize = qrfsBlockSize
	return nil
}

const qrfsBlockSize = 1024

func (fs *qrfsFUSE) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	ino, node, err := fs.rt.Lookup(uint64(op.Parent), op.Name)
	if err != nil {
		return toErrno(err)
	}
	op.Entry.Child = fuseops.InodeID(ino)
	op.Entry.Attributes = attributesOf(node)
	return nil
}

func (fs *qrfsFUSE) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	node, err := fs.rt.GetAttr(uint64(op.Inode))
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = attributesOf(node)
	return nil
}

func (fs *qrfsFUSE) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	var modeBits *uint32
	if op.Mode != nil {
		bits := uint32(*op.Mode)
		modeBits = &bits
	}
	node, err := fs.rt.SetAttr(uint64(op.Inode), modeBits, op.Size)
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = attributesOf(node)
	return nil
}

func (fs *qrfsFUSE) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	ino, node, err := fs.rt.Mkdir(uint64(op.Parent), op.Name, op.Mode)
	if err != nil {
		return toErrno(err)
	}
	op.Entry.Child = fuseops.InodeID(ino)
	op.Entry.Attributes = attributesOf(node)
	return nil
}

func (fs *qrfsFUSE) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	ino, node, err := fs.rt.Create(uint64(op.Parent), op.Name, op.Mode)
	if err != nil {
		return toErrno(err)
	}
	if err := fs.rt.Open(ino); err != nil {
		return toErrno(err)
	}
	op.Entry.Child = fuseops.InodeID(ino)
	op.Entry.Attributes = attributesOf(node)
	return nil
}

func (fs *qrfsFUSE) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	return toErrno(fs.rt.Unlink(uint64(op.Parent), op.Name))
}

func (fs *qrfsFUSE) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	return toErrno(fs.rt.Rmdir(uint64(op.Parent), op.Name))
}

func (fs *qrfsFUSE) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	return toErrno(fs.rt.Rename(uint64(op.OldParent), op.OldName, uint64(op.NewParent), op.NewName))
}

func (fs *qrfsFUSE) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	return toErrno(fs.rt.OpenDir(uint64(op.Inode)))
}

func (fs *qrfsFUSE) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	listing, err := fs.rt.ReadDir(uint64(op.Inode), int(op.Offset))
	if err != nil {
		return toErrno(err)
	}

	var n int
	for i, entry := range listing {
		node, err := fs.rt.GetAttr(entry.Inode)
		if err != nil {
			return toErrno(err)
		}
		dirent := fuseutil.Dirent{
			Offset: fuseops.DirOffset(op.Offset) + fuseops.DirOffset(i) + 1,
			Inode:  fuseops.InodeID(entry.Inode),
			Name:   entry.Name,
			Type:   direntType(node),
		}
		written := fuseutil.WriteDirent(op.Dst[n:], dirent)
		if written == 0 {
			break
		}
		n += written
	}
	op.BytesRead = n
	return nil
}

func (fs *qrfsFUSE) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	return toErrno(fs.rt.Open(uint64(op.Inode)))
}

func (fs *qrfsFUSE) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	data, err := fs.rt.Read(uint64(op.Inode), uint64(op.Offset), uint64(len(op.Dst)))
	if err != nil {
		return toErrno(err)
	}
	op.BytesRead = copy(op.Dst, data)
	return nil
}

// WriteFile rewrites the whole file on every call, since fsruntime has no
// partial-write path (spec.md §4.6): the offset and the inode's prior
// content are merged here before delegating to Runtime.Write.
func (fs *qrfsFUSE) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	node, err := fs.rt.GetAttr(uint64(op.Inode))
	if err != nil {
		return toErrno(err)
	}

	existing, err := fs.rt.Read(uint64(op.Inode), 0, node.Size)
	if err != nil {
		return toErrno(err)
	}

	end := int(op.Offset) + len(op.Data)
	if end > len(existing) {
		padded := make([]byte, end)
		copy(padded, existing)
		existing = padded
	}
	copy(existing[op.Offset:], op.Data)

	return toErrno(fs.rt.Write(uint64(op.Inode), existing))
}

func (fs *qrfsFUSE) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	return toErrno(fs.rt.Fsync(uint64(op.Inode)))
}

func (fs *qrfsFUSE) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	return toErrno(fs.rt.Fsync(uint64(op.Inode)))
}

func (fs *qrfsFUSE) Destroy() {
	fs.log.Info("unmounted")
}
