package errors

import "fmt"

// DiskoError is a named, comparable error kind. It implements [DriverError]
// directly so a bare sentinel can be returned, compared with errors.Is, or
// built up into a more specific [DriverError] with [DiskoError.WithMessage].
//
// The set below is exactly the vocabulary spec.md §6/§7 enumerates: no
// more, no less. Namespace errors (not found, name too long, wrong object
// kind, name collision, directory not empty) are reported with their
// specific code; crypto and visual-codec failures are promoted to
// ErrIOFailed at the filesystem boundary per spec.md §7's propagation
// policy; resource exhaustion becomes ErrNoSpace or ErrInodeTableFull.
type DiskoError string

const (
	// ErrAuthenticationFailed covers a wrong passphrase, a tampered
	// ciphertext, or any other AEAD tag mismatch. Per spec.md §4.2, callers
	// must not be able to distinguish these cases from each other.
	ErrAuthenticationFailed = DiskoError("decryption failed")
	// ErrInvalidFormat covers a bad superblock magic number or a metadata
	// record that disagrees with its own declared layout.
	ErrInvalidFormat = DiskoError("not a QRFS volume")
	// ErrRecordTooLarge is returned when a serialized-and-encrypted record
	// would not fit in a single block.
	ErrRecordTooLarge = DiskoError("metadata record exceeds block size")
	// ErrNoSpace covers bitmap exhaustion during block allocation.
	ErrNoSpace = DiskoError("no space left on device")
	// ErrInodeTableFull covers exhaustion of the fixed-size inode table.
	ErrInodeTableFull = DiskoError("inode table is full")
	// ErrNotFound covers lookups, reads, and deletes of names or inodes
	// that don't exist.
	ErrNotFound = DiskoError("no such entry")
	// ErrNameTooLong covers a directory entry name over spec.md's limit.
	ErrNameTooLong = DiskoError("name too long")
	// ErrNotADirectory is returned when an operation that requires a
	// directory (opendir, readdir, rmdir) is given a regular file.
	ErrNotADirectory = DiskoError("not a directory")
	// ErrIsADirectory is returned when an operation that requires a regular
	// file (open, read, write) is given a directory.
	ErrIsADirectory = DiskoError("is a directory")
	// ErrPermissionDenied is the permission-denied kind of the mount-bridge
	// vocabulary. Access checks only that an inode exists, so no function
	// in this module returns it.
	ErrPermissionDenied = DiskoError("permission denied")
	// ErrNameCollision is returned when create/mkdir/rename would overwrite
	// an existing directory entry name.
	ErrNameCollision = DiskoError("name already exists")
	// ErrDirectoryNotEmpty is the "directory not empty" kind of the
	// mount-bridge vocabulary, mapped to ENOTEMPTY there. QRFS's
	// single-level namespace means directories other than root never gain
	// entries, and no function in this module returns it.
	ErrDirectoryNotEmpty = DiskoError("directory not empty")
	// ErrIOFailed covers underlying directory operations, and crypto or
	// visual-codec failures promoted to I/O errors per spec.md §7.
	ErrIOFailed = DiskoError("I/O error")
)

func (e DiskoError) Error() string {
	return string(e)
}

func (e DiskoError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", string(e), message),
		originalError: e,
	}
}

func (e DiskoError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", string(e), err.Error()),
		originalError: err,
	}
}

func (e DiskoError) Unwrap() error {
	return nil
}
