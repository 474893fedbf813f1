package fatimg

import (
	"fmt"

	"github.com/dargueta/fatimg/errors"
	"github.com/hashicorp/go-multierror"
)

// DriverError is the error type returned by every operation that touches an
// image. Its Errno doubles as the command-line tool's exit status.
type DriverError interface {
	error
	Errno() errors.Errno
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

type baseFatimgError struct {
	errno   errors.Errno
	message string
}

// ErrCorruptImage is returned when the on-disk structures can't be decoded, e.g.
// the FAT region has the wrong length.
var ErrCorruptImage = newBaseError(errors.EUCLEAN, "Corrupt image")

// ErrNoSpace is returned when a save needs more clusters than are free.
var ErrNoSpace = newBaseError(errors.ENOSPC, "No space left on device")

// ErrDirectoryFull is returned when the root directory has no empty or deleted
// slot left.
var ErrDirectoryFull = newBaseError(errors.ENFILE, "Directory full")

// ErrNotFound is returned when no active directory entry has the given name.
var ErrNotFound = newBaseError(errors.ENOENT, "No such file or directory")

// ErrBrokenChain is returned when a cluster chain ends before the size stored
// in its directory entry says it should.
var ErrBrokenChain = newBaseError(errors.EUCLEAN, "Broken cluster chain")

// ErrInconsistent is returned by a consistency check that found problems. The
// individual findings are available through errors.As with *multierror.Error.
var ErrInconsistent = newBaseError(errors.EUCLEAN, "File system is inconsistent")

// ErrFileTooLarge is returned when a file's size can't be stored in a
// directory record.
var ErrFileTooLarge = newBaseError(errors.EFBIG, "File too large")

var ErrInvalidArgument = newBaseError(errors.EINVAL, "Invalid argument")
var ErrIOFailed = newBaseError(errors.EIO, "Input/output error")
var ErrWrongMediumType = newBaseError(errors.EMEDIUMTYPE, "Wrong medium type")

func newBaseError(errno errors.Errno, message string) baseFatimgError {
	return baseFatimgError{errno: errno, message: message}
}

func (e baseFatimgError) Error() string {
	return e.message
}

func (e baseFatimgError) Errno() errors.Errno {
	return e.errno
}

func (e baseFatimgError) WithMessage(message string) DriverError {
	return customDriverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e baseFatimgError) Wrap(err error) DriverError {
	return customDriverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customDriverError struct {
	errno         errors.Errno
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) Errno() errors.Errno {
	return e.errno
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customDriverError) Wrap(err error) DriverError {
	return customDriverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customDriverError) Unwrap() error {
	return e.originalError
}
