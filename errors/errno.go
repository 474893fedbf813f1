// This is a compatibility shim for POSIX-defined errno codes across platforms.
// The syscall package doesn't define all the values we need on all systems,
// particularly things like EUCLEAN. The numeric values double as process exit
// statuses for the command-line tool.

package errors

import (
	"fmt"
)

type Errno int

var errorMessagesByCode map[Errno]string

// These follow the Linux numbering so that exit statuses are familiar.
const (
	EOK     Errno = 0
	ENOENT  Errno = 2
	EIO     Errno = 5
	EINVAL  Errno = 22
	ENFILE  Errno = 23
	EFBIG   Errno = 27
	ENOSPC  Errno = 28
	EUCLEAN Errno = 117
	// EMEDIUMTYPE is returned when an image was made with a different layout.
	EMEDIUMTYPE Errno = 124
)

func init() {
	errorMessagesByCode = make(map[Errno]string, 9)
	errorMessagesByCode[EOK] = "Success"
	errorMessagesByCode[ENOENT] = "No such file or directory"
	errorMessagesByCode[EIO] = "Input/output error"
	errorMessagesByCode[EINVAL] = "Invalid argument"
	errorMessagesByCode[ENFILE] = "Too many open files in system"
	errorMessagesByCode[EFBIG] = "File too large"
	errorMessagesByCode[ENOSPC] = "No space left on device"
	errorMessagesByCode[EUCLEAN] = "Structure needs cleaning"
	errorMessagesByCode[EMEDIUMTYPE] = "Wrong medium type"
}

func StrError(code Errno) string {
	message, ok := errorMessagesByCode[code]
	if ok {
		return message
	}
	return fmt.Sprintf("error %d not recognized.", int(code))
}

// ExitStatus converts an errno code into a process exit status. Codes that
// don't fit in the 1-125 range shells leave to programs become 1.
func (code Errno) ExitStatus() int {
	if code <= 0 || code > 125 {
		return 1
	}
	return int(code)
}
