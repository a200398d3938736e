package binlog

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrEmptyIndex is returned when the index file lists no binlog file.
var ErrEmptyIndex = errors.New("binlog: index lists no binlog file")

// FormatError reports bytes that do not follow the binlog format.
// The session that hit it is stopped and never retried.
type FormatError struct {
	File   string
	Offset int64
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("binlog: %s at %s:%d", e.Msg, e.File, e.Offset)
}

// IOError reports a failed stat, open or read of a binlog or index file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "binlog: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

func formatErrorf(file string, offset int64, format string, args ...interface{}) error {
	return errors.WithStack(&FormatError{
		File:   file,
		Offset: offset,
		Msg:    fmt.Sprintf(format, args...),
	})
}

func ioError(op, path string, err error) error {
	return errors.WithStack(&IOError{Op: op, Path: path, Err: err})
}

// IsFormatError tells whether err was caused by malformed binlog data.
func IsFormatError(err error) bool {
	_, ok := errors.Cause(err).(*FormatError)
	return ok
}

// IsIOError tells whether err was caused by a failed file system operation.
func IsIOError(err error) bool {
	_, ok := errors.Cause(err).(*IOError)
	return ok
}
