package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindAlreadyExists  Kind = "ALREADY_EXISTS"
	KindLineOutOfRange Kind = "LINE_OUT_OF_RANGE"
	KindIO             Kind = "IO"
	KindInvalidName    Kind = "INVALID_NAME"
)

// Sentinels for errors.Is checks against any *Error of the matching kind.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrLineOutOfRange = errors.New("line out of range")
	ErrIO             = errors.New("i/o failure")
	ErrInvalidName    = errors.New("invalid file name")
)

var sentinels = map[Kind]error{
	KindNotFound:       ErrNotFound,
	KindAlreadyExists:  ErrAlreadyExists,
	KindLineOutOfRange: ErrLineOutOfRange,
	KindIO:             ErrIO,
	KindInvalidName:    ErrInvalidName,
}

// Error is the single error type returned by the core packages. Op names the
// failing operation and Name the file it was applied to.
type Error struct {
	Kind    Kind
	Op      string
	Name    string
	Line    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %q", e.Op, e.Name)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func NotFound(op, name string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Name: name, Message: "no such file", Err: err}
}

func AlreadyExists(op, name string) *Error {
	return &Error{Kind: KindAlreadyExists, Op: op, Name: name, Message: "file already exists"}
}

func LineOutOfRange(op, name string, line, count int) *Error {
	return &Error{
		Kind:    KindLineOutOfRange,
		Op:      op,
		Name:    name,
		Line:    line,
		Message: fmt.Sprintf("line %d is out of range (file has %d lines)", line, count),
	}
}

func IO(op, name string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Name: name, Err: err}
}

func InvalidName(op, name string) *Error {
	return &Error{Kind: KindInvalidName, Op: op, Name: name, Message: "name must be a plain file name"}
}

// FromOS classifies an error returned by the filesystem layer.
func FromOS(op, name string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NotFound(op, name, err)
	case errors.Is(err, fs.ErrExist):
		return &Error{Kind: KindAlreadyExists, Op: op, Name: name, Message: "file already exists", Err: err}
	default:
		return IO(op, name, err)
	}
}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
