package converter

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why a conversion failed. Every kind is terminal for the call.
type Kind int

const (
	// KindDecode: the source is missing, unreadable or not a supported image.
	KindDecode Kind = iota + 1
	// KindResize: the decoded raster has zero width or height.
	KindResize
	// KindWrite: the container could not be produced or stored at the destination.
	KindWrite
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindResize:
		return "resize"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrDecode = errors.New("decode error")
	ErrResize = errors.New("resize error")
	ErrWrite  = errors.New("write error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindDecode:
		return ErrDecode
	case KindResize:
		return ErrResize
	case KindWrite:
		return ErrWrite
	}
	return nil
}

// Error is returned by every failing conversion.
type Error struct {
	Kind Kind
	// Path is the file the failure relates to (source for decode, destination
	// for write). Empty when converting an in-memory image.
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Path, e.Err)
}

// Cause returns the underlying error for github.com/pkg/errors.Cause.
func (e *Error) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDecode) and friends match by kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, path string, err error, msg string) *Error {
	return &Error{Kind: kind, Path: path, Err: errors.Wrap(err, msg)}
}

// KindOf returns the kind of a conversion error, or 0 when err is not one.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// IsDecode reports whether err is a decode failure.
func IsDecode(err error) bool { return KindOf(err) == KindDecode }

// IsResize reports whether err is a resize failure.
func IsResize(err error) bool { return KindOf(err) == KindResize }

// IsWrite reports whether err is a write failure.
func IsWrite(err error) bool { return KindOf(err) == KindWrite }
