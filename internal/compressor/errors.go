package compressor

import (
	"errors"
	"fmt"
)

// Kind classifies a compression failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindDecodeFailure
	KindEncodeFailure
	KindIOFailure
)

// Sentinel errors matched by errors.Is against any *Error of the same kind.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrDecodeFailure = errors.New("decode failure")
	ErrEncodeFailure = errors.New("encode failure")
	ErrIOFailure     = errors.New("io failure")
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindDecodeFailure:
		return "decode_failure"
	case KindEncodeFailure:
		return "encode_failure"
	case KindIOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindDecodeFailure:
		return ErrDecodeFailure
	case KindEncodeFailure:
		return ErrEncodeFailure
	case KindIOFailure:
		return ErrIOFailure
	default:
		return nil
	}
}

// Error is returned by every compressor operation.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s failed for file %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
