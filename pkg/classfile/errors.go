package classfile

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedInput is reported when fewer bytes remain than a fixed-width or
	// declared-length field requires.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrUnknownConstantTag matches every *UnknownConstantTagError under errors.Is.
	ErrUnknownConstantTag = errors.New("unknown constant pool tag")

	// ErrBadMagic is only produced when Options.CheckMagic is set.
	ErrBadMagic = errors.New("invalid magic number")

	// ErrTrailingBytes is returned by Parse and ParseFile when input remains after
	// the top-level attributes table. Decode hands trailing bytes back instead.
	ErrTrailingBytes = errors.New("trailing bytes after class file")
)

// UnknownConstantTagError carries the tag byte that matched no constant pool kind.
type UnknownConstantTagError struct {
	Tag uint8
}

func (e *UnknownConstantTagError) Error() string {
	return fmt.Sprintf("unknown constant pool tag %d (0x%02X)", e.Tag, e.Tag)
}

func (e *UnknownConstantTagError) Is(target error) bool {
	return target == ErrUnknownConstantTag
}

// DecodeError locates a decode failure: the wire field being read and the byte
// offset (from the start of the input) where that read began.
type DecodeError struct {
	Field  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
