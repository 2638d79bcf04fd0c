package hessian

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated reports a read that ran off the end of the frame body.
	// The body is buffered before parsing, so this always means a frame
	// whose body-length field lied about its content.
	ErrTruncated = errors.New("hessian: truncated body")

	// ErrMalformedChar reports a UTF-8 lead byte outside the 1..3 byte forms.
	ErrMalformedChar = errors.New("hessian: malformed character")

	// ErrEndOfMap surfaces a top-level Z tag. Collection readers treat it as
	// their terminator; anywhere else it is a protocol violation.
	ErrEndOfMap = errors.New("hessian: end of map")
)

// UnknownTagError reports a tag byte the decoder does not recognise.
type UnknownTagError byte

func (e UnknownTagError) Error() string {
	return fmt.Sprintf("hessian: unknown tag 0x%02x", byte(e))
}

// UnimplementedTagError reports a recognised tag (the variable-length list
// tags 0x55 and 0x57) that this codec deliberately does not support.
type UnimplementedTagError byte

func (e UnimplementedTagError) Error() string {
	return fmt.Sprintf("hessian: unimplemented tag 0x%02x", byte(e))
}

// ClassRefError reports an instance tag referring to a class-definition
// slot that was never filled by a C block in the same decode.
type ClassRefError int

func (e ClassRefError) Error() string {
	return fmt.Sprintf("hessian: class definition not found, idx %d", int(e))
}

// ValueRefError reports a Q back-reference to a value index that has not
// been decoded yet.
type ValueRefError int

func (e ValueRefError) Error() string {
	return fmt.Sprintf("hessian: value reference not found, idx %d", int(e))
}

// UnencodableError reports a Go value outside the encoder's dispatch set.
type UnencodableError struct {
	Value any
}

func (e *UnencodableError) Error() string {
	return fmt.Sprintf("hessian: unencodable value %v of type %T", e.Value, e.Value)
}
