// Package bufrerr defines the error taxonomy shared by the framing,
// expansion and decoding layers. The sentinels are re-exported from
// pkg/gobufr so callers can match them with errors.Is.
package bufrerr

import "errors"

var (
	// ErrTruncatedStream is returned when the data section runs out of
	// bits mid-read. Fatal for the current message; sibling messages in
	// the same file are unaffected.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrMalformedMessage covers bad magic markers and structurally
	// inconsistent messages.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrLengthMismatch is returned when a declared section length does
	// not equal the bytes actually consumed parsing that section.
	ErrLengthMismatch = errors.New("section length mismatch")

	// ErrUnknownDescriptor is returned when a descriptor cannot be
	// resolved against Table B or Table D.
	ErrUnknownDescriptor = errors.New("unknown descriptor")

	// ErrInvalidOperator is returned for structurally malformed Table C
	// operator sequences, e.g. a cancel with no matching start.
	ErrInvalidOperator = errors.New("invalid operator sequence")

	// ErrIndexOutOfRange is returned for message or record indices
	// outside bounds, in either direction.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrTableNotFound is returned when no usable table file exists for
	// a requested master or local table version.
	ErrTableNotFound = errors.New("table not found")
)
