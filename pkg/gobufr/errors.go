package gobufr

import (
	"github.com/meteodata/gobufr/internal/bufrerr"
	"github.com/meteodata/gobufr/internal/decode"
	"github.com/meteodata/gobufr/internal/tables"
)

// Sentinel errors returned (wrapped) by parsing and decoding. Match
// with errors.Is.
var (
	ErrTruncatedStream   = bufrerr.ErrTruncatedStream
	ErrMalformedMessage  = bufrerr.ErrMalformedMessage
	ErrLengthMismatch    = bufrerr.ErrLengthMismatch
	ErrUnknownDescriptor = bufrerr.ErrUnknownDescriptor
	ErrInvalidOperator   = bufrerr.ErrInvalidOperator
	ErrIndexOutOfRange   = bufrerr.ErrIndexOutOfRange
	ErrTableNotFound     = bufrerr.ErrTableNotFound
)

// Record and Value are the decoded output types.
type (
	Record = decode.Record
	Value  = decode.Value
	Kind   = decode.Kind
)

// Value kinds.
const (
	KindNumber   = decode.KindNumber
	KindText     = decode.KindText
	KindMissing  = decode.KindMissing
	KindSequence = decode.KindSequence
	KindArray    = decode.KindArray
)

// SetTablesPath sets the process-wide directory BUFR tables are loaded
// from. The BUFR_TABLES_PATH environment variable applies when unset.
func SetTablesPath(p string) { tables.SetBasePath(p) }

// TablesPath returns the effective table directory.
func TablesPath() string { return tables.BasePath() }
