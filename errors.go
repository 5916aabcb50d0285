package javaobj

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a DecodeError into structured variants a caller
// can switch on, not ad-hoc strings.
type ErrorKind int

const (
	ErrInvalidMagic ErrorKind = iota
	ErrInvalidVersion
	ErrUnknownTag
	ErrUnexpectedTag
	ErrUnexpectedBlockData
	ErrInvalidFieldType
	ErrInvalidFieldCount
	ErrInvalidArraySize
	ErrInvalidStringLength
	ErrInvalidArrayName
	ErrHandleCollision
	ErrUnknownHandle
	ErrReferenceTypeMismatch
	ErrFlagConflict
	ErrCannotInterpretExternalizable
	ErrUnexpectedEndOfStream
	ErrDecodingError
)

var errorKindNames = map[ErrorKind]string{
	ErrInvalidMagic:                  "InvalidMagic",
	ErrInvalidVersion:                "InvalidVersion",
	ErrUnknownTag:                    "UnknownTag",
	ErrUnexpectedTag:                 "UnexpectedTag",
	ErrUnexpectedBlockData:           "UnexpectedBlockData",
	ErrInvalidFieldType:              "InvalidFieldType",
	ErrInvalidFieldCount:             "InvalidFieldCount",
	ErrInvalidArraySize:              "InvalidArraySize",
	ErrInvalidStringLength:           "InvalidStringLength",
	ErrInvalidArrayName:              "InvalidArrayName",
	ErrHandleCollision:               "HandleCollision",
	ErrUnknownHandle:                 "UnknownHandle",
	ErrReferenceTypeMismatch:         "ReferenceTypeMismatch",
	ErrFlagConflict:                  "FlagConflict",
	ErrCannotInterpretExternalizable: "CannotInterpretExternalizable",
	ErrUnexpectedEndOfStream:         "UnexpectedEndOfStream",
	ErrDecodingError:                 "DecodingError",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// DecodeError is the structured error type the parser creates for the
// categories above. Kind identifies the error category; Err (when set)
// is the underlying error, usually one already wrapped with
// github.com/pkg/errors for a stack trace. Errors from nested reads are
// wrapped with github.com/pkg/errors context on their way up to
// Parser.Run, so a caller finds the DecodeError with errors.As. Not every
// error carries one: a read failure of the underlying reader inside a
// nested read (a truncated stream, for one) and an error from a
// validate hook reach the caller without a DecodeError in their chain.
type DecodeError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap supports errors.Is/errors.As.
func (e *DecodeError) Unwrap() error { return e.Err }

// Cause supports github.com/pkg/errors.Cause, so callers checking for a
// premature end of input with errors.Cause still see the io error.
func (e *DecodeError) Cause() error { return e.Err }

func newErr(kind ErrorKind, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(kind ErrorKind, cause error, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: errors.WithStack(cause)}
}
