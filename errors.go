// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nabd

import (
	"fmt"

	"code.hybscloud.com/iox"
)

// Code is a small signed error code, stable across processes and matching
// the C-style error codes a detached observer of a region would see.
type Code int8

// Error codes. Zero is reserved for success and never appears in an Error.
const (
	CodeEmpty      Code = -1
	CodeFull       Code = -2
	CodeNoMem      Code = -3
	CodeInvalid    Code = -4
	CodeExists     Code = -5
	CodeNotFound   Code = -6
	CodeTooBig     Code = -7
	CodeCorrupted  Code = -8
	CodeVersion    Code = -9
	CodePermission Code = -10
	CodeSysErr     Code = -11
)

func (c Code) String() string {
	switch c {
	case CodeEmpty:
		return "EMPTY"
	case CodeFull:
		return "FULL"
	case CodeNoMem:
		return "NOMEM"
	case CodeInvalid:
		return "INVALID"
	case CodeExists:
		return "EXISTS"
	case CodeNotFound:
		return "NOTFOUND"
	case CodeTooBig:
		return "TOOBIG"
	case CodeCorrupted:
		return "CORRUPTED"
	case CodeVersion:
		return "VERSION"
	case CodePermission:
		return "PERMISSION"
	case CodeSysErr:
		return "SYSERR"
	default:
		return "UNKNOWN"
	}
}

// Error is the queue's error type. It carries a stable Code plus a
// human-readable message, and optionally wraps the underlying syscall error
// for CodeSysErr.
type Error struct {
	Code Code
	Msg  string
	Err  error // underlying cause, non-nil only for CodeSysErr
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nabd: %s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("nabd: %s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code, so sentinel
// values below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newErr(code Code, msg string) error { return &Error{Code: code, Msg: msg} }

func wrapSysErr(msg string, err error) error {
	return &Error{Code: CodeSysErr, Msg: msg, Err: err}
}

// Sentinel errors for errors.Is comparisons. Two *Error values compare equal
// under errors.Is when their Code matches, regardless of Msg/Err, so callers
// can write errors.Is(err, ErrFull) even though the queue's own error
// instance carries a richer message.
var (
	ErrEmpty      = &Error{Code: CodeEmpty, Msg: "no message available"}
	ErrFull       = &Error{Code: CodeFull, Msg: "no space available"}
	ErrNoMem      = &Error{Code: CodeNoMem, Msg: "consumer group table full"}
	ErrInvalid    = &Error{Code: CodeInvalid, Msg: "invalid argument or state"}
	ErrExists     = &Error{Code: CodeExists, Msg: "region already exists"}
	ErrNotFound   = &Error{Code: CodeNotFound, Msg: "region or group not found"}
	ErrTooBig     = &Error{Code: CodeTooBig, Msg: "payload exceeds capacity"}
	ErrCorrupted  = &Error{Code: CodeCorrupted, Msg: "region integrity check failed"}
	ErrVersion    = &Error{Code: CodeVersion, Msg: "region version mismatch"}
	ErrPermission = &Error{Code: CodePermission, Msg: "permission denied"}
	ErrSysErr     = &Error{Code: CodeSysErr, Msg: "host syscall failure"}
)

// IsWouldBlock reports whether err is ErrEmpty or ErrFull — the two
// operating-state errors callers are expected to retry on, the same
// control-flow-signal classification the teacher package delegates to
// [iox.IsWouldBlock] for its single ErrWouldBlock case.
func IsWouldBlock(err error) bool {
	var e *Error
	if !asError(err, &e) {
		return iox.IsWouldBlock(err)
	}
	return e.Code == CodeEmpty || e.Code == CodeFull
}

// IsSemantic reports whether err is a control-flow signal rather than a
// failure: EMPTY, FULL, or NOTFOUND (soft, per spec.md §7).
func IsSemantic(err error) bool {
	var e *Error
	if !asError(err, &e) {
		return iox.IsSemantic(err)
	}
	switch e.Code {
	case CodeEmpty, CodeFull, CodeNotFound:
		return true
	default:
		return false
	}
}

// IsNonFailure reports whether err is nil or a semantic signal.
func IsNonFailure(err error) bool {
	return err == nil || IsSemantic(err)
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}
