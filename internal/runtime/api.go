// Package runtime talks to the host LMS through the six-call runtime
// protocol (Initialize, GetValue, SetValue, Commit, Finish, GetLastError)
// and falls back to a local key/value store when no host is reachable.
package runtime

import "errors"

// Data model elements read and written by the player.
const (
	ElementLessonStatus   = "cmi.core.lesson_status"
	ElementScoreRaw       = "cmi.core.score.raw"
	ElementScoreMax       = "cmi.core.score.max"
	ElementScoreMin       = "cmi.core.score.min"
	ElementLessonLocation = "cmi.core.lesson_location"
	ElementSuspendData    = "cmi.suspend_data"
	ElementSessionTime    = "cmi.core.session_time"
)

// Status is a value of cmi.core.lesson_status.
type Status string

const (
	StatusPassed       Status = "passed"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusIncomplete   Status = "incomplete"
	StatusBrowsed      Status = "browsed"
	StatusNotAttempted Status = "not attempted"
)

// Valid reports whether s is part of the lesson status vocabulary.
func (s Status) Valid() bool {
	switch s {
	case StatusPassed, StatusCompleted, StatusFailed, StatusIncomplete, StatusBrowsed, StatusNotAttempted:
		return true
	}
	return false
}

// ErrorCode is the string returned by GetLastError.
type ErrorCode string

const (
	CodeNoError           ErrorCode = "0"
	CodeGeneral           ErrorCode = "101"
	CodeInvalidArgument   ErrorCode = "201"
	CodeNotInitialized    ErrorCode = "301"
	CodeNotImplemented    ErrorCode = "401"
	CodeIncorrectDataType ErrorCode = "405"
)

var (
	ErrGeneral           = errors.New("runtime: general exception")
	ErrInvalidArgument   = errors.New("runtime: invalid argument")
	ErrNotInitialized    = errors.New("runtime: not initialized")
	ErrNotImplemented    = errors.New("runtime: not implemented")
	ErrIncorrectDataType = errors.New("runtime: incorrect data type")
)

// Err maps the code to a sentinel error, or nil for CodeNoError.
func (c ErrorCode) Err() error {
	switch c {
	case CodeNoError, "":
		return nil
	case CodeInvalidArgument:
		return ErrInvalidArgument
	case CodeNotInitialized:
		return ErrNotInitialized
	case CodeNotImplemented:
		return ErrNotImplemented
	case CodeIncorrectDataType:
		return ErrIncorrectDataType
	default:
		return ErrGeneral
	}
}

// API is the host side of the runtime protocol, the object an LMS exposes
// to launched content.
type API interface {
	Initialize() bool
	GetValue(element string) string
	SetValue(element, value string) bool
	Commit() bool
	Finish() bool
	GetLastError() ErrorCode
}

// Runtime is what the progress store and player depend on. *Bridge is the
// production implementation.
type Runtime interface {
	Read(element string) string
	Write(element, value string) bool
	Commit() bool
	Terminate() bool
	LastError() ErrorCode
}
