package reader

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the failure that ended a reader session.
type Kind int

const (
	// KindSpawn indicates the git process could not be created.
	KindSpawn Kind = iota + 1
	// KindExitStatus indicates git ran but exited with a non-zero status.
	KindExitStatus
	// KindIO indicates reading one of the child's pipes failed.
	KindIO
	// KindParse indicates the output did not match the expected grammar.
	KindParse
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindSpawn:
		return "spawn"
	case KindExitStatus:
		return "exit-status"
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Sentinel errors, one per Kind. Every *Error matches its sentinel with errors.Is.
var (
	// ErrSpawn matches errors returned when git cannot be started.
	ErrSpawn = errors.New("cannot start git")

	// ErrExitStatus matches errors reported when git exits non-zero.
	ErrExitStatus = errors.New("git exited with an error")

	// ErrIO matches errors reported when a pipe read fails.
	ErrIO = errors.New("error reading from git")

	// ErrParse matches errors reported for malformed git output.
	ErrParse = errors.New("invalid data from git")
)

// Error is the error type delivered by Start and by completed handlers.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindSpawn:
		return target == ErrSpawn
	case KindExitStatus:
		return target == ErrExitStatus
	case KindIO:
		return target == ErrIO
	case KindParse:
		return target == ErrParse
	}
	return false
}

// NewParseError builds a KindParse error for consumers of the line stream.
func NewParseError(format string, args ...any) error {
	return &Error{Kind: KindParse, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

func exitStatusError(stderr string) error {
	if stderr == "" {
		return &Error{Kind: KindExitStatus, Msg: "Error invoking git"}
	}
	return &Error{Kind: KindExitStatus, Msg: "Error invoking git: " + stderr}
}
