// Package signerr defines the error taxonomy of the signing pipeline.
//
// Every failure that reaches a page is one of a small set of kinds. Callers
// branch on the kind, never on message text.
package signerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a signing pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindFormat: malformed coordinator payload (quoting, hex, byte length).
	KindFormat
	// KindCoordinator: the coordinator has no usable group data.
	KindCoordinator
	// KindTaskFailed: the coordinator reported the signing task as failed.
	KindTaskFailed
	// KindTimeout: the task did not reach a terminal state within the poll budget.
	KindTimeout
	// KindValidation: post-signature check failed. Only ever logged.
	KindValidation
	// KindTransport: the coordinator could not be reached or the RPC errored.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "FORMAT"
	case KindCoordinator:
		return "COORDINATOR"
	case KindTaskFailed:
		return "TASK_FAILED"
	case KindTimeout:
		return "TIMEOUT"
	case KindValidation:
		return "VALIDATION"
	case KindTransport:
		return "TRANSPORT"
	default:
		return "UNKNOWN"
	}
}

// Error is a tagged pipeline error carrying structured context.
type Error struct {
	Kind    Kind
	Op      string
	Message string

	TaskID  string
	GroupID string

	// Expected and Actual hold lengths for size mismatches; zero when unused.
	Expected int
	Actual   int

	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", e.Kind)
	if e.Op != "" {
		fmt.Fprintf(&sb, " %s:", e.Op)
	}
	sb.WriteString(" ")
	sb.WriteString(e.Message)
	if e.Expected != 0 || e.Actual != 0 {
		fmt.Fprintf(&sb, " (expected %d, got %d)", e.Expected, e.Actual)
	}
	if e.TaskID != "" {
		fmt.Fprintf(&sb, " [task: %s]", e.TaskID)
	}
	if e.GroupID != "" {
		fmt.Fprintf(&sb, " [group: %s]", e.GroupID)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Format reports a malformed coordinator payload.
func Format(op, msg string) *Error {
	return &Error{Kind: KindFormat, Op: op, Message: msg}
}

// FormatLength reports a payload of the wrong size.
func FormatLength(op, msg string, expected, actual int) *Error {
	return &Error{Kind: KindFormat, Op: op, Message: msg, Expected: expected, Actual: actual}
}

// Coordinator reports missing or unusable group data.
func Coordinator(op, msg string) *Error {
	return &Error{Kind: KindCoordinator, Op: op, Message: msg}
}

// TaskFailed reports a task the coordinator marked as failed.
func TaskFailed(taskID string) *Error {
	return &Error{Kind: KindTaskFailed, Op: "poll", Message: "coordinator task was rejected or failed", TaskID: taskID}
}

// Timeout reports a task that never reached a terminal state.
func Timeout(taskID string, attempts int) *Error {
	return &Error{
		Kind:    KindTimeout,
		Op:      "poll",
		Message: fmt.Sprintf("task did not finish within %d attempts", attempts),
		TaskID:  taskID,
	}
}

// Validation reports a failed post-signature check.
func Validation(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Op: "validate", Message: msg, Err: err}
}

// Transport wraps an RPC failure.
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: "coordinator request failed", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
