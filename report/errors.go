package report

import (
	"fmt"
	"os"
)

// LocalCompileError is a compilation error that occurs in a context in which
// the file is known by the error handler and thus doesn't need to be passed
// along with the error.  Hand-written parsers raise these with `panic` and
// recover them with CatchErrors.
type LocalCompileError struct {
	// The error kind.
	Kind int

	// The error message.
	Message string

	// The position at which the error occurs.
	Position *TextPosition
}

func (lce *LocalCompileError) Error() string {
	return lce.Message
}

// Raise creates a new local compile error.
func Raise(kind int, pos *TextPosition, msg string, args ...interface{}) *LocalCompileError {
	return &LocalCompileError{Kind: kind, Message: fmt.Sprintf(msg, args...), Position: pos}
}

// CatchErrors catches any local compile errors thrown by a `panic` during a
// stage of compilation and reports them to the sink.  Any other panic value is
// propagated.
// NB: This function must ALWAYS be deferred.
func CatchErrors(sink Sink) {
	if x := recover(); x != nil {
		if cerr, ok := x.(*LocalCompileError); ok {
			sink.Report(&CompileMessage{
				Kind:     cerr.Kind,
				Position: cerr.Position,
				Message:  cerr.Message,
				IsError:  true,
			})
		} else {
			panic(x)
		}
	}
}

// -----------------------------------------------------------------------------

// InternalError is an error that results from a bug or an unexpected condition
// inside the compiler: an invariant violation rather than bad input.
type InternalError struct {
	Message string
}

func (ie *InternalError) Error() string {
	return "internal compiler error: " + ie.Message
}

// NewInternalError creates a new internal error.
func NewInternalError(msg string, args ...interface{}) *InternalError {
	return &InternalError{Message: fmt.Sprintf(msg, args...)}
}

// ReportICE reports an internal compiler error and exits.  These errors are
// always displayed regardless of log level.
func ReportICE(message string, args ...interface{}) {
	displayICE(fmt.Sprintf(message, args...))

	os.Exit(-1)
}

// ReportFatal reports a fatal error and exits.  These are errors that stop all
// compilation immediately but are expected: unreadable project files,
// malformed archives, and the like.
func ReportFatal(message string, args ...interface{}) {
	displayFatalError(fmt.Sprintf(message, args...))

	os.Exit(1)
}
