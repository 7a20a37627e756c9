package report

import (
	"sync"
)

// Sink is anything that compile messages can be reported to.  The shared
// Reporter, the per-source Logger and the line remapping adapter all implement
// it so that they can be layered on top of each other.
type Sink interface {
	Report(cm *CompileMessage)
}

// Reporter is responsible for reporting errors, warnings, and other kinds of
// messages to the user during compilation.  One reporter is created per
// compilation session.  The reporter respects the set log level and is
// synchronized: its methods can be safely called from multiple goroutines.
type Reporter struct {
	// The mutex used to synchonize different message calls.
	m *sync.Mutex

	// The selected log level of the reporter.  This must be one of the
	// enumerated log levels below.
	LogLevel int

	// The number of errors and warnings reported so far.
	errorCount, warningCount int

	// messages is the list of all messages reported in the order in which they
	// were received.
	messages []*CompileMessage

	// warnings is a list of all warnings to be displayed at the end of
	// compilation.
	warnings []*CompileMessage

	// phase stores the state of the phase spinner if one is running.
	phase *phaseDisplay
}

// Enumeration of the different log levels.
const (
	LogLevelSilent  = iota // No output at all.
	LogLevelError          // Only errors and the closing message.
	LogLevelWarning        // Errors, warnings, and the closing message.
	LogLevelVerbose        // Everything including phase progress (default).
)

// LogLevelFromName converts a log level name as it is given on the command line
// or in a project file into its enumerated value.  Unknown names default to
// verbose.
func LogLevelFromName(name string) int {
	switch name {
	case "silent":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "warning":
		return LogLevelWarning
	default:
		return LogLevelVerbose
	}
}

// NewReporter creates a new reporter with the given log level.
func NewReporter(logLevel int) *Reporter {
	return &Reporter{
		m:        &sync.Mutex{},
		LogLevel: logLevel,
	}
}

// Report implements Sink.  Errors are displayed as soon as they arrive;
// warnings are held until the compilation finishes.
func (r *Reporter) Report(cm *CompileMessage) {
	r.m.Lock()
	defer r.m.Unlock()

	r.messages = append(r.messages, cm)

	if cm.IsError {
		r.errorCount++

		if r.LogLevel > LogLevelSilent {
			r.endPhase(false)
			cm.display()
		}
	} else {
		r.warningCount++
		r.warnings = append(r.warnings, cm)
	}
}

// ErrorCount returns the number of errors reported so far.
func (r *Reporter) ErrorCount() int {
	r.m.Lock()
	defer r.m.Unlock()

	return r.errorCount
}

// WarningCount returns the number of warnings reported so far.
func (r *Reporter) WarningCount() int {
	r.m.Lock()
	defer r.m.Unlock()

	return r.warningCount
}

// ShouldProceed indicates whether or not there have been any errors that should
// stop compilation from producing output.
func (r *Reporter) ShouldProceed() bool {
	return r.ErrorCount() == 0
}

// Messages returns a snapshot of every message reported so far.
func (r *Reporter) Messages() []*CompileMessage {
	r.m.Lock()
	defer r.m.Unlock()

	msgs := make([]*CompileMessage, len(r.messages))
	copy(msgs, r.messages)
	return msgs
}

// -----------------------------------------------------------------------------
// Below are the "aesthetic" reporting functions which only run when the log
// level permits them.

// ReportCompileHeader displays the pre-compilation header.
func (r *Reporter) ReportCompileHeader(project string, incremental bool) {
	if r.LogLevel == LogLevelVerbose {
		displayCompileHeader(project, incremental)
	}
}

// ReportCompilationFinished displays all held warnings and the concluding
// message for compilation.
func (r *Reporter) ReportCompilationFinished(outputPath string) {
	r.m.Lock()
	defer r.m.Unlock()

	r.endPhase(r.errorCount == 0)

	if r.LogLevel >= LogLevelWarning {
		for _, warning := range r.warnings {
			warning.display()
		}
	}

	if r.LogLevel > LogLevelSilent {
		displayCompilationFinished(r.errorCount == 0, r.errorCount, r.warningCount, outputPath)
	}
}
