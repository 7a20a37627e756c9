package report

// Logger is the diagnostic logger attached to a single source.  It records and
// counts the messages raised against that source and forwards them to its
// parent sink (usually the session Reporter).  A logger can be unlinked from
// its parent once the source is finished so that it keeps its recorded
// messages without holding on to the shared reporter.
type Logger struct {
	// Path is the display path used for messages which do not carry one.
	Path string

	parent Sink

	errorCount, warningCount int

	recorded []*CompileMessage
}

// NewLogger creates a new logger for the source at path forwarding to parent.
func NewLogger(path string, parent Sink) *Logger {
	return &Logger{Path: path, parent: parent}
}

// Report implements Sink.
func (l *Logger) Report(cm *CompileMessage) {
	if cm.Path == "" {
		cm.Path = l.Path
	}

	if cm.IsError {
		l.errorCount++
	} else {
		l.warningCount++
	}

	l.recorded = append(l.recorded, cm)

	if l.parent != nil {
		l.parent.Report(cm)
	}
}

// ErrorCount returns the number of errors raised against this source.
func (l *Logger) ErrorCount() int {
	return l.errorCount
}

// WarningCount returns the number of warnings raised against this source.
func (l *Logger) WarningCount() int {
	return l.warningCount
}

// HasDiagnostics returns whether any message was ever recorded.
func (l *Logger) HasDiagnostics() bool {
	return len(l.recorded) > 0
}

// Messages returns the recorded messages.
func (l *Logger) Messages() []*CompileMessage {
	return l.recorded
}

// Linked returns whether the logger still forwards to a parent sink.
func (l *Logger) Linked() bool {
	return l.parent != nil
}

// Unlink detaches the logger from its parent sink.
func (l *Logger) Unlink() {
	l.parent = nil
}
