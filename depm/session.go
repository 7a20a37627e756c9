package depm

import (
	"mxc/report"
)

// Session is the explicit per-compile state shared by the driver and the
// sub-compilers: the symbol table, the path resolver and the diagnostic sink
// that phase code reports to.
type Session struct {
	Symbols  *SymbolTable
	Resolver *PathResolver
	Reporter *report.Reporter

	// Container receives sources generated during compilation.  It may be
	// nil, in which case sub-compilers generate no helper sources.
	Container SourceContainer

	// Locales are the locales resource bundles are compiled for.
	Locales []string

	sink report.Sink
}

// NewSession creates a new session reporting to rep.
func NewSession(rep *report.Reporter, symbols *SymbolTable, resolver *PathResolver) *Session {
	return &Session{
		Symbols:  symbols,
		Resolver: resolver,
		Reporter: rep,
		sink:     rep,
	}
}

// Sink returns the sink phase code should currently report to.
func (s *Session) Sink() report.Sink {
	return s.sink
}

// SwapSink installs sink as the current sink and returns the function that
// restores the previous one.
func (s *Session) SwapSink(sink report.Sink) (restore func()) {
	prev := s.sink
	s.sink = sink

	return func() {
		s.sink = prev
	}
}

// WithSink runs fn with sink installed as the current sink.  The previous sink
// is restored on every exit path, including panics.
func (s *Session) WithSink(sink report.Sink, fn func()) {
	restore := s.SwapSink(sink)
	defer restore()

	fn()
}

// Errorf reports a compile error to the current sink.
func (s *Session) Errorf(kind int, pos *report.TextPosition, msg string, args ...interface{}) {
	report.Errorf(s.sink, kind, pos, msg, args...)
}

// Warnf reports a compile warning to the current sink.
func (s *Session) Warnf(kind int, pos *report.TextPosition, msg string, args ...interface{}) {
	report.Warnf(s.sink, kind, pos, msg, args...)
}
