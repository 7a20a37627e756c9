package report

import "fmt"

// CompileMessage is a single diagnostic produced while compiling a source.
type CompileMessage struct {
	// Kind is the message kind: one of the enumerated MK kinds below.
	Kind int

	// Path is the display path of the source the message refers to.  It may be
	// empty if the message is not attached to any file, in which case the
	// first Logger it passes through fills it in.
	Path string

	// Position is the location of the erroneous text.  It may be nil.
	Position *TextPosition

	// Message is the formatted message text.
	Message string

	// IsError indicates whether the message is an error or a warning.
	IsError bool
}

// Enumeration of message kinds.
const (
	MKSyntax      = iota // Malformed markup or script text.
	MKUnsupported        // No sub-compiler accepts the input's MIME type.
	MKUnresolved         // A multi-name could not be resolved.
	MKAmbiguous          // A multi-name resolved to more than one definition.
	MKCycle              // An inheritance cycle.
	MKDef                // Duplicate or conflicting definitions.
	MKTyping             // Type errors detected during analysis.
	MKProp               // Unknown markup attributes or property tags.
	MKMetadata           // Malformed metadata declarations.
	MKImport             // Bad import declarations.
	MKIO                 // Unreadable inputs.
	MKConfig             // Project configuration errors.
)

var messageKindNames = map[int]string{
	MKSyntax:      "Syntax",
	MKUnsupported: "Input",
	MKUnresolved:  "Name",
	MKAmbiguous:   "Ambiguity",
	MKCycle:       "Inheritance",
	MKDef:         "Definition",
	MKTyping:      "Type",
	MKProp:        "Property",
	MKMetadata:    "Metadata",
	MKImport:      "Import",
	MKIO:          "IO",
	MKConfig:      "Config",
}

// KindName returns the display name of a message kind.
func KindName(kind int) string {
	if name, ok := messageKindNames[kind]; ok {
		return name
	}

	return "Compile"
}

func (cm *CompileMessage) String() string {
	sev := "error"
	if !cm.IsError {
		sev = "warning"
	}

	if cm.Position == nil {
		return fmt.Sprintf("%s: %s: %s", cm.Path, sev, cm.Message)
	}

	return fmt.Sprintf("%s:%d:%d: %s: %s", cm.Path, cm.Position.StartLn, cm.Position.StartCol+1, sev, cm.Message)
}

// -----------------------------------------------------------------------------

// Errorf reports a compile error to the given sink.  The position may be nil.
func Errorf(sink Sink, kind int, pos *TextPosition, msg string, args ...interface{}) {
	sink.Report(&CompileMessage{
		Kind:     kind,
		Position: pos,
		Message:  fmt.Sprintf(msg, args...),
		IsError:  true,
	})
}

// Warnf reports a compile warning to the given sink.
func Warnf(sink Sink, kind int, pos *TextPosition, msg string, args ...interface{}) {
	sink.Report(&CompileMessage{
		Kind:     kind,
		Position: pos,
		Message:  fmt.Sprintf(msg, args...),
		IsError:  false,
	})
}

// ErrorfAt reports a compile error against an explicit path.
func ErrorfAt(sink Sink, path string, kind int, pos *TextPosition, msg string, args ...interface{}) {
	sink.Report(&CompileMessage{
		Kind:     kind,
		Path:     path,
		Position: pos,
		Message:  fmt.Sprintf(msg, args...),
		IsError:  true,
	})
}
