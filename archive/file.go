package archive

import (
	"bytes"
	"io"
	"time"

	"mxc/common"
)

// ScriptFile is the virtual file behind a source materialized from an archived
// script.  Its content is the script's bytecode.
type ScriptFile struct {
	script *Script
}

// NewScriptFile creates the virtual file of an archived script.
func NewScriptFile(s *Script) *ScriptFile {
	return &ScriptFile{script: s}
}

// Script returns the archived script behind the file.
func (sf *ScriptFile) Script() *Script {
	return sf.script
}

// Name returns `library.mxa(pkg/Name)`.
func (sf *ScriptFile) Name() string {
	lib := ""
	if sf.script.lib != nil {
		lib = sf.script.lib.Path
	}

	return lib + "(" + sf.script.entryName() + ")"
}

func (sf *ScriptFile) LastModified() time.Time {
	return sf.script.LastModified
}

func (sf *ScriptFile) Exists() bool {
	return true
}

func (sf *ScriptFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(sf.script.Bytecode)), nil
}

func (sf *ScriptFile) MimeType() string {
	return common.MimeBytecode
}
