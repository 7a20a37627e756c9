package common

import (
	"path/filepath"
	"strings"
)

// Version is the current compiler version as a string.
const Version string = "0.1.0"

// ProjectFileName is the name of project files.
const ProjectFileName string = "mxc-project.toml"

// File extensions of the inputs the compiler understands.
const (
	MarkupFileExt     string = ".mxml"
	ScriptFileExt     string = ".as"
	PropertiesFileExt string = ".properties"
	ArchiveFileExt    string = ".mxa"
)

// MIME types used to dispatch sources to sub-compilers.
const (
	MimeMarkup     string = "text/x-mxc-markup"
	MimeScript     string = "text/x-mxc-script"
	MimeProperties string = "text/x-properties"
	MimeBytecode   string = "application/x-mxc-bytecode"
	MimeUnknown    string = "application/octet-stream"
)

// MimeTypeFromPath determines the MIME type of a source from its extension.
func MimeTypeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case MarkupFileExt:
		return MimeMarkup
	case ScriptFileExt:
		return MimeScript
	case PropertiesFileExt:
		return MimeProperties
	default:
		return MimeUnknown
	}
}

// SourceExtensions is the ordered list of extensions a path-based lookup
// probes when searching for the definition of a qualified name.
var SourceExtensions = []string{MarkupFileExt, ScriptFileExt}

// UnitSideCacheKey is the well-known key under which an archive script's side
// cache stores the compilation unit last materialized from it.
const UnitSideCacheKey string = "mxc.compilation-unit"

// ArchiveCatalogName is the name of the manifest inside library archives.
const ArchiveCatalogName string = "catalog.toml"

// LanguageNamespace is the XML namespace of the markup language's own tags:
// Script, Style, Metadata and Declarations.
const LanguageNamespace string = "urn:mxc:markup"
