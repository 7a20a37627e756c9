package depm

import (
	"path"
	"strings"
	"time"

	"mxc/report"

	"github.com/pkg/errors"
)

// Provider is a strategy for locating sources: a list of files, a source path,
// a resource bundle path, a container of generated sources or a set of library
// archives.
type Provider interface {
	// Name returns a short description of the provider for diagnostics.
	Name() string

	// FindSource returns the source defining a qualified name, or nil if the
	// provider has no such source.  The error is reserved for hard failures.
	FindSource(q QName) (*Source, error)

	// Sources returns every source the provider currently holds.
	Sources() []*Source
}

// Replacer is implemented by providers that accept a recompiled copy of one of
// their sources back into their cache.
type Replacer interface {
	Replace(s *Source)
}

// Batched is implemented by providers which hand out one source per name for
// the duration of a compilation batch.  BeginBatch starts a new batch.
type Batched interface {
	BeginBatch()
}

// SourceContainer accepts sources generated while compiling other sources.
type SourceContainer interface {
	AddSource(q QName, f VirtualFile, owner *Source) *Source
}

// fileInclude is another file the content of a source depends on.
type fileInclude struct {
	file     VirtualFile
	modified time.Time
}

// Source is a single input of the compiler: a file, an archived script or a
// generated document, together with the compilation unit produced from it.
type Source struct {
	file         VirtualFile
	relativePath string
	shortName    string
	owner        Provider

	isRoot       bool
	isInternal   bool
	isDebuggable bool

	// lastModified is the file's modification time at the point the source
	// was last (re)baselined.
	lastModified time.Time

	includes     []*fileInclude
	fragments    map[string]string
	fragmentKeys []string

	logger   *report.Logger
	resolver *PathResolver

	// sideCache is the side cache of the archived script the source was
	// materialized from, if any.
	sideCache map[string]interface{}

	// delegate is the source a sub-compiler generated to compile this one.
	delegate *Source

	unit *CompilationUnit
}

// NewSource creates a new source.  The relative path is the slash-separated
// path of the file below its provider's root, without extension: eg.
// `views/Main`.  The short name is the file name without extension.
func NewSource(file VirtualFile, relativePath, shortName string, owner Provider, isInternal, isRoot bool) *Source {
	return &Source{
		file:         file,
		relativePath: relativePath,
		shortName:    shortName,
		owner:        owner,
		isRoot:       isRoot,
		isInternal:   isInternal,
		isDebuggable: true,
		lastModified: file.LastModified(),
	}
}

// -----------------------------------------------------------------------------

// Name returns the identifying path of the source's file.
func (s *Source) Name() string {
	return s.file.Name()
}

// File returns the underlying virtual file.
func (s *Source) File() VirtualFile {
	return s.file
}

// RelativePath returns the provider-relative path of the source.
func (s *Source) RelativePath() string {
	return s.relativePath
}

// ShortName returns the file name of the source without extension.
func (s *Source) ShortName() string {
	return s.shortName
}

// Owner returns the provider that produced the source.
func (s *Source) Owner() Provider {
	return s.owner
}

// MimeType returns the MIME type of the source's content.
func (s *Source) MimeType() string {
	return s.file.MimeType()
}

// IsRoot returns whether the source is an entry point.
func (s *Source) IsRoot() bool {
	return s.isRoot
}

// IsInternal returns whether the source is needed for compilation but excluded
// from the output.
func (s *Source) IsInternal() bool {
	return s.isInternal
}

// IsDebuggable returns whether debug information is emitted for the source.
func (s *Source) IsDebuggable() bool {
	return s.isDebuggable
}

// SetDebuggable sets whether debug information is emitted for the source.
func (s *Source) SetDebuggable(debuggable bool) {
	s.isDebuggable = debuggable
}

// QName returns the qualified name the source is expected to define, derived
// from its relative path.
func (s *Source) QName() QName {
	dir := path.Dir(s.relativePath)
	if dir == "." || dir == "/" {
		dir = ""
	}

	return QName{Namespace: strings.ReplaceAll(strings.Trim(dir, "/"), "/", "."), Local: s.shortName}
}

// Exists returns whether the source's file can be read.
func (s *Source) Exists() bool {
	return s.file.Exists()
}

// Read reads the source's content.  Failing to read a source that is expected
// to exist is a hard failure.
func (s *Source) Read() ([]byte, error) {
	if !s.file.Exists() {
		return nil, errors.Errorf("source %s does not exist", s.file.Name())
	}

	return ReadFile(s.file)
}

// LastModified returns the staleness baseline of the source.
func (s *Source) LastModified() time.Time {
	return s.lastModified
}

// SetSideCache attaches the side cache of an archived script.
func (s *Source) SetSideCache(cache map[string]interface{}) {
	s.sideCache = cache
}

// SideCache returns the archived script side cache, if any.
func (s *Source) SideCache() map[string]interface{} {
	return s.sideCache
}

// -----------------------------------------------------------------------------

// AddFileInclude records that the source's content depends on another file,
// capturing that file's current modification time.
func (s *Source) AddFileInclude(f VirtualFile) {
	for _, inc := range s.includes {
		if inc.file.Name() == f.Name() {
			inc.modified = f.LastModified()
			return
		}
	}

	s.includes = append(s.includes, &fileInclude{file: f, modified: f.LastModified()})
}

// FileIncludes returns the files the source depends on.
func (s *Source) FileIncludes() []VirtualFile {
	files := make([]VirtualFile, len(s.includes))
	for i, inc := range s.includes {
		files[i] = inc.file
	}

	return files
}

// IsUpdated returns whether the source is stale: its file or one of its
// includes changed since they were captured, or the file can no longer be
// read.
func (s *Source) IsUpdated() bool {
	if !s.file.Exists() || !s.file.LastModified().Equal(s.lastModified) {
		return true
	}

	for _, inc := range s.includes {
		if !inc.file.Exists() || !inc.file.LastModified().Equal(inc.modified) {
			return true
		}
	}

	if s.unit != nil {
		for _, asset := range s.unit.Assets {
			if asset.IsUpdated(nil) {
				return true
			}
		}
	}

	return false
}

// -----------------------------------------------------------------------------

// AddSourceFragment stores a named fragment of generated text.
func (s *Source) AddSourceFragment(name, text string) {
	if s.fragments == nil {
		s.fragments = make(map[string]string)
	}

	if _, ok := s.fragments[name]; !ok {
		s.fragmentKeys = append(s.fragmentKeys, name)
	}

	s.fragments[name] = text
}

// SourceFragment returns a named fragment.
func (s *Source) SourceFragment(name string) (string, bool) {
	text, ok := s.fragments[name]
	return text, ok
}

// SourceFragmentNames returns the fragment names in insertion order.
func (s *Source) SourceFragmentNames() []string {
	return s.fragmentKeys
}

// ClearSourceFragments drops every fragment of the source and of its delegate.
func (s *Source) ClearSourceFragments() {
	s.fragments = nil
	s.fragmentKeys = nil

	if s.delegate != nil {
		s.delegate.ClearSourceFragments()
	}
}

// SetDelegate records the source a sub-compiler generated to compile this one.
func (s *Source) SetDelegate(d *Source) {
	s.delegate = d
}

// Delegate returns the delegate source, if any.
func (s *Source) Delegate() *Source {
	return s.delegate
}

// -----------------------------------------------------------------------------

// ConnectLogger attaches a diagnostic logger forwarding to parent.  An existing
// logger is relinked rather than replaced so that it keeps its messages.
func (s *Source) ConnectLogger(parent report.Sink) *report.Logger {
	if s.logger == nil || !s.logger.Linked() {
		s.logger = report.NewLogger(s.file.Name(), parent)
	}

	return s.logger
}

// Logger returns the source's diagnostic logger, or nil if it has none.
func (s *Source) Logger() *report.Logger {
	return s.logger
}

// disconnectLogger drops the logger unless it recorded diagnostics, in which
// case it is kept but unlinked from the shared sink.
func (s *Source) disconnectLogger() {
	if s.logger == nil {
		return
	}

	if s.logger.HasDiagnostics() {
		s.logger.Unlink()
	} else {
		s.logger = nil
	}
}

// ConnectPathResolver attaches the per-compile path resolver.
func (s *Source) ConnectPathResolver(r *PathResolver) {
	s.resolver = r
}

// DisconnectPathResolver detaches the path resolver.
func (s *Source) DisconnectPathResolver() {
	s.resolver = nil
}

// ResolvePath resolves a path referenced from the source's content: relative
// to the source's own directory first, then through the path resolver.
func (s *Source) ResolvePath(rel string) VirtualFile {
	if s.resolver == nil {
		return nil
	}

	return s.resolver.Resolve(path.Dir(s.file.Name()), rel)
}

// -----------------------------------------------------------------------------

// CompilationUnit returns the source's live unit, or nil.
func (s *Source) CompilationUnit() *CompilationUnit {
	return s.unit
}

// NewCompilationUnit returns the unit to populate from a fresh parse.  A unit
// that was seeded by ResetUnit and has not progressed is reused; any other
// existing unit is an internal error since units are never reparsed in place.
func (s *Source) NewCompilationUnit(syntaxTree interface{}) *CompilationUnit {
	if s.unit != nil && s.unit.state != StateEmpty {
		panic(report.NewInternalError("source %s already has a compilation unit", s.Name()))
	}

	if s.unit == nil {
		s.unit = newCompilationUnit(s)
	}

	s.unit.SyntaxTree = syntaxTree
	return s.unit
}

// RemoveCompilationUnit discards the unit.  The fragment cache, the logger and
// the includes are dropped and the staleness baseline is reset to the file's
// current modification time.
func (s *Source) RemoveCompilationUnit() {
	s.unit = nil
	s.fragments = nil
	s.fragmentKeys = nil
	s.logger = nil
	s.includes = nil
	s.delegate = nil
	s.lastModified = s.file.LastModified()
}

// ResetUnit discards the unit and prepares a new empty one.  When keepTypeInfo
// is set, the derived metadata of the discarded unit is transplanted onto the
// new unit so that it remains available until it is recomputed.
func (s *Source) ResetUnit(keepTypeInfo bool) *CompilationUnit {
	old := s.unit
	s.RemoveCompilationUnit()

	if !keepTypeInfo || old == nil {
		return nil
	}

	s.unit = newCompilationUnit(s)
	CopyMetaData(old, s.unit)
	for _, kind := range DepKinds {
		s.unit.history[kind].merge(old.history[kind])
	}

	return s.unit
}

// Copy returns an independent copy of a done source for reuse in another
// compilation.  The copy has a new done unit carrying the definitions, the
// dependencies with their history, the generated sources, a private copy of
// the bytecode and the derived metadata.  It never shares the original's
// syntax tree, logger or buffers.  Sources whose unit is not done cannot be
// copied and return nil.
func (s *Source) Copy() *Source {
	if s.unit == nil || !s.unit.IsDone() {
		return nil
	}

	c := &Source{
		file:         s.file,
		relativePath: s.relativePath,
		shortName:    s.shortName,
		owner:        s.owner,
		isRoot:       s.isRoot,
		isInternal:   s.isInternal,
		isDebuggable: s.isDebuggable,
		lastModified: s.lastModified,
		sideCache:    s.sideCache,
	}

	for _, inc := range s.includes {
		c.includes = append(c.includes, &fileInclude{file: inc.file, modified: inc.modified})
	}

	u := newCompilationUnit(c)
	CopyMetaData(s.unit, u)
	TransferDefinitions(s.unit, u)
	TransferDependencies(s.unit, u)
	TransferGeneratedSources(s.unit, u)
	TransferBytecode(s.unit, u)
	u.workflow = s.unit.workflow
	u.state = s.unit.state
	u.Context = nil

	c.unit = u
	return c
}
