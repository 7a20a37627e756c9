package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mxc/common"
	"mxc/depm"

	"github.com/pkg/errors"
)

// Script is one precompiled definition stored in a library archive.
type Script struct {
	// Name is the dotted qualified name of the script's primary definition.
	Name string

	// Definitions are the top-level definitions of the script.
	Definitions []depm.QName

	// Dependencies are the pre-resolved dependencies of the script by kind.
	Dependencies [depm.NumDepKinds][]depm.QName

	// LastModified is the time the script was compiled.
	LastModified time.Time

	// Checksum is the signature checksum of the script, if one was computed.
	Checksum *uint64

	// TypeInfo is the public signature of the primary definition, if any.
	TypeInfo *depm.TypeInfo

	Bytecode []byte

	// SideCache carries data across incremental runs within one process.  It
	// is never written to disk.  The compilation unit last materialized from
	// the script is stored under `common.UnitSideCacheKey`.
	SideCache map[string]interface{}

	lib *Library
}

// NewScript creates a new script with an empty side cache.
func NewScript(name string) *Script {
	return &Script{Name: name, SideCache: make(map[string]interface{})}
}

// Library returns the library the script belongs to.
func (s *Script) Library() *Library {
	return s.lib
}

// QName returns the primary definition of the script.
func (s *Script) QName() depm.QName {
	return depm.ParseQName(s.Name)
}

// entryName returns the name of the zip entry holding the script's bytecode.
func (s *Script) entryName() string {
	return "bytecode/" + strings.ReplaceAll(s.Name, ".", "/") + ".ll"
}

// -----------------------------------------------------------------------------

// Library is an opened library archive: an ordered collection of scripts
// indexed by the definitions they provide.
type Library struct {
	// Path is the file the library was read from.  It is empty for libraries
	// built in memory.
	Path string

	// Modified is the modification time of the archive file.
	Modified time.Time

	scripts map[string]*Script
	order   []string
	defs    map[depm.QName]*Script
}

// NewLibrary creates an empty library.
func NewLibrary(path string) *Library {
	return &Library{
		Path:    path,
		scripts: make(map[string]*Script),
		defs:    make(map[depm.QName]*Script),
	}
}

// Add adds a script to the library, replacing any script with the same name.
func (l *Library) Add(s *Script) {
	if _, ok := l.scripts[s.Name]; !ok {
		l.order = append(l.order, s.Name)
	}

	if s.SideCache == nil {
		s.SideCache = make(map[string]interface{})
	}

	s.lib = l
	l.scripts[s.Name] = s
	for _, q := range s.Definitions {
		l.defs[q] = s
	}
}

// Script returns a script by dotted name.
func (l *Library) Script(name string) (*Script, bool) {
	s, ok := l.scripts[name]
	return s, ok
}

// ScriptDefining returns the script which defines a qualified name.
func (l *Library) ScriptDefining(q depm.QName) (*Script, bool) {
	s, ok := l.defs[q]
	return s, ok
}

// Scripts returns every script in the order they were added.
func (l *Library) Scripts() []*Script {
	scripts := make([]*Script, len(l.order))
	for i, name := range l.order {
		scripts[i] = l.scripts[name]
	}

	return scripts
}

// Len returns the number of scripts in the library.
func (l *Library) Len() int {
	return len(l.order)
}

// -----------------------------------------------------------------------------

// Open reads the library archive at path.
func Open(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening library")
	}
	defer f.Close()

	finfo, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "opening library")
	}

	lib, err := Read(f, finfo.Size(), path)
	if err != nil {
		return nil, err
	}

	lib.Modified = finfo.ModTime()
	return lib, nil
}

// Read reads a library archive from r.
func Read(r io.ReaderAt, size int64, path string) (*Library, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrapf(err, "reading library %s", path)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		entries[zf.Name] = zf
	}

	catFile, ok := entries[common.ArchiveCatalogName]
	if !ok {
		return nil, errors.Errorf("library %s has no %s", path, common.ArchiveCatalogName)
	}

	catData, err := readEntry(catFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading library %s", path)
	}

	cat, err := decodeCatalog(catData)
	if err != nil {
		return nil, errors.Wrapf(err, "reading catalog of library %s", path)
	}

	lib := NewLibrary(path)
	for _, ts := range cat.Scripts {
		s, err := ts.script()
		if err != nil {
			return nil, errors.Wrapf(err, "library %s", path)
		}

		zf, ok := entries[ts.Bytecode]
		if !ok {
			return nil, errors.Errorf("library %s: missing bytecode entry %s for %s", path, ts.Bytecode, ts.Name)
		}

		if s.Bytecode, err = readEntry(zf); err != nil {
			return nil, errors.Wrapf(err, "library %s", path)
		}

		lib.Add(s)
	}

	return lib, nil
}

func readEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Write writes a library archive holding scripts to w.  Scripts are written in
// name order so that equal libraries produce equal archives.
func Write(w io.Writer, scripts []*Script) error {
	sorted := append([]*Script(nil), scripts...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	cat := &tomlCatalog{Version: common.Version}
	for _, s := range sorted {
		cat.Scripts = append(cat.Scripts, newTOMLScript(s))
	}

	catData, err := encodeCatalog(cat)
	if err != nil {
		return errors.Wrap(err, "encoding catalog")
	}

	zw := zip.NewWriter(w)
	if err := writeEntry(zw, common.ArchiveCatalogName, time.Time{}, catData); err != nil {
		return err
	}

	for _, s := range sorted {
		if err := writeEntry(zw, s.entryName(), s.LastModified, s.Bytecode); err != nil {
			return err
		}
	}

	return errors.Wrap(zw.Close(), "writing library")
}

// WriteFile writes a library archive to the file at fpath.
func WriteFile(fpath string, scripts []*Script) error {
	var buf bytes.Buffer
	if err := Write(&buf, scripts); err != nil {
		return err
	}

	if dir := filepath.Dir(fpath); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return errors.Wrap(err, "writing library")
		}
	}

	return errors.Wrap(os.WriteFile(fpath, buf.Bytes(), 0644), "writing library")
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
	if !modified.IsZero() {
		hdr.Modified = modified
	}

	ew, err := zw.CreateHeader(hdr)
	if err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}

	_, err = ew.Write(data)
	return errors.Wrapf(err, "writing %s", name)
}

// -----------------------------------------------------------------------------

// ScriptFromUnit builds the archive script of a done compilation unit.  It
// returns nil if the unit is not done or has no definitions.
func ScriptFromUnit(u *depm.CompilationUnit) *Script {
	if !u.IsDone() || len(u.Definitions()) == 0 {
		return nil
	}

	s := NewScript(u.Definitions()[0].Dotted())
	s.Definitions = append(s.Definitions, u.Definitions()...)
	s.LastModified = u.Source().LastModified()
	s.Bytecode = append([]byte(nil), u.Bytecode()...)

	for _, kind := range depm.DepKinds {
		s.Dependencies[kind] = u.Dependencies(kind).QNames()
	}

	if sum, ok := u.Checksum(); ok {
		s.Checksum = &sum
	}

	if u.HasTypeInfo() {
		s.TypeInfo = u.TypeInfo().Clone()
	}

	return s
}
