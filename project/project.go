package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"mxc/common"
	"mxc/depm"
	"mxc/markup"
	"mxc/report"
)

// tomlProjectFile is the project file as it is encoded in TOML.
type tomlProjectFile struct {
	Project *tomlProject `toml:"project"`

	// Namespaces maps namespace URIs to the tag names they define and the
	// classes backing them.
	Namespaces map[string]map[string]string `toml:"namespaces,omitempty"`
}

// tomlProject is the `[project]` table of the project file.
type tomlProject struct {
	Name           string   `toml:"name"`
	Version        string   `toml:"mxc-version"`
	Entries        []string `toml:"entries"`
	IncludeSources []string `toml:"include-sources,omitempty"`
	IncludeClasses []string `toml:"include-classes,omitempty"`
	SourcePath     []string `toml:"source-path,omitempty"`
	LibraryPath    []string `toml:"library-path,omitempty"`
	Locales        []string `toml:"locales,omitempty"`
	BundlePath     []string `toml:"bundle-path,omitempty"`
	OutputPath     string   `toml:"output"`
	ArchiveOutput  string   `toml:"archive-output,omitempty"`
	Debug          bool     `toml:"debug"`
	LogLevel       string   `toml:"log-level,omitempty"`
}

// Project is a loaded and validated project.  Every path is joined to the
// project root.
type Project struct {
	// Root is the directory enclosing the project file.
	Root string

	Name string

	// Entries are the markup and script files compiled as entry points.
	Entries []string

	// IncludeSources are files compiled whether or not anything references
	// them.
	IncludeSources []string

	// IncludeClasses are classes of the source path compiled whether or not
	// anything references them.
	IncludeClasses []depm.QName

	SourcePath  []string
	LibraryPath []string
	BundlePath  []string
	Locales     []string

	Namespaces map[string]markup.Manifest

	OutputPath    string
	ArchiveOutput string
	Debug         bool

	// LogLevel is the enumerated log level, or -1 if the project file does not
	// set one.
	LogLevel int
}

// Load loads and validates the project in the directory root.  Problems with
// the project's settings are reported to sink as configuration errors and
// warnings; Load fails if there were any errors.  A missing or malformed
// project file is returned as an error.
func Load(root string, sink report.Sink) (*Project, error) {
	buff, err := os.ReadFile(filepath.Join(root, common.ProjectFileName))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read project file at `%s`", root)
	}

	return Parse(root, buff, sink)
}

// Parse decodes and validates the text of a project file enclosed by root.
func Parse(root string, buff []byte, sink report.Sink) (*Project, error) {
	tpf := &tomlProjectFile{}
	if err := toml.Unmarshal(buff, tpf); err != nil {
		return nil, errors.Wrapf(err, "error parsing project file at `%s`", root)
	}

	if tpf.Project == nil {
		return nil, errors.Errorf("project file at `%s` has no [project] table", root)
	}

	v := &validator{sink: sink, path: filepath.Join(root, common.ProjectFileName)}
	proj := v.project(root, tpf)
	if v.errors > 0 {
		return nil, errors.Errorf("project file at `%s` is invalid", root)
	}

	return proj, nil
}

// -----------------------------------------------------------------------------

// validator converts the decoded project file into a project, reporting
// every problem it finds.
type validator struct {
	sink   report.Sink
	path   string
	errors int
}

func (v *validator) errorf(key, msg string, args ...interface{}) {
	v.errors++
	v.sink.Report(&report.CompileMessage{
		Kind:    report.MKConfig,
		Path:    v.path,
		Message: fmt.Sprintf("`%s`: ", key) + fmt.Sprintf(msg, args...),
		IsError: true,
	})
}

func (v *validator) warnf(key, msg string, args ...interface{}) {
	v.sink.Report(&report.CompileMessage{
		Kind:    report.MKConfig,
		Path:    v.path,
		Message: fmt.Sprintf("`%s`: ", key) + fmt.Sprintf(msg, args...),
	})
}

func (v *validator) project(root string, tpf *tomlProjectFile) *Project {
	tp := tpf.Project
	proj := &Project{
		Root:           root,
		Name:           tp.Name,
		Locales:        tp.Locales,
		Debug:          tp.Debug,
		LogLevel:       -1,
		SourcePath:     v.paths(root, "source-path", tp.SourcePath),
		LibraryPath:    v.paths(root, "library-path", tp.LibraryPath),
		BundlePath:     v.paths(root, "bundle-path", tp.BundlePath),
		Entries:        v.paths(root, "entries", tp.Entries),
		IncludeSources: v.paths(root, "include-sources", tp.IncludeSources),
		Namespaces:     make(map[string]markup.Manifest, len(tpf.Namespaces)),
	}

	switch {
	case tp.Name == "":
		v.errorf("name", "missing project name")
	case !common.IsValidIdentifier(tp.Name):
		v.errorf("name", "`%s` is not a valid identifier", tp.Name)
	}

	if tp.Version != "" && tp.Version != common.Version {
		v.warnf("mxc-version", "project `%s` targets v%s but this is v%s", tp.Name, tp.Version, common.Version)
	}

	if len(proj.Entries) == 0 && len(proj.IncludeSources) == 0 && len(tp.IncludeClasses) == 0 {
		v.errorf("entries", "the project has nothing to compile")
	}

	for _, entry := range tp.Entries {
		if mt := common.MimeTypeFromPath(entry); mt != common.MimeMarkup && mt != common.MimeScript {
			v.errorf("entries", "`%s` is neither a markup nor a script file", entry)
		}
	}

	for _, class := range tp.IncludeClasses {
		q := depm.ParseQName(class)
		if !common.IsValidIdentifier(q.Local) || (q.Namespace != "" && !common.IsValidPackageName(q.Namespace)) {
			v.errorf("include-classes", "`%s` is not a valid class name", class)
			continue
		}

		proj.IncludeClasses = append(proj.IncludeClasses, q)
	}

	for _, locale := range tp.Locales {
		if !common.IsValidIdentifier(locale) {
			v.errorf("locales", "`%s` is not a valid locale", locale)
		}
	}

	if len(tp.BundlePath) > 0 && len(tp.Locales) == 0 {
		v.warnf("bundle-path", "no locales are set so no resource bundle is compiled")
	}

	uris := make([]string, 0, len(tpf.Namespaces))
	for uri := range tpf.Namespaces {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	for _, uri := range uris {
		if uri == common.LanguageNamespace {
			v.errorf("namespaces", "`%s` is the namespace of the language's own tags", uri)
			continue
		}

		m, bad, ok := markup.ParseManifest(tpf.Namespaces[uri])
		if !ok {
			v.errorf("namespaces", "the tag `%s` of `%s` does not name a valid class", bad, uri)
			continue
		}

		proj.Namespaces[uri] = m
	}

	if tp.OutputPath != "" {
		proj.OutputPath = join(root, tp.OutputPath)
	}

	if tp.ArchiveOutput != "" {
		if filepath.Ext(tp.ArchiveOutput) != common.ArchiveFileExt {
			v.errorf("archive-output", "library archives must have the extension `%s`", common.ArchiveFileExt)
		}

		proj.ArchiveOutput = join(root, tp.ArchiveOutput)
	}

	if tp.LogLevel != "" {
		switch tp.LogLevel {
		case "silent", "error", "warning", "verbose":
			proj.LogLevel = report.LogLevelFromName(tp.LogLevel)
		default:
			v.errorf("log-level", "`%s` is not a log level", tp.LogLevel)
		}
	}

	return proj
}

// paths joins every path of a key to the project root.
func (v *validator) paths(root, key string, paths []string) []string {
	var joined []string
	for _, p := range paths {
		if p == "" {
			v.errorf(key, "empty path")
			continue
		}

		joined = append(joined, join(root, p))
	}

	return joined
}

func join(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(root, p)
}
