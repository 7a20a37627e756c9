package cmd

import (
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"mxc/archive"
	"mxc/build"
	"mxc/bundle"
	"mxc/common"
	"mxc/depm"
	"mxc/markup"
	"mxc/project"
	"mxc/provider"
	"mxc/report"
	"mxc/script"
)

// bytecodeFileExt is the extension of the compiled classes `build` writes.
const bytecodeFileExt = ".ll"

// builder wires a project into a driver: one provider per kind of input and
// one sub-compiler per kind of source.
type builder struct {
	proj *project.Project
	rep  *report.Reporter
	fsys provider.FileSystem

	fspec     *provider.FileSpec
	list      *provider.SourceList
	srcPath   *provider.SourcePath
	archives  *provider.ArchiveContext
	container *provider.ResourceContainer

	drv *build.Driver
}

// newBuilder loads the project in root.  loglevel overrides the project's log
// level unless it is empty.
func newBuilder(root, loglevel string) (*builder, error) {
	rep := report.NewReporter(report.LogLevelFromName(loglevel))

	proj, err := project.Load(root, rep)
	if err != nil {
		return nil, err
	}

	if loglevel == "" && proj.LogLevel >= 0 {
		rep.LogLevel = proj.LogLevel
	}

	libs, err := loadLibraries(proj.LibraryPath)
	if err != nil {
		return nil, err
	}

	return newProjectBuilder(proj, rep, provider.OSFileSystem{}, libs), nil
}

// newProjectBuilder creates the providers and the driver of a project.
// Providers are listed in precedence order.
func newProjectBuilder(proj *project.Project, rep *report.Reporter, fsys provider.FileSystem, libs []*archive.Library) *builder {
	b := &builder{
		proj:      proj,
		rep:       rep,
		fsys:      fsys,
		fspec:     provider.NewFileSpec(fsys, proj.Entries...),
		list:      provider.NewSourceList(fsys, proj.SourcePath, proj.IncludeSources...),
		srcPath:   provider.NewSourcePath(fsys, proj.SourcePath...),
		archives:  provider.NewArchiveContext(libs...),
		container: provider.NewResourceContainer(),
	}

	scripts := script.NewCompiler()
	manifests := markup.NewNamespaces(proj.Namespaces)

	compilers := []build.Compiler{
		markup.NewCompiler(scripts, manifests),
		scripts,
		bundle.NewCompiler(),
	}

	b.drv = build.NewDriver(rep, compilers,
		b.fspec,
		b.list,
		b.srcPath,
		provider.NewResourceBundlePath(fsys, proj.Locales, proj.BundlePath...),
		b.container,
		b.archives,
	)
	b.drv.Locales = proj.Locales
	b.drv.IncludeRoots = proj.SourcePath

	return b
}

// loadLibraries opens the library archives of the library path.  A directory
// contributes every archive directly inside it.
func loadLibraries(paths []string) ([]*archive.Library, error) {
	var libs []*archive.Library
	for _, p := range paths {
		finfo, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to load library path entry `%s`", p)
		}

		archives := []string{p}
		if finfo.IsDir() {
			if archives, err = filepath.Glob(filepath.Join(p, "*"+common.ArchiveFileExt)); err != nil {
				return nil, errors.Wrapf(err, "unable to list the libraries in `%s`", p)
			}
		}

		for _, ap := range archives {
			lib, err := archive.Open(ap)
			if err != nil {
				return nil, err
			}

			glog.V(1).Infof("loaded library %s with %d scripts", ap, lib.Len())
			libs = append(libs, lib)
		}
	}

	return libs, nil
}

// roots returns the entry points of the project: its entry files, its
// included sources and its included classes.
func (b *builder) roots() ([]*depm.Source, error) {
	srcs := append(b.fspec.Sources(), b.list.Sources()...)

	for _, q := range b.proj.IncludeClasses {
		s, err := b.srcPath.FindSource(q)
		if err != nil {
			return nil, err
		}

		if s == nil {
			return nil, errors.Errorf("the included class `%s` is not on the source path", q)
		}

		srcs = append(srcs, s)
	}

	for _, s := range srcs {
		s.SetDebuggable(b.proj.Debug)
	}

	return srcs, nil
}

// compile runs one compilation of the project.
func (b *builder) compile() (*build.Result, error) {
	b.rep.ReportCompileHeader(b.proj.Name, false)
	return b.drv.Compile(b.roots)
}

// outputs returns the sources whose classes belong to the project's output:
// the compiled sources and the sources generated for them.  Classes of
// libraries are not part of it.
func (b *builder) outputs(res *build.Result) []*depm.Source {
	srcs := append([]*depm.Source(nil), res.Sources...)
	for _, s := range res.Internal {
		if s.Owner() != b.archives {
			srcs = append(srcs, s)
		}
	}

	return srcs
}

// buildProject compiles the project and writes the bytecode of every class
// to its own file below the output directory.
func (b *builder) buildProject(outpath string) error {
	if outpath == "" {
		outpath = b.proj.OutputPath
	}

	if outpath == "" {
		outpath = filepath.Join(b.proj.Root, "out")
	}

	res, err := b.compile()
	if err != nil {
		return err
	}

	if b.rep.ShouldProceed() {
		b.rep.BeginPhase("Writing")
		for _, s := range b.outputs(res) {
			if err := writeClass(outpath, s.CompilationUnit()); err != nil {
				return err
			}
		}

		b.rep.EndPhase(true)
	}

	b.rep.ReportCompilationFinished(outpath)
	return nil
}

func writeClass(outdir string, u *depm.CompilationUnit) error {
	fpath := filepath.Join(outdir, filepath.FromSlash(u.Source().QName().Path())+bytecodeFileExt)
	if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
		return errors.Wrapf(err, "writing %s", fpath)
	}

	return errors.Wrapf(os.WriteFile(fpath, u.Bytecode(), 0644), "writing %s", fpath)
}

// buildLibrary compiles the project and writes its classes into a library
// archive which later builds can put on their library path.
func (b *builder) buildLibrary(outpath string) error {
	if outpath == "" {
		outpath = b.proj.ArchiveOutput
	}

	if outpath == "" {
		outpath = filepath.Join(b.proj.Root, b.proj.Name+common.ArchiveFileExt)
	}

	res, err := b.compile()
	if err != nil {
		return err
	}

	if b.rep.ShouldProceed() {
		b.rep.BeginPhase("Archiving")

		var scripts []*archive.Script
		for _, s := range b.outputs(res) {
			if as := archive.ScriptFromUnit(s.CompilationUnit()); as != nil {
				scripts = append(scripts, as)
			}
		}

		if err := archive.WriteFile(outpath, scripts); err != nil {
			return err
		}

		b.rep.EndPhase(true)
	}

	b.rep.ReportCompilationFinished(outpath)
	return nil
}
