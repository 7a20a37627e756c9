package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rogpeppe/go-internal/txtar"

	"mxc/archive"
	"mxc/depm"
	"mxc/project"
	"mxc/provider"
	"mxc/report"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const libraryProject = `
-- src/ui/Button.as --
package ui {
    [Event(name="click")]
    public class Button {
        public var label:String;
    }
}
-- app/Main.mxml --
<ui:Button xmlns:ui="ui.*" label="Start" click="trace(event)"/>
-- locale/en_US/strings.properties --
title=Gallery
`

func loadFiles(t *testing.T) *provider.MapFileSystem {
	t.Helper()

	fsys := provider.NewMapFileSystem()
	for _, f := range txtar.Parse([]byte(libraryProject)).Files {
		fsys.Add(f.Name, string(f.Data), baseTime)
	}

	return fsys
}

func TestLibraryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsys := loadFiles(t)

	libProj := &project.Project{
		Root:           "/lib",
		Name:           "controls",
		IncludeClasses: []depm.QName{depm.NewQName("ui", "Button")},
		SourcePath:     []string{"src"},
		LogLevel:       -1,
	}

	rep := report.NewReporter(report.LogLevelSilent)
	b := newProjectBuilder(libProj, rep, fsys, nil)

	archivePath := filepath.Join(dir, "controls.mxa")
	if err := b.buildLibrary(archivePath); err != nil {
		t.Fatalf("buildLibrary() error = %v", err)
	}

	if n := rep.ErrorCount(); n != 0 {
		t.Fatalf("library build reported %d errors: %v", n, rep.Messages())
	}

	lib, err := archive.Open(archivePath)
	if err != nil {
		t.Fatalf("archive.Open() error = %v", err)
	}

	if s, ok := lib.Script("ui.Button"); !ok || s.TypeInfo == nil || !s.TypeInfo.HasEvent("click") {
		t.Fatalf("library lacks the signature of ui.Button")
	}

	// the application compiles against the library instead of the sources
	appProj := &project.Project{
		Root:       "/app",
		Name:       "app",
		Entries:    []string{"app/Main.mxml"},
		Locales:    []string{"en_US"},
		BundlePath: []string{"locale"},
		LogLevel:   -1,
	}

	libs, err := loadLibraries([]string{dir})
	if err != nil || len(libs) != 1 {
		t.Fatalf("loadLibraries() = %d libraries, %v", len(libs), err)
	}

	rep = report.NewReporter(report.LogLevelSilent)
	b = newProjectBuilder(appProj, rep, fsys, libs)

	outdir := filepath.Join(dir, "out")
	if err := b.buildProject(outdir); err != nil {
		t.Fatalf("buildProject() error = %v", err)
	}

	if n := rep.ErrorCount(); n != 0 {
		t.Fatalf("application build reported %d errors: %v", n, rep.Messages())
	}

	bc, err := os.ReadFile(filepath.Join(outdir, "Main"+bytecodeFileExt))
	if err != nil {
		t.Fatalf("Main was not written: %v", err)
	}

	for _, want := range []string{"Main.$init", "ui.Button.$init"} {
		if !strings.Contains(string(bc), want) {
			t.Fatalf("Main bytecode lacks %s:\n%s", want, bc)
		}
	}

	if _, err := os.Stat(filepath.Join(outdir, "ui", "Button"+bytecodeFileExt)); !os.IsNotExist(err) {
		t.Fatalf("the library class was written to the output: %v", err)
	}
}

func TestMissingIncludedClass(t *testing.T) {
	proj := &project.Project{
		Root:           "/p",
		Name:           "p",
		IncludeClasses: []depm.QName{depm.NewQName("ui", "Missing")},
		SourcePath:     []string{"src"},
		LogLevel:       -1,
	}

	b := newProjectBuilder(proj, report.NewReporter(report.LogLevelSilent), loadFiles(t), nil)
	if err := b.buildProject(t.TempDir()); err == nil || !strings.Contains(err.Error(), "ui:Missing") {
		t.Fatalf("buildProject() error = %v, want the missing class named", err)
	}
}

func TestLoadLibrariesMissingPath(t *testing.T) {
	if _, err := loadLibraries([]string{filepath.Join(t.TempDir(), "nope.mxa")}); err == nil {
		t.Fatalf("loadLibraries() error = nil")
	}
}
