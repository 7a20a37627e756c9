package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"mxc/common"
	"mxc/depm"
	"mxc/markup"
	"mxc/report"
)

const validProject = `
[project]
name = "gallery"
mxc-version = "0.1.0"
entries = ["app/Main.mxml"]
include-classes = ["ui.effects.Fade"]
source-path = ["src"]
library-path = ["lib/controls.mxa"]
locales = ["en_US", "fr_FR"]
bundle-path = ["locale"]
output = "out"
archive-output = "out/gallery.mxa"
debug = true
log-level = "warning"

[namespaces."urn:gallery:controls"]
Btn = "ui.controls.Button"
Box = "Box"
`

func TestParseProject(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)

	proj, err := Parse("/work/gallery", []byte(validProject), rep)
	if err != nil {
		t.Fatalf("Parse() error = %v: %v", err, rep.Messages())
	}

	want := &Project{
		Root:           "/work/gallery",
		Name:           "gallery",
		Entries:        []string{"/work/gallery/app/Main.mxml"},
		IncludeClasses: []depm.QName{depm.NewQName("ui.effects", "Fade")},
		SourcePath:     []string{"/work/gallery/src"},
		LibraryPath:    []string{"/work/gallery/lib/controls.mxa"},
		BundlePath:     []string{"/work/gallery/locale"},
		Locales:        []string{"en_US", "fr_FR"},
		Namespaces: map[string]markup.Manifest{
			"urn:gallery:controls": {
				"Btn": depm.NewQName("ui.controls", "Button"),
				"Box": depm.NewQName("", "Box"),
			},
		},
		OutputPath:    "/work/gallery/out",
		ArchiveOutput: "/work/gallery/out/gallery.mxa",
		Debug:         true,
		LogLevel:      report.LogLevelWarning,
	}
	if diff := pretty.Diff(proj, want); len(diff) > 0 {
		t.Fatalf("project differs: %v", diff)
	}

	if n := len(rep.Messages()); n != 0 {
		t.Fatalf("Parse() reported %d messages, want none", n)
	}
}

func TestParseProjectErrors(t *testing.T) {
	tests := []struct {
		name, text string
		want       []string
	}{
		{
			"bad name",
			"[project]\nname = \"my-app\"\nentries = [\"Main.mxml\"]\n",
			[]string{"`name`: `my-app` is not a valid identifier"},
		},
		{
			"nothing to compile",
			"[project]\nname = \"app\"\n",
			[]string{"`entries`: the project has nothing to compile"},
		},
		{
			"bad entry and log level",
			"[project]\nname = \"app\"\nentries = [\"Main.css\"]\nlog-level = \"loud\"\n",
			[]string{
				"`entries`: `Main.css` is neither a markup nor a script file",
				"`log-level`: `loud` is not a log level",
			},
		},
		{
			"bad namespaces",
			"[project]\nname = \"app\"\nentries = [\"Main.mxml\"]\n\n[namespaces.\"urn:mxc:markup\"]\nA = \"B\"\n\n[namespaces.\"urn:x\"]\nBtn = \"ui..Button\"\n",
			[]string{
				"`namespaces`: `urn:mxc:markup` is the namespace of the language's own tags",
				"`namespaces`: the tag `Btn` of `urn:x` does not name a valid class",
			},
		},
		{
			"bad archive",
			"[project]\nname = \"app\"\nentries = [\"Main.mxml\"]\narchive-output = \"app.zip\"\n",
			[]string{"`archive-output`: library archives must have the extension `.mxa`"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := report.NewReporter(report.LogLevelSilent)
			if _, err := Parse("/p", []byte(tt.text), rep); err == nil {
				t.Fatalf("Parse() error = nil")
			}

			var got []string
			for _, cm := range rep.Messages() {
				if cm.Kind != report.MKConfig || !cm.IsError || cm.Path != "/p/"+common.ProjectFileName {
					t.Fatalf("unexpected message %+v", cm)
				}

				got = append(got, cm.Message)
			}

			if diff := pretty.Diff(got, tt.want); len(diff) > 0 {
				t.Fatalf("messages differ: %v", diff)
			}
		})
	}
}

func TestParseProjectWarnings(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	text := "[project]\nname = \"app\"\nmxc-version = \"0.0.1\"\nentries = [\"Main.as\"]\nbundle-path = [\"locale\"]\n"

	proj, err := Parse("/p", []byte(text), rep)
	if err != nil || proj == nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if rep.WarningCount() != 2 || rep.ErrorCount() != 0 {
		t.Fatalf("Parse() reported %v", rep.Messages())
	}

	if proj.LogLevel != -1 {
		t.Fatalf("LogLevel = %d, want -1 when unset", proj.LogLevel)
	}
}

func TestParseProjectMalformed(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)

	if _, err := Parse("/p", []byte("[project\nname ="), rep); err == nil || !strings.Contains(err.Error(), "error parsing project file") {
		t.Fatalf("Parse() error = %v, want a parse error", err)
	}

	if _, err := Parse("/p", []byte("name = \"app\""), rep); err == nil || !strings.Contains(err.Error(), "no [project] table") {
		t.Fatalf("Parse() error = %v, want a missing table error", err)
	}
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()
	rep := report.NewReporter(report.LogLevelSilent)

	if _, err := Load(dir, rep); err == nil {
		t.Fatalf("Load() of an empty directory succeeded")
	}

	text := "[project]\nname = \"app\"\nentries = [\"Main.mxml\"]\n"
	if err := os.WriteFile(filepath.Join(dir, common.ProjectFileName), []byte(text), 0644); err != nil {
		t.Fatal(err)
	}

	proj, err := Load(dir, rep)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if proj.Entries[0] != filepath.Join(dir, "Main.mxml") {
		t.Fatalf("Entries = %v", proj.Entries)
	}
}
