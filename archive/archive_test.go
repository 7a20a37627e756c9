package archive

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"time"

	"mxc/depm"

	"github.com/kr/pretty"
)

func buttonScript() *Script {
	sum := uint64(0xfeedfacecafebeef)
	s := NewScript("controls.Button")
	s.Definitions = []depm.QName{depm.NewQName("controls", "Button")}
	s.Dependencies[depm.DepInheritance] = []depm.QName{depm.NewQName("controls", "UIComponent")}
	s.Dependencies[depm.DepType] = []depm.QName{depm.NewQName("", "String")}
	s.LastModified = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Checksum = &sum
	s.Bytecode = []byte("; ModuleID = 'controls.Button'\n")
	s.TypeInfo = &depm.TypeInfo{
		Name:  depm.NewQName("controls", "Button"),
		Super: depm.NewQName("controls", "UIComponent"),
		Members: []depm.Member{
			{Name: "label", Kind: depm.MemberField, Type: depm.NewQName("", "String")},
			{Name: "click", Kind: depm.MemberMethod, Params: []depm.QName{depm.NewQName("", "Object")}},
		},
		Events:          []string{"click"},
		DefaultProperty: "label",
	}

	return s
}

func TestWriteRead(t *testing.T) {
	want := buttonScript()
	iface := NewScript("controls.IFocus")
	iface.Definitions = []depm.QName{depm.NewQName("controls", "IFocus")}
	iface.TypeInfo = &depm.TypeInfo{Name: depm.NewQName("controls", "IFocus"), IsInterface: true}

	var buf bytes.Buffer
	if err := Write(&buf, []*Script{want, iface}); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	lib, err := Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "controls.mxa")
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}

	if lib.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", lib.Len())
	}

	got, ok := lib.ScriptDefining(depm.NewQName("controls", "Button"))
	if !ok {
		t.Fatalf("ScriptDefining(controls:Button) not found")
	}

	if got.Library() != lib || got.SideCache == nil {
		t.Fatalf("read script is not attached to its library")
	}

	if !got.LastModified.Equal(want.LastModified) {
		t.Fatalf("LastModified = %v, want %v", got.LastModified, want.LastModified)
	}

	if got.Checksum == nil || *got.Checksum != *want.Checksum {
		t.Fatalf("Checksum = %v, want %x", got.Checksum, *want.Checksum)
	}

	if diff := pretty.Diff(got.Dependencies, want.Dependencies); len(diff) != 0 {
		t.Fatalf("Dependencies differ:\n%v", diff)
	}

	if diff := pretty.Diff(got.TypeInfo, want.TypeInfo); len(diff) != 0 {
		t.Fatalf("TypeInfo differs:\n%v", diff)
	}

	if !bytes.Equal(got.Bytecode, want.Bytecode) {
		t.Fatalf("Bytecode = %q, want %q", got.Bytecode, want.Bytecode)
	}

	if fi, _ := lib.Script("controls.IFocus"); fi == nil || !fi.TypeInfo.IsInterface || fi.Checksum != nil {
		t.Fatalf("interface script not read back intact")
	}
}

func TestReadRejectsMissingCatalog(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("bytecode/x.ll")
	w.Write([]byte("x"))
	zw.Close()

	_, err := Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "broken.mxa")
	if err == nil || !strings.Contains(err.Error(), "catalog.toml") {
		t.Fatalf("Read() = %v, want a missing catalog error", err)
	}
}

func TestScriptFile(t *testing.T) {
	lib := NewLibrary("libs/controls.mxa")
	s := buttonScript()
	lib.Add(s)

	sf := NewScriptFile(s)
	if sf.Name() != "libs/controls.mxa(bytecode/controls/Button.ll)" {
		t.Fatalf("Name() = %q", sf.Name())
	}

	data, err := depm.ReadFile(sf)
	if err != nil || !bytes.Equal(data, s.Bytecode) {
		t.Fatalf("ReadFile() = %q, %v, want the bytecode", data, err)
	}
}
