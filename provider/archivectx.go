package provider

import (
	"mxc/archive"
	"mxc/common"
	"mxc/depm"

	"github.com/golang/glog"
)

// ArchiveContext is the provider of the definitions of precompiled library
// archives.  Archived scripts are never recompiled: the sources it produces
// already have done units built from the archive catalog.  Earlier libraries
// take precedence.
type ArchiveContext struct {
	libs  []*archive.Library
	batch map[string]*depm.Source
	order []string
}

// NewArchiveContext creates an archive context over the given libraries.
func NewArchiveContext(libs ...*archive.Library) *ArchiveContext {
	return &ArchiveContext{libs: libs, batch: make(map[string]*depm.Source)}
}

func (ac *ArchiveContext) Name() string {
	return "library archives"
}

// Libraries returns the libraries in precedence order.
func (ac *ArchiveContext) Libraries() []*archive.Library {
	return ac.libs
}

func (ac *ArchiveContext) FindSource(q depm.QName) (*depm.Source, error) {
	for _, lib := range ac.libs {
		if script, ok := lib.ScriptDefining(q); ok {
			return ac.source(script), nil
		}
	}

	return nil, nil
}

func (ac *ArchiveContext) Sources() []*depm.Source {
	srcs := make([]*depm.Source, len(ac.order))
	for i, key := range ac.order {
		srcs[i] = ac.batch[key]
	}

	return srcs
}

func (ac *ArchiveContext) BeginBatch() {
	ac.batch = make(map[string]*depm.Source)
	ac.order = nil
}

// source materializes the source of an archived script once per batch.
func (ac *ArchiveContext) source(script *archive.Script) *depm.Source {
	key := archive.NewScriptFile(script).Name()
	if s, ok := ac.batch[key]; ok {
		return s
	}

	s := Materialize(script, ac)
	ac.batch[key] = s
	ac.order = append(ac.order, key)
	return s
}

// Materialize creates the source of an archived script with a done unit.  If
// a unit was materialized from the same script in an earlier batch, its
// derived metadata is carried forward from the script's side cache instead of
// being rebuilt from the catalog.
func Materialize(script *archive.Script, owner depm.Provider) *depm.Source {
	q := script.QName()
	s := depm.NewSource(archive.NewScriptFile(script), q.Path(), q.Local, owner, true, false)
	s.SetSideCache(script.SideCache)

	u := s.NewCompilationUnit(nil)
	if prev, ok := script.SideCache[common.UnitSideCacheKey].(*depm.CompilationUnit); ok {
		glog.V(2).Infof("archive: reusing unit of %s", script.Name)
		depm.CopyMetaData(prev, u)
		depm.TransferDefinitions(prev, u)
		depm.TransferDependencies(prev, u)
		depm.TransferBytecode(prev, u)
	} else {
		for _, d := range script.Definitions {
			u.AddDefinition(d)
		}

		for _, kind := range depm.DepKinds {
			for _, dep := range script.Dependencies[kind] {
				mn := depm.MultiNameFromQName(dep)
				u.AddDependency(kind, mn)
				u.ResolveDependency(kind, mn, dep)
			}
		}

		if script.Checksum != nil {
			u.SetChecksum(*script.Checksum)
		}

		if script.TypeInfo != nil {
			u.SetTypeInfo(script.TypeInfo.Clone())
			u.ClassTable[script.TypeInfo.Name.Local] = script.TypeInfo.Clone()
		}

		u.SetBytecode(append([]byte(nil), script.Bytecode...))
	}

	// setting the bytecode state stores the unit in the side cache
	u.SetState(depm.StateHasBytecode)
	u.SetState(depm.StateDone)
	return s
}
