package script

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"mxc/depm"
)

// Generator converts a script definition into an LLVM module, the bytecode
// form of a unit.  The module declares the class layout, one function per
// method, a static initializer that initializes every class the definition
// depends on, and keeps the method bodies and class metadata as constant
// strings.
type Generator struct {
	file *File
	ti   *depm.TypeInfo

	// deps are the classes the definition's code references.
	deps []depm.QName

	// prefix is prepended to every symbol of the module.
	prefix string

	mod *ir.Module

	// classType is the instance layout of the class.
	classType types.Type

	// externs are the functions declared for other classes by name.
	externs map[string]*ir.Func

	assets []*depm.Asset

	// globalCounter is a counter used to name anonymous globals.
	globalCounter int
}

// NewGenerator creates a new generator for a parsed file.  ti is the file's
// type signature and deps the classes its code references.
func NewGenerator(f *File, ti *depm.TypeInfo, deps []depm.QName) *Generator {
	return &Generator{
		file:    f,
		ti:      ti,
		deps:    deps,
		prefix:  f.QName().Dotted(),
		mod:     ir.NewModule(),
		externs: make(map[string]*ir.Func),
	}
}

// Generate runs generation.  Generation always succeeds: the definition has
// already been analyzed.
func (g *Generator) Generate() *ir.Module {
	def := g.file.Def
	g.mod.SourceFilename = g.prefix

	if def.Kind == DefNamespace {
		g.newString(g.prefix+".$uri", def.URI, enum.LinkageExternal)
		return g.mod
	}

	g.genClassType()

	if len(def.Metadata) > 0 {
		tags := make([]string, len(def.Metadata))
		for i, meta := range def.Metadata {
			tags[i] = meta.String()
		}

		g.newString(g.prefix+".$meta", strings.Join(tags, "\n"), enum.LinkageExternal)
	}

	for _, md := range def.Members {
		switch {
		case md.Kind == depm.MemberField && md.Modifiers.Has(ModStatic):
			g.genStaticField(md)
		case md.Kind != depm.MemberField:
			g.genMethod(md)
		}
	}

	for _, a := range g.assets {
		g.newString(g.prefix+".$asset."+a.Symbol, string(a.Data), enum.LinkageInternal)
	}

	g.genInit()
	return g.mod
}

// AddAsset embeds the payload of an asset as a constant of the module.
func (g *Generator) AddAsset(a *depm.Asset) {
	g.assets = append(g.assets, a)
}

// -----------------------------------------------------------------------------

// genClassType generates the instance layout of the class: a pointer to the
// class's shared data followed by the instance fields in declaration order.
func (g *Generator) genClassType() {
	fields := []types.Type{types.I8Ptr}
	for _, md := range g.file.Def.Members {
		if md.Kind == depm.MemberField && !md.Modifiers.Has(ModStatic) {
			fields = append(fields, convType(md.Type))
		}
	}

	g.classType = g.mod.NewTypeDef(g.prefix, types.NewStruct(fields...))
}

// genStaticField generates the global of a static field.
func (g *Generator) genStaticField(md *MemberDef) {
	glob := g.mod.NewGlobalDef(g.prefix+"."+md.Name, zeroValue(convType(md.Type)))
	glob.Immutable = md.Const

	if md.Modifiers.Has(ModPrivate) {
		glob.Linkage = enum.LinkageInternal
	}
}

// genMethod generates the function of a method.  Method bodies are kept as
// source text next to the function.
func (g *Generator) genMethod(md *MemberDef) {
	name := g.methodName(md)

	var params []*ir.Param
	if !md.Modifiers.Has(ModStatic) {
		params = append(params, ir.NewParam("this", types.NewPointer(g.classType)))
	}

	for _, p := range md.Params {
		if p.Rest {
			params = append(params, ir.NewParam(p.Name, types.I8Ptr))
		} else {
			params = append(params, ir.NewParam(p.Name, convType(p.Type)))
		}
	}

	retType := types.Type(types.Void)
	if md.Name != g.file.Def.Name && md.Kind != depm.MemberSetter {
		retType = convType(md.Type)
	}

	fn := g.mod.NewFunc(name, retType, params...)
	if md.Modifiers.Has(ModPrivate) {
		fn.Linkage = enum.LinkageInternal
	} else {
		fn.Linkage = enum.LinkageExternal
	}

	// interface methods and native methods are declarations only
	if md.Body == nil {
		return
	}

	fn.FuncAttrs = []ir.FuncAttribute{enum.FuncAttrNoUnwind}
	entry := fn.NewBlock("entry")

	if retType.Equal(types.Void) {
		entry.NewRet(nil)
	} else {
		entry.NewRet(zeroValue(retType))
	}

	g.newString(name+".$src", md.Body.Text, enum.LinkagePrivate)
}

// genInit generates the static initializer of the class.  It runs the
// initializers of the superclass and of every class the code references
// before the class is used.
func (g *Generator) genInit() {
	initFn := g.mod.NewFunc(g.prefix+".$init", types.Void)
	initFn.Linkage = enum.LinkageExternal
	entry := initFn.NewBlock("entry")

	if !g.ti.Super.IsZero() && !IsBuiltinType(g.ti.Super.Local) {
		entry.NewCall(g.externInit(g.ti.Super))
	}

	for _, q := range g.deps {
		if q == g.ti.Name || q == g.ti.Super {
			continue
		}

		entry.NewCall(g.externInit(q))
	}

	entry.NewRet(nil)
}

// externInit returns the declaration of another class's static initializer.
func (g *Generator) externInit(q depm.QName) *ir.Func {
	name := q.Dotted() + ".$init"
	if fn, ok := g.externs[name]; ok {
		return fn
	}

	fn := g.mod.NewFunc(name, types.Void)
	fn.Linkage = enum.LinkageExternal
	g.externs[name] = fn
	return fn
}

// -----------------------------------------------------------------------------

// methodName returns the symbol name of a method.
func (g *Generator) methodName(md *MemberDef) string {
	switch {
	case md.Name == g.file.Def.Name:
		return g.prefix + ".$ctor"
	case md.Kind == depm.MemberGetter:
		return g.prefix + ".get." + md.Name
	case md.Kind == depm.MemberSetter:
		return g.prefix + ".set." + md.Name
	default:
		return g.prefix + "." + md.Name
	}
}

// newString adds a constant string global.  An empty name generates an
// anonymous global.
func (g *Generator) newString(name, value string, linkage enum.Linkage) *ir.Global {
	if name == "" {
		name = fmt.Sprintf("%s.$str%d", g.prefix, g.globalCounter)
		g.globalCounter++
	}

	glob := g.mod.NewGlobalDef(name, constant.NewCharArrayFromString(value))
	glob.Immutable = true
	glob.Linkage = linkage
	return glob
}

// convType converts a declared type into its LLVM representation.
func convType(ref *TypeRef) types.Type {
	if ref == nil {
		return types.I8Ptr
	}

	switch ref.Name {
	case "int", "uint":
		return types.I32
	case "Number":
		return types.Double
	case "Boolean":
		return types.I1
	case "void":
		return types.Void
	default:
		return types.I8Ptr
	}
}

// zeroValue returns the zero value of a converted type.
func zeroValue(t types.Type) constant.Constant {
	switch v := t.(type) {
	case *types.IntType:
		if v.BitSize == 1 {
			return constant.NewBool(false)
		}

		return constant.NewInt(v, 0)
	case *types.FloatType:
		return constant.NewFloat(v, 0)
	case *types.PointerType:
		return constant.NewNull(v)
	}

	return constant.NewNull(types.I8Ptr)
}
