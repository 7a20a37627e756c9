package markup

import (
	"github.com/golang/glog"

	"mxc/build"
	"mxc/common"
	"mxc/depm"
	"mxc/report"
)

// Names of the source fragments holding the generated script sources.
const (
	fragmentInterface      = "interface"
	fragmentImplementation = "implementation"
)

// Compiler is the sub-compiler of markup documents.  A document defines one
// class whose base class is the class of its root tag.  It is compiled in two
// passes which both delegate to the script compiler:
//
//   - The interface pass generates a skeleton script source declaring the
//     class, its interfaces, a field for every component with an id and the
//     document's script blocks.  Compiling it through the regular phases
//     makes the class visible to every other unit with its type signature.
//
//   - Once the interface is generated, Postprocess discovers the classes of
//     the document's child tags breadth first, then generates the full
//     implementation, compiles it in one go and transfers the results back
//     onto the document's unit.
//
// Diagnostics of the delegate are remapped onto the lines of the document.
type Compiler struct {
	// script compiles the generated sources.
	script build.Compiler

	ns *Namespaces
}

// NewCompiler creates a new markup compiler delegating to the script compiler
// and mapping tags through ns.
func NewCompiler(script build.Compiler, ns *Namespaces) *Compiler {
	if ns == nil {
		ns = NewNamespaces(nil)
	}

	return &Compiler{script: script, ns: ns}
}

func (c *Compiler) IsSupported(mimeType string) bool {
	return mimeType == common.MimeMarkup
}

func (c *Compiler) SupportedMimeTypes() []string {
	return []string{common.MimeMarkup}
}

// Preprocess rejects documents which no longer exist.
func (c *Compiler) Preprocess(sess *depm.Session, s *depm.Source) *depm.Source {
	if !s.Exists() {
		sess.Errorf(report.MKIO, nil, "`%s` does not exist", s.Name())
		return nil
	}

	return s
}

// Parse1 parses a document and runs the first phase of its interface.
func (c *Compiler) Parse1(sess *depm.Session, s *depm.Source) *depm.CompilationUnit {
	defer report.CatchErrors(sess.Sink())

	text, err := s.Read()
	if err != nil {
		sess.Errorf(report.MKIO, nil, "`%s` could not be read: %s", s.Name(), err)
		return nil
	}

	doc, err := ParseDocument(text)
	if err != nil {
		panic(err)
	}

	h, ok := readHeader(sess, s, doc, c.ns)
	if !ok {
		return nil
	}
	doc.header = h

	iface, lines := generateInterface(h)
	ds := delegateSource(s, fragmentInterface, iface)

	var du *depm.CompilationUnit
	if !c.delegate(sess, s, ds, lines, func() { du = c.script.Parse1(sess, ds) }) || du == nil {
		return nil
	}

	u := s.NewCompilationUnit(doc)
	u.Context.Document = doc
	u.Context.LineMap = lines
	u.Context.Delegate = du
	u.Context.PassState = depm.InterfaceParsed

	depm.TransferDefinitions(du, u)
	depm.TransferDependencies(du, u)
	u.ResourceBundles = append(u.ResourceBundles, du.ResourceBundles...)

	s.SetDelegate(ds)
	s.AddSourceFragment(fragmentInterface, iface)

	doc.frontier = []*Node{doc.Root}
	return u
}

func (c *Compiler) Parse2(sess *depm.Session, u *depm.CompilationUnit) {
	c.delegatePhase(sess, u, c.script.Parse2)
}

func (c *Compiler) Analyze1(sess *depm.Session, u *depm.CompilationUnit) {
	c.delegatePhase(sess, u, c.script.Analyze1)
}

// Analyze2 computes the type signature of the interface.
func (c *Compiler) Analyze2(sess *depm.Session, u *depm.CompilationUnit) {
	if !c.delegatePhase(sess, u, c.script.Analyze2) {
		return
	}

	du := u.Context.Delegate
	depm.TransferTypeInfo(du, u)
	for k, ti := range du.ClassTable {
		u.ClassTable[k] = ti.Clone()
	}
}

func (c *Compiler) Analyze3(sess *depm.Session, u *depm.CompilationUnit) {
	c.delegatePhase(sess, u, c.script.Analyze3)
}

// Analyze4 does nothing: the final checks run on the implementation, which
// contains everything the interface does.
func (c *Compiler) Analyze4(sess *depm.Session, u *depm.CompilationUnit) {}

// Generate generates the bytecode of the interface.  It stands in for the
// unit's bytecode until the implementation is generated.
func (c *Compiler) Generate(sess *depm.Session, u *depm.CompilationUnit) {
	if !c.delegatePhase(sess, u, c.script.Generate) {
		return
	}

	du := u.Context.Delegate
	depm.TransferBytecode(du, u)
	du.SetState(depm.StateHasBytecode)
	u.Context.PassState = depm.InterfaceGenerated
}

// Postprocess runs child tag discovery and then the implementation pass.
func (c *Compiler) Postprocess(sess *depm.Session, u *depm.CompilationUnit, pending *depm.NameSet) *depm.NameSet {
	ctx := u.Context
	doc := ctx.Document.(*Document)
	counter := &errorCounter{inner: sess.Sink()}

	var waiting *depm.NameSet
	sess.WithSink(counter, func() {
		defer report.CatchErrors(sess.Sink())

		if !doc.discovered {
			if waiting = discover(sess, u, doc, c.ns, pending); waiting.Len() > 0 || counter.errors > 0 {
				return
			}

			glog.V(2).Infof("markup: discovered the child tags of %s", u.Source().Name())
		}

		if ctx.PassState == depm.InterfaceGenerated {
			ctx.Delegate.SetState(depm.StateDone)
			if !c.parseImplementation(sess, u, doc) {
				return
			}
		}

		if waiting = c.implementationWaits(sess, u); waiting.Len() > 0 {
			return
		}

		c.compileImplementation(sess, u)
	})

	if waiting == nil || counter.errors > 0 {
		return depm.NewNameSet()
	}

	return waiting
}

// -----------------------------------------------------------------------------

// parseImplementation generates the implementation of a document and parses
// it.
func (c *Compiler) parseImplementation(sess *depm.Session, u *depm.CompilationUnit, doc *Document) bool {
	impl, lines, ok := generateImplementation(sess, u, doc)
	if !ok {
		return false
	}

	s := u.Source()
	ds := delegateSource(s, fragmentImplementation, impl)

	var du *depm.CompilationUnit
	if !c.delegate(sess, s, ds, lines, func() { du = c.script.Parse1(sess, ds) }) || du == nil {
		return false
	}

	u.Context.Delegate = du
	u.Context.LineMap = lines
	s.SetDelegate(ds)
	s.AddSourceFragment(fragmentImplementation, impl)

	if !c.delegatePhase(sess, u, c.script.Parse2) {
		return false
	}

	u.Context.PassState = depm.ImplementationParsed
	return true
}

// implementationWaits returns the names the implementation waits for: those
// which are not resolved yet and the classes whose type signatures are not
// known yet.
func (c *Compiler) implementationWaits(sess *depm.Session, u *depm.CompilationUnit) *depm.NameSet {
	du := u.Context.Delegate
	depm.TransferResolutions(u, du)

	waiting := depm.NewNameSet()
	for _, kind := range depm.DepKinds {
		set := du.Dependencies(kind)
		for _, mn := range set.Names() {
			q, ok := set.Resolved(mn)
			if !ok {
				waiting.Add(mn)
				continue
			}

			if kind != depm.DepInheritance && kind != depm.DepType {
				continue
			}

			if _, ok := sess.Symbols.TypeInfo(q); !ok {
				waiting.Add(mn)
			}
		}
	}

	return waiting
}

// compileImplementation runs the remaining phases of the implementation and
// transfers its results onto the document's unit.
func (c *Compiler) compileImplementation(sess *depm.Session, u *depm.CompilationUnit) {
	phases := []func(*depm.Session, *depm.CompilationUnit){
		c.script.Analyze1,
		c.script.Analyze2,
		c.script.Analyze3,
		c.script.Analyze4,
		c.script.Generate,
	}

	for _, phase := range phases {
		if !c.delegatePhase(sess, u, phase) {
			return
		}
	}

	du := u.Context.Delegate
	styles := u.Styles

	depm.CopyMetaData(du, u)
	depm.TransferBytecode(du, u)
	depm.TransferDependencies(du, u)
	depm.TransferDefinitions(du, u)
	depm.TransferGeneratedSources(du, u)

	u.Styles = append(u.Styles, styles...)
	u.Metadata = append(u.Metadata[:0], du.Metadata...)
	if ti := u.TypeInfo(); ti != nil {
		sess.Symbols.RegisterType(ti)
	}

	du.Source().RemoveCompilationUnit()
	u.Context.Delegate = nil
	u.Context.PassState = depm.ImplementationGenerated
}

// -----------------------------------------------------------------------------

// delegateSource creates the source of a generated script.  It has the
// identity of the document so that the script compiler checks its
// definition against the document's name and package.
func delegateSource(s *depm.Source, pass, text string) *depm.Source {
	name := s.Name() + "$" + pass + common.ScriptFileExt
	f := depm.NewTextFile(name, common.MimeScript, text, s.LastModified())
	return depm.NewSource(f, s.RelativePath(), s.ShortName(), s.Owner(), s.IsInternal(), false)
}

// delegate runs phase code of a delegate with its diagnostics remapped onto
// the document.  It returns false if the code reported any error.
func (c *Compiler) delegate(sess *depm.Session, s, ds *depm.Source, lines *report.LineMap, fn func()) bool {
	counter := &errorCounter{inner: sess.Sink()}
	sess.WithSink(report.NewRemapper(counter, ds.Name(), s.Name(), lines), func() {
		defer report.CatchErrors(sess.Sink())
		fn()
	})

	return counter.errors == 0
}

// delegatePhase runs a phase on the delegate of a unit.  Resolutions flow to
// the delegate before the phase and its dependencies flow back after it.
func (c *Compiler) delegatePhase(sess *depm.Session, u *depm.CompilationUnit, phase func(*depm.Session, *depm.CompilationUnit)) bool {
	du := u.Context.Delegate
	depm.TransferResolutions(u, du)

	ok := c.delegate(sess, u.Source(), du.Source(), u.Context.LineMap, func() { phase(sess, du) })

	depm.TransferDependencies(du, u)
	return ok
}

// errorCounter is a sink which counts the errors passing through it.
type errorCounter struct {
	inner  report.Sink
	errors int
}

func (ec *errorCounter) Report(cm *report.CompileMessage) {
	if cm.IsError {
		ec.errors++
	}

	ec.inner.Report(cm)
}
