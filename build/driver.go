package build

import (
	"sort"
	"strings"

	"mxc/common"
	"mxc/depm"
	"mxc/report"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// RootFunc returns the entry points of a compilation.  It is called once every
// provider began a new batch.
type RootFunc func() ([]*depm.Source, error)

// ProviderRoots returns a RootFunc compiling every source of the given
// providers.
func ProviderRoots(providers ...depm.Provider) RootFunc {
	return func() ([]*depm.Source, error) {
		var roots []*depm.Source
		for _, p := range providers {
			roots = append(roots, p.Sources()...)
		}

		return roots, nil
	}
}

// Result is the outcome of one compilation.
type Result struct {
	// Sources are the compiled sources which reach the output in dependency
	// order: every source comes after the sources it inherits from.  Internal
	// sources are never part of the output.
	Sources []*depm.Source

	// Internal are the internal sources compiled or reused along the way.
	Internal []*depm.Source

	// Failed are the sources which failed to compile.
	Failed []*depm.Source

	// Reused are the sources whose units were copied forward from an earlier
	// compilation without invoking any sub-compiler.
	Reused []*depm.Source

	// Iterations is the number of driver iterations run, including the final
	// iteration which made no progress.
	Iterations int

	// PostprocessRounds is the number of driver iterations in which any
	// postprocess call was made.
	PostprocessRounds int
}

// Units returns the units of the output sources in order.
func (r *Result) Units() []*depm.CompilationUnit {
	units := make([]*depm.CompilationUnit, len(r.Sources))
	for i, s := range r.Sources {
		units[i] = s.CompilationUnit()
	}

	return units
}

// -----------------------------------------------------------------------------

// Driver is the orchestrator of compilation: it moves every source through the
// phases of its sub-compiler, resolves the names they request through the
// symbol table, and keeps iterating over the whole batch until an iteration
// makes no progress.  Compilation is single-threaded and cooperative: a job
// that cannot advance simply waits for a later iteration.
type Driver struct {
	// rep is the reporter which receives every diagnostic.
	rep *report.Reporter

	// compilers are the registered sub-compilers.  The first compiler to
	// support a MIME type compiles it.
	compilers []Compiler

	// providers are the source providers in precedence order.
	providers []depm.Provider

	// Locales are the locales resource bundles are compiled for.
	Locales []string

	// IncludeRoots are the directories searched for files included by
	// sources after the including source's own directory.
	IncludeRoots []string

	// The state below is reset by every call to Compile.

	sess *depm.Session

	// jobs maps the name of every source in the batch to its job.
	jobs  map[string]*job
	queue []*job

	// deps is the graph of every resolved dependency of the batch.  inherit is
	// the same graph restricted to inheritance dependencies.
	deps    *depm.DependencyGraph[*depm.Source]
	inherit *depm.DependencyGraph[*depm.Source]

	// cycles records the inheritance cycles reported so far by their sorted
	// participants.
	cycles map[string]struct{}
}

// NewDriver creates a new driver.
func NewDriver(rep *report.Reporter, compilers []Compiler, providers ...depm.Provider) *Driver {
	return &Driver{
		rep:       rep,
		compilers: compilers,
		providers: providers,
	}
}

// Session returns the session of the last compilation.
func (d *Driver) Session() *depm.Session {
	return d.sess
}

// Compile compiles the entry points returned by roots and everything they
// depend on.  Compile errors are reported to the driver's reporter and never
// abort the batch: the returned error is reserved for hard failures.
func (d *Driver) Compile(roots RootFunc) (*Result, error) {
	d.rep.BeginPhase("Compiling")

	res, err := d.compile(roots)

	d.rep.EndPhase(err == nil && d.rep.ShouldProceed())
	return res, err
}

func (d *Driver) compile(roots RootFunc) (*Result, error) {
	for _, p := range d.providers {
		if b, ok := p.(depm.Batched); ok {
			b.BeginBatch()
		}
	}

	d.sess = depm.NewSession(d.rep, depm.NewSymbolTable(d.providers...), depm.NewPathResolver(d.IncludeRoots...))
	d.sess.Locales = d.Locales
	for _, p := range d.providers {
		if c, ok := p.(depm.SourceContainer); ok {
			d.sess.Container = c
			break
		}
	}

	d.jobs = make(map[string]*job)
	d.queue = nil
	d.deps = depm.NewDependencyGraph[*depm.Source]()
	d.inherit = depm.NewDependencyGraph[*depm.Source]()
	d.cycles = make(map[string]struct{})

	srcs, err := roots()
	if err != nil {
		return nil, errors.Wrap(err, "finding entry points")
	}

	for _, s := range srcs {
		d.enqueue(s)
	}

	res := &Result{}
	for {
		res.Iterations++
		glog.V(1).Infof("driver: iteration %d over %d sources", res.Iterations, len(d.queue))
		d.sess.Symbols.BeginIteration()

		progress, postprocessed, err := d.iterate()
		if err != nil {
			return nil, err
		}

		if postprocessed {
			res.PostprocessRounds++
		}

		if !progress {
			break
		}
	}

	d.failStuck()
	d.recordDependencyChecksums()

	if err := d.collect(res); err != nil {
		return nil, err
	}

	for _, j := range d.queue {
		if r, ok := j.src.Owner().(depm.Replacer); ok {
			r.Replace(j.src)
		}
	}

	glog.V(1).Infof("driver: converged after %d iterations: %d compiled, %d failed", res.Iterations, len(res.Sources), len(res.Failed))
	return res, nil
}

// iterate runs one driver iteration: every job advances as far as it can.
// Jobs added during the iteration are advanced in the same iteration.
func (d *Driver) iterate() (progress, postprocessed bool, err error) {
	for i := 0; i < len(d.queue); i++ {
		j := d.queue[i]
		calls := j.postprocessCalls

		advanced, err := d.advance(j)
		if err != nil {
			return false, false, err
		}

		progress = progress || advanced
		postprocessed = postprocessed || j.postprocessCalls > calls
	}

	if d.checkCycles() {
		progress = true
	}

	return progress, postprocessed, nil
}

// advance runs the phases of a job until it finishes, fails or has to wait.
func (d *Driver) advance(j *job) (bool, error) {
	progress := false
	for j.active() {
		before := j.phase

		ok, err := d.step(j)
		if err != nil {
			return false, err
		}

		if j.failed {
			glog.V(2).Infof("driver: %s failed in %s", j.key, before)
			return true, nil
		}

		if !ok {
			break
		}

		progress = true
		if j.phase != before {
			glog.V(2).Infof("driver: %s %s -> %s", j.key, before, j.phase)
		}
	}

	return progress, nil
}

// -----------------------------------------------------------------------------

// enqueue adds a source to the batch unless it is already part of it.
func (d *Driver) enqueue(s *depm.Source) *job {
	if j, ok := d.jobs[s.Name()]; ok {
		return j
	}

	j := &job{src: s, key: s.Name()}
	d.jobs[j.key] = j
	d.queue = append(d.queue, j)
	d.deps.Put(j.key, s)
	d.inherit.Put(j.key, s)

	switch u := s.CompilationUnit(); {
	case s.MimeType() == common.MimeBytecode:
		j.archived = true
		j.phase = phaseDone
		d.registerDone(j)
	case u != nil && u.IsDone():
		j.reused = true
		j.unchanged = true
		j.phase = phaseValidate
		d.registerDone(j)
	default:
		comp, ok := selectCompiler(d.compilers, s.MimeType())
		if !ok {
			d.reportUnsupported(j)
			return j
		}

		j.comp = comp
	}

	glog.V(2).Infof("driver: enqueued %s (%s)", j.key, j.phase)
	return j
}

// registerDone registers the definitions and type signatures of a unit which
// is done without being compiled in this batch.
func (d *Driver) registerDone(j *job) {
	u := j.unit()
	if u == nil {
		return
	}

	if !d.registerDefinitions(j) {
		return
	}

	d.registerTypes(u)
}

// registerDefinitions registers the top-level definitions of a job's unit
// with the symbol table.  A definition another source already registered is
// an error that fails the job.
func (d *Driver) registerDefinitions(j *job) bool {
	for _, q := range j.unit().Definitions() {
		if prev, ok := d.sess.Symbols.RegisterSource(q, j.src); !ok {
			d.errorf(j, report.MKDef, "`%s` is already defined by %s", q, prev.Name())
			d.fail(j)
			return false
		}
	}

	return true
}

// registerTypes makes the type signatures of a unit visible to the symbol
// table.
func (d *Driver) registerTypes(u *depm.CompilationUnit) {
	if ti := u.TypeInfo(); ti != nil {
		d.sess.Symbols.RegisterType(ti)
	}

	for _, ti := range u.ClassTable {
		d.sess.Symbols.RegisterType(ti)
	}
}

func (d *Driver) reportUnsupported(j *job) {
	d.errorf(j, report.MKUnsupported, "no compiler supports inputs of type `%s`", j.src.MimeType())
	d.fail(j)
}

// -----------------------------------------------------------------------------

// step runs the next phase of a job.  It returns false if the job has to wait
// for a later iteration.
func (d *Driver) step(j *job) (bool, error) {
	switch j.phase {
	case phaseValidate:
		return d.validate(j)
	case phasePreprocess:
		var out *depm.Source
		ok, err := d.runPhase(j, func() { out = j.comp.Preprocess(d.sess, j.src) })
		if err != nil {
			return false, err
		}

		if !ok || out == nil {
			if ok {
				d.errorf(j, report.MKIO, "`%s` could not be preprocessed", j.src.Name())
			}

			d.fail(j)
			return true, nil
		}

		j.src = out
		j.src.ConnectPathResolver(d.sess.Resolver)
		j.phase = phaseParse1
		return true, nil
	case phaseParse1:
		var u *depm.CompilationUnit
		ok, err := d.runPhase(j, func() { u = j.comp.Parse1(d.sess, j.src) })
		if err != nil {
			return false, err
		}

		if !ok {
			d.fail(j)
			return true, nil
		}

		if u == nil {
			return false, nil
		}

		if !d.registerDefinitions(j) {
			return true, nil
		}

		u.SetState(depm.StateSyntaxTree)
		j.phase = phaseParse2
		return true, d.resolveDependencies(j)
	case phaseParse2:
		return d.runUnitPhase(j, j.comp.Parse2, phaseAnalyze1)
	case phaseAnalyze1:
		if ready, err := d.waitFor(j, true, depm.DepInheritance, depm.DepNamespace); !ready || err != nil {
			return false, err
		}

		return d.runUnitPhase(j, j.comp.Analyze1, phaseAnalyze2)
	case phaseAnalyze2:
		ok, err := d.runUnitPhase(j, j.comp.Analyze2, phaseAnalyze3)
		if ok && !j.failed {
			d.registerTypes(j.unit())
		}

		return ok, err
	case phaseAnalyze3:
		if ready, err := d.waitFor(j, true, depm.DepType); !ready || err != nil {
			return false, err
		}

		return d.runUnitPhase(j, j.comp.Analyze3, phaseAnalyze4)
	case phaseAnalyze4:
		return d.runUnitPhase(j, j.comp.Analyze4, phaseGenerate)
	case phaseGenerate:
		if ready, err := d.waitFor(j, false, depm.DepExpression); !ready || err != nil {
			return false, err
		}

		ok, err := d.runUnitPhase(j, j.comp.Generate, phasePostprocess)
		if ok && !j.failed {
			j.unit().SetState(depm.StateHasBytecode)
		}

		return ok, err
	case phasePostprocess:
		return d.postprocess(j)
	}

	return false, nil
}

// runUnitPhase runs a phase operating on the job's unit and moves the job to
// next on success.  Dependencies requested by the phase are resolved right
// away.
func (d *Driver) runUnitPhase(j *job, fn func(*depm.Session, *depm.CompilationUnit), next phase) (bool, error) {
	u := j.unit()
	ok, err := d.runPhase(j, func() { fn(d.sess, u) })
	if err != nil {
		return false, err
	}

	if !ok {
		d.fail(j)
		return true, nil
	}

	j.phase = next
	return true, d.resolveDependencies(j)
}

// runPhase runs phase code with the job's logger installed as the session
// sink.  It returns false if the phase reported any error.  Local compile
// errors raised by the phase are reported as ordinary errors; internal errors
// become hard failures.
func (d *Driver) runPhase(j *job, fn func()) (ok bool, err error) {
	logger := j.src.ConnectLogger(d.rep)
	before := logger.ErrorCount()

	defer func() {
		if x := recover(); x != nil {
			ie, isICE := x.(*report.InternalError)
			if !isICE {
				panic(x)
			}

			ok, err = false, errors.Wrapf(ie, "compiling %s in %s", j.src.Name(), j.phase)
		}
	}()

	d.sess.WithSink(logger, func() {
		defer report.CatchErrors(logger)
		fn()
	})

	return logger.ErrorCount() == before, nil
}

// postprocess resolves the names the job is waiting for and calls its
// postprocess phase again.  A job whose postprocess returns the same names it
// was given made no progress.
func (d *Driver) postprocess(j *job) (bool, error) {
	u := j.unit()
	pending := depm.NewNameSet()
	if j.pending != nil {
		for _, mn := range j.pending.Names() {
			u.AddDependency(depm.DepType, mn)
		}

		if err := d.resolveDependencies(j); err != nil || j.failed {
			return true, err
		}

		pending = j.pending
	}

	var next *depm.NameSet
	ok, err := d.runPhase(j, func() { next = j.comp.Postprocess(d.sess, u, pending.Clone()) })
	if err != nil {
		return false, err
	}

	j.postprocessCalls++
	if !ok {
		d.fail(j)
		return true, nil
	}

	if next.Len() == 0 {
		j.pending = nil
		u.SetState(depm.StateDone)
		j.phase = phaseDone
		return true, nil
	}

	same := j.pending != nil && sameNames(j.pending, next)
	j.pending = next
	return !same, nil
}

// validate decides whether a reused unit can be kept: it can unless the
// signature of one of the units it depends on changed since it was compiled.
// A unit which cannot be kept is reset, keeping its type info until it is
// recomputed, and compiled again from scratch.
func (d *Driver) validate(j *job) (bool, error) {
	u := j.unit()

	changed := false
	for _, q := range u.ResolvedDependencies() {
		s, err := d.sess.Symbols.FindSourceByQualifiedName(q.Namespace, q.Local)
		if err != nil {
			return false, errors.Wrapf(err, "validating %s", j.key)
		}

		if s == nil {
			glog.V(2).Infof("driver: %s lost its dependency %s", j.key, q)
			changed = true
			break
		}

		dj := d.enqueue(s)
		if err := d.addEdges(j, dj, depKindsOf(u, q)...); err != nil {
			return false, err
		}

		if dj.failed {
			changed = true
			break
		}

		if !dj.checksumFinal() {
			return false, nil
		}

		want, recorded := u.DependencyChecksums[q]
		if !recorded {
			continue
		}

		if got, ok := dj.unit().Checksum(); !ok || got != want {
			glog.V(2).Infof("driver: signature of %s changed under %s", q, j.key)
			changed = true
			break
		}
	}

	if !changed {
		j.phase = phaseDone
		return true, nil
	}

	j.src.ResetUnit(true)
	j.reused = false
	j.phase = phasePreprocess

	comp, ok := selectCompiler(d.compilers, j.src.MimeType())
	if !ok {
		d.reportUnsupported(j)
		return true, nil
	}

	j.comp = comp
	return true, nil
}

// -----------------------------------------------------------------------------

// resolveDependencies tries to resolve every unresolved dependency of a job's
// unit.  Resolved dependencies are added to the batch.  A name which fails
// resolution fails the job.
func (d *Driver) resolveDependencies(j *job) error {
	u := j.unit()
	if u == nil || j.failed {
		return nil
	}

	for _, kind := range depm.DepKinds {
		for _, mn := range u.Dependencies(kind).Unresolved() {
			q, s, status, err := d.sess.Symbols.ResolveMultiName(mn)
			if err != nil {
				return errors.Wrapf(err, "resolving %s for %s", mn, j.key)
			}

			switch status {
			case depm.Unresolved:
				continue
			case depm.Failed:
				if d.sess.Symbols.MarkReported(mn) {
					d.errorf(j, report.MKUnresolved, "could not resolve `%s`", mn.Local)
				}

				d.fail(j)
				return nil
			case depm.Ambiguous:
				if d.sess.Symbols.MarkReported(mn) {
					d.errorf(j, report.MKAmbiguous, "`%s` is ambiguous: it could refer to %s", mn.Local, qnameList(d.sess.Symbols.AmbiguousCandidates(mn)))
				}

				d.fail(j)
			}

			u.ResolveDependency(kind, mn, q)
			if s == nil {
				continue
			}

			if err := d.addEdges(j, d.enqueue(s), kind); err != nil {
				return err
			}

			if j.failed {
				return nil
			}
		}
	}

	return nil
}

// addEdges records that a job depends on another.
func (d *Driver) addEdges(user, used *job, kinds ...depm.DepKind) error {
	if user == used {
		return nil
	}

	if err := d.deps.AddDependency(user.key, used.key); err != nil {
		return err
	}

	for _, kind := range kinds {
		if kind == depm.DepInheritance {
			return d.inherit.AddDependency(user.key, used.key)
		}
	}

	return nil
}

// waitFor returns whether every dependency of the given kinds is resolved.
// If needTypes is set, the resolved definitions must also have known type
// signatures.  A dependency on a failed job fails the waiting job.
func (d *Driver) waitFor(j *job, needTypes bool, kinds ...depm.DepKind) (bool, error) {
	if err := d.resolveDependencies(j); err != nil || j.failed {
		return false, err
	}

	u := j.unit()
	for _, kind := range kinds {
		set := u.Dependencies(kind)
		if len(set.Unresolved()) > 0 {
			return false, nil
		}

		if !needTypes && kind != depm.DepInheritance {
			continue
		}

		for _, q := range set.QNames() {
			if dj := d.jobOf(q); dj != nil && dj != j && dj.failed {
				d.errorf(j, report.MKUnresolved, "`%s` failed to compile", q)
				d.fail(j)
				return false, nil
			}

			if kind == depm.DepNamespace {
				continue
			}

			if _, ok := d.sess.Symbols.TypeInfo(q); !ok {
				return false, nil
			}
		}
	}

	return true, nil
}

// jobOf returns the job of the source registered for a qualified name.
func (d *Driver) jobOf(q depm.QName) *job {
	s, ok := d.sess.Symbols.SourceOf(q)
	if !ok || s == nil {
		return nil
	}

	return d.jobs[s.Name()]
}

// -----------------------------------------------------------------------------

// checkCycles reports every new inheritance cycle among the jobs of the batch
// and fails its participants.  It returns whether any job failed.
func (d *Driver) checkCycles() bool {
	failed := false
	for _, cycle := range d.inherit.FindCycles() {
		keys := append([]string(nil), cycle...)
		sort.Strings(keys)

		id := strings.Join(keys, "\x00")
		if _, ok := d.cycles[id]; ok {
			continue
		}

		d.cycles[id] = struct{}{}

		names := make([]string, len(cycle))
		for i, key := range cycle {
			names[i] = "`" + d.jobs[key].src.QName().String() + "`"
		}

		d.errorf(d.jobs[cycle[0]], report.MKCycle, "inheritance cycle between %s", strings.Join(names, ", "))
		for _, key := range cycle {
			if j := d.jobs[key]; !j.failed {
				d.fail(j)
				failed = true
			}
		}
	}

	return failed
}

// failStuck fails every job which could not finish once the batch converged,
// reporting the names it was still waiting for.
func (d *Driver) failStuck() {
	for _, j := range d.queue {
		if !j.active() {
			continue
		}

		reported := false
		for _, mn := range d.waitingOn(j) {
			if d.sess.Symbols.MarkReported(mn) {
				d.errorf(j, report.MKUnresolved, "could not resolve `%s`", mn.Local)
				reported = true
			}
		}

		if !reported {
			if j.phase == phaseParse1 {
				d.errorf(j, report.MKUnresolved, "`%s` never became ready to parse", j.src.Name())
			} else {
				d.errorf(j, report.MKUnresolved, "`%s` could not be compiled past %s: its dependencies never became available", j.src.Name(), j.phase)
			}
		}

		glog.V(2).Infof("driver: %s stuck in %s", j.key, j.phase)
		d.fail(j)
	}
}

// waitingOn returns the names a job is waiting for which did not resolve.
func (d *Driver) waitingOn(j *job) []depm.MultiName {
	var names []depm.MultiName
	if u := j.unit(); u != nil {
		for _, kind := range depm.DepKinds {
			names = append(names, u.Dependencies(kind).Unresolved()...)
		}
	}

	if j.pending != nil {
		for _, mn := range j.pending.Names() {
			if u := j.unit(); u == nil || !u.Dependencies(depm.DepType).Contains(mn) {
				names = append(names, mn)
			} else if _, ok := u.Dependencies(depm.DepType).Resolved(mn); !ok {
				names = append(names, mn)
			}
		}
	}

	return names
}

// recordDependencyChecksums records the signature checksum of every
// dependency of every finished unit for the next compilation to compare
// against.
func (d *Driver) recordDependencyChecksums() {
	for _, j := range d.queue {
		if j.failed || j.archived || j.phase != phaseDone {
			continue
		}

		u := j.unit()
		for _, q := range u.ResolvedDependencies() {
			dj := d.jobOf(q)
			if dj == nil || dj.failed || dj.unit() == nil {
				continue
			}

			if sum, ok := dj.unit().Checksum(); ok {
				u.DependencyChecksums[q] = sum
			}
		}
	}
}

// collect fills in the sources of the result.  The output is ordered so that
// every source comes after the sources it inherits from.
func (d *Driver) collect(res *Result) error {
	for _, j := range d.queue {
		if j.failed {
			res.Failed = append(res.Failed, j.src)
			if err := d.inherit.RemoveVertex(j.key); err != nil {
				return err
			}
		} else if j.reused {
			res.Reused = append(res.Reused, j.src)
		}
	}

	order, err := d.inherit.TopologicalOrder()
	if err != nil {
		return err
	}

	for _, key := range order {
		j := d.jobs[key]
		if j.failed || j.phase != phaseDone {
			continue
		}

		if j.src.IsInternal() {
			res.Internal = append(res.Internal, j.src)
		} else {
			res.Sources = append(res.Sources, j.src)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// fail marks a job as failed.
func (d *Driver) fail(j *job) {
	j.failed = true
}

// errorf reports a compile error against a job's source.
func (d *Driver) errorf(j *job, kind int, msg string, args ...interface{}) {
	report.Errorf(j.src.ConnectLogger(d.rep), kind, nil, msg, args...)
}

// depKindsOf returns the kinds of the dependencies of a unit resolved to q.
func depKindsOf(u *depm.CompilationUnit, q depm.QName) []depm.DepKind {
	var kinds []depm.DepKind
	for _, kind := range depm.DepKinds {
		for _, rq := range u.Dependencies(kind).QNames() {
			if rq == q {
				kinds = append(kinds, kind)
				break
			}
		}
	}

	return kinds
}

// sameNames returns whether two name sets hold the same names.
func sameNames(a, b *depm.NameSet) bool {
	if a.Len() != b.Len() {
		return false
	}

	for _, mn := range a.Names() {
		if !b.Contains(mn) {
			return false
		}
	}

	return true
}

func qnameList(qnames []depm.QName) string {
	strs := make([]string, len(qnames))
	for i, q := range qnames {
		strs[i] = "`" + q.String() + "`"
	}

	return strings.Join(strs, " and ")
}
