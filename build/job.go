package build

import (
	"mxc/depm"
)

// phase is the next step a job has to run.
type phase int

// Enumeration of job phases in the order a fresh source goes through them.
const (
	phasePreprocess phase = iota
	phaseParse1
	phaseParse2
	phaseAnalyze1
	phaseAnalyze2
	phaseAnalyze3
	phaseAnalyze4
	phaseGenerate
	phasePostprocess

	// phaseValidate is the first phase of a source whose unit was reused from
	// an earlier compilation: its dependencies are checked for signature
	// changes before the unit is accepted or redone.
	phaseValidate

	phaseDone
)

func (p phase) String() string {
	switch p {
	case phasePreprocess:
		return "preprocess"
	case phaseParse1:
		return "parse1"
	case phaseParse2:
		return "parse2"
	case phaseAnalyze1:
		return "analyze1"
	case phaseAnalyze2:
		return "analyze2"
	case phaseAnalyze3:
		return "analyze3"
	case phaseAnalyze4:
		return "analyze4"
	case phaseGenerate:
		return "generate"
	case phasePostprocess:
		return "postprocess"
	case phaseValidate:
		return "validate"
	default:
		return "done"
	}
}

// job is the driver's record of one source in a compilation.
type job struct {
	// src is the source being compiled.  It is replaced by the result of
	// preprocessing.
	src *depm.Source

	// key identifies the job in the dependency graphs: the name of the source
	// the job was created for.
	key string

	// comp is the sub-compiler of the source.  It is nil for sources which
	// are never compiled: archived scripts and reused units.
	comp Compiler

	phase phase

	// failed indicates that a phase of the job failed.  Failed jobs never
	// advance again and are excluded from the output.
	failed bool

	// reused indicates that the job's unit was copied forward from an earlier
	// compilation rather than compiled in this one.
	reused bool

	// unchanged indicates that the job's source did not change since the
	// compilation its unit was reused from.  It stays set if the reused unit
	// is redone.
	unchanged bool

	// archived indicates that the job's unit was materialized from a library
	// archive.
	archived bool

	// pending is the set of names the last postprocess call is waiting for.
	// It is nil before the first postprocess call.
	pending *depm.NameSet

	// postprocessCalls counts the postprocess calls made for the job.
	postprocessCalls int
}

// unit returns the live unit of the job's source.
func (j *job) unit() *depm.CompilationUnit {
	return j.src.CompilationUnit()
}

// active returns whether the job can still advance.
func (j *job) active() bool {
	return !j.failed && j.phase != phaseDone
}

// checksumFinal returns whether the signature checksum of the job's unit can
// no longer change in this compilation.  The signature of a unit only depends
// on its own source, so the stored checksum of an unchanged source is final
// even if its unit is redone.
func (j *job) checksumFinal() bool {
	return j.unchanged || j.archived || j.phase == phaseDone || (j.phase > phaseAnalyze2 && j.phase != phaseValidate)
}
