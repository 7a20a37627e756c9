package depm

import (
	"github.com/golang/glog"
)

// ResolveStatus is the outcome of resolving a multi-name.
type ResolveStatus int

// Enumeration of resolution outcomes.
const (
	// Resolved means exactly one candidate namespace defines the name.
	Resolved ResolveStatus = iota

	// Unresolved means no candidate resolved yet; the name may be retried.
	Unresolved

	// Failed means the name already failed in an earlier iteration of this
	// compile run and failed again.  It must be reported and is never retried silently.
	Failed

	// Ambiguous means several candidate namespaces define the name.  The
	// first match is still returned so compilation can continue.
	Ambiguous
)

func (rs ResolveStatus) String() string {
	switch rs {
	case Resolved:
		return "resolved"
	case Unresolved:
		return "unresolved"
	case Failed:
		return "failed"
	default:
		return "ambiguous"
	}
}

// SymbolTable is the global, per-compile registry of definitions.  It maps
// qualified names to the sources defining them, holds the arena of type
// signatures, and resolves multi-names by probing the registered providers.
type SymbolTable struct {
	// providers are probed in order: the first provider to find a source for a
	// qualified name wins.
	providers []Provider

	// sources maps every qualified name found so far to its source.
	sources map[QName]*Source

	// misses is the set of qualified names no provider could find.  It is
	// cleared whenever a source is registered so that generated sources can
	// satisfy earlier misses.
	misses map[QName]struct{}

	// Types is the arena of type signatures.
	Types *TypeTable

	// resolved caches the result of every multi-name resolution by key.
	resolved map[string]QName

	// iteration is the current driver iteration.
	iteration int

	// firstFailure is the iteration in which each multi-name first failed to
	// resolve in this compile run.
	firstFailure map[string]int

	// ambiguous is the set of multi-names found to be ambiguous.
	ambiguous map[string][]QName

	// reported is the set of multi-names already reported as erroneous.
	reported map[string]struct{}
}

// NewSymbolTable creates a new symbol table backed by the given providers.
func NewSymbolTable(providers ...Provider) *SymbolTable {
	return &SymbolTable{
		providers:        providers,
		sources:          make(map[QName]*Source),
		misses:           make(map[QName]struct{}),
		Types:            NewTypeTable(),
		resolved:         make(map[string]QName),
		firstFailure:     make(map[string]int),
		ambiguous:        make(map[string][]QName),
		reported:         make(map[string]struct{}),
	}
}

// AddProvider registers another provider with the lowest precedence.
func (st *SymbolTable) AddProvider(p Provider) {
	st.providers = append(st.providers, p)
	st.misses = make(map[QName]struct{})
}

// Providers returns the registered providers in precedence order.
func (st *SymbolTable) Providers() []Provider {
	return st.providers
}

// -----------------------------------------------------------------------------

// RegisterSource records that s defines q.  It returns the previously
// registered source if a different source already defines q, in which case
// the registration is rejected.
func (st *SymbolTable) RegisterSource(q QName, s *Source) (*Source, bool) {
	if prev, ok := st.sources[q]; ok && prev != s && prev.Name() != s.Name() {
		return prev, false
	}

	st.sources[q] = s
	delete(st.misses, q)
	return nil, true
}

// ForgetMisses drops the record of names no provider could find.  It must be
// called when a provider gains sources during a compile run.
func (st *SymbolTable) ForgetMisses() {
	st.misses = make(map[QName]struct{})
}

// UnregisterSource forgets the definitions of a source.
func (st *SymbolTable) UnregisterSource(s *Source) {
	for q, src := range st.sources {
		if src == s {
			delete(st.sources, q)
		}
	}
}

// FindSourceByQualifiedName returns the source defining ns:local, asking the
// providers in precedence order when the name has not been seen yet.  A nil
// source with a nil error means no provider defines the name.
func (st *SymbolTable) FindSourceByQualifiedName(ns, local string) (*Source, error) {
	q := QName{Namespace: ns, Local: local}
	if s, ok := st.sources[q]; ok {
		return s, nil
	}

	if _, ok := st.misses[q]; ok {
		return nil, nil
	}

	for _, p := range st.providers {
		s, err := p.FindSource(q)
		if err != nil {
			return nil, err
		}

		if s != nil {
			glog.V(2).Infof("symbols: %s found by %s at %s", q, p.Name(), s.Name())
			st.sources[q] = s
			return s, nil
		}
	}

	st.misses[q] = struct{}{}
	return nil, nil
}

// ResolveMultiName resolves a multi-name to a single qualified name by probing
// each candidate namespace in order.
func (st *SymbolTable) ResolveMultiName(mn MultiName) (QName, *Source, ResolveStatus, error) {
	key := mn.Key()
	if q, ok := st.resolved[key]; ok {
		if _, amb := st.ambiguous[key]; amb {
			return q, st.sources[q], Ambiguous, nil
		}

		return q, st.sources[q], Resolved, nil
	}

	var (
		matches []QName
		first   *Source
	)

	for _, cand := range mn.Candidates() {
		s, err := st.FindSourceByQualifiedName(cand.Namespace, cand.Local)
		if err != nil {
			return QName{}, nil, Unresolved, err
		}

		if s == nil {
			continue
		}

		if first == nil {
			first = s
		}

		dup := false
		for _, m := range matches {
			if m == cand {
				dup = true
				break
			}
		}

		if !dup {
			matches = append(matches, cand)
		}
	}

	switch len(matches) {
	case 0:
		first, ok := st.firstFailure[key]
		if !ok {
			st.firstFailure[key] = st.iteration
		} else if first < st.iteration {
			glog.V(2).Infof("symbols: %s failed again", mn)
			return QName{}, nil, Failed, nil
		}

		glog.V(2).Infof("symbols: %s unresolved", mn)
		return QName{}, nil, Unresolved, nil
	case 1:
		st.resolved[key] = matches[0]
		glog.V(2).Infof("symbols: %s resolved to %s", mn, matches[0])
		return matches[0], first, Resolved, nil
	default:
		st.resolved[key] = matches[0]
		st.ambiguous[key] = matches
		glog.V(2).Infof("symbols: %s is ambiguous between %v", mn, matches)
		return matches[0], first, Ambiguous, nil
	}
}

// AmbiguousCandidates returns the qualified names an ambiguous multi-name
// matched.
func (st *SymbolTable) AmbiguousCandidates(mn MultiName) []QName {
	return st.ambiguous[mn.Key()]
}

// HasFailed returns whether a multi-name has failed resolution at least once
// in this compile run.
func (st *SymbolTable) HasFailed(mn MultiName) bool {
	_, ok := st.firstFailure[mn.Key()]
	return ok
}

// BeginIteration starts a new driver iteration.  Failures within one
// iteration count as a single failure.
func (st *SymbolTable) BeginIteration() {
	st.iteration++
}

// MarkReported records that an error about mn was reported.  It returns false
// if one already was, so that each erroneous name is reported once.
func (st *SymbolTable) MarkReported(mn MultiName) bool {
	key := mn.Key()
	if _, ok := st.reported[key]; ok {
		return false
	}

	st.reported[key] = struct{}{}
	return true
}

// -----------------------------------------------------------------------------

// RegisterType records the type signature of a definition.
func (st *SymbolTable) RegisterType(ti *TypeInfo) TypeID {
	return st.Types.Register(ti)
}

// TypeInfo returns the signature of a qualified name if it is known.
func (st *SymbolTable) TypeInfo(q QName) (*TypeInfo, bool) {
	return st.Types.Find(q)
}

// SourceOf returns the source registered for a qualified name without asking
// any provider.
func (st *SymbolTable) SourceOf(q QName) (*Source, bool) {
	s, ok := st.sources[q]
	return s, ok
}

// ResetRun clears the per-run resolution state while keeping the registered
// sources and types.
func (st *SymbolTable) ResetRun() {
	st.resolved = make(map[string]QName)
	st.iteration = 0
	st.firstFailure = make(map[string]int)
	st.ambiguous = make(map[string][]QName)
	st.reported = make(map[string]struct{})
	st.misses = make(map[QName]struct{})
}
