package report

import "sort"

// LineMap translates line numbers in generated text back to the lines of the
// user-authored text they were produced from.  It is a sorted list of
// contiguous segments: each segment says that `count` generated lines starting
// at `genStart` came from the original lines starting at `origStart`.
type LineMap struct {
	segments []lineSegment
}

type lineSegment struct {
	genStart, origStart, count int
}

// NewLineMap creates an empty line map.
func NewLineMap() *LineMap {
	return &LineMap{}
}

// Add records that count generated lines starting at genStart correspond to
// the original lines starting at origStart.
func (lm *LineMap) Add(genStart, origStart, count int) {
	if count <= 0 {
		return
	}

	seg := lineSegment{genStart: genStart, origStart: origStart, count: count}
	i := sort.Search(len(lm.segments), func(i int) bool {
		return lm.segments[i].genStart >= genStart
	})

	lm.segments = append(lm.segments, lineSegment{})
	copy(lm.segments[i+1:], lm.segments[i:])
	lm.segments[i] = seg
}

// Map returns the original line for a generated line.  The second return is
// false if the generated line does not come from user-authored text.
func (lm *LineMap) Map(genLine int) (int, bool) {
	i := sort.Search(len(lm.segments), func(i int) bool {
		return lm.segments[i].genStart > genLine
	}) - 1

	if i < 0 {
		return 0, false
	}

	seg := lm.segments[i]
	if genLine >= seg.genStart+seg.count {
		return 0, false
	}

	return seg.origStart + genLine - seg.genStart, true
}

// Len returns the number of segments in the map.
func (lm *LineMap) Len() int {
	return len(lm.segments)
}

// -----------------------------------------------------------------------------

// Remapper is a sink adapter for diagnostics raised against generated text.
// Messages whose path is the generated path (or empty) are rewritten to the
// original path, and their lines are translated through the line map.
// Messages on generated lines with no original counterpart lose their
// position rather than pointing at an unrelated line.  Messages about other
// files are passed to inner unchanged, so they still count against the outer
// source.
type Remapper struct {
	inner         Sink
	generatedPath string
	originalPath  string
	lines         *LineMap
}

// NewRemapper creates a new remapping adapter in front of inner.
func NewRemapper(inner Sink, generatedPath, originalPath string, lines *LineMap) *Remapper {
	return &Remapper{
		inner:         inner,
		generatedPath: generatedPath,
		originalPath:  originalPath,
		lines:         lines,
	}
}

// Report implements Sink.
func (r *Remapper) Report(cm *CompileMessage) {
	if cm.Path != "" && cm.Path != r.generatedPath {
		r.inner.Report(cm)
		return
	}

	mapped := *cm
	mapped.Path = r.originalPath

	if cm.Position != nil {
		start, ok := r.lines.Map(cm.Position.StartLn)
		if ok {
			end, ok := r.lines.Map(cm.Position.EndLn)
			if !ok {
				end = start
			}

			mapped.Position = &TextPosition{
				StartLn:  start,
				StartCol: cm.Position.StartCol,
				EndLn:    end,
				EndCol:   cm.Position.EndCol,
			}
		} else {
			mapped.Position = nil
		}
	}

	r.inner.Report(&mapped)
}
