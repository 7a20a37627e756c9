package depm

/*
Inheritance Cycle Detection
---------------------------

Inheritance cycles are found with a three-color depth-first search over the
graph of inheritance edges.

All vertices start White.  When a vertex is visited it becomes Grey, each
vertex it inherits from is visited in a depth-first fashion, and the vertex
then becomes Black.

Before visiting a vertex the algorithm checks its color.  A White vertex is
visited.  A Grey vertex is on the current search path, so a cycle has been
found: the cycle is the part of the path from that vertex to the current one.
A Black vertex has been fully searched and is skipped.

The search is started from every vertex that is not yet Black, in insertion
order, so every cycle is reported exactly once no matter which of its
participants is reached first.
*/

type color int

const (
	colorWhite color = iota
	colorGrey
	colorBlack
)

// FindCycles returns every cycle of the graph as the list of its participants
// in dependency order, starting from the first participant the search reached.
func (dg *DependencyGraph[T]) FindCycles() [][]string {
	colors := make(map[string]color, len(dg.order))
	var (
		path   []string
		cycles [][]string
	)

	var searchFrom func(key string)
	searchFrom = func(key string) {
		colors[key] = colorGrey
		path = append(path, key)

		for _, used := range dg.Dependencies(key) {
			switch colors[used] {
			case colorWhite:
				searchFrom(used)
			case colorGrey:
				for i := len(path) - 1; i >= 0; i-- {
					if path[i] == used {
						cycles = append(cycles, append([]string(nil), path[i:]...))
						break
					}
				}
			}
		}

		path = path[:len(path)-1]
		colors[key] = colorBlack
	}

	for _, key := range dg.order {
		if colors[key] == colorWhite {
			searchFrom(key)
		}
	}

	return cycles
}
