package depgraph

import "github.com/rawblock/ledgerrecon/pkg/cellmodel"

// CycleReport describes why a topological operation failed: either a
// direct self-reference, or a set of cells participating in a longer
// cycle.
type CycleReport struct {
	SelfReference bool
	Cells         []cellmodel.CellId
}

func cycleReport(cells []cellmodel.CellId) CycleReport {
	return CycleReport{Cells: cells}
}

func selfReferenceReport(cell cellmodel.CellId) CycleReport {
	return CycleReport{SelfReference: true, Cells: []cellmodel.CellId{cell}}
}

// sortedCellIds returns cells in ascending (sheet, row, col) order.
func sortedCellIds(cells []cellmodel.CellId) []cellmodel.CellId {
	out := append([]cellmodel.CellId(nil), cells...)
	insertionSortCells(out)
	return out
}

func insertionSortCells(cells []cellmodel.CellId) {
	for i := 1; i < len(cells); i++ {
		for j := i; j > 0 && cells[j].Less(cells[j-1]); j-- {
			cells[j], cells[j-1] = cells[j-1], cells[j]
		}
	}
}

// dfsFrame is one stack frame of the iterative Tarjan's walk: the
// recursion is flattened into an explicit stack to avoid overflowing
// the goroutine stack on deep dependency chains.
type dfsFrame struct {
	cell       cellmodel.CellId
	neighbours []cellmodel.CellId
	nextIdx    int
}

// tarjan runs the shared iterative Tarjan's SCC algorithm over the
// formula-only subgraph (edges walk preds — "depends on" — which is
// the natural cycle direction), visiting root cells in sorted order for
// determinism. emit is called once per completed SCC, in discovery
// order, with members already sorted.
func (g *DepGraph) tarjan(emit func(scc []cellmodel.CellId, isCycle bool)) {
	formulaCells := make(map[cellmodel.CellId]struct{}, len(g.preds))
	for c := range g.preds {
		formulaCells[c] = struct{}{}
	}
	if len(formulaCells) == 0 {
		return
	}

	roots := make([]cellmodel.CellId, 0, len(formulaCells))
	for c := range formulaCells {
		roots = append(roots, c)
	}
	roots = sortedCellIds(roots)

	neighboursOf := func(cell cellmodel.CellId) []cellmodel.CellId {
		var out []cellmodel.CellId
		for p := range g.preds[cell] {
			if _, ok := formulaCells[p]; ok {
				out = append(out, p)
			}
		}
		return sortedCellIds(out)
	}

	var indexCounter uint32
	var stack []cellmodel.CellId
	onStack := make(map[cellmodel.CellId]bool)
	indices := make(map[cellmodel.CellId]uint32)
	lowlinks := make(map[cellmodel.CellId]uint32)

	for _, root := range roots {
		if _, ok := indices[root]; ok {
			continue
		}

		var dfsStack []*dfsFrame

		idx := indexCounter
		indexCounter++
		indices[root] = idx
		lowlinks[root] = idx
		stack = append(stack, root)
		onStack[root] = true

		dfsStack = append(dfsStack, &dfsFrame{cell: root, neighbours: neighboursOf(root)})

		for len(dfsStack) > 0 {
			frame := dfsStack[len(dfsStack)-1]

			if frame.nextIdx < len(frame.neighbours) {
				w := frame.neighbours[frame.nextIdx]
				frame.nextIdx++

				if _, ok := indices[w]; !ok {
					wIdx := indexCounter
					indexCounter++
					indices[w] = wIdx
					lowlinks[w] = wIdx
					stack = append(stack, w)
					onStack[w] = true

					dfsStack = append(dfsStack, &dfsFrame{cell: w, neighbours: neighboursOf(w)})
				} else if onStack[w] {
					wIdx := indices[w]
					if wIdx < lowlinks[frame.cell] {
						lowlinks[frame.cell] = wIdx
					}
				}
			} else {
				dfsStack = dfsStack[:len(dfsStack)-1]
				v := frame.cell
				vLow := lowlinks[v]
				vIdx := indices[v]

				if len(dfsStack) > 0 {
					parent := dfsStack[len(dfsStack)-1]
					if vLow < lowlinks[parent.cell] {
						lowlinks[parent.cell] = vLow
					}
				}

				if vLow == vIdx {
					var scc []cellmodel.CellId
					for {
						w := stack[len(stack)-1]
						stack = stack[:len(stack)-1]
						onStack[w] = false
						scc = append(scc, w)
						if w == v {
							break
						}
					}

					switch {
					case len(scc) > 1:
						emit(sortedCellIds(scc), true)
					case len(scc) == 1:
						cell := scc[0]
						_, selfLoop := g.preds[cell][cell]
						emit(scc, selfLoop)
					}
				}
			}
		}
	}
}

// FindCycleMembers returns every cell that is a member of a true cycle
// (SCC size > 1, or a single-cell self-loop).
func (g *DepGraph) FindCycleMembers() map[cellmodel.CellId]struct{} {
	result := make(map[cellmodel.CellId]struct{})
	g.tarjan(func(scc []cellmodel.CellId, isCycle bool) {
		if !isCycle {
			return
		}
		for _, c := range scc {
			result[c] = struct{}{}
		}
	})
	return result
}

// FindCycleSCCs returns every non-trivial SCC (cycle group) as a
// separate, internally sorted slice.
func (g *DepGraph) FindCycleSCCs() [][]cellmodel.CellId {
	var sccs [][]cellmodel.CellId
	g.tarjan(func(scc []cellmodel.CellId, isCycle bool) {
		if isCycle {
			sccs = append(sccs, scc)
		}
	})
	return sccs
}

// FormulaCells returns all formula cells tracked by the graph.
func (g *DepGraph) FormulaCells() []cellmodel.CellId {
	out := make([]cellmodel.CellId, 0, len(g.preds))
	for c := range g.preds {
		out = append(out, c)
	}
	return out
}

// TopoOrderAllFormulas computes a topological order of all formula
// cells — precedents before dependents — using Kahn's algorithm. Only
// edges between formula cells are considered; value-only cells never
// appear in the output since they need no recomputation.
//
// Ties are broken deterministically: the zero-in-degree frontier is
// kept sorted in descending (sheet, row, col) order, including after
// newly-freed cells are added, so popping from the end always yields
// the smallest ready cell — this preserves a stable order across
// otherwise-equivalent graph shapes.
func (g *DepGraph) TopoOrderAllFormulas() ([]cellmodel.CellId, *CycleReport) {
	formulaCells := make(map[cellmodel.CellId]struct{}, len(g.preds))
	for c := range g.preds {
		formulaCells[c] = struct{}{}
	}
	if len(formulaCells) == 0 {
		return nil, nil
	}

	inDegree := make(map[cellmodel.CellId]int, len(formulaCells))
	for cell := range formulaCells {
		count := 0
		for p := range g.preds[cell] {
			if _, ok := formulaCells[p]; ok {
				count++
			}
		}
		inDegree[cell] = count
	}

	var queue []cellmodel.CellId
	for cell, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, cell)
		}
	}
	// Descending sort so popping from the end yields ascending order.
	sortCellsDescending(queue)

	result := make([]cellmodel.CellId, 0, len(formulaCells))

	for len(queue) > 0 {
		cell := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		result = append(result, cell)

		var newZero []cellmodel.CellId
		for dep := range g.succs[cell] {
			if _, ok := formulaCells[dep]; !ok {
				continue
			}
			if deg, ok := inDegree[dep]; ok {
				deg--
				if deg < 0 {
					deg = 0
				}
				inDegree[dep] = deg
				if deg == 0 {
					newZero = append(newZero, dep)
				}
			}
		}

		queue = append(queue, newZero...)
		sortCellsDescending(queue)
	}

	if len(result) < len(formulaCells) {
		var cycleCells []cellmodel.CellId
		done := make(map[cellmodel.CellId]bool, len(result))
		for _, c := range result {
			done[c] = true
		}
		for c := range formulaCells {
			if !done[c] {
				cycleCells = append(cycleCells, c)
			}
		}
		report := cycleReport(cycleCells)
		return nil, &report
	}

	return result, nil
}

func sortCellsDescending(cells []cellmodel.CellId) {
	for i := 1; i < len(cells); i++ {
		for j := i; j > 0 && cells[j-1].Less(cells[j]); j-- {
			cells[j], cells[j-1] = cells[j-1], cells[j]
		}
	}
}

// WouldCreateCycle checks whether adding edges from cell to newPreds
// would introduce a cycle, without modifying the graph. It walks
// forward from cell along dependents to see whether it can reach any
// of newPreds — if so, that precedent would close a loop back to cell.
func (g *DepGraph) WouldCreateCycle(cell cellmodel.CellId, newPreds []cellmodel.CellId) *CycleReport {
	for _, p := range newPreds {
		if p == cell {
			report := selfReferenceReport(cell)
			return &report
		}
	}

	newPredsSet := make(map[cellmodel.CellId]struct{}, len(newPreds))
	for _, p := range newPreds {
		newPredsSet[p] = struct{}{}
	}

	visited := make(map[cellmodel.CellId]bool)
	stack := []cellmodel.CellId{cell}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true

		for dep := range g.succs[current] {
			if _, ok := newPredsSet[dep]; ok {
				report := cycleReport([]cellmodel.CellId{dep, cell})
				return &report
			}
			stack = append(stack, dep)
		}
	}

	return nil
}
