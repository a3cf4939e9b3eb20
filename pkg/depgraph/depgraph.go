// Package depgraph tracks precedents (cells a formula depends on) and
// dependents (cells that depend on a given cell) for formula cells in a
// workbook.
//
// Edge direction: A -> B means "B depends on A" (A is a precedent of
// B). This makes "what breaks if I change X?" trivial: follow outgoing
// edges (dependents).
package depgraph

import "github.com/rawblock/ledgerrecon/pkg/cellmodel"

// DepGraph is the persistent bidirectional dependency graph for formula
// cells.
//
// Invariants:
//  1. Bidirectional consistency: if A is in preds[B] then B is in
//     succs[A], and vice versa.
//  2. No dangling entries: empty sets are removed, not stored.
//  3. No duplicate edges: set semantics.
//  4. Paired updates: every mutator updates both maps together.
//     ReplaceEdges (and ClearCell through it) handles one formula
//     cell; RemoveSheet and ApplyMapping edit or rebuild both maps
//     directly rather than going through ReplaceEdges.
type DepGraph struct {
	// preds[B] = cells B depends on (precedents).
	preds map[cellmodel.CellId]map[cellmodel.CellId]struct{}
	// succs[A] = cells that depend on A (dependents).
	succs map[cellmodel.CellId]map[cellmodel.CellId]struct{}
}

// New returns an empty dependency graph.
func New() *DepGraph {
	return &DepGraph{
		preds: make(map[cellmodel.CellId]map[cellmodel.CellId]struct{}),
		succs: make(map[cellmodel.CellId]map[cellmodel.CellId]struct{}),
	}
}

// Precedents returns the cells this formula cell depends on.
func (g *DepGraph) Precedents(cell cellmodel.CellId) []cellmodel.CellId {
	return setToSlice(g.preds[cell])
}

// Dependents returns the cells that depend on this cell.
func (g *DepGraph) Dependents(cell cellmodel.CellId) []cellmodel.CellId {
	return setToSlice(g.succs[cell])
}

// IsFormulaCell reports whether cell has tracked precedents.
func (g *DepGraph) IsFormulaCell(cell cellmodel.CellId) bool {
	_, ok := g.preds[cell]
	return ok
}

// FormulaCellCount returns the number of formula cells in the graph.
func (g *DepGraph) FormulaCellCount() int {
	return len(g.preds)
}

// ReferencedCellCount returns the number of cells referenced by at
// least one formula.
func (g *DepGraph) ReferencedCellCount() int {
	return len(g.succs)
}

// ReplaceEdges atomically replaces all precedent edges for
// formulaCell, updating both preds and succs:
//  1. Removes formulaCell from all its old precedents' successor sets.
//  2. Clears formulaCell's precedent set.
//  3. Adds formulaCell to all new precedents' successor sets.
//  4. Stores formulaCell's new precedent set.
//
// Pass an empty set to clear all edges for this cell.
func (g *DepGraph) ReplaceEdges(formulaCell cellmodel.CellId, newPreds map[cellmodel.CellId]struct{}) {
	if oldPreds, ok := g.preds[formulaCell]; ok {
		delete(g.preds, formulaCell)
		for pred := range oldPreds {
			if deps, ok := g.succs[pred]; ok {
				delete(deps, formulaCell)
				if len(deps) == 0 {
					delete(g.succs, pred)
				}
			}
		}
	}

	if len(newPreds) == 0 {
		return
	}

	for pred := range newPreds {
		if g.succs[pred] == nil {
			g.succs[pred] = make(map[cellmodel.CellId]struct{})
		}
		g.succs[pred][formulaCell] = struct{}{}
	}

	g.preds[formulaCell] = newPreds
}

// ClearCell removes all edges for a cell (formula removed or cell
// deleted). A thin wrapper around ReplaceEdges with an empty set.
func (g *DepGraph) ClearCell(cell cellmodel.CellId) {
	g.ReplaceEdges(cell, nil)
}

// RemoveSheet removes all edges involving cells from sheet, called
// when a sheet is deleted.
func (g *DepGraph) RemoveSheet(sheet cellmodel.SheetId) {
	var toClear []cellmodel.CellId
	for c := range g.preds {
		if c.Sheet == sheet {
			toClear = append(toClear, c)
		}
	}
	for _, c := range toClear {
		g.ClearCell(c)
	}

	var referencedToRemove []cellmodel.CellId
	for c := range g.succs {
		if c.Sheet == sheet {
			referencedToRemove = append(referencedToRemove, c)
		}
	}
	for _, cell := range referencedToRemove {
		dependents, ok := g.succs[cell]
		if !ok {
			continue
		}
		delete(g.succs, cell)
		for dep := range dependents {
			if preds, ok := g.preds[dep]; ok {
				delete(preds, cell)
				if len(preds) == 0 {
					delete(g.preds, dep)
				}
			}
		}
	}
}

// ApplyMapping rebuilds the graph under a coordinate remap, used for
// row/column insert/delete operations. mapFn returns the cell's new id,
// or ok=false if the cell was deleted.
func (g *DepGraph) ApplyMapping(mapFn func(cellmodel.CellId) (cellmodel.CellId, bool)) {
	newPreds := make(map[cellmodel.CellId]map[cellmodel.CellId]struct{})
	newSuccs := make(map[cellmodel.CellId]map[cellmodel.CellId]struct{})

	for formulaCell, preds := range g.preds {
		newFormulaCell, ok := mapFn(formulaCell)
		if !ok {
			continue
		}

		mappedPreds := make(map[cellmodel.CellId]struct{})
		for p := range preds {
			if np, ok := mapFn(p); ok {
				mappedPreds[np] = struct{}{}
			}
		}
		if len(mappedPreds) == 0 {
			continue
		}

		for pred := range mappedPreds {
			if newSuccs[pred] == nil {
				newSuccs[pred] = make(map[cellmodel.CellId]struct{})
			}
			newSuccs[pred][newFormulaCell] = struct{}{}
		}
		newPreds[newFormulaCell] = mappedPreds
	}

	g.preds = newPreds
	g.succs = newSuccs
}

func setToSlice(s map[cellmodel.CellId]struct{}) []cellmodel.CellId {
	if len(s) == 0 {
		return nil
	}
	out := make([]cellmodel.CellId, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	return out
}
