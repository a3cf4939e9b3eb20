package depgraph

import (
	"testing"

	"github.com/rawblock/ledgerrecon/pkg/cellmodel"
)

func cell(sheet cellmodel.SheetId, row, col uint32) cellmodel.CellId {
	return cellmodel.CellId{Sheet: sheet, Row: row, Col: col}
}

func set(cells ...cellmodel.CellId) map[cellmodel.CellId]struct{} {
	out := make(map[cellmodel.CellId]struct{}, len(cells))
	for _, c := range cells {
		out[c] = struct{}{}
	}
	return out
}

func TestEmptyGraph(t *testing.T) {
	g := New()
	if g.FormulaCellCount() != 0 || g.ReferencedCellCount() != 0 {
		t.Fatalf("empty graph should have zero counts")
	}
	if g.IsFormulaCell(cell(1, 0, 0)) {
		t.Errorf("empty graph should have no formula cells")
	}
}

func TestSingleEdge(t *testing.T) {
	g := New()
	a1, b1 := cell(1, 0, 0), cell(1, 0, 1)

	g.ReplaceEdges(b1, set(a1))

	if !g.IsFormulaCell(b1) || g.IsFormulaCell(a1) {
		t.Fatalf("b1 should be the only formula cell")
	}
	if preds := g.Precedents(b1); len(preds) != 1 || preds[0] != a1 {
		t.Errorf("precedents(b1) = %v, want [a1]", preds)
	}
	if deps := g.Dependents(a1); len(deps) != 1 || deps[0] != b1 {
		t.Errorf("dependents(a1) = %v, want [b1]", deps)
	}
	if g.FormulaCellCount() != 1 || g.ReferencedCellCount() != 1 {
		t.Errorf("counts = %d/%d, want 1/1", g.FormulaCellCount(), g.ReferencedCellCount())
	}
}

func TestRewiring(t *testing.T) {
	g := New()
	a1, a2, b1 := cell(1, 0, 0), cell(1, 1, 0), cell(1, 0, 1)

	g.ReplaceEdges(b1, set(a1))
	g.ReplaceEdges(b1, set(a2))

	if preds := g.Precedents(b1); len(preds) != 1 || preds[0] != a2 {
		t.Errorf("precedents(b1) = %v, want [a2] after rewiring", preds)
	}
	if deps := g.Dependents(a1); len(deps) != 0 {
		t.Errorf("a1 should have no dependents after rewiring, got %v", deps)
	}
}

func TestUnwiring(t *testing.T) {
	g := New()
	a1, b1 := cell(1, 0, 0), cell(1, 0, 1)

	g.ReplaceEdges(b1, set(a1))
	g.ClearCell(b1)

	if g.IsFormulaCell(b1) {
		t.Errorf("b1 should not be a formula cell after clearing")
	}
	if g.FormulaCellCount() != 0 || g.ReferencedCellCount() != 0 {
		t.Errorf("counts should be zero after unwiring")
	}
}

func TestRemoveSheet(t *testing.T) {
	g := New()
	s1a1, s1b1 := cell(1, 0, 0), cell(1, 0, 1)
	s2a1 := cell(2, 0, 0)

	g.ReplaceEdges(s1b1, set(s1a1))
	g.ReplaceEdges(s2a1, set(s1a1))

	g.RemoveSheet(1)

	if g.IsFormulaCell(s1b1) {
		t.Errorf("sheet-1 formula cell should be gone after RemoveSheet(1)")
	}
	if g.IsFormulaCell(s2a1) {
		t.Errorf("sheet-2 formula cell referencing a removed sheet-1 precedent should also be cleared")
	}
}

func TestTopoOrderLinearChain(t *testing.T) {
	g := New()
	a1, b1, c1 := cell(1, 0, 0), cell(1, 0, 1), cell(1, 0, 2)

	g.ReplaceEdges(b1, set(a1))
	g.ReplaceEdges(c1, set(b1))

	order, report := g.TopoOrderAllFormulas()
	if report != nil {
		t.Fatalf("unexpected cycle report: %+v", report)
	}
	pos := make(map[cellmodel.CellId]int, len(order))
	for i, c := range order {
		pos[c] = i
	}
	if pos[b1] >= pos[c1] {
		t.Errorf("b1 must precede c1 in topo order, got %v", order)
	}
}

func TestTopoOrderDetectsCycle(t *testing.T) {
	g := New()
	a1, b1 := cell(1, 0, 0), cell(1, 0, 1)

	g.ReplaceEdges(a1, set(b1))
	g.ReplaceEdges(b1, set(a1))

	order, report := g.TopoOrderAllFormulas()
	if report == nil {
		t.Fatalf("expected a cycle report, got order %v", order)
	}
}

func TestWouldCreateCycleSelfReference(t *testing.T) {
	g := New()
	a1 := cell(1, 0, 0)

	report := g.WouldCreateCycle(a1, []cellmodel.CellId{a1})
	if report == nil || !report.SelfReference {
		t.Fatalf("expected a self-reference report, got %+v", report)
	}
}

func TestWouldCreateCycleIndirect(t *testing.T) {
	g := New()
	a1, b1, c1 := cell(1, 0, 0), cell(1, 0, 1), cell(1, 0, 2)

	// C1 = B1, B1 = A1. Proposing A1 = C1 would close a cycle.
	g.ReplaceEdges(b1, set(a1))
	g.ReplaceEdges(c1, set(b1))

	report := g.WouldCreateCycle(a1, []cellmodel.CellId{c1})
	if report == nil {
		t.Fatalf("expected a cycle report for A1 = C1")
	}
}

func TestFindCycleMembersSelfLoop(t *testing.T) {
	g := New()
	a1 := cell(1, 0, 0)

	g.ReplaceEdges(a1, set(a1))

	members := g.FindCycleMembers()
	if _, ok := members[a1]; !ok {
		t.Errorf("self-loop cell should be reported as a cycle member")
	}
}

func TestFindCycleSCCsGroupsMultiCellCycle(t *testing.T) {
	g := New()
	a1, b1, c1 := cell(1, 0, 0), cell(1, 0, 1), cell(1, 0, 2)

	g.ReplaceEdges(a1, set(b1))
	g.ReplaceEdges(b1, set(c1))
	g.ReplaceEdges(c1, set(a1))

	sccs := g.FindCycleSCCs()
	if len(sccs) != 1 || len(sccs[0]) != 3 {
		t.Fatalf("expected one 3-cell SCC, got %v", sccs)
	}
}
