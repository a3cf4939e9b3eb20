package workbook

import (
	"testing"

	"github.com/rawblock/ledgerrecon/pkg/cellmodel"
)

func TestAddSheetAndSetGet(t *testing.T) {
	wb := New()
	id := wb.AddSheet("Ledger")
	sheet := wb.Sheets[id]

	sheet.Set(0, 0, cellmodel.ParseCellInput("100"))
	got := sheet.Get(0, 0)
	if got.Kind != cellmodel.ValueNumber || got.Number != 100 {
		t.Fatalf("unexpected cell value: %+v", got)
	}

	if empty := sheet.Get(5, 5); empty.Kind != cellmodel.ValueEmpty {
		t.Fatalf("expected unset cell to be empty, got %+v", empty)
	}
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	wb := New()
	id := wb.AddSheet("Ledger")
	wb.Sheets[id].Set(1, 1, cellmodel.ParseCellInput("hello"))

	clone := wb.Clone()
	clone.Sheets[id].Set(1, 1, cellmodel.ParseCellInput("changed"))

	if got := wb.Sheets[id].Get(1, 1); got.Text != "hello" {
		t.Fatalf("mutating the clone affected the original: %+v", got)
	}
	if got := clone.Sheets[id].Get(1, 1); got.Text != "changed" {
		t.Fatalf("clone did not retain its own mutation: %+v", got)
	}
}

func TestRemoveSheet(t *testing.T) {
	wb := New()
	a := wb.AddSheet("A")
	b := wb.AddSheet("B")

	wb.RemoveSheet(a)

	if _, ok := wb.Sheets[a]; ok {
		t.Fatalf("expected sheet A to be removed")
	}
	order := wb.SheetOrder()
	if len(order) != 1 || order[0] != b {
		t.Fatalf("unexpected sheet order after removal: %v", order)
	}
}
