package history

import (
	"testing"
	"time"

	"github.com/rawblock/ledgerrecon/pkg/cellmodel"
)

func valuesAction(sheet cellmodel.SheetId, row, col uint32, old, new string) UndoAction {
	return NewValuesAction(sheet, []CellChange{{Row: row, Col: col, OldValue: old, NewValue: new}})
}

func formatAction(sheet cellmodel.SheetId, row, col uint32, kind FormatActionKind) UndoAction {
	return NewFormatAction(sheet, []CellFormatPatch{{Row: row, Col: col}}, kind, "")
}

func TestRecordAndUndo(t *testing.T) {
	h := New()
	now := time.Unix(1000, 0)

	h.Record(valuesAction(1, 0, 0, "", "42"), now, SourceHuman, nil)
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	if !h.CanUndo() || h.CanRedo() {
		t.Fatalf("expected CanUndo true, CanRedo false")
	}

	entry, ok := h.Pop()
	if !ok || entry.Action.Kind != KindValues {
		t.Fatalf("Pop() = %+v, %v", entry, ok)
	}
	if h.CanUndo() || !h.CanRedo() {
		t.Fatalf("after Pop, expected CanUndo false, CanRedo true")
	}

	redone, ok := h.PopRedo()
	if !ok || redone.ID != entry.ID {
		t.Fatalf("PopRedo() did not return the popped entry")
	}
}

func TestRecordClearsRedoStack(t *testing.T) {
	h := New()
	now := time.Unix(1000, 0)

	h.Record(valuesAction(1, 0, 0, "", "1"), now, SourceHuman, nil)
	h.Pop()
	if !h.CanRedo() {
		t.Fatalf("expected redo available after pop")
	}

	h.Record(valuesAction(1, 0, 1, "", "2"), now, SourceHuman, nil)
	if h.CanRedo() {
		t.Fatalf("a new Record should clear the redo stack")
	}
}

func TestFormatCoalescing(t *testing.T) {
	h := New()
	base := time.Unix(1000, 0)

	h.Record(formatAction(1, 0, 0, FormatBold), base, SourceHuman, nil)
	h.Record(formatAction(1, 0, 0, FormatBold), base.Add(100*time.Millisecond), SourceHuman, nil)

	if h.Len() != 1 {
		t.Fatalf("expected coalescing to keep Len() == 1, got %d", h.Len())
	}
}

func TestFormatDoesNotCoalesceAcrossWindow(t *testing.T) {
	h := New()
	base := time.Unix(1000, 0)

	h.Record(formatAction(1, 0, 0, FormatBold), base, SourceHuman, nil)
	h.Record(formatAction(1, 0, 0, FormatBold), base.Add(2*time.Second), SourceHuman, nil)

	if h.Len() != 2 {
		t.Fatalf("expected no coalescing past the window, got Len() = %d", h.Len())
	}
}

func TestFormatDoesNotCoalesceDifferentKind(t *testing.T) {
	h := New()
	base := time.Unix(1000, 0)

	h.Record(formatAction(1, 0, 0, FormatBold), base, SourceHuman, nil)
	h.Record(formatAction(1, 0, 0, FormatItalic), base.Add(10*time.Millisecond), SourceHuman, nil)

	if h.Len() != 2 {
		t.Fatalf("different FormatActionKind must not coalesce, got Len() = %d", h.Len())
	}
}

func TestCapacityEviction(t *testing.T) {
	h := NewWithCapacity(3)
	now := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		h.Record(valuesAction(1, 0, uint32(i), "", "x"), now.Add(time.Duration(i)*time.Second), SourceHuman, nil)
	}
	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 after eviction", h.Len())
	}
	// The oldest surviving entry should be the 3rd recorded (ids 3,4,5).
	if h.undo[0].ID != 3 {
		t.Errorf("expected FIFO eviction to leave id 3 at the bottom, got %d", h.undo[0].ID)
	}
}

func TestDirtyTracking(t *testing.T) {
	h := New()
	now := time.Unix(1000, 0)

	if h.IsDirty() {
		t.Fatalf("a fresh history should not be dirty")
	}
	h.Record(valuesAction(1, 0, 0, "", "1"), now, SourceHuman, nil)
	if !h.IsDirty() {
		t.Fatalf("recording an action should mark dirty")
	}
	h.MarkSaved()
	if h.IsDirty() {
		t.Fatalf("MarkSaved should clear dirty")
	}
	h.Record(valuesAction(1, 0, 1, "", "2"), now, SourceHuman, nil)
	if !h.IsDirty() {
		t.Fatalf("a further action after save should be dirty again")
	}
	h.Pop()
	if h.IsDirty() {
		t.Fatalf("undoing back to the save point should clear dirty")
	}
}

func TestFingerprintDeterministicAndOrderSensitive(t *testing.T) {
	h1 := New()
	h2 := New()
	now := time.Unix(1000, 0)

	h1.Record(valuesAction(1, 0, 0, "", "a"), now, SourceHuman, nil)
	h1.Record(formatAction(1, 0, 1, FormatBold), now.Add(time.Second), SourceHuman, nil)

	h2.Record(formatAction(1, 0, 1, FormatBold), now, SourceHuman, nil)
	h2.Record(valuesAction(1, 0, 0, "", "a"), now.Add(time.Second), SourceHuman, nil)

	if h1.Fingerprint().Equal(h2.Fingerprint()) {
		t.Fatalf("fingerprints of differently-ordered histories must differ")
	}

	h3 := New()
	h3.Record(valuesAction(1, 0, 0, "", "a"), now, SourceHuman, nil)
	h3.Record(formatAction(1, 0, 1, FormatBold), now.Add(time.Second), SourceHuman, nil)

	if !h1.Fingerprint().Equal(h3.Fingerprint()) {
		t.Fatalf("identical action sequences must produce identical fingerprints")
	}
}
