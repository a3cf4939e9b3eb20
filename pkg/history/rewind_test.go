package history

import (
	"testing"
	"time"

	"github.com/rawblock/ledgerrecon/pkg/cellmodel"
	"github.com/rawblock/ledgerrecon/pkg/workbook"
)

func TestBuildWorkbookBeforeReplaysValues(t *testing.T) {
	wb := workbook.New()
	sheet := wb.AddSheet("Sheet1")

	h := New()
	now := time.Unix(1000, 0)
	h.Record(valuesAction(sheet, 0, 0, "", "10"), now, SourceHuman, nil)
	h.Record(valuesAction(sheet, 0, 0, "10", "20"), now.Add(time.Second), SourceHuman, nil)

	before, _, err := h.BuildWorkbookBefore(1, wb, 100, 1000)
	if err != nil {
		t.Fatalf("BuildWorkbookBefore(1) error: %v", err)
	}
	got := before.Sheets[sheet].Get(0, 0)
	if got.RawDisplay() != "10" {
		t.Errorf("expected cell to read 10 after replaying one action, got %q", got.RawDisplay())
	}

	after, _, err := h.BuildWorkbookBefore(2, wb, 100, 1000)
	if err != nil {
		t.Fatalf("BuildWorkbookBefore(2) error: %v", err)
	}
	got2 := after.Sheets[sheet].Get(0, 0)
	if got2.RawDisplay() != "20" {
		t.Errorf("expected cell to read 20 after replaying two actions, got %q", got2.RawDisplay())
	}

	// base must be untouched by either preview.
	if wb.Sheets[sheet].Get(0, 0).Kind != cellmodel.ValueEmpty {
		t.Errorf("BuildWorkbookBefore must not mutate the base workbook")
	}
}

func TestBuildWorkbookBeforeRejectsUnsupportedAction(t *testing.T) {
	wb := workbook.New()
	sheet := wb.AddSheet("Sheet1")

	h := New()
	now := time.Unix(1000, 0)
	h.Record(valuesAction(sheet, 0, 0, "", "10"), now, SourceHuman, nil)
	h.Record(UndoAction{Kind: KindNamedRangeCreated, NamedRangeCreated: &NamedRangeCreatedAction{
		NamedRange: NamedRange{Name: "Totals", Sheet: sheet},
	}}, now.Add(time.Second), SourceHuman, nil)
	h.Record(valuesAction(sheet, 0, 1, "", "30"), now.Add(2*time.Second), SourceHuman, nil)

	if _, _, err := h.BuildWorkbookBefore(3, wb, 100, 1000); err == nil {
		t.Fatalf("expected an unsupported-action error when a named-range entry is in range")
	}

	// Replaying only up to (and not including) the unsupported entry must
	// still succeed — the gate only rejects when the unsupported action
	// falls within [0, i).
	if _, _, err := h.BuildWorkbookBefore(1, wb, 100, 1000); err != nil {
		t.Fatalf("BuildWorkbookBefore(1) should succeed before the unsupported entry: %v", err)
	}
}

func TestBuildWorkbookBeforeRejectsOverCeiling(t *testing.T) {
	wb := workbook.New()
	sheet := wb.AddSheet("Sheet1")

	h := New()
	now := time.Unix(1000, 0)
	h.Record(valuesAction(sheet, 0, 0, "", "10"), now, SourceHuman, nil)
	h.Record(valuesAction(sheet, 0, 1, "", "20"), now.Add(time.Second), SourceHuman, nil)

	if _, _, err := h.BuildWorkbookBefore(2, wb, 1, 1000); err == nil {
		t.Fatalf("expected ErrTooManyActions when i exceeds maxReplay")
	}
}

func TestTruncateAndAppendRewind(t *testing.T) {
	wb := workbook.New()
	sheet := wb.AddSheet("Sheet1")

	h := New()
	now := time.Unix(1000, 0)
	h.Record(valuesAction(sheet, 0, 0, "", "1"), now, SourceHuman, nil)
	h.Record(valuesAction(sheet, 0, 1, "", "2"), now.Add(time.Second), SourceHuman, nil)
	h.Record(valuesAction(sheet, 0, 2, "", "3"), now.Add(2*time.Second), SourceHuman, nil)
	h.MarkSaved()

	target := h.undo[0]
	h.TruncateAndAppendRewind(1, target.ID, 0, now.Add(3*time.Second), 1, 5)

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (1 kept + 1 rewind marker)", h.Len())
	}
	last := h.undo[len(h.undo)-1]
	if last.Action.Kind != KindRewind {
		t.Fatalf("last entry should be a Rewind action, got kind %d", last.Action.Kind)
	}
	if last.Action.Rewind.DiscardedCount != 2 {
		t.Errorf("DiscardedCount = %d, want 2", last.Action.Rewind.DiscardedCount)
	}
	if !h.IsDirty() {
		t.Errorf("a commit that discards past the save point must force dirty")
	}
	if h.CanRedo() {
		t.Errorf("redo stack must be cleared by a rewind commit")
	}
}

func TestCommitRewindDetectsConcurrentMutation(t *testing.T) {
	wb := workbook.New()
	sheet := wb.AddSheet("Sheet1")

	h := New()
	now := time.Unix(1000, 0)
	h.Record(valuesAction(sheet, 0, 0, "", "1"), now, SourceHuman, nil)
	h.Record(valuesAction(sheet, 0, 1, "", "2"), now.Add(time.Second), SourceHuman, nil)

	staleFingerprint := h.Fingerprint()

	// A concurrent mutation lands before the commit attempt.
	h.Record(valuesAction(sheet, 0, 2, "", "3"), now.Add(2*time.Second), SourceHuman, nil)

	err := h.CommitRewind(staleFingerprint, 1, h.undo[0].ID, 0, now.Add(3*time.Second), 1, 5)
	if err == nil {
		t.Fatalf("expected CommitRewind to detect the concurrent mutation and abort")
	}
	if h.Len() != 3 {
		t.Errorf("a rejected commit must leave history untouched, Len() = %d", h.Len())
	}
}
