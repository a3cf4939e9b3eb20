package history

import (
	"fmt"
	"time"

	"github.com/rawblock/ledgerrecon/pkg/cellmodel"
	"github.com/rawblock/ledgerrecon/pkg/workbook"
)

// ErrInvariantViolation reports that replaying the undo stack during a
// soft-rewind preview met an action naming a sheet the cloned workbook
// does not have — the whole preview is discarded, never partially
// applied. No other structural consistency check is made during replay.
type ErrInvariantViolation struct {
	Reason string
}

func (e *ErrInvariantViolation) Error() string {
	return fmt.Sprintf("history: invariant violation during rewind preview: %s", e.Reason)
}

// ErrUnsupportedAction reports that the replay gate rejected the
// request before touching anything, because some entry before the
// target index carries an action kind that cannot be replayed.
type ErrUnsupportedAction struct {
	Index int
	Kind  UndoActionKind
}

func (e *ErrUnsupportedAction) Error() string {
	return fmt.Sprintf("history: entry %d has unsupported kind %d for rewind replay", e.Index, e.Kind)
}

// ErrRewindTimeout reports that replay exceeded its time budget.
type ErrRewindTimeout struct {
	AppliedCount int
}

func (e *ErrRewindTimeout) Error() string {
	return fmt.Sprintf("history: rewind preview timed out after applying %d actions", e.AppliedCount)
}

// ErrTooManyActions reports that the requested replay count exceeds the
// caller-supplied ceiling. An index beyond the undo stack is reported
// with a plain error instead.
type ErrTooManyActions struct {
	Requested, Limit int
}

func (e *ErrTooManyActions) Error() string {
	return fmt.Sprintf("history: requested replay of %d actions exceeds limit %d", e.Requested, e.Limit)
}

// replaySupported reports whether an action kind (recursively, for
// Group) can be replayed by BuildWorkbookBefore. Actions over concepts
// the minimal workbook container does not model — named ranges,
// validation rules — are not replayable; Rewind itself is audit-only
// and never replayed.
func replaySupported(a UndoAction) bool {
	switch a.Kind {
	case KindValues, KindFormat,
		KindRowsInserted, KindRowsDeleted,
		KindColsInserted, KindColsDeleted,
		KindColumnWidthSet, KindRowHeightSet,
		KindSortApplied, KindSortCleared:
		return true
	case KindGroup:
		if a.Group == nil {
			return false
		}
		for _, sub := range a.Group.Actions {
			if !replaySupported(sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// PreviewViewState tracks per-sheet row-order/sort overlays accumulated
// during a soft-rewind preview replay, kept separate from the cloned
// workbook's own fields so structural operations can invalidate them
// independently of the underlying cell data.
type PreviewViewState struct {
	RowOrder  map[cellmodel.SheetId][]int
	SortState map[cellmodel.SheetId]*SortState
}

func newPreviewViewState() *PreviewViewState {
	return &PreviewViewState{
		RowOrder:  make(map[cellmodel.SheetId][]int),
		SortState: make(map[cellmodel.SheetId]*SortState),
	}
}

func (v *PreviewViewState) invalidate(sheet cellmodel.SheetId) {
	delete(v.RowOrder, sheet)
	delete(v.SortState, sheet)
}

// BuildWorkbookBefore clones base and replays undo[0:i] (in order,
// applying each entry's "after"/"new" values — i.e. reconstructing the
// state the document was in once those i actions had already happened)
// against the clone, honoring a hard ceiling on how many actions may be
// replayed and a wall-clock timeout checked every 100 actions. It never
// mutates base or h. Replay is rejected wholesale — before any action is
// applied — if any entry in undo[0:i] carries an unsupported kind.
// Row and column insertions and deletions do not move cell data in the
// clone; replaying one only drops that sheet's row-order and sort
// overlay from the returned view state.
func (h *History) BuildWorkbookBefore(i int, base *workbook.Workbook, maxReplay int, timeoutMs int64) (*workbook.Workbook, *PreviewViewState, error) {
	if i > len(h.undo) {
		return nil, nil, fmt.Errorf("history: rewind index %d exceeds undo length %d", i, len(h.undo))
	}
	if i > maxReplay {
		return nil, nil, &ErrTooManyActions{Requested: i, Limit: maxReplay}
	}

	for idx := 0; idx < i; idx++ {
		if !replaySupported(h.undo[idx].Action) {
			return nil, nil, &ErrUnsupportedAction{Index: idx, Kind: h.undo[idx].Action.Kind}
		}
	}

	clone := base.Clone()
	view := newPreviewViewState()

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	for idx := 0; idx < i; idx++ {
		if idx > 0 && idx%100 == 0 && time.Now().After(deadline) {
			return nil, nil, &ErrRewindTimeout{AppliedCount: idx}
		}
		if err := applyForReplay(clone, view, h.undo[idx].Action); err != nil {
			return nil, nil, err
		}
	}

	return clone, view, nil
}

func sheetOrError(wb *workbook.Workbook, id cellmodel.SheetId) (*workbook.Sheet, error) {
	s, ok := wb.Sheets[id]
	if !ok {
		return nil, &ErrInvariantViolation{Reason: fmt.Sprintf("sheet %d not found during replay", id)}
	}
	return s, nil
}

// applyForReplay mutates clone/view to reflect action having already
// happened, using each payload's "after"/"new" side.
func applyForReplay(clone *workbook.Workbook, view *PreviewViewState, action UndoAction) error {
	switch action.Kind {
	case KindValues:
		s, err := sheetOrError(clone, action.Values.Sheet)
		if err != nil {
			return err
		}
		for _, c := range action.Values.Changes {
			s.Set(c.Row, c.Col, cellmodel.ParseCellInput(c.NewValue))
		}

	case KindFormat:
		s, err := sheetOrError(clone, action.Format.Sheet)
		if err != nil {
			return err
		}
		for _, p := range action.Format.Patches {
			s.SetFormat(p.Row, p.Col, p.After)
		}

	case KindRowsInserted:
		if _, err := sheetOrError(clone, action.RowsInserted.Sheet); err != nil {
			return err
		}
		view.invalidate(action.RowsInserted.Sheet)

	case KindRowsDeleted:
		if _, err := sheetOrError(clone, action.RowsDeleted.Sheet); err != nil {
			return err
		}
		view.invalidate(action.RowsDeleted.Sheet)

	case KindColsInserted:
		if _, err := sheetOrError(clone, action.ColsInserted.Sheet); err != nil {
			return err
		}
		view.invalidate(action.ColsInserted.Sheet)

	case KindColsDeleted:
		if _, err := sheetOrError(clone, action.ColsDeleted.Sheet); err != nil {
			return err
		}
		view.invalidate(action.ColsDeleted.Sheet)

	case KindColumnWidthSet:
		s, err := sheetOrError(clone, action.ColumnWidthSet.Sheet)
		if err != nil {
			return err
		}
		if s.ColWidths == nil {
			s.ColWidths = make(map[int]float32)
		}
		if action.ColumnWidthSet.New != nil {
			s.ColWidths[int(action.ColumnWidthSet.Col)] = *action.ColumnWidthSet.New
		} else {
			delete(s.ColWidths, int(action.ColumnWidthSet.Col))
		}

	case KindRowHeightSet:
		s, err := sheetOrError(clone, action.RowHeightSet.Sheet)
		if err != nil {
			return err
		}
		if s.RowHeights == nil {
			s.RowHeights = make(map[int]float32)
		}
		if action.RowHeightSet.New != nil {
			s.RowHeights[int(action.RowHeightSet.Row)] = *action.RowHeightSet.New
		} else {
			delete(s.RowHeights, int(action.RowHeightSet.Row))
		}

	case KindSortApplied:
		if _, err := sheetOrError(clone, action.SortApplied.Sheet); err != nil {
			return err
		}
		view.RowOrder[action.SortApplied.Sheet] = append([]int(nil), action.SortApplied.NewRowOrder...)
		state := action.SortApplied.NewSortState
		view.SortState[action.SortApplied.Sheet] = &state

	case KindSortCleared:
		if _, err := sheetOrError(clone, action.SortCleared.Sheet); err != nil {
			return err
		}
		view.invalidate(action.SortCleared.Sheet)

	case KindGroup:
		for _, sub := range action.Group.Actions {
			if err := applyForReplay(clone, view, sub); err != nil {
				return err
			}
		}

	default:
		return &ErrUnsupportedAction{Kind: action.Kind}
	}
	return nil
}

// TruncateAndAppendRewind commits a soft-rewind: it discards
// undo[truncateAt:], clears the redo stack entirely (the discarded
// future has no meaning once the document itself has been rewound),
// and appends a single audit-only Rewind entry carrying the commit's
// bookkeeping. If the current save point falls inside the discarded
// range, it is forced dirty (moved out of reach) rather than silently
// treated as still-saved.
func (h *History) TruncateAndAppendRewind(truncateAt int, targetID uint64, targetIndex int, now time.Time, previewReplayCount int, previewBuildMs int64) {
	if truncateAt > len(h.undo) {
		truncateAt = len(h.undo)
	}
	discarded := len(h.undo) - truncateAt
	oldLen := len(h.undo)

	h.undo = h.undo[:truncateAt]
	h.redo = nil

	if h.savePoint > truncateAt {
		h.savePoint = -1
	}

	rewind := UndoAction{
		Kind: KindRewind,
		Rewind: &RewindAction{
			TargetID:           targetID,
			TargetIndex:        targetIndex,
			DiscardedCount:     discarded,
			OldLength:          oldLen,
			NewLength:          truncateAt + 1,
			Timestamp:          now.Format(time.RFC3339Nano),
			PreviewReplayCount: previewReplayCount,
			PreviewBuildMs:     previewBuildMs,
		},
	}

	h.undo = append(h.undo, HistoryEntry{
		ID:        h.nextID,
		Action:    rewind,
		Timestamp: now,
		Source:    SourceHuman,
	})
	h.nextID++
}

// CommitRewind performs the full concurrency-safe rewind commit
// protocol: the caller supplies a fingerprint taken before building its
// preview; CommitRewind re-checks it against the live history
// immediately before truncating, aborting with ErrFingerprintMismatch if
// anything else was recorded in between.
func (h *History) CommitRewind(expected Fingerprint, truncateAt int, targetID uint64, targetIndex int, now time.Time, previewReplayCount int, previewBuildMs int64) error {
	current := h.Fingerprint()
	if !current.Equal(expected) {
		return &ErrFingerprintMismatch{Expected: expected, Actual: current}
	}
	h.TruncateAndAppendRewind(truncateAt, targetID, targetIndex, now, previewReplayCount, previewBuildMs)
	return nil
}

// ErrFingerprintMismatch reports that history changed between a
// caller's preview build and its attempted commit.
type ErrFingerprintMismatch struct {
	Expected, Actual Fingerprint
}

func (e *ErrFingerprintMismatch) Error() string {
	return fmt.Sprintf("history: fingerprint mismatch, expected %s got %s (concurrent mutation)", e.Expected, e.Actual)
}
