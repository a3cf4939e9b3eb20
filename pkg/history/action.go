// Package history implements the append-only undo/redo stack: action
// recording with format-action coalescing, a content-addressed
// BLAKE3 fingerprint for concurrency-safe commits, and soft-rewind
// preview/commit against a cloned workbook.
package history

import (
	"time"

	"github.com/rawblock/ledgerrecon/pkg/cellmodel"
)

// UndoActionKind is a stable 1-byte tag identifying an UndoAction
// variant. These values are hashed into history fingerprints and MUST
// NOT be reassigned across versions — a reassigned tag would silently
// change the fingerprint of every history that recorded that action.
type UndoActionKind byte

const (
	KindValues UndoActionKind = iota + 1
	KindFormat
	KindNamedRangeDeleted
	KindNamedRangeCreated
	KindNamedRangeRenamed
	KindNamedRangeDescriptionChanged
	KindGroup
	KindRowsInserted
	KindRowsDeleted
	KindColsInserted
	KindColsDeleted
	KindColumnWidthSet
	KindRowHeightSet
	KindSortApplied
	KindSortCleared
	KindValidationSet
	KindValidationCleared
	KindValidationExcluded
	KindValidationClearExclusion
	KindRewind
)

// FormatActionKind distinguishes the sub-kind of a Format action for
// coalescing purposes — two consecutive format actions only coalesce
// when they share the same FormatActionKind.
type FormatActionKind int

const (
	FormatBold FormatActionKind = iota
	FormatItalic
	FormatUnderline
	FormatStrikethrough
	FormatFont
	FormatAlignment
	FormatVerticalAlignment
	FormatTextOverflow
	FormatNumberFormat
	FormatDecimalPlaces
	FormatBackgroundColor
	FormatBorder
	FormatPasteFormats
	FormatClearFormatting
)

// CellChange is a single cell's before/after value.
type CellChange struct {
	Row, Col           uint32
	OldValue, NewValue string
}

// CellFormatPatch is a single cell's before/after format.
type CellFormatPatch struct {
	Row, Col       uint32
	Before, After  cellmodel.CellFormat
}

// NamedRange is a user-defined name bound to a rectangular range.
type NamedRange struct {
	Name        string
	Sheet       cellmodel.SheetId
	StartRow    uint32
	StartCol    uint32
	EndRow      uint32
	EndCol      uint32
	Description string
}

// CellRange is a rectangular region on one sheet.
type CellRange struct {
	Sheet               cellmodel.SheetId
	StartRow, StartCol  uint32
	EndRow, EndCol       uint32
}

// ValidationRule is an opaque, replayable validation constraint; the
// rule's own semantics are outside this package's concern — only that
// it can be recorded and restored verbatim.
type ValidationRule struct {
	Kind   string
	Params map[string]string
}

// DeletedCell is a (row, col, value, format) snapshot captured before a
// row/column delete, so undo can fully reconstruct it.
type DeletedCell struct {
	Row, Col uint32
	Value    string
	Format   cellmodel.CellFormat
}

// UndoAction is a tagged union over every recordable operation. Exactly
// one payload field is populated, selected by Kind — Go has no native
// sum type, so the contract is enforced by convention and by always
// constructing actions through the New* helpers below.
type UndoAction struct {
	Kind UndoActionKind

	Values                       *ValuesAction
	Format                       *FormatAction
	NamedRangeDeleted            *NamedRangeDeletedAction
	NamedRangeCreated            *NamedRangeCreatedAction
	NamedRangeRenamed            *NamedRangeRenamedAction
	NamedRangeDescriptionChanged *NamedRangeDescriptionChangedAction
	Group                        *GroupAction
	RowsInserted                 *RowsInsertedAction
	RowsDeleted                  *RowsDeletedAction
	ColsInserted                 *ColsInsertedAction
	ColsDeleted                  *ColsDeletedAction
	ColumnWidthSet               *ColumnWidthSetAction
	RowHeightSet                 *RowHeightSetAction
	SortApplied                  *SortAppliedAction
	SortCleared                  *SortClearedAction
	ValidationSet                *ValidationSetAction
	ValidationCleared            *ValidationClearedAction
	ValidationExcluded           *ValidationExcludedAction
	ValidationClearExclusion     *ValidationClearExclusionAction
	Rewind                       *RewindAction
}

type ValuesAction struct {
	Sheet   cellmodel.SheetId
	Changes []CellChange
}

type FormatAction struct {
	Sheet       cellmodel.SheetId
	Patches     []CellFormatPatch
	Kind        FormatActionKind
	Description string
}

type NamedRangeDeletedAction struct{ NamedRange NamedRange }
type NamedRangeCreatedAction struct{ NamedRange NamedRange }
type NamedRangeRenamedAction struct{ OldName, NewName string }
type NamedRangeDescriptionChangedAction struct {
	Name                         string
	OldDescription, NewDescription *string
}

type GroupAction struct {
	Actions     []UndoAction
	Description string
}

type RowsInsertedAction struct {
	Sheet  cellmodel.SheetId
	AtRow  uint32
	Count  uint32
}

type RowsDeletedAction struct {
	Sheet             cellmodel.SheetId
	AtRow             uint32
	Count             uint32
	DeletedCells      []DeletedCell
	DeletedRowHeights map[uint32]float32
}

type ColsInsertedAction struct {
	Sheet cellmodel.SheetId
	AtCol uint32
	Count uint32
}

type ColsDeletedAction struct {
	Sheet            cellmodel.SheetId
	AtCol            uint32
	Count            uint32
	DeletedCells     []DeletedCell
	DeletedColWidths map[uint32]float32
}

type ColumnWidthSetAction struct {
	Sheet    cellmodel.SheetId
	Col      uint32
	Old, New *float32
}

type RowHeightSetAction struct {
	Sheet    cellmodel.SheetId
	Row      uint32
	Old, New *float32
}

type SortAppliedAction struct {
	Sheet             cellmodel.SheetId
	PreviousRowOrder  []int
	PreviousSortState *SortState
	NewRowOrder       []int
	NewSortState      SortState
}

type SortClearedAction struct {
	Sheet             cellmodel.SheetId
	PreviousRowOrder  []int
	PreviousSortState SortState
}

// SortState names the sorted column and direction.
type SortState struct {
	Column      uint32
	IsAscending bool
}

type ValidationSetAction struct {
	Sheet        cellmodel.SheetId
	Range        CellRange
	OldRule      *ValidationRule
	NewRule      ValidationRule
}

type ValidationClearedAction struct {
	Sheet   cellmodel.SheetId
	Range   CellRange
	OldRule ValidationRule
}

type ValidationExcludedAction struct {
	Sheet cellmodel.SheetId
	Row   uint32
	Col   uint32
}

type ValidationClearExclusionAction struct {
	Sheet cellmodel.SheetId
	Row   uint32
	Col   uint32
}

// RewindAction is an audit-only record appended by a soft-rewind
// commit: it is never itself undoable or replayable (see
// replaySupported in rewind.go).
type RewindAction struct {
	TargetID           uint64
	TargetIndex        int
	DiscardedCount     int
	OldLength          int
	NewLength          int
	Timestamp          string
	PreviewReplayCount int
	PreviewBuildMs     int64
}

// withKind returns a copy of the action tagged with UndoActionKind k,
// used by the New* constructors so callers never hand-pick the tag
// themselves.
func (a UndoAction) withKind(k UndoActionKind) UndoAction {
	a.Kind = k
	return a
}

// NewValuesAction builds a Kind-tagged value-change action.
func NewValuesAction(sheet cellmodel.SheetId, changes []CellChange) UndoAction {
	return UndoAction{Values: &ValuesAction{Sheet: sheet, Changes: changes}}.withKind(KindValues)
}

// NewFormatAction builds a Kind-tagged format-change action.
func NewFormatAction(sheet cellmodel.SheetId, patches []CellFormatPatch, kind FormatActionKind, description string) UndoAction {
	return UndoAction{Format: &FormatAction{Sheet: sheet, Patches: patches, Kind: kind, Description: description}}.withKind(KindFormat)
}

// NewGroupAction builds a Kind-tagged grouped-actions entry.
func NewGroupAction(actions []UndoAction, description string) UndoAction {
	return UndoAction{Group: &GroupAction{Actions: actions, Description: description}}.withKind(KindGroup)
}

// MutationSource distinguishes human-initiated actions from ones
// generated by an AI integration — pure metadata with no bearing on
// replay or fingerprinting.
type MutationSource int

const (
	SourceHuman MutationSource = iota
	SourceAI
)

// Provenance carries optional attribution for a history entry, e.g. an
// AI model label and a human-readable script snippet that could
// reproduce the action.
type Provenance struct {
	AISource     string
	GeneratedLua string
}

// HistoryEntry wraps one recorded UndoAction with its stable id,
// wall-clock timestamp, and optional provenance.
type HistoryEntry struct {
	ID         uint64
	Action     UndoAction
	Timestamp  time.Time
	Source     MutationSource
	Provenance *Provenance
}
