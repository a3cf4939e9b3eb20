// Package workbook implements a minimal sheet/cell container: enough
// structure to host a dependency graph and replay history entries
// against, without formula evaluation, rendering, or file I/O.
package workbook

import "github.com/rawblock/ledgerrecon/pkg/cellmodel"

// Sheet is a named, sparse grid of cells. Missing (row, col) pairs are
// implicitly empty.
type Sheet struct {
	ID      cellmodel.SheetId
	Name    string
	Cells   map[cellKey]cellmodel.CellValue
	Formats map[cellKey]cellmodel.CellFormat
	// RowOrder is nil when rows are in natural order, or a permutation
	// recording the last sort applied to this sheet.
	RowOrder []int
	// ColWidths and RowHeights are keyed by column/row index; absent
	// entries use the sheet default.
	ColWidths  map[int]float32
	RowHeights map[int]float32
}

type cellKey struct {
	row, col uint32
}

// NewSheet returns an empty sheet with the given id and name.
func NewSheet(id cellmodel.SheetId, name string) *Sheet {
	return &Sheet{
		ID:      id,
		Name:    name,
		Cells:   make(map[cellKey]cellmodel.CellValue),
		Formats: make(map[cellKey]cellmodel.CellFormat),
	}
}

// Get returns the value at (row, col), or the empty value if unset.
func (s *Sheet) Get(row, col uint32) cellmodel.CellValue {
	if v, ok := s.Cells[cellKey{row, col}]; ok {
		return v
	}
	return cellmodel.EmptyValue
}

// Set stores a value at (row, col).
func (s *Sheet) Set(row, col uint32, v cellmodel.CellValue) {
	s.Cells[cellKey{row, col}] = v
}

// Clear removes any value at (row, col).
func (s *Sheet) Clear(row, col uint32) {
	delete(s.Cells, cellKey{row, col})
}

// GetFormat returns the format at (row, col), or the zero format.
func (s *Sheet) GetFormat(row, col uint32) cellmodel.CellFormat {
	return s.Formats[cellKey{row, col}]
}

// SetFormat stores a format at (row, col).
func (s *Sheet) SetFormat(row, col uint32, f cellmodel.CellFormat) {
	s.Formats[cellKey{row, col}] = f
}

// Clone returns a deep copy of the sheet, used by the history package's
// soft-rewind preview so replay never mutates the live document.
func (s *Sheet) Clone() *Sheet {
	out := &Sheet{
		ID:   s.ID,
		Name: s.Name,
		Cells:   make(map[cellKey]cellmodel.CellValue, len(s.Cells)),
		Formats: make(map[cellKey]cellmodel.CellFormat, len(s.Formats)),
	}
	for k, v := range s.Cells {
		out.Cells[k] = v
	}
	for k, v := range s.Formats {
		out.Formats[k] = v
	}
	if s.RowOrder != nil {
		out.RowOrder = append([]int(nil), s.RowOrder...)
	}
	if s.ColWidths != nil {
		out.ColWidths = make(map[int]float32, len(s.ColWidths))
		for k, v := range s.ColWidths {
			out.ColWidths[k] = v
		}
	}
	if s.RowHeights != nil {
		out.RowHeights = make(map[int]float32, len(s.RowHeights))
		for k, v := range s.RowHeights {
			out.RowHeights[k] = v
		}
	}
	return out
}

// Workbook is a named collection of sheets, keyed by stable SheetId.
type Workbook struct {
	Sheets  map[cellmodel.SheetId]*Sheet
	order   []cellmodel.SheetId // insertion order, for deterministic iteration
	nextID  cellmodel.SheetId
}

// New returns an empty workbook.
func New() *Workbook {
	return &Workbook{Sheets: make(map[cellmodel.SheetId]*Sheet)}
}

// AddSheet creates and registers a new sheet, returning its id.
func (w *Workbook) AddSheet(name string) cellmodel.SheetId {
	id := w.nextID
	w.nextID++
	w.Sheets[id] = NewSheet(id, name)
	w.order = append(w.order, id)
	return id
}

// RemoveSheet deletes a sheet from the workbook.
func (w *Workbook) RemoveSheet(id cellmodel.SheetId) {
	delete(w.Sheets, id)
	for i, sid := range w.order {
		if sid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// SheetOrder returns sheet ids in insertion order.
func (w *Workbook) SheetOrder() []cellmodel.SheetId {
	return append([]cellmodel.SheetId(nil), w.order...)
}

// Clone returns a deep copy of the entire workbook.
func (w *Workbook) Clone() *Workbook {
	out := &Workbook{
		Sheets: make(map[cellmodel.SheetId]*Sheet, len(w.Sheets)),
		order:  append([]cellmodel.SheetId(nil), w.order...),
		nextID: w.nextID,
	}
	for id, sheet := range w.Sheets {
		out.Sheets[id] = sheet.Clone()
	}
	return out
}
