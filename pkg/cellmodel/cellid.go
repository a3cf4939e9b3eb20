// Package cellmodel implements the canonical cell value, cell format,
// number-format rendering, and 1900-epoch date-serial arithmetic that
// the dependency graph and history packages index against.
package cellmodel

import "fmt"

// SheetId is an opaque, stable identifier for a sheet within a
// workbook's lifetime. Scope it to the workbook value, never to
// process-global state.
type SheetId uint32

// CellId identifies one cell: a cheap, copyable, comparable value
// usable as a map key.
type CellId struct {
	Sheet SheetId
	Row   uint32
	Col   uint32
}

// String renders a CellId for diagnostics.
func (c CellId) String() string {
	return fmt.Sprintf("sheet%d!R%dC%d", c.Sheet, c.Row, c.Col)
}

// Less gives the deterministic (sheet, row, col) ascending ordering
// used throughout the dependency graph and topological sort for
// tie-breaking.
func (c CellId) Less(other CellId) bool {
	if c.Sheet != other.Sheet {
		return c.Sheet < other.Sheet
	}
	if c.Row != other.Row {
		return c.Row < other.Row
	}
	return c.Col < other.Col
}
