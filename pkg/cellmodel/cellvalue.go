package cellmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// CellValueKind discriminates the CellValue union.
type CellValueKind int

const (
	ValueEmpty CellValueKind = iota
	ValueText
	ValueNumber
	ValueFormula
)

// CellValue is the contents of one cell. Formula parsing and evaluation
// are out of scope here — the dependency graph (pkg/depgraph) indexes
// formula cells by their precedent list, not by evaluating the AST, so
// CellValue only retains the formula source text.
type CellValue struct {
	Kind   CellValueKind
	Text   string
	Number float64
	Source string // ValueFormula only: the raw "=..." source text
}

// EmptyValue is the zero CellValue.
var EmptyValue = CellValue{Kind: ValueEmpty}

// ParseCellInput classifies raw user input into a CellValue the way the
// spreadsheet's entry parser does: formulas start with '=', anything
// that parses as a float64 is a Number, everything else is Text.
func ParseCellInput(input string) CellValue {
	trimmed := strings.TrimSpace(input)

	if trimmed == "" {
		return EmptyValue
	}
	if strings.HasPrefix(trimmed, "=") {
		return CellValue{Kind: ValueFormula, Source: trimmed}
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return CellValue{Kind: ValueNumber, Number: n}
	}
	return CellValue{Kind: ValueText, Text: trimmed}
}

// RawDisplay renders the cell's unformatted value.
func (v CellValue) RawDisplay() string {
	switch v.Kind {
	case ValueEmpty:
		return ""
	case ValueText:
		return v.Text
	case ValueNumber:
		if v.Number == float64(int64(v.Number)) {
			return strconv.FormatInt(int64(v.Number), 10)
		}
		return fmt.Sprintf("%.2f", v.Number)
	case ValueFormula:
		return v.Source
	default:
		return ""
	}
}

// IsCycleError reports whether this cell holds the "#CYCLE!" error text
// the dependency graph writes when a formula participates in a cycle.
func (v CellValue) IsCycleError() bool {
	return v.Kind == ValueText && v.Text == "#CYCLE!"
}

// FormattedDisplay renders the cell using its CellFormat's number
// format; non-numeric kinds fall back to RawDisplay.
func (v CellValue) FormattedDisplay(format CellFormat) string {
	if v.Kind == ValueNumber {
		return FormatNumberValue(v.Number, format.NumberFormat)
	}
	return v.RawDisplay()
}

// AsNumber returns the numeric interpretation of the cell, or 0 for
// non-numeric kinds.
func (v CellValue) AsNumber() float64 {
	if v.Kind == ValueNumber {
		return v.Number
	}
	return 0
}
