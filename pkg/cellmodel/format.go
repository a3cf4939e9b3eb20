package cellmodel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DateStyle selects the rendering of a Date-formatted cell.
type DateStyle int

const (
	DateStyleShort DateStyle = iota // 1/18/2026
	DateStyleLong                   // January 18, 2026
	DateStyleISO                    // 2026-01-18
)

// NegativeStyle controls how negative numbers render.
type NegativeStyle int

const (
	NegativeMinus NegativeStyle = iota
	NegativeParens
	NegativeRedMinus
	NegativeRedParens
)

// IsRed reports whether this style renders the value in red.
func (n NegativeStyle) IsRed() bool {
	return n == NegativeRedMinus || n == NegativeRedParens
}

// UsesParens reports whether this style wraps the value in parentheses
// instead of a leading minus sign.
func (n NegativeStyle) UsesParens() bool {
	return n == NegativeParens || n == NegativeRedParens
}

// NumberFormatKind discriminates the NumberFormat union.
type NumberFormatKind int

const (
	FormatGeneral NumberFormatKind = iota
	FormatNumber
	FormatCurrency
	FormatPercent
	FormatDate
	FormatTime
	FormatDateTime
	FormatCustom
)

// NumberFormat is a closed union mirroring the spreadsheet's format-code
// model. Only the fields relevant to Kind are populated.
type NumberFormat struct {
	Kind      NumberFormatKind
	Decimals  uint8
	Thousands bool
	Negative  NegativeStyle
	Symbol    string // Currency only; empty means the default "$"
	DateStyle DateStyle
	Custom    string // FormatCustom only: raw Excel-style format code
}

// NewNumberFormat returns the UI default Number format: thousands
// separator on, negative minus.
func NewNumberFormat(decimals uint8) NumberFormat {
	return NumberFormat{Kind: FormatNumber, Decimals: clampDecimals(decimals), Thousands: true, Negative: NegativeMinus}
}

// NewCurrencyFormat returns the UI default Currency format: thousands
// separator on, negative parens, default "$" symbol.
func NewCurrencyFormat(decimals uint8) NumberFormat {
	return NumberFormat{Kind: FormatCurrency, Decimals: clampDecimals(decimals), Thousands: true, Negative: NegativeParens}
}

func clampDecimals(d uint8) uint8 {
	if d > 10 {
		return 10
	}
	return d
}

// DecimalsOK returns the configured decimal count for Number/Currency/
// Percent formats, or (0, false) for every other kind.
func (f NumberFormat) DecimalsOK() (uint8, bool) {
	switch f.Kind {
	case FormatNumber, FormatCurrency, FormatPercent:
		return f.Decimals, true
	default:
		return 0, false
	}
}

// ShouldRenderRed reports whether value, formatted with f, should be
// rendered in red — a hint for the renderer that never changes digits.
func (f NumberFormat) ShouldRenderRed(value float64) bool {
	if value >= 0 {
		return false
	}
	switch f.Kind {
	case FormatNumber, FormatCurrency:
		return f.Negative.IsRed()
	default:
		return false
	}
}

// FormatNumberValue renders n according to format, matching the
// spreadsheet engine's formatting byte-for-byte across platforms.
func FormatNumberValue(n float64, format NumberFormat) string {
	switch format.Kind {
	case FormatGeneral:
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return strconv.FormatInt(int64(n), 10)
		}
		return fmt.Sprintf("%.2f", n)

	case FormatNumber:
		formatted := formatGrouped(math.Abs(n), format.Decimals, format.Thousands)
		if n < 0 {
			if format.Negative.UsesParens() {
				return "(" + formatted + ")"
			}
			return "-" + formatted
		}
		return formatted

	case FormatCurrency:
		sym := format.Symbol
		if sym == "" {
			sym = "$"
		}
		formatted := formatGrouped(math.Abs(n), format.Decimals, format.Thousands)
		prefixed := sym + formatted
		if n < 0 {
			if format.Negative.UsesParens() {
				return "(" + prefixed + ")"
			}
			return "-" + prefixed
		}
		return prefixed

	case FormatPercent:
		return fmt.Sprintf("%.*f%%", int(format.Decimals), n*100)

	case FormatDate:
		return RenderDate(n, format.DateStyle)

	case FormatTime:
		return RenderTime(n)

	case FormatDateTime:
		return RenderDate(n, DateStyleShort) + " " + RenderTime(n)

	case FormatCustom:
		return formatWithCustomCode(n, format.Custom)

	default:
		return fmt.Sprintf("%.2f", n)
	}
}

// RenderDate renders a serial date according to style.
func RenderDate(serial float64, style DateStyle) string {
	year, month, day := SerialToDate(serial)
	switch style {
	case DateStyleShort:
		return fmt.Sprintf("%d/%d/%d", month, day, year)
	case DateStyleLong:
		return fmt.Sprintf("%s %d, %d", monthName(month), day, year)
	case DateStyleISO:
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	default:
		return fmt.Sprintf("%d/%d/%d", month, day, year)
	}
}

func monthName(m uint32) string {
	names := [...]string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	if m < 1 || m > 12 {
		return "Unknown"
	}
	return names[m-1]
}

// RenderTime renders the fractional-day portion of a serial as HH:MM:SS.
func RenderTime(serial float64) string {
	fraction := math.Abs(serial - math.Trunc(serial))
	totalSeconds := uint32(math.Round(fraction * 86400))

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// formatGrouped formats an absolute value with optional thousands
// grouping, working from the numeric value directly rather than
// parsing a pre-formatted string. Decimals are clamped to 0..10 as a
// safety net against overflow.
func formatGrouped(abs float64, decimals uint8, thousands bool) string {
	d := int(clampDecimals(decimals))
	scale := int64(1)
	for i := 0; i < d; i++ {
		scale *= 10
	}
	scaled := math.Round(abs * float64(scale))
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return strconv.FormatFloat(abs, 'f', -1, 64)
	}
	scaledI := int64(scaled)
	intPart := scaledI / scale
	fracPart := scaledI % scale
	if fracPart < 0 {
		fracPart = -fracPart
	}

	var intStr string
	if thousands {
		intStr = groupThousands(intPart)
	} else {
		intStr = strconv.FormatInt(intPart, 10)
	}

	if d == 0 {
		return intStr
	}
	return fmt.Sprintf("%s.%0*d", intStr, d, fracPart)
}

func groupThousands(v int64) string {
	raw := strconv.FormatInt(v, 10)
	if len(raw) <= 3 {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw) + len(raw)/3)
	offset := len(raw) % 3
	if offset == 0 {
		offset = 3
	}
	b.WriteString(raw[:offset])
	for i := offset; i < len(raw); i += 3 {
		b.WriteByte(',')
		b.WriteString(raw[i : i+3])
	}
	return b.String()
}
