package cellmodel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// formatWithCustomCode renders n using a raw Excel-style format code.
// This is the guaranteed fallback custom-format renderer; it covers
// common finance patterns:
//   - "#,##0" / "#,##0.00" → thousands separator with decimals
//   - "(#,##0.00)" → negative parentheses
//   - "$#,##0" / "$#,##0.00" → dollar + thousands
//   - "0%" / "0.00%" → percent
//   - unknown codes → plain formatted number
func formatWithCustomCode(n float64, code string) string {
	clean := stripAccountingPadding(stripFormatQuotes(code))

	section := clean
	if strings.Contains(clean, ";") {
		sections := strings.Split(clean, ";")
		switch {
		case n < 0 && len(sections) >= 2:
			section = strings.TrimSpace(sections[1])
		case n == 0 && len(sections) >= 3:
			section = strings.TrimSpace(sections[2])
		default:
			section = strings.TrimSpace(sections[0])
		}
	}

	useParens := false
	inner := section
	if strings.HasPrefix(section, "(") && strings.HasSuffix(section, ")") {
		useParens = true
		inner = section[1 : len(section)-1]
	}

	prefix, pattern, suffix := splitFormatParts(inner)

	isPercent := false
	if strings.HasSuffix(pattern, "%") {
		isPercent = true
		pattern = pattern[:len(pattern)-1]
	} else if strings.HasPrefix(suffix, "%") {
		isPercent = true
		suffix = suffix[1:]
	}

	if !strings.ContainsAny(pattern, "#0") {
		return section
	}

	value := math.Abs(n)
	if isPercent {
		value = n * 100
	}

	decimals := 0
	if dot := strings.Index(pattern, "."); dot >= 0 {
		for _, c := range pattern[dot+1:] {
			if c == '0' || c == '#' {
				decimals++
			} else {
				break
			}
		}
	}

	useThousands := strings.Contains(pattern, ",")

	var formattedNum string
	if useThousands {
		formattedNum = formatWithThousands(value, decimals)
	} else {
		formattedNum = fmt.Sprintf("%.*f", decimals, value)
	}

	pct := ""
	if isPercent {
		pct = "%"
	}
	absResult := prefix + formattedNum + pct + suffix

	switch {
	case useParens && n < 0:
		return "(" + absResult + ")"
	case !useParens && n < 0 && !isPercent:
		return "-" + absResult
	default:
		return absResult
	}
}

// stripFormatQuotes removes double-quoted literal text and
// backslash-escaped characters from a format code, replacing them with
// their literal content.
func stripFormatQuotes(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	runes := []rune(code)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '"':
			i++
			for i < len(runes) && runes[i] != '"' {
				b.WriteRune(runes[i])
				i++
			}
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteRune(runes[i])
			}
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// stripAccountingPadding removes accounting padding characters: "_X"
// (space for the width of X) and "*X" (repeat X to fill), both of
// which consume the following character.
func stripAccountingPadding(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	runes := []rune(code)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '_' || c == '*' {
			i++
			continue
		}
		b.WriteRune(c)
	}
	return strings.TrimSpace(b.String())
}

// splitFormatParts splits a format section into prefix literals, the
// numeric pattern, and suffix literals. The numeric pattern is the
// portion containing '#', '0', ',', or '.'.
func splitFormatParts(section string) (prefix, pattern, suffix string) {
	isFormatChar := func(c rune) bool {
		return c == '#' || c == '0' || c == ',' || c == '.'
	}
	first := strings.IndexFunc(section, isFormatChar)
	last := strings.LastIndexFunc(section, isFormatChar)
	if first < 0 || last < 0 {
		return section, "", ""
	}
	return section[:first], section[first : last+1], section[last+1:]
}

// formatWithThousands formats a number with thousands separators using
// string truncation on the fractional part (matches the legacy
// formatter's rounding behavior for custom format codes).
func formatWithThousands(n float64, decimals int) string {
	abs := math.Abs(n)
	integerPart := uint64(math.Trunc(abs))
	intStr := strconv.FormatUint(integerPart, 10)

	var withCommas strings.Builder
	withCommas.Grow(len(intStr) + len(intStr)/3)
	for i, ch := range intStr {
		if i > 0 && (len(intStr)-i)%3 == 0 {
			withCommas.WriteByte(',')
		}
		withCommas.WriteRune(ch)
	}

	if decimals <= 0 {
		return withCommas.String()
	}

	frac := abs - math.Trunc(abs)
	fracStr := fmt.Sprintf("%.*f", decimals, frac)
	dot := strings.Index(fracStr, ".")
	if dot < 0 {
		return withCommas.String()
	}
	return withCommas.String() + "." + fracStr[dot+1:]
}
