package cellmodel

// Alignment is horizontal text alignment.
type Alignment int

const (
	AlignGeneral Alignment = iota // auto: numbers right, text left
	AlignLeft
	AlignCenter
	AlignRight
	AlignCenterAcrossSelection
)

// VerticalAlignment is vertical text alignment.
type VerticalAlignment int

const (
	VAlignTop VerticalAlignment = iota
	VAlignMiddle
	VAlignBottom
)

// TextOverflow controls rendering when content exceeds the cell width.
type TextOverflow int

const (
	OverflowClip TextOverflow = iota
	OverflowWrap
	OverflowOverflow
)

// BorderStyle is line thickness, ordered None < Thin < Medium < Thick.
type BorderStyle int

const (
	BorderNone BorderStyle = iota
	BorderThin
	BorderMedium
	BorderThick
)

// Weight gives a numeric precedence for border-strength comparisons.
func (b BorderStyle) Weight() uint8 {
	return uint8(b)
}

// RGBA is a stored color; nil/zero-value Set=false means "unset".
type RGBA struct {
	R, G, B, A uint8
	Set        bool
}

// CellBorder is the border specification for a single cell edge.
type CellBorder struct {
	Style BorderStyle
	Color RGBA // Set=false means "default black"
}

// IsSet reports whether this border should be rendered.
func (b CellBorder) IsSet() bool {
	return b.Style != BorderNone
}

// ThinBorder returns a thin black border.
func ThinBorder() CellBorder {
	return CellBorder{Style: BorderThin}
}

// EffectiveBorder returns the winning border for a shared edge: a takes
// precedence if set, otherwise b.
func EffectiveBorder(a, b CellBorder) CellBorder {
	if a.Style != BorderNone {
		return a
	}
	return b
}

// MaxBorder returns the border with the strongest style, used for
// merged-cell edge resolution.
func MaxBorder(a, b CellBorder) CellBorder {
	if a.Style.Weight() >= b.Style.Weight() {
		return a
	}
	return b
}

// RenderBorder normalizes any set border to Thin/black for rendering.
func RenderBorder(b CellBorder) CellBorder {
	if b.Style != BorderNone {
		return CellBorder{Style: BorderThin}
	}
	return b
}

// CellFormat is the full set of per-cell formatting options.
type CellFormat struct {
	Bold              bool
	Italic            bool
	Underline         bool
	Strikethrough     bool
	Alignment         Alignment
	VerticalAlignment VerticalAlignment
	TextOverflow      TextOverflow
	NumberFormat      NumberFormat
	FontFamily        *string
	FontSize          *float32
	FontColor         *RGBA
	BackgroundColor   *RGBA
	BorderTop         CellBorder
	BorderRight       CellBorder
	BorderBottom      CellBorder
	BorderLeft        CellBorder
}

// HasAnyBorder reports whether any edge has a visible border.
func (f CellFormat) HasAnyBorder() bool {
	return f.BorderTop.IsSet() || f.BorderRight.IsSet() || f.BorderBottom.IsSet() || f.BorderLeft.IsSet()
}

// CellFormatOverride is a partial format delta: nil fields mean "not
// overridden, use base style."
type CellFormatOverride struct {
	Bold              *bool
	Italic            *bool
	Underline         *bool
	Strikethrough     *bool
	Alignment         *Alignment
	VerticalAlignment *VerticalAlignment
	TextOverflow      *TextOverflow
	NumberFormat      *NumberFormat
	FontFamily        **string
	FontSize          **float32
	FontColor         **RGBA
	BackgroundColor   **RGBA
	BorderTop         *CellBorder
	BorderRight       *CellBorder
	BorderBottom      *CellBorder
	BorderLeft        *CellBorder
}

// MergeOverride merges ovr on top of f: fields present in ovr replace
// the base; absent fields keep the base value.
func (f CellFormat) MergeOverride(ovr CellFormatOverride) CellFormat {
	out := f
	if ovr.Bold != nil {
		out.Bold = *ovr.Bold
	}
	if ovr.Italic != nil {
		out.Italic = *ovr.Italic
	}
	if ovr.Underline != nil {
		out.Underline = *ovr.Underline
	}
	if ovr.Strikethrough != nil {
		out.Strikethrough = *ovr.Strikethrough
	}
	if ovr.Alignment != nil {
		out.Alignment = *ovr.Alignment
	}
	if ovr.VerticalAlignment != nil {
		out.VerticalAlignment = *ovr.VerticalAlignment
	}
	if ovr.TextOverflow != nil {
		out.TextOverflow = *ovr.TextOverflow
	}
	if ovr.NumberFormat != nil {
		out.NumberFormat = *ovr.NumberFormat
	}
	if ovr.FontFamily != nil {
		out.FontFamily = *ovr.FontFamily
	}
	if ovr.FontSize != nil {
		out.FontSize = *ovr.FontSize
	}
	if ovr.FontColor != nil {
		out.FontColor = *ovr.FontColor
	}
	if ovr.BackgroundColor != nil {
		out.BackgroundColor = *ovr.BackgroundColor
	}
	if ovr.BorderTop != nil {
		out.BorderTop = *ovr.BorderTop
	}
	if ovr.BorderRight != nil {
		out.BorderRight = *ovr.BorderRight
	}
	if ovr.BorderBottom != nil {
		out.BorderBottom = *ovr.BorderBottom
	}
	if ovr.BorderLeft != nil {
		out.BorderLeft = *ovr.BorderLeft
	}
	return out
}

// OverrideFromFormat converts a full CellFormat into an override where
// every field is explicitly set.
func OverrideFromFormat(f CellFormat) CellFormatOverride {
	return CellFormatOverride{
		Bold:              &f.Bold,
		Italic:            &f.Italic,
		Underline:         &f.Underline,
		Strikethrough:     &f.Strikethrough,
		Alignment:         &f.Alignment,
		VerticalAlignment: &f.VerticalAlignment,
		TextOverflow:      &f.TextOverflow,
		NumberFormat:      &f.NumberFormat,
		FontFamily:        &f.FontFamily,
		FontSize:          &f.FontSize,
		FontColor:         &f.FontColor,
		BackgroundColor:   &f.BackgroundColor,
		BorderTop:         &f.BorderTop,
		BorderRight:       &f.BorderRight,
		BorderBottom:      &f.BorderBottom,
		BorderLeft:        &f.BorderLeft,
	}
}
