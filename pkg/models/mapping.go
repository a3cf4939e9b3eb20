package models

// MappingConfig is the declarative JSON describing how to extract
// canonical rows from any JSON API (external interface §6.2).
type MappingConfig struct {
	Root       string                  `json:"root"`
	Params     []MappingParam          `json:"params,omitempty"`
	Columns    map[string]ColumnSpec   `json:"columns"`
	SortBy     []string                `json:"sortBy,omitempty"`
	Pagination *PaginationConfig       `json:"pagination,omitempty"`
}

// MappingParam maps a canonical field to a query-param name and date
// format.
type MappingParam struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	DateFormat DateFormat `json:"dateFormat"`
}

// DateFormat is a closed vocabulary; extending it is a breaking schema
// change.
type DateFormat string

const (
	DateFormatISO    DateFormat = "iso"
	DateFormatUnixS  DateFormat = "unix_s"
	DateFormatUnixMs DateFormat = "unix_ms"
)

// Transform is a closed vocabulary of column value transforms.
type Transform string

const (
	TransformUpper            Transform = "upper"
	TransformLower            Transform = "lower"
	TransformCents            Transform = "cents"
	TransformDollarsToCents   Transform = "dollars_to_cents"
)

// ColumnSpec maps one canonical column name either to a bare dotted
// path (when Path is set and the rest are zero) or to a full spec.
type ColumnSpec struct {
	Path      string            `json:"path,omitempty"`
	Const     string            `json:"const,omitempty"`
	Type      string            `json:"type,omitempty"`
	Transform Transform         `json:"transform,omitempty"`
	Map       map[string]string `json:"map,omitempty"` // "*" key is the fallback
	Optional  bool              `json:"optional,omitempty"`
	Format    string            `json:"format,omitempty"`
}

// PaginationStrategy is a closed vocabulary.
type PaginationStrategy string

const (
	PaginationCursor PaginationStrategy = "cursor"
	PaginationOffset PaginationStrategy = "offset"
)

// PaginationConfig describes how to page through a producer's API.
type PaginationConfig struct {
	Strategy       PaginationStrategy `json:"strategy"`
	Param          string             `json:"param"`
	PageSizeParam  string             `json:"pageSizeParam,omitempty"`
	PageSize       int                `json:"pageSize,omitempty"`
	NextCursorPath string             `json:"nextCursorPath,omitempty"`
	HasMorePath    string             `json:"hasMorePath,omitempty"`
}
