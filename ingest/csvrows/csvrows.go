// Package csvrows reads and writes the 9-column canonical reconciliation
// CSV schema (external interface §6.1): effective_date, posted_date,
// amount_minor, currency, type, source, source_id, group_id,
// description.
package csvrows

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/rawblock/ledgerrecon/pkg/models"
	"github.com/rawblock/ledgerrecon/recoerr"
)

var header = []string{
	"effective_date", "posted_date", "amount_minor", "currency",
	"type", "source", "source_id", "group_id", "description",
}

const dateLayout = "2006-01-02"

// Record is one canonical CSV row prior to conversion into a
// models.Row — it keeps both dates and the opaque producer/type fields
// the engine itself does not need but callers may want to round-trip.
type Record struct {
	EffectiveDate time.Time
	PostedDate    *time.Time
	AmountMinor   int64
	Currency      string
	Type          string
	Source        string
	SourceID      string
	GroupID       string
	Description   string
}

// Read parses the canonical CSV schema from r, validating the header
// row matches exactly.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, recoerr.Wrap(recoerr.Parse, "cannot read canonical CSV", err)
	}
	if len(rows) == 0 {
		return nil, recoerr.New(recoerr.Parse, "canonical CSV is empty, expected a header row")
	}
	if !equalHeader(rows[0]) {
		return nil, recoerr.New(recoerr.Parse, "canonical CSV header does not match the expected 9-column schema")
	}

	out := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRecord(row)
		if err != nil {
			return nil, recoerr.Wrap(recoerr.Validation, "invalid canonical CSV row "+strconv.Itoa(i+2), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func equalHeader(row []string) bool {
	if len(row) != len(header) {
		return false
	}
	for i := range header {
		if row[i] != header[i] {
			return false
		}
	}
	return true
}

func parseRecord(row []string) (Record, error) {
	effective, err := time.Parse(dateLayout, row[0])
	if err != nil {
		return Record{}, recoerr.Wrap(recoerr.Validation, "bad effective_date", err)
	}

	var posted *time.Time
	if row[1] != "" {
		p, err := time.Parse(dateLayout, row[1])
		if err != nil {
			return Record{}, recoerr.Wrap(recoerr.Validation, "bad posted_date", err)
		}
		posted = &p
	}

	amount, err := strconv.ParseInt(row[2], 10, 64)
	if err != nil {
		return Record{}, recoerr.Wrap(recoerr.Validation, "bad amount_minor", err)
	}

	return Record{
		EffectiveDate: effective,
		PostedDate:    posted,
		AmountMinor:   amount,
		Currency:      row[3],
		Type:          row[4],
		Source:        row[5],
		SourceID:      row[6],
		GroupID:       row[7],
		Description:   row[8],
	}, nil
}

// Write sorts records by (group_id, effective_date, source_id) and
// writes the canonical CSV schema, unless sortKeys names an alternate
// key list.
func Write(w io.Writer, records []Record, sortKeys []string) error {
	sorted := append([]Record(nil), records...)
	sortRecords(sorted, sortKeys)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return recoerr.Wrap(recoerr.Io, "cannot write canonical CSV header", err)
	}
	for _, rec := range sorted {
		if err := cw.Write(recordToRow(rec)); err != nil {
			return recoerr.Wrap(recoerr.Io, "cannot write canonical CSV row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return recoerr.Wrap(recoerr.Io, "cannot flush canonical CSV", err)
	}
	return nil
}

func recordToRow(r Record) []string {
	posted := ""
	if r.PostedDate != nil {
		posted = r.PostedDate.Format(dateLayout)
	}
	return []string{
		r.EffectiveDate.Format(dateLayout),
		posted,
		strconv.FormatInt(r.AmountMinor, 10),
		r.Currency,
		r.Type,
		r.Source,
		r.SourceID,
		r.GroupID,
		r.Description,
	}
}

// defaultSortKeys is the producer-contract default: group_id,
// effective_date, source_id.
var defaultSortKeys = []string{"group_id", "effective_date", "source_id"}

func sortRecords(records []Record, keys []string) {
	if len(keys) == 0 {
		keys = defaultSortKeys
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			cmp := compareField(records[i], records[j], key)
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
}

func compareField(a, b Record, key string) int {
	switch key {
	case "group_id":
		return compareStrings(a.GroupID, b.GroupID)
	case "effective_date":
		return compareTime(a.EffectiveDate, b.EffectiveDate)
	case "source_id":
		return compareStrings(a.SourceID, b.SourceID)
	case "source":
		return compareStrings(a.Source, b.Source)
	case "currency":
		return compareStrings(a.Currency, b.Currency)
	case "type":
		return compareStrings(a.Type, b.Type)
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// ToRow converts a parsed CSV record into a canonical models.Row for a
// given side (role) and match key. amount sign convention follows §3.1:
// positive is inflow, negative is outflow, passed through unchanged.
func (r Record) ToRow(role, matchKey string) models.Row {
	return models.Row{
		Role:        role,
		RecordID:    r.SourceID,
		MatchKey:    matchKey,
		Date:        r.EffectiveDate,
		AmountCents: r.AmountMinor,
		Currency:    r.Currency,
		Kind:        r.Type,
		RawFields: map[string]string{
			"source":      r.Source,
			"group_id":    r.GroupID,
			"description": r.Description,
		},
	}
}
