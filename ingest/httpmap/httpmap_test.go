package httpmap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rawblock/ledgerrecon/pkg/models"
)

func sampleItem() map[string]any {
	return map[string]any{
		"id":     "pay_123",
		"amount": "42.50",
		"status": "succeeded",
		"date":   "2026-01-15",
		"nested": map[string]any{"note": "hello"},
	}
}

func TestExtractPathSimpleAndArrayIndex(t *testing.T) {
	item := map[string]any{
		"a": map[string]any{"b": []any{1.0, 2.0, 3.0}},
	}
	v, ok := extractPath(item, "$.a.b[0]")
	if !ok || v != 1.0 {
		t.Fatalf("expected 1.0, got %v ok=%v", v, ok)
	}
	v, ok = extractPath(item, "$.a.b[-1]")
	if !ok || v != 3.0 {
		t.Fatalf("expected 3.0, got %v ok=%v", v, ok)
	}
	_, ok = extractPath(item, "$.missing")
	if ok {
		t.Fatalf("expected missing path to fail")
	}
}

func TestExtractColumnValueMapWildcard(t *testing.T) {
	spec := models.ColumnSpec{
		Path: "$.status",
		Map:  map[string]string{"succeeded": "payment", "*": "unknown"},
	}
	v, err := extractColumn(sampleItem(), "type", spec)
	if err != nil || v != "payment" {
		t.Fatalf("got %q err=%v", v, err)
	}

	spec2 := models.ColumnSpec{
		Path: "$.status",
		Map:  map[string]string{"failed": "x", "*": "unknown"},
	}
	v2, err := extractColumn(sampleItem(), "type", spec2)
	if err != nil || v2 != "unknown" {
		t.Fatalf("got %q err=%v", v2, err)
	}
}

func TestExtractColumnOptionalMissing(t *testing.T) {
	spec := models.ColumnSpec{Path: "$.does_not_exist", Optional: true}
	v, err := extractColumn(sampleItem(), "description", spec)
	if err != nil || v != "" {
		t.Fatalf("expected empty string, no error; got %q err=%v", v, err)
	}
}

func TestExtractColumnRequiredMissing(t *testing.T) {
	spec := models.ColumnSpec{Path: "$.does_not_exist"}
	_, err := extractColumn(sampleItem(), "description", spec)
	if err == nil {
		t.Fatalf("expected error for missing required field")
	}
}

func TestDollarsToCentsTransform(t *testing.T) {
	spec := models.ColumnSpec{Path: "$.amount", Transform: models.TransformDollarsToCents}
	v, err := extractColumn(sampleItem(), "amount_minor", spec)
	if err != nil || v != "4250" {
		t.Fatalf("got %q err=%v", v, err)
	}
}

func TestParseMoneyStringNegative(t *testing.T) {
	cents, err := parseMoneyString("-12.3")
	if err != nil || cents != -1230 {
		t.Fatalf("got %d err=%v", cents, err)
	}
}

func sampleMapping() models.MappingConfig {
	return models.MappingConfig{
		Root: "$.items",
		Columns: map[string]models.ColumnSpec{
			"effective_date": {Path: "$.date"},
			"posted_date":    {Const: ""},
			"amount_minor":   {Path: "$.amount", Transform: models.TransformDollarsToCents},
			"currency":       {Const: "USD"},
			"type":           {Path: "$.status", Map: map[string]string{"succeeded": "payment", "*": "adjustment"}},
			"source":         {Const: "testapi"},
			"source_id":      {Path: "$.id"},
			"group_id":       {Const: ""},
			"description":    {Const: ""},
		},
	}
}

func TestFetchSinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []any{
				map[string]any{"id": "b", "amount": "10.00", "status": "succeeded", "date": "2026-01-16"},
				map[string]any{"id": "a", "amount": "5.00", "status": "succeeded", "date": "2026-01-15"},
			},
		})
	}))
	defer srv.Close()

	c := New()
	rows, err := c.Fetch(context.Background(), srv.URL, sampleMapping(), mustDate("2026-01-01"), mustDate("2026-01-31"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].RecordID != "a" {
		t.Fatalf("expected default sort by (group_id, effective_date, source_id) to put 'a' first, got %q", rows[0].RecordID)
	}
}

func TestFetchPaginationStuckCursor(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items":  []any{map[string]any{"id": "x", "amount": "1.00", "status": "succeeded", "date": "2026-01-15"}},
			"cursor": "same-cursor",
		})
	}))
	defer srv.Close()

	cfg := sampleMapping()
	cfg.Pagination = &models.PaginationConfig{
		Strategy:       models.PaginationCursor,
		Param:          "cursor",
		PageSize:       1,
		NextCursorPath: "$.cursor",
		HasMorePath:    "",
	}
	// page_size=1 and response always returns 1 item, so hasMore (no
	// has_more_path) stays true forever; cursor never changes, so the
	// second page must fail with the stuck-cursor error.
	c := New()
	_, err := c.Fetch(context.Background(), srv.URL, cfg, mustDate("2026-01-01"), mustDate("2026-01-31"))
	if err == nil {
		t.Fatalf("expected pagination-stuck error")
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 calls before detecting the stuck cursor, got %d", calls)
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
