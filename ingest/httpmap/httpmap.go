// Package httpmap is the generic HTTP mapping producer (external
// interface §6.2): it fetches a JSON API with a declarative mapping
// config, walks the dotted-path grammar, applies the closed transform
// vocabulary, and returns canonical rows. This is the Go-native
// counterpart to the original CLI's "fetch http" command — vendor auth
// flows (QuickBooks, Xero) remain out of scope; only the generic mapper
// is implemented.
package httpmap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rawblock/ledgerrecon/pkg/models"
	"github.com/rawblock/ledgerrecon/recoerr"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxItems    = 10_000
	defaultMaxPages    = 1000
	maxResponseBytes   = 10 * 1024 * 1024
	maxRetries         = 3
	retryBaseDelay     = 250 * time.Millisecond
)

// Client fetches canonical rows from a JSON API described by a
// models.MappingConfig.
type Client struct {
	HTTP       *http.Client
	MaxItems   int
	MaxPages   int
	AuthHeader string // e.g. "Bearer <token>"; empty means unauthenticated
}

// New returns a Client with the default timeout and item/page caps.
func New() *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: defaultTimeout},
		MaxItems: defaultMaxItems,
		MaxPages: defaultMaxPages,
	}
}

// Fetch walks the API described by cfg, applying from/to as query
// params per cfg.Params, and returns canonical rows sorted per
// cfg.SortBy (or the producer-contract default).
func (c *Client) Fetch(ctx context.Context, baseURL string, cfg models.MappingConfig, from, to time.Time) ([]models.Row, error) {
	reqURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, recoerr.Wrap(recoerr.Usage, "invalid URL", err)
	}
	q := reqURL.Query()
	for _, p := range cfg.Params {
		var date time.Time
		switch p.From {
		case "from":
			date = from
		case "to":
			date = to
		default:
			return nil, recoerr.New(recoerr.Mapping, fmt.Sprintf("unknown param key %q (expected 'from' or 'to')", p.From))
		}
		val, err := formatDate(date, p.DateFormat)
		if err != nil {
			return nil, err
		}
		q.Set(p.To, val)
	}
	reqURL.RawQuery = q.Encode()

	items, err := c.fetchAllPages(ctx, reqURL, cfg)
	if err != nil {
		return nil, err
	}

	rows := make([]models.Row, 0, len(items))
	for idx, item := range items {
		row, err := itemToRow(item, cfg)
		if err != nil {
			if e, ok := err.(*recoerr.Error); ok {
				e.Message = fmt.Sprintf("item [%d]: %s", idx, e.Message)
			}
			return nil, err
		}
		rows = append(rows, row)
	}

	sortRows(rows, cfg.SortBy)
	return rows, nil
}

func (c *Client) fetchAllPages(ctx context.Context, reqURL *url.URL, cfg models.MappingConfig) ([]map[string]any, error) {
	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	numPages := 1
	if cfg.Pagination != nil {
		numPages = maxPages
	}

	var allItems []map[string]any
	var cursor string
	var offset int

	for page := 0; page < numPages; page++ {
		pageURL := *reqURL
		q := pageURL.Query()
		if cfg.Pagination != nil {
			pag := cfg.Pagination
			switch pag.Strategy {
			case models.PaginationCursor:
				if cursor != "" {
					q.Set(pag.Param, cursor)
				}
			case models.PaginationOffset:
				if page > 0 {
					q.Set(pag.Param, strconv.Itoa(offset))
				}
			default:
				return nil, recoerr.New(recoerr.Mapping, fmt.Sprintf("unknown pagination strategy %q", pag.Strategy))
			}
			if pag.PageSizeParam != "" && pag.PageSize > 0 {
				q.Set(pag.PageSizeParam, strconv.Itoa(pag.PageSize))
			}
		}
		pageURL.RawQuery = q.Encode()

		body, err := c.requestWithRetry(ctx, pageURL.String())
		if err != nil {
			return nil, err
		}

		items, err := extractArray(body, cfg.Root)
		if err != nil {
			return nil, err
		}
		allItems = append(allItems, items...)

		if len(allItems) > c.effectiveMaxItems() {
			return nil, recoerr.New(recoerr.Overflow, fmt.Sprintf("fetched %d items across %d pages, max %d allowed", len(allItems), page+1, c.effectiveMaxItems())).
				WithHint("narrow the date range or raise the item cap")
		}

		if cfg.Pagination == nil {
			break
		}
		pag := cfg.Pagination

		hasMore := false
		if pag.HasMorePath != "" {
			if v, ok := extractPath(body, pag.HasMorePath); ok {
				hasMore, _ = v.(bool)
			}
		} else {
			hasMore = len(items) >= pag.PageSize
		}
		if !hasMore {
			break
		}
		if len(items) == 0 {
			return nil, recoerr.New(recoerr.Upstream, fmt.Sprintf("pagination stuck: page %d returned 0 items but has_more is true", page+1)).
				WithHint("check the API's pagination behavior or has_more_path in mapping")
		}

		switch pag.Strategy {
		case models.PaginationCursor:
			if pag.NextCursorPath == "" {
				return nil, recoerr.New(recoerr.Mapping, "cursor pagination requires next_cursor_path in mapping")
			}
			v, ok := extractPath(body, pag.NextCursorPath)
			nc := ""
			if ok {
				nc = jsonValueToString(v)
			}
			if nc == "" {
				break
			}
			if nc == cursor {
				return nil, recoerr.New(recoerr.Upstream, fmt.Sprintf("pagination stuck: cursor unchanged (%q) on page %d", nc, page+1)).
					WithHint("the API returned the same cursor twice — check next_cursor_path")
			}
			cursor = nc
		case models.PaginationOffset:
			offset += pag.PageSize
		}
	}

	return allItems, nil
}

func (c *Client) effectiveMaxItems() int {
	if c.MaxItems <= 0 {
		return defaultMaxItems
	}
	return c.MaxItems
}

// requestWithRetry issues a GET with exponential backoff on 5xx, 429
// and failed requests (no response at all), up to maxRetries attempts,
// surfacing any other error immediately.
func (c *Client) requestWithRetry(ctx context.Context, rawURL string) (map[string]any, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBaseDelay * time.Duration(1<<uint(attempt-1))):
			case <-ctx.Done():
				return nil, recoerr.Wrap(recoerr.Upstream, "request cancelled", ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, recoerr.Wrap(recoerr.Usage, "cannot build request", err)
		}
		if c.AuthHeader != "" {
			req.Header.Set("Authorization", c.AuthHeader)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = recoerr.Wrap(recoerr.Upstream, "request failed", err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
		resp.Body.Close()
		if err != nil {
			return nil, recoerr.Wrap(recoerr.Upstream, "cannot read response body", err)
		}
		if len(body) > maxResponseBytes {
			return nil, recoerr.New(recoerr.Overflow, fmt.Sprintf("response too large (%d bytes, max %d bytes)", len(body), maxResponseBytes)).
				WithHint("narrow the date range or raise the response size cap")
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = recoerr.New(recoerr.Upstream, fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode))
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, recoerr.New(recoerr.Upstream, fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode))
		}

		var parsed map[string]any
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, recoerr.Wrap(recoerr.Parse, "response is not valid JSON", err)
		}
		return parsed, nil
	}
	return nil, lastErr
}

func formatDate(t time.Time, format models.DateFormat) (string, error) {
	switch format {
	case models.DateFormatISO, "":
		return t.Format("2006-01-02"), nil
	case models.DateFormatUnixS:
		return strconv.FormatInt(t.Unix(), 10), nil
	case models.DateFormatUnixMs:
		return strconv.FormatInt(t.UnixMilli(), 10), nil
	default:
		return "", recoerr.New(recoerr.Mapping, fmt.Sprintf("unknown date format %q", format))
	}
}

// extractArray resolves path against body and requires the result to
// be a JSON array of objects.
func extractArray(body map[string]any, path string) ([]map[string]any, error) {
	v, ok := extractPath(body, path)
	if !ok {
		return nil, recoerr.New(recoerr.Mapping, fmt.Sprintf("root path %q not found in response", path))
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, recoerr.New(recoerr.Mapping, fmt.Sprintf("root path %q did not resolve to an array", path))
	}
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			return nil, recoerr.New(recoerr.Mapping, fmt.Sprintf("root path %q contains a non-object item", path))
		}
		out = append(out, m)
	}
	return out, nil
}

// extractPath walks the dotted path grammar ($.field, $.nested.field,
// $.array[N].field, $.array[-N].field — no filters, no wildcards)
// against an arbitrary decoded JSON value.
func extractPath(value any, path string) (any, bool) {
	path = strings.TrimPrefix(path, "$.")
	if path == "" {
		return value, true
	}
	current := value
	for _, segment := range strings.Split(path, ".") {
		field := segment
		var idx *int
		if b := strings.IndexByte(segment, '['); b >= 0 {
			field = segment[:b]
			idxStr := strings.TrimSuffix(segment[b+1:], "]")
			n, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			idx = &n
		}

		if field != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = m[field]
			if !ok {
				return nil, false
			}
		}

		if idx != nil {
			arr, ok := current.([]any)
			if !ok {
				return nil, false
			}
			i := *idx
			if i < 0 {
				i = len(arr) + i
			}
			if i < 0 || i >= len(arr) {
				return nil, false
			}
			current = arr[i]
		}
	}
	return current, true
}

func jsonValueToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// canonicalColumns is the fixed column order itemToRow validates
// against — every mapping file must name all nine.
var canonicalColumns = []string{
	"effective_date", "posted_date", "amount_minor", "currency",
	"type", "source", "source_id", "group_id", "description",
}

func itemToRow(item map[string]any, cfg models.MappingConfig) (models.Row, error) {
	values := make(map[string]string, len(canonicalColumns))
	for _, name := range canonicalColumns {
		spec, ok := cfg.Columns[name]
		if !ok {
			return models.Row{}, recoerr.New(recoerr.Mapping, fmt.Sprintf("mapping file missing required column %q", name))
		}
		v, err := extractColumn(item, name, spec)
		if err != nil {
			return models.Row{}, err
		}
		values[name] = v
	}

	effectiveDate, err := time.Parse("2006-01-02", values["effective_date"])
	if err != nil {
		return models.Row{}, recoerr.Wrap(recoerr.Validation, "effective_date not a valid date", err)
	}
	amountMinor, err := strconv.ParseInt(values["amount_minor"], 10, 64)
	if err != nil {
		return models.Row{}, recoerr.Wrap(recoerr.Validation, "amount_minor not a valid integer", err)
	}

	rawFields := map[string]string{
		"source":      values["source"],
		"group_id":    values["group_id"],
		"description": values["description"],
	}

	return models.Row{
		Role:        values["source"],
		RecordID:    values["source_id"],
		MatchKey:    values["group_id"],
		Date:        effectiveDate,
		AmountCents: amountMinor,
		Currency:    values["currency"],
		Kind:        values["type"],
		RawFields:   rawFields,
	}, nil
}

func extractColumn(item map[string]any, colName string, spec models.ColumnSpec) (string, error) {
	if spec.Const != "" {
		return spec.Const, nil
	}
	if spec.Path == "" {
		return "", recoerr.New(recoerr.Mapping, fmt.Sprintf("column %q needs either 'path' or 'const'", colName))
	}

	v, ok := extractPath(item, spec.Path)
	var raw string
	if !ok {
		if spec.Optional {
			return "", nil
		}
		return "", recoerr.New(recoerr.Mapping, fmt.Sprintf("missing required field %q (path: %s)", colName, spec.Path))
	}
	raw = jsonValueToString(v)

	mapped := raw
	if len(spec.Map) > 0 {
		if m, ok := spec.Map[raw]; ok {
			mapped = m
		} else if fallback, ok := spec.Map["*"]; ok {
			mapped = fallback
		}
	}

	switch spec.Transform {
	case models.TransformUpper:
		return strings.ToUpper(mapped), nil
	case models.TransformLower:
		return strings.ToLower(mapped), nil
	case models.TransformCents:
		n, err := strconv.ParseInt(mapped, 10, 64)
		if err != nil {
			return "", recoerr.Wrap(recoerr.Mapping, fmt.Sprintf("column %q: cannot parse %q as integer for cents transform", colName, mapped), err)
		}
		return strconv.FormatInt(n, 10), nil
	case models.TransformDollarsToCents:
		cents, err := parseMoneyString(mapped)
		if err != nil {
			return "", recoerr.Wrap(recoerr.Mapping, fmt.Sprintf("column %q: cannot parse %q as dollar amount", colName, mapped), err)
		}
		return strconv.FormatInt(cents, 10), nil
	case "":
		return mapped, nil
	default:
		return "", recoerr.New(recoerr.Mapping, fmt.Sprintf("column %q: unknown transform %q", colName, spec.Transform))
	}
}

// parseMoneyString parses a "12.34" / "-12.34" dollar string into an
// integer cent count without floating point, so the 10000/0.1+... class
// of rounding error can't reach the decision path.
func parseMoneyString(s string) (int64, error) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	parts := strings.SplitN(s, ".", 2)
	whole, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, err
	}
	var frac int64
	if len(parts) == 2 {
		fracStr := parts[1]
		for len(fracStr) < 2 {
			fracStr += "0"
		}
		fracStr = fracStr[:2]
		frac, err = strconv.ParseInt(fracStr, 10, 64)
		if err != nil {
			return 0, err
		}
	}
	cents := whole*100 + frac
	if neg {
		cents = -cents
	}
	return cents, nil
}

func sortRows(rows []models.Row, sortBy []string) {
	keys := sortBy
	if len(keys) == 0 {
		keys = []string{"group_id", "effective_date", "source_id"}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range keys {
			cmp := compareRowField(rows[i], rows[j], key)
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
}

func compareRowField(a, b models.Row, key string) int {
	switch key {
	case "group_id":
		return strings.Compare(a.MatchKey, b.MatchKey)
	case "effective_date":
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		default:
			return 0
		}
	case "source_id":
		return strings.Compare(a.RecordID, b.RecordID)
	case "currency":
		return strings.Compare(a.Currency, b.Currency)
	case "type":
		return strings.Compare(a.Kind, b.Kind)
	default:
		return 0
	}
}
