// Package recon implements the deterministic windowed N:M reconciliation
// solver: bucket rows by currency and date window, then resolve each
// bucket through four passes of increasing structural complexity (exact
// 1:1, k:1, 1:k, bounded k:k), producing an audited MatchProof for every
// decision.
package recon

import (
	"fmt"
	"sort"
	"time"

	"github.com/rawblock/ledgerrecon/pkg/models"
)

// bucket is one currency-scoped, date-windowed group of candidate rows.
type bucket struct {
	left        []models.Row
	right       []models.Row
	currency    string
	windowStart time.Time
	windowEnd   time.Time
}

// id renders the bucket's audit identifier: "<currency>:<start>..<end>".
func (b bucket) id() string {
	return fmt.Sprintf("%s:%s..%s", b.currency, b.windowStart.Format("2006-01-02"), b.windowEnd.Format("2006-01-02"))
}

// side tags a merged row with which slice it came from, so the timeline
// sort below can be stable without carrying two parallel arrays.
type side int

const (
	sideLeft side = iota
	sideRight
)

type taggedRow struct {
	row  models.Row
	side side
}

// buildBuckets groups rows from a single currency into sliding date
// windows. It is a greedy pass over the date-sorted timeline: each
// unassigned row anchors a new bucket that absorbs every unassigned row
// within dateWindowDays of the anchor's date. This is NOT a symmetric
// clustering — a row just past the window of an earlier anchor starts
// its own bucket rather than merging backward, which keeps bucket
// membership a pure function of sorted order and is what makes the
// whole solve deterministic under row-order shuffling.
func buildBuckets(left, right []models.Row, dateWindowDays uint32, currency string) []bucket {
	all := make([]taggedRow, 0, len(left)+len(right))
	for _, r := range left {
		all = append(all, taggedRow{row: r, side: sideLeft})
	}
	for _, r := range right {
		all = append(all, taggedRow{row: r, side: sideRight})
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i].row, all[j].row
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.AmountCents != b.AmountCents {
			return a.AmountCents < b.AmountCents
		}
		return a.RecordID < b.RecordID
	})

	if len(all) == 0 {
		return nil
	}

	window := time.Duration(dateWindowDays) * 24 * time.Hour
	assigned := make([]bool, len(all))
	var buckets []bucket

	for i := range all {
		if assigned[i] {
			continue
		}

		anchorDate := all[i].row.Date
		windowEnd := anchorDate.Add(window)

		var bLeft, bRight []models.Row
		actualStart, actualEnd := anchorDate, anchorDate

		for j := i; j < len(all); j++ {
			if assigned[j] {
				continue
			}
			if all[j].row.Date.After(windowEnd) {
				break
			}
			assigned[j] = true
			if all[j].row.Date.Before(actualStart) {
				actualStart = all[j].row.Date
			}
			if all[j].row.Date.After(actualEnd) {
				actualEnd = all[j].row.Date
			}
			switch all[j].side {
			case sideLeft:
				bLeft = append(bLeft, all[j].row)
			case sideRight:
				bRight = append(bRight, all[j].row)
			}
		}

		if len(bLeft) > 0 || len(bRight) > 0 {
			buckets = append(buckets, bucket{
				left:        bLeft,
				right:       bRight,
				currency:    currency,
				windowStart: actualStart,
				windowEnd:   actualEnd,
			})
		}
	}

	return buckets
}
