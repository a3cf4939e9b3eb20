package recon

import (
	"fmt"
	"sort"
	"time"

	"github.com/rawblock/ledgerrecon/pkg/models"
)

// ambiguityReason classifies why a match carries an ambiguity flag,
// from the combination of "more than one tied solution" and "search
// cap was hit before it could rule competitors out."
func ambiguityReason(numEquivalent int, capHit bool) models.AmbiguityReason {
	tied := numEquivalent > 1
	switch {
	case tied && capHit:
		return models.ReasonTiedAndCapHit
	case tied:
		return models.ReasonTiedSolutions
	case capHit:
		return models.ReasonSearchCapHit
	default:
		return ""
	}
}

// sortRows imposes the canonical (date, amount, record id) ordering
// every pass in the solver depends on for determinism.
func sortRows(rows []models.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.AmountCents != b.AmountCents {
			return a.AmountCents < b.AmountCents
		}
		return a.RecordID < b.RecordID
	})
}

// sameSign reports whether a and b fall on the same side of zero;
// zero is treated as non-negative.
func sameSign(a, b int64) bool {
	return (a >= 0 && b >= 0) || (a < 0 && b < 0)
}

// computeDateOffset returns the day offset between the earliest date
// on each side, used to populate MatchedPair.DateOffsetDays.
func computeDateOffset(left, right []models.Row) int {
	leftDate := earliestDate(left)
	rightDate := earliestDate(right)
	return int(leftDate.Sub(rightDate).Hours() / 24)
}

func earliestDate(rows []models.Row) (earliest time.Time) {
	for i, r := range rows {
		if i == 0 || r.Date.Before(earliest) {
			earliest = r.Date
		}
	}
	return earliest
}

// nextGroupID hands out the sequential "wnm_<n>" aggregate ids every
// produced Aggregate is stamped with, scoped to one MatchWindowedNm
// call via the caller-owned counter.
func nextGroupID(counter *int) string {
	id := fmt.Sprintf("wnm_%d", *counter)
	*counter++
	return id
}

func rowToAggregate(row models.Row, counter *int) models.Aggregate {
	id := nextGroupID(counter)
	return models.Aggregate{
		Role:        row.Role,
		MatchKey:    id,
		Currency:    row.Currency,
		Date:        row.Date,
		TotalCents:  row.AmountCents,
		RecordCount: 1,
		RecordIDs:   []string{row.RecordID},
	}
}

func rowsToAggregate(rows []models.Row, counter *int) models.Aggregate {
	id := nextGroupID(counter)

	var total int64
	recordIDs := make([]string, len(rows))
	for i, r := range rows {
		total += r.AmountCents
		recordIDs[i] = r.RecordID
	}

	role, currency := "unknown", ""
	date := earliestDate(rows)
	if len(rows) > 0 {
		role = rows[0].Role
		currency = rows[0].Currency
	}

	return models.Aggregate{
		Role:        role,
		MatchKey:    id,
		Currency:    currency,
		Date:        date,
		TotalCents:  total,
		RecordCount: len(rows),
		RecordIDs:   recordIDs,
	}
}

func makeMatchedPair(left, right []models.Row, deltaCents int64, dateOffsetDays int, tolerance models.ToleranceConfig, counter *int, proof models.MatchProof) models.MatchedPair {
	leftAgg := rowsToAggregate(left, counter)
	rightAgg := rowsToAggregate(right, counter)

	abs := deltaCents
	if abs < 0 {
		abs = -abs
	}
	absOffset := dateOffsetDays
	if absOffset < 0 {
		absOffset = -absOffset
	}

	return models.MatchedPair{
		Left:            leftAgg,
		Right:           rightAgg,
		DeltaCents:      deltaCents,
		DateOffsetDays:  dateOffsetDays,
		WithinTolerance: abs <= tolerance.AmountCents,
		WithinWindow:    uint32(absOffset) <= tolerance.DateWindowDays,
		Proof:           proof,
	}
}
