package recon

import (
	"fmt"
	"sort"

	"github.com/rawblock/ledgerrecon/pkg/models"
)

// MatchWindowedNm is the solver's public entry point: it partitions
// left and right rows by currency, slides a date window over each
// currency's timeline to form buckets, and resolves each bucket through
// the four-pass solver. Row order on input never affects the result —
// every internal ordering decision is made from (date, amount, record
// id), never from slice position.
func MatchWindowedNm(left, right []models.Row, tolerance models.ToleranceConfig, cfg models.WindowedNmConfig) models.ReconResult {
	var result models.ReconResult

	leftByCur := make(map[string][]models.Row)
	rightByCur := make(map[string][]models.Row)
	for _, r := range left {
		leftByCur[r.Currency] = append(leftByCur[r.Currency], r)
	}
	for _, r := range right {
		rightByCur[r.Currency] = append(rightByCur[r.Currency], r)
	}

	currencySet := make(map[string]struct{}, len(leftByCur)+len(rightByCur))
	for c := range leftByCur {
		currencySet[c] = struct{}{}
	}
	for c := range rightByCur {
		currencySet[c] = struct{}{}
	}
	currencies := make([]string, 0, len(currencySet))
	for c := range currencySet {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	groupCounter := 0

	for _, currency := range currencies {
		leftRows := leftByCur[currency]
		rightRows := rightByCur[currency]

		buckets := buildBuckets(leftRows, rightRows, tolerance.DateWindowDays, currency)

		for _, b := range buckets {
			if len(b.left)+len(b.right) > cfg.MaxBucketSize {
				handleOversizedBucket(b, tolerance, cfg, &groupCounter, &result)
				continue
			}

			sub := solveBucket(b, tolerance, cfg, &groupCounter)
			result.Matched = append(result.Matched, sub.matched...)
			result.LeftOnly = append(result.LeftOnly, sub.leftOnly...)
			result.RightOnly = append(result.RightOnly, sub.rightOnly...)
		}
	}

	return result
}

// handleOversizedBucket produces an explicitly ambiguous BucketTooLarge
// match (when both sides have rows, so a reader can still see the
// candidates that were never searched) or drops straight to unmatched
// (when only one side is populated — there is nothing to pair against).
func handleOversizedBucket(b bucket, tolerance models.ToleranceConfig, cfg models.WindowedNmConfig, counter *int, result *models.ReconResult) {
	if len(b.left) > 0 && len(b.right) > 0 {
		leftAgg := rowsToAggregate(b.left, counter)
		rightAgg := rowsToAggregate(b.right, counter)

		var leftSum, rightSum int64
		for _, r := range b.left {
			leftSum += r.AmountCents
		}
		for _, r := range b.right {
			rightSum += r.AmountCents
		}
		delta := leftSum - rightSum
		dateOff := computeDateOffset(b.left, b.right)

		absDelta := delta
		if absDelta < 0 {
			absDelta = -absDelta
		}
		absOff := dateOff
		if absOff < 0 {
			absOff = -absOff
		}

		proof := models.MatchProof{
			Strategy:               "windowed_nm",
			Pass:                   models.PassBucketTooLarge,
			BucketID:               b.id(),
			Ambiguous:              true,
			AmbiguityReason:        models.ReasonBucketTooLarge,
			TieBreakReason:         bucketTooLargeReason(len(b.left)+len(b.right), cfg.MaxBucketSize),
		}
		result.Matched = append(result.Matched, models.MatchedPair{
			Left:            leftAgg,
			Right:           rightAgg,
			DeltaCents:      delta,
			DateOffsetDays:  dateOff,
			WithinTolerance: absDelta <= tolerance.AmountCents,
			WithinWindow:    uint32(absOff) <= tolerance.DateWindowDays,
			Proof:           proof,
		})
		return
	}

	for _, r := range b.left {
		result.LeftOnly = append(result.LeftOnly, rowToAggregate(r, counter))
	}
	for _, r := range b.right {
		result.RightOnly = append(result.RightOnly, rowToAggregate(r, counter))
	}
}

func bucketTooLargeReason(size, max int) string {
	return fmt.Sprintf("bucket_size=%d exceeds max=%d", size, max)
}
