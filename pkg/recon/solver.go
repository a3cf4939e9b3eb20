package recon

import (
	"sort"

	"github.com/rawblock/ledgerrecon/pkg/models"
)

// solveResult is one bucket's resolved matches and unmatched remainder.
type solveResult struct {
	matched   []models.MatchedPair
	leftOnly  []models.Aggregate
	rightOnly []models.Aggregate
}

// solveBucket runs the four-pass solver against one bucket's rows:
//
//  1. Exact 1:1 — greedy best-delta pairing, no subset search.
//  2. k:1 — a subset of the left side sums to one right row.
//  3. 1:k — one left row sums against a subset of the right side.
//  4. k:k — bounded DFS pairing subsets on both sides, only attempted
//     when what's left after passes 1-3 is small enough to search.
//
// Anything still unmatched after pass 4 falls through as left-only or
// right-only.
func solveBucket(b bucket, tolerance models.ToleranceConfig, cfg models.WindowedNmConfig, counter *int) solveResult {
	bucketID := b.id()

	left := append([]models.Row(nil), b.left...)
	right := append([]models.Row(nil), b.right...)
	sortRows(left)
	sortRows(right)

	effectiveMaxGroup := cfg.EffectiveMaxGroupSize()

	var matched []models.MatchedPair

	// ----- Pass 1: exact 1:1 -----
	leftUsed := make([]bool, len(left))
	rightUsed := make([]bool, len(right))

	for li, lr := range left {
		if leftUsed[li] {
			continue
		}
		var (
			bestRI        = -1
			bestDelta     int64
			bestDateOff   int
			bestScore     int64 = 1<<63 - 1
			numEquivalent int
		)

		for ri, rr := range right {
			if rightUsed[ri] {
				continue
			}
			delta := lr.AmountCents - rr.AmountCents
			dateOff := int(lr.Date.Sub(rr.Date).Hours() / 24)

			absDelta := delta
			if absDelta < 0 {
				absDelta = -absDelta
			}
			if absDelta <= tolerance.AmountCents {
				absDateOff := int64(dateOff)
				if absDateOff < 0 {
					absDateOff = -absDateOff
				}
				score := absDelta*1000 + absDateOff
				switch {
				case score < bestScore:
					bestRI, bestDelta, bestDateOff = ri, delta, dateOff
					bestScore = score
					numEquivalent = 1
				case score == bestScore:
					numEquivalent++
				}
			}
		}

		if bestRI >= 0 {
			leftUsed[li] = true
			rightUsed[bestRI] = true
			ambiguous := numEquivalent > 1
			reason := ambiguityReason(numEquivalent, false)
			tieBreak := ""
			if ambiguous {
				tieBreak = "record_id_order"
			}
			proof := models.MatchProof{
				Strategy:               "windowed_nm",
				Pass:                   models.PassExact1to1,
				BucketID:               bucketID,
				NodesVisited:           1,
				Ambiguous:              ambiguous,
				NumEquivalentSolutions: numEquivalent,
				AmbiguityReason:        reason,
				TieBreakReason:         tieBreak,
			}
			matched = append(matched, makeMatchedPair([]models.Row{lr}, []models.Row{right[bestRI]}, bestDelta, bestDateOff, tolerance, counter, proof))
		}
	}

	remLeft := remaining(left, leftUsed)
	remRight := remaining(right, rightUsed)

	// ----- Pass 2: k:1 (subset of left sums to one right) -----
	if len(remLeft) > 0 && len(remRight) > 0 {
		rightMatched := make([]bool, len(remRight))
		leftConsumed := make([]bool, len(remLeft))

		rightIndices := sortedAmountDesc(remRight)

		for _, ri := range rightIndices {
			if rightMatched[ri] {
				continue
			}
			target := remRight[ri].AmountCents

			var available []int
			for i := range remLeft {
				if leftConsumed[i] {
					continue
				}
				if !cfg.AllowMixedSign && !sameSign(remLeft[i].AmountCents, target) {
					continue
				}
				available = append(available, i)
			}
			if len(available) == 0 {
				continue
			}

			amounts := make([]int64, len(available))
			for i, idx := range available {
				amounts[i] = remLeft[idx].AmountCents
			}
			search := subsetSumSearch(amounts, target, tolerance.AmountCents, effectiveMaxGroup, cfg.MaxNodes)

			if len(search.tiedBest) == 0 {
				continue
			}

			availRows := make([]models.Row, len(available))
			for i, idx := range available {
				availRows[i] = remLeft[idx]
			}
			targetRows := []models.Row{remRight[ri]}
			bestIndices, numEquiv := pickBestSolution(search.tiedBest, availRows, targetRows, cfg.EvidenceFields)

			chosen := make([]int, len(bestIndices))
			for i, si := range bestIndices {
				chosen[i] = available[si]
			}
			if len(chosen) < 2 {
				continue
			}

			leftGroup := make([]models.Row, len(chosen))
			var leftSum int64
			for i, idx := range chosen {
				leftGroup[i] = remLeft[idx]
				leftSum += remLeft[idx].AmountCents
			}
			delta := leftSum - target
			dateOff := computeDateOffset(leftGroup, []models.Row{remRight[ri]})

			ambiguous := numEquiv > 1 || search.capHit
			reason := ambiguityReason(numEquiv, search.capHit)
			tieBreak := ""
			if ambiguous {
				tieBreak = "full_score_tuple"
			}
			proof := models.MatchProof{
				Strategy:               "windowed_nm",
				Pass:                   models.PassKto1,
				BucketID:               bucketID,
				NodesVisited:           search.nodesVisited,
				NodesPruned:            search.nodesPruned,
				CapHit:                 search.capHit,
				Ambiguous:              ambiguous,
				NumEquivalentSolutions: numEquiv,
				AmbiguityReason:        reason,
				TieBreakReason:         tieBreak,
			}
			matched = append(matched, makeMatchedPair(leftGroup, []models.Row{remRight[ri]}, delta, dateOff, tolerance, counter, proof))

			for _, ci := range chosen {
				leftConsumed[ci] = true
			}
			rightMatched[ri] = true
		}

		remLeft = remaining(remLeft, leftConsumed)
		remRight = remaining(remRight, rightMatched)
	}

	// ----- Pass 3: 1:k (one left row against a subset of right) -----
	if len(remLeft) > 0 && len(remRight) > 0 {
		leftMatched := make([]bool, len(remLeft))
		rightConsumed := make([]bool, len(remRight))

		leftIndices := sortedAmountDesc(remLeft)

		for _, li := range leftIndices {
			if leftMatched[li] {
				continue
			}
			target := remLeft[li].AmountCents

			var available []int
			for i := range remRight {
				if rightConsumed[i] {
					continue
				}
				if !cfg.AllowMixedSign && !sameSign(remRight[i].AmountCents, target) {
					continue
				}
				available = append(available, i)
			}
			if len(available) == 0 {
				continue
			}

			amounts := make([]int64, len(available))
			for i, idx := range available {
				amounts[i] = remRight[idx].AmountCents
			}
			search := subsetSumSearch(amounts, target, tolerance.AmountCents, effectiveMaxGroup, cfg.MaxNodes)

			if len(search.tiedBest) == 0 {
				continue
			}

			availRows := make([]models.Row, len(available))
			for i, idx := range available {
				availRows[i] = remRight[idx]
			}
			targetRows := []models.Row{remLeft[li]}
			bestIndices, numEquiv := pickBestSolution(search.tiedBest, availRows, targetRows, cfg.EvidenceFields)

			chosen := make([]int, len(bestIndices))
			for i, si := range bestIndices {
				chosen[i] = available[si]
			}
			if len(chosen) < 2 {
				continue
			}

			rightGroup := make([]models.Row, len(chosen))
			var rightSum int64
			for i, idx := range chosen {
				rightGroup[i] = remRight[idx]
				rightSum += remRight[idx].AmountCents
			}
			delta := target - rightSum
			dateOff := computeDateOffset([]models.Row{remLeft[li]}, rightGroup)

			ambiguous := numEquiv > 1 || search.capHit
			reason := ambiguityReason(numEquiv, search.capHit)
			tieBreak := ""
			if ambiguous {
				tieBreak = "full_score_tuple"
			}
			proof := models.MatchProof{
				Strategy:               "windowed_nm",
				Pass:                   models.Pass1toK,
				BucketID:               bucketID,
				NodesVisited:           search.nodesVisited,
				NodesPruned:            search.nodesPruned,
				CapHit:                 search.capHit,
				Ambiguous:              ambiguous,
				NumEquivalentSolutions: numEquiv,
				AmbiguityReason:        reason,
				TieBreakReason:         tieBreak,
			}
			matched = append(matched, makeMatchedPair([]models.Row{remLeft[li]}, rightGroup, delta, dateOff, tolerance, counter, proof))

			leftMatched[li] = true
			for _, ci := range chosen {
				rightConsumed[ci] = true
			}
		}

		remLeft = remaining(remLeft, leftMatched)
		remRight = remaining(remRight, rightConsumed)
	}

	// ----- Pass 4: k:k (bounded DFS on small remainders) -----
	if len(remLeft) > 0 && len(remRight) > 0 && len(remLeft)+len(remRight) <= effectiveMaxGroup*2 {
		kk := kkSearch(remLeft, remRight, tolerance, effectiveMaxGroup, cfg.MaxNodes)

		if len(kk.tiedBest) > 0 {
			leftIdx, rightIdx, numEquiv := pickBestKkSolution(kk.tiedBest, remLeft, remRight, cfg.EvidenceFields)

			leftGroup := make([]models.Row, len(leftIdx))
			var leftSum int64
			for i, idx := range leftIdx {
				leftGroup[i] = remLeft[idx]
				leftSum += remLeft[idx].AmountCents
			}
			rightGroup := make([]models.Row, len(rightIdx))
			var rightSum int64
			for i, idx := range rightIdx {
				rightGroup[i] = remRight[idx]
				rightSum += remRight[idx].AmountCents
			}
			delta := leftSum - rightSum
			dateOff := computeDateOffset(leftGroup, rightGroup)

			ambiguous := numEquiv > 1 || kk.capHit
			reason := ambiguityReason(numEquiv, kk.capHit)
			tieBreak := ""
			if ambiguous {
				tieBreak = "full_score_tuple"
			}
			proof := models.MatchProof{
				Strategy:               "windowed_nm",
				Pass:                   models.PassKtoK,
				BucketID:               bucketID,
				NodesVisited:           kk.nodesVisited,
				NodesPruned:            kk.nodesPruned,
				CapHit:                 kk.capHit,
				Ambiguous:              ambiguous,
				NumEquivalentSolutions: numEquiv,
				AmbiguityReason:        reason,
				TieBreakReason:         tieBreak,
			}
			matched = append(matched, makeMatchedPair(leftGroup, rightGroup, delta, dateOff, tolerance, counter, proof))

			leftSet := make(map[int]bool, len(leftIdx))
			for _, i := range leftIdx {
				leftSet[i] = true
			}
			rightSet := make(map[int]bool, len(rightIdx))
			for _, i := range rightIdx {
				rightSet[i] = true
			}
			remLeft = remainingSet(remLeft, leftSet)
			remRight = remainingSet(remRight, rightSet)
		}
	}

	leftOnly := make([]models.Aggregate, len(remLeft))
	for i, r := range remLeft {
		leftOnly[i] = rowToAggregate(r, counter)
	}
	rightOnly := make([]models.Aggregate, len(remRight))
	for i, r := range remRight {
		rightOnly[i] = rowToAggregate(r, counter)
	}

	return solveResult{matched: matched, leftOnly: leftOnly, rightOnly: rightOnly}
}

// remaining filters out rows whose parallel used[i] flag is set,
// preserving order.
func remaining(rows []models.Row, used []bool) []models.Row {
	var out []models.Row
	for i, r := range rows {
		if !used[i] {
			out = append(out, r)
		}
	}
	return out
}

func remainingSet(rows []models.Row, used map[int]bool) []models.Row {
	var out []models.Row
	for i, r := range rows {
		if !used[i] {
			out = append(out, r)
		}
	}
	return out
}

// sortedAmountDesc returns indices into rows ordered by descending
// absolute amount, breaking ties by ascending record id — the order
// pass 2 and pass 3 process target rows in so that larger, more
// constraining targets are resolved first.
func sortedAmountDesc(rows []models.Row) []int {
	idx := make([]int, len(rows))
	for i := range rows {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ai, bi := idx[a], idx[b]
		aa, ba := rows[ai].AmountCents, rows[bi].AmountCents
		if aa < 0 {
			aa = -aa
		}
		if ba < 0 {
			ba = -ba
		}
		if aa != ba {
			return aa > ba
		}
		return rows[ai].RecordID < rows[bi].RecordID
	})
	return idx
}
