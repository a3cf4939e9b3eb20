package recon

import "github.com/rawblock/ledgerrecon/pkg/models"

// kkCandidate is one tied k:k solution: a subset of left row indices
// paired with a subset of right row indices.
type kkCandidate struct {
	left  []int
	right []int
}

// kkResult mirrors searchResult for the k:k pass, where each candidate
// carries indices into both sides.
type kkResult struct {
	tiedBest               []kkCandidate
	nodesVisited           int
	nodesPruned            int
	capHit                 bool
	numEquivalentSolutions int
}

// kkSearch enumerates left subsets of size >= 2 up to maxGroupSize, and
// for each one runs subsetSumSearch against the right side to find a
// matching subset. Left subsets of size 1 are never enumerated here
// (1:k and k:1 already tried every singleton), so every candidate has
// a plural left side.
func kkSearch(left, right []models.Row, tolerance models.ToleranceConfig, maxGroupSize, maxNodes int) kkResult {
	var (
		tiedBest          []kkCandidate
		bestCount         = int(^uint(0) >> 1)
		bestDelta   int64 = 1<<63 - 1
		numEquivalent     int
		nodesVisited      int
		nodesPruned       int
		capHit            bool
	)

	maxLeft := min(len(left), maxGroupSize)
	maxRight := min(len(right), maxGroupSize)

	rightAmounts := make([]int64, len(right))
	for i, r := range right {
		rightAmounts[i] = r.AmountCents
	}

	for leftSize := 2; leftSize <= maxLeft; leftSize++ {
		if capHit {
			break
		}
		for _, leftCombo := range combinations(len(left), leftSize) {
			if capHit {
				break
			}
			nodesVisited++
			if nodesVisited >= maxNodes {
				capHit = true
				break
			}

			var leftSum int64
			for _, i := range leftCombo {
				leftSum += left[i].AmountCents
			}

			budget := maxNodes - nodesVisited
			sub := subsetSumSearch(rightAmounts, leftSum, tolerance.AmountCents, maxRight, budget)
			nodesVisited += sub.nodesVisited
			nodesPruned += sub.nodesPruned
			if sub.capHit {
				capHit = true
			}

			rightCombo := sub.best()
			if rightCombo == nil {
				continue
			}
			if len(rightCombo) < 2 && leftSize < 2 {
				continue
			}

			var rightSum int64
			for _, i := range rightCombo {
				rightSum += right[i].AmountCents
			}
			delta := leftSum - rightSum
			if delta < 0 {
				delta = -delta
			}
			totalCount := leftSize + len(rightCombo)

			better := totalCount < bestCount || (totalCount == bestCount && delta < bestDelta)
			equal := totalCount == bestCount && delta == bestDelta

			switch {
			case better:
				bestCount = totalCount
				bestDelta = delta
				tiedBest = tiedBest[:0]
				tiedBest = append(tiedBest, kkCandidate{left: append([]int(nil), leftCombo...), right: append([]int(nil), rightCombo...)})
				numEquivalent = 1
			case equal:
				numEquivalent++
				if len(tiedBest) < maxTiedSolutions {
					tiedBest = append(tiedBest, kkCandidate{left: append([]int(nil), leftCombo...), right: append([]int(nil), rightCombo...)})
				}
			}
		}
	}

	return kkResult{
		tiedBest:               tiedBest,
		nodesVisited:           nodesVisited,
		nodesPruned:            nodesPruned,
		capHit:                 capHit,
		numEquivalentSolutions: numEquivalent,
	}
}

// combinations generates every k-element subset of 0..n as ascending
// index slices, in lexicographic order — the order the DFS relies on
// for deterministic tie-breaking when two combinations score equally.
func combinations(n, k int) [][]int {
	var result [][]int
	combo := make([]int, 0, k)

	var gen func(start int)
	gen = func(start int) {
		if len(combo) == k {
			result = append(result, append([]int(nil), combo...))
			return
		}
		for i := start; i < n; i++ {
			combo = append(combo, i)
			gen(i + 1)
			combo = combo[:len(combo)-1]
		}
	}

	gen(0)
	return result
}
