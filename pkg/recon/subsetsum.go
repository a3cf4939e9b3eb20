package recon

// searchResult is the bounded DFS's output: the set of index-subsets
// tied for best (delta, group size), plus the diagnostic counters that
// flow straight into the audited MatchProof.
type searchResult struct {
	// tiedBest holds every solution tied at the best level, up to
	// maxTiedSolutions. The caller re-ranks these with full row
	// context (dates, evidence fields) via pickBestSolution.
	tiedBest []([]int)
	// numEquivalentSolutions is the true tied count, which may exceed
	// len(tiedBest) once the cap is hit. Diagnostics only — callers
	// re-derive the count that matters via pickBestSolution.
	numEquivalentSolutions int
	nodesVisited           int
	nodesPruned            int
	capHit                 bool
}

func (r searchResult) best() []int {
	if len(r.tiedBest) == 0 {
		return nil
	}
	return r.tiedBest[0]
}

// subsetSumSearch performs a bounded depth-first search over amounts for
// subsets summing to target within tolerance, capped at maxGroupSize
// members and maxNodes visited DFS nodes. Node accounting, the cap
// check, and solution-candidacy are evaluated in a fixed order on every
// visit — that order is itself part of the contract: the resulting
// nodesVisited/nodesPruned/capHit triple is what the caller's
// MatchProof reports, so it must be reproducible across process runs,
// not just "eventually find a correct subset."
func subsetSumSearch(amounts []int64, target, tolerance int64, maxGroupSize, maxNodes int) searchResult {
	var (
		tiedBest      [][]int
		bestDelta     int64 = 1<<63 - 1
		bestLen             = maxGroupSize + 1
		numEquivalent int
		nodesVisited  int
		nodesPruned   int
		capHit        bool
	)

	stack := make([]int, 0, maxGroupSize)

	var dfs func(start int, currentSum int64)
	dfs = func(start int, currentSum int64) {
		if capHit {
			return
		}

		nodesVisited++
		if nodesVisited >= maxNodes {
			capHit = true
			return
		}

		delta := currentSum - target
		if delta < 0 {
			delta = -delta
		}
		if delta <= tolerance && len(stack) > 0 {
			switch {
			case delta < bestDelta || (delta == bestDelta && len(stack) < bestLen):
				tiedBest = tiedBest[:0]
				tiedBest = append(tiedBest, append([]int(nil), stack...))
				bestDelta = delta
				bestLen = len(stack)
				numEquivalent = 1
			case delta == bestDelta && len(stack) == bestLen:
				numEquivalent++
				if len(tiedBest) < maxTiedSolutions {
					tiedBest = append(tiedBest, append([]int(nil), stack...))
				}
			}
		}

		if len(stack) >= maxGroupSize {
			nodesPruned++
			return
		}

		for i := start; i < len(amounts); i++ {
			stack = append(stack, i)
			dfs(i+1, currentSum+amounts[i])
			stack = stack[:len(stack)-1]

			if capHit {
				return
			}
		}
	}

	dfs(0, 0)

	return searchResult{
		tiedBest:               tiedBest,
		numEquivalentSolutions: numEquivalent,
		nodesVisited:           nodesVisited,
		nodesPruned:            nodesPruned,
		capHit:                 capHit,
	}
}
