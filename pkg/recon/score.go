package recon

import (
	"sort"
	"strings"

	"github.com/rawblock/ledgerrecon/pkg/models"
)

// maxTiedSolutions bounds how many tied-best index sets the bounded DFS
// collects per search before it stops appending (it keeps counting past
// this point, but stops retaining the individual candidates). See
// models.MaxTiedSolutions.
const maxTiedSolutions = models.MaxTiedSolutions

// solutionScore is the full tie-break tuple used to re-rank solutions
// that the DFS found equally good on (delta, group size) alone. Lower
// is better, compared field by field in the order declared here.
type solutionScore struct {
	totalRecords     int
	dateSpanDays     int64
	sumDateDistance  int64
	negEvidenceScore int64 // negated so that "lower score" means "more evidence"
	lexIDs           string
}

// less implements the lexicographic field-by-field comparison the
// tied-solution ranking depends on.
func (s solutionScore) less(o solutionScore) bool {
	if s.totalRecords != o.totalRecords {
		return s.totalRecords < o.totalRecords
	}
	if s.dateSpanDays != o.dateSpanDays {
		return s.dateSpanDays < o.dateSpanDays
	}
	if s.sumDateDistance != o.sumDateDistance {
		return s.sumDateDistance < o.sumDateDistance
	}
	if s.negEvidenceScore != o.negEvidenceScore {
		return s.negEvidenceScore < o.negEvidenceScore
	}
	return s.lexIDs < o.lexIDs
}

// equivalentIgnoringIDs reports whether two scores match on every field
// except lexIDs — the final deterministic tiebreak. If lexIDs is needed
// to separate two solutions, they are operationally ambiguous: nothing
// about the rows themselves distinguishes one choice from the other.
func (s solutionScore) equivalentIgnoringIDs(o solutionScore) bool {
	return s.totalRecords == o.totalRecords &&
		s.dateSpanDays == o.dateSpanDays &&
		s.sumDateDistance == o.sumDateDistance &&
		s.negEvidenceScore == o.negEvidenceScore
}

// scoreFromRows scores one candidate subset against the fixed rows on
// the other side of a match.
func scoreFromRows(candidateRows, targetRows []models.Row, evidenceFields []string) solutionScore {
	totalRecords := len(candidateRows) + len(targetRows)

	allDates := make([]int64, 0, totalRecords)
	for _, r := range candidateRows {
		allDates = append(allDates, r.Date.Unix())
	}
	for _, r := range targetRows {
		allDates = append(allDates, r.Date.Unix())
	}

	var dateSpanDays, sumDateDistance int64
	if len(allDates) > 0 {
		minDate, maxDate := allDates[0], allDates[0]
		for _, d := range allDates[1:] {
			if d < minDate {
				minDate = d
			}
			if d > maxDate {
				maxDate = d
			}
		}
		if len(allDates) >= 2 {
			dateSpanDays = (maxDate - minDate) / 86400
		}
		for _, d := range allDates {
			sumDateDistance += (d - minDate) / 86400
		}
	}

	evidenceScore := computeEvidenceScore(candidateRows, targetRows, evidenceFields)

	ids := make([]string, 0, totalRecords)
	for _, r := range candidateRows {
		ids = append(ids, r.RecordID)
	}
	for _, r := range targetRows {
		ids = append(ids, r.RecordID)
	}
	sort.Strings(ids)

	return solutionScore{
		totalRecords:     totalRecords,
		dateSpanDays:     dateSpanDays,
		sumDateDistance:  sumDateDistance,
		negEvidenceScore: -int64(evidenceScore),
		lexIDs:           strings.Join(ids, ","),
	}
}

// computeEvidenceScore counts matching tokens in evidenceFields between
// two row groups — e.g. an identical invoice number or memo value that
// corroborates a match beyond amount and date alone. Only exact,
// non-empty value equality counts; substrings do not.
func computeEvidenceScore(left, right []models.Row, evidenceFields []string) int {
	if len(evidenceFields) == 0 {
		return 0
	}
	score := 0
	for _, field := range evidenceFields {
		var leftTokens, rightTokens []string
		for _, r := range left {
			if v, ok := r.RawFields[field]; ok && v != "" {
				leftTokens = append(leftTokens, v)
			}
		}
		for _, r := range right {
			if v, ok := r.RawFields[field]; ok && v != "" {
				rightTokens = append(rightTokens, v)
			}
		}
		for _, lt := range leftTokens {
			for _, rt := range rightTokens {
				if lt == rt {
					score++
				}
			}
		}
	}
	return score
}

// pickBestSolution re-ranks DFS tied-best index sets (into candidates)
// using the full score tuple against the fixed targets on the other
// side, and reports how many of the tied candidates are operationally
// equivalent to the winner.
func pickBestSolution(tied [][]int, candidates, targets []models.Row, evidenceFields []string) ([]int, int) {
	if len(tied) <= 1 {
		if len(tied) == 0 {
			return nil, 0
		}
		return tied[0], len(tied)
	}

	type scored struct {
		score   solutionScore
		indices []int
	}
	all := make([]scored, 0, len(tied))
	for _, indices := range tied {
		rows := make([]models.Row, len(indices))
		for i, idx := range indices {
			rows[i] = candidates[idx]
		}
		all = append(all, scored{score: scoreFromRows(rows, targets, evidenceFields), indices: indices})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score.less(all[j].score) })

	best := all[0].score
	numEquivalent := 0
	for _, s := range all {
		if best.equivalentIgnoringIDs(s.score) {
			numEquivalent++
		}
	}
	return all[0].indices, numEquivalent
}

// pickBestKkSolution is pickBestSolution's analogue for the k:k pass,
// where each tied candidate is a (left indices, right indices) pair
// rather than a single index set.
func pickBestKkSolution(tied []kkCandidate, leftRows, rightRows []models.Row, evidenceFields []string) ([]int, []int, int) {
	if len(tied) <= 1 {
		if len(tied) == 0 {
			return nil, nil, 0
		}
		return tied[0].left, tied[0].right, len(tied)
	}

	type scored struct {
		score solutionScore
		idx   int
	}
	all := make([]scored, 0, len(tied))
	for i, c := range tied {
		l := make([]models.Row, len(c.left))
		for j, idx := range c.left {
			l[j] = leftRows[idx]
		}
		r := make([]models.Row, len(c.right))
		for j, idx := range c.right {
			r[j] = rightRows[idx]
		}
		all = append(all, scored{score: scoreFromRows(l, r, evidenceFields), idx: i})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score.less(all[j].score) })

	best := all[0].score
	numEquivalent := 0
	for _, s := range all {
		if best.equivalentIgnoringIDs(s.score) {
			numEquivalent++
		}
	}
	winner := tied[all[0].idx]
	return winner.left, winner.right, numEquivalent
}
