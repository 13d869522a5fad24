package matcher

import "sort"

// Rank orders candidates by confidence (desc), date gap (asc), source ID
// and target ID (asc). The order is total, so ties never depend on input order.
func Rank(candidates []MatchCandidate) []MatchCandidate {
	ranked := make([]MatchCandidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.DateDifferenceDays != b.DateDifferenceDays {
			return a.DateDifferenceDays < b.DateDifferenceDays
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.TargetID < b.TargetID
	})
	return ranked
}

// Resolve picks a conflict-free subset of candidates.
//
// Greedy maximum-weight matching: walk the ranked list and accept a
// candidate only if neither of its transactions was taken by an earlier
// acceptance. The result keeps the ranked order.
func Resolve(candidates []MatchCandidate) []MatchCandidate {
	used := make(map[string]bool)
	accepted := make([]MatchCandidate, 0, len(candidates))

	for _, c := range Rank(candidates) {
		if used[c.SourceID] || used[c.TargetID] {
			continue
		}
		used[c.SourceID] = true
		used[c.TargetID] = true
		accepted = append(accepted, c)
	}

	return accepted
}
