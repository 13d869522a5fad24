package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func candidate(source, target string, confidence float64, days int) MatchCandidate {
	return MatchCandidate{
		SourceID:           source,
		TargetID:           target,
		Flavor:             FlavorReimbursement,
		Confidence:         confidence,
		DateDifferenceDays: days,
	}
}

func TestResolve_HigherConfidenceWins(t *testing.T) {
	// Arrange - both candidates want the same source
	candidates := []MatchCandidate{
		candidate("exp", "r-low", 0.6, 1),
		candidate("exp", "r-high", 0.9, 4),
	}

	// Act
	accepted := Resolve(candidates)

	// Assert
	if assert.Len(t, accepted, 1) {
		assert.Equal(t, "r-high", accepted[0].TargetID)
	}
}

func TestResolve_TieBreaks(t *testing.T) {
	t.Run("closer date wins on equal confidence", func(t *testing.T) {
		accepted := Resolve([]MatchCandidate{
			candidate("a", "far", 0.8, 6),
			candidate("a", "near", 0.8, 2),
		})
		assert.Equal(t, "near", accepted[0].TargetID)
	})

	t.Run("source ID breaks remaining ties", func(t *testing.T) {
		accepted := Resolve([]MatchCandidate{
			candidate("b", "t", 0.8, 1),
			candidate("a", "t", 0.8, 1),
		})
		assert.Len(t, accepted, 1)
		assert.Equal(t, "a", accepted[0].SourceID)
	})
}

func TestResolve_Disjoint(t *testing.T) {
	// Arrange - a chain where every transaction appears in two candidates
	candidates := []MatchCandidate{
		candidate("t1", "t2", 0.9, 0),
		candidate("t2", "t3", 0.95, 0),
		candidate("t3", "t4", 0.7, 0),
		candidate("t4", "t5", 0.6, 0),
		candidate("t1", "t5", 0.5, 0),
	}

	// Act
	accepted := Resolve(candidates)

	// Assert
	seen := make(map[string]bool)
	for _, c := range accepted {
		assert.False(t, seen[c.SourceID], "source %s reused", c.SourceID)
		assert.False(t, seen[c.TargetID], "target %s reused", c.TargetID)
		seen[c.SourceID] = true
		seen[c.TargetID] = true
	}
	assert.Equal(t, []MatchCandidate{
		candidate("t2", "t3", 0.95, 0),
		candidate("t4", "t5", 0.6, 0),
	}, accepted)
}

func TestResolve_OrderIndependent(t *testing.T) {
	candidates := []MatchCandidate{
		candidate("a", "x", 0.7, 3),
		candidate("b", "x", 0.7, 3),
		candidate("a", "y", 0.7, 3),
		candidate("c", "z", 0.4, 1),
	}
	reversed := []MatchCandidate{candidates[3], candidates[2], candidates[1], candidates[0]}

	assert.Equal(t, Resolve(candidates), Resolve(reversed))
}

func TestResolve_Empty(t *testing.T) {
	assert.Empty(t, Resolve(nil))
}
