package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/events"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

// Outcome is what happened to one candidate during ApplyMatches
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped" // Already matched to each other
	OutcomeFailed  Outcome = "failed"
)

// PairResult is the outcome for one candidate
type PairResult struct {
	Candidate matcher.MatchCandidate
	Outcome   Outcome
	Match     *matcher.Match // Set when applied
	Err       error          // Set when failed
}

// ApplyResult holds the updated snapshot and one result per candidate,
// in the order the candidates were given.
type ApplyResult struct {
	Transactions []matcher.Transaction
	Results      []PairResult
}

// Count returns how many pairs ended with the given outcome
func (r *ApplyResult) Count(outcome Outcome) int {
	n := 0
	for _, pr := range r.Results {
		if pr.Outcome == outcome {
			n++
		}
	}
	return n
}

// ApplyMatches persists the given candidates.
//
// Each pair is handled on its own: a failure on one pair never prevents
// the others, and a pair whose second write fails has its first write
// rolled back. Every pair is scored again under its flavor's configured
// profile; the stored confidence and reasoning come from that score, not
// from the candidate. Reapplying an already applied pair is a no-op
// reported as OutcomeSkipped. The input slice is not modified.
func (s *ReconciliationService) ApplyMatches(ctx context.Context, transactions []matcher.Transaction, candidates []matcher.MatchCandidate) (*ApplyResult, error) {
	return s.applyMatches(ctx, transactions, candidates, s.Profile)
}

// ApplyMatchesWithProfile is ApplyMatches with cfg standing in for the
// configured profile of flavor, for candidates found under an override.
func (s *ReconciliationService) ApplyMatchesWithProfile(ctx context.Context, transactions []matcher.Transaction, candidates []matcher.MatchCandidate, flavor matcher.Flavor, cfg matcher.Config) (*ApplyResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return s.applyMatches(ctx, transactions, candidates, func(f matcher.Flavor) matcher.Config {
		if f == flavor {
			return cfg
		}
		return s.Profile(f)
	})
}

func (s *ReconciliationService) applyMatches(ctx context.Context, transactions []matcher.Transaction, candidates []matcher.MatchCandidate, profile func(matcher.Flavor) matcher.Config) (*ApplyResult, error) {
	if s.store == nil || s.ledger == nil {
		return nil, ErrNoStore
	}

	snapshot := make([]matcher.Transaction, len(transactions))
	copy(snapshot, transactions)
	index := indexByID(snapshot)

	result := &ApplyResult{Results: make([]PairResult, 0, len(candidates))}
	for _, c := range candidates {
		pr := s.applyOne(ctx, snapshot, index, c, profile(c.Flavor))
		if pr.Outcome == OutcomeFailed {
			s.logger.Warn("match not applied",
				"flavor", c.Flavor,
				"source", c.SourceID,
				"target", c.TargetID,
				"error", pr.Err,
			)
		}
		result.Results = append(result.Results, pr)
	}
	result.Transactions = snapshot

	s.logger.Info("apply complete",
		"applied", result.Count(OutcomeApplied),
		"skipped", result.Count(OutcomeSkipped),
		"failed", result.Count(OutcomeFailed),
	)
	return result, nil
}

func (s *ReconciliationService) applyOne(ctx context.Context, snapshot []matcher.Transaction, index map[string]int, c matcher.MatchCandidate, cfg matcher.Config) PairResult {
	failed := func(err error) PairResult {
		return PairResult{Candidate: c, Outcome: OutcomeFailed, Err: err}
	}

	strategy, err := matcher.StrategyFor(c.Flavor)
	if err != nil {
		return failed(fmt.Errorf("%w: %q", err, c.Flavor))
	}
	if c.SourceID == c.TargetID {
		return failed(fmt.Errorf("%w: %s cannot match itself", matcher.ErrInvariantViolation, c.SourceID))
	}
	si, ok := index[c.SourceID]
	if !ok {
		return failed(fmt.Errorf("%w: %s", ErrTransactionNotFound, c.SourceID))
	}
	ti, ok := index[c.TargetID]
	if !ok {
		return failed(fmt.Errorf("%w: %s", ErrTransactionNotFound, c.TargetID))
	}

	unlock := s.lockFlavor(c.Flavor)
	defer unlock()

	source, target := snapshot[si], snapshot[ti]
	sourceRef, targetRef := source.Reconciliation.Ref(c.Flavor), target.Reconciliation.Ref(c.Flavor)

	if matchedTogether(source, target, sourceRef, targetRef) {
		return PairResult{Candidate: c, Outcome: OutcomeSkipped}
	}
	if sourceRef != nil {
		return failed(fmt.Errorf("%w: %s is in %s match %s", matcher.ErrInvariantViolation, source.ID, c.Flavor, sourceRef.MatchID))
	}
	if targetRef != nil {
		return failed(fmt.Errorf("%w: %s is in %s match %s", matcher.ErrInvariantViolation, target.ID, c.Flavor, targetRef.MatchID))
	}
	if !strategy.Eligible(source, target) && !strategy.Eligible(target, source) {
		return failed(fmt.Errorf("%w: %s and %s for %s", ErrIneligiblePair, source.ID, target.ID, c.Flavor))
	}

	scored, err := s.matcher.Rescore(source, target, c.Flavor, cfg)
	if err != nil {
		return failed(fmt.Errorf("%s and %s: %w", source.ID, target.ID, err))
	}
	if scored == nil {
		return failed(fmt.Errorf("%w: %s and %s are outside the %s tolerance profile",
			ErrIneligiblePair, source.ID, target.ID, c.Flavor))
	}
	if scored.SourceID != source.ID {
		source, target = target, source
		si, ti = ti, si
	}
	c = *scored

	match := matcher.NewMatch(c, s.now())
	note := fmt.Sprintf("%s match applied: %s", c.Flavor.Title(), c.Reasoning)

	updatedSource, err := s.store.UpdateTransaction(ctx,
		storage.SetAnnotation(source.ID, c.Flavor, match.SourceRef()), note)
	if err != nil {
		return failed(&PersistenceError{TransactionID: source.ID, Op: "update source", Err: err})
	}
	written := []storage.TransactionUpdate{storage.ClearAnnotation(source.ID, c.Flavor, match.ID)}

	updatedTarget, err := s.store.UpdateTransaction(ctx,
		storage.SetAnnotation(target.ID, c.Flavor, match.TargetRef()), note)
	if err != nil {
		return failed(&PersistenceError{
			TransactionID: target.ID,
			Op:            "update target",
			Err:           err,
			RollbackErr:   s.rollback(ctx, c.Flavor, written),
		})
	}
	written = append(written, storage.ClearAnnotation(target.ID, c.Flavor, match.ID))

	if err := s.ledger.SaveMatch(ctx, match); err != nil {
		return failed(&PersistenceError{
			Op:          "save match",
			Err:         err,
			RollbackErr: s.rollback(ctx, c.Flavor, written),
		})
	}

	snapshot[si] = *updatedSource
	snapshot[ti] = *updatedTarget

	s.logger.Info("match applied",
		"match_id", match.ID,
		"flavor", c.Flavor,
		"source", source.ID,
		"target", target.ID,
		"confidence", c.Confidence,
	)
	s.publish(ctx, events.EventMatchApplied, match)

	return PairResult{Candidate: c, Outcome: OutcomeApplied, Match: match}
}

// matchedTogether reports whether source and target already reference each
// other through the same match
func matchedTogether(source, target matcher.Transaction, sourceRef, targetRef *matcher.MatchRef) bool {
	return sourceRef != nil && targetRef != nil &&
		sourceRef.MatchID == targetRef.MatchID &&
		sourceRef.CounterpartID == target.ID &&
		targetRef.CounterpartID == source.ID
}

// Unmatch reverses an applied match and returns the updated snapshot.
//
// An unknown or already unmatched id is not an error: the input is
// returned unchanged. On a store failure the sides already cleared are
// restored and the input is returned unchanged with the error.
func (s *ReconciliationService) Unmatch(ctx context.Context, transactions []matcher.Transaction, matchID string) ([]matcher.Transaction, error) {
	if s.store == nil || s.ledger == nil {
		return transactions, ErrNoStore
	}

	match, err := s.ledger.GetMatch(ctx, matchID)
	if err != nil {
		return transactions, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	if match == nil || !match.Active() {
		s.logger.Debug("nothing to unmatch", "match_id", matchID)
		return transactions, nil
	}

	unlock := s.lockFlavor(match.Flavor)
	defer unlock()

	snapshot := make([]matcher.Transaction, len(transactions))
	copy(snapshot, transactions)
	index := indexByID(snapshot)
	note := fmt.Sprintf("%s match removed", match.Flavor.Title())

	var restores []storage.TransactionUpdate
	sides := []struct {
		id  string
		ref *matcher.MatchRef
	}{
		{match.SourceID, match.SourceRef()},
		{match.TargetID, match.TargetRef()},
	}

	for _, side := range sides {
		i, inSnapshot := index[side.id]
		if inSnapshot {
			ref := snapshot[i].Reconciliation.Ref(match.Flavor)
			if ref == nil || ref.MatchID != match.ID {
				continue
			}
		}

		updated, err := s.store.UpdateTransaction(ctx,
			storage.ClearAnnotation(side.id, match.Flavor, match.ID), note)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return transactions, &PersistenceError{
				TransactionID: side.id,
				Op:            "clear annotation",
				Err:           err,
				RollbackErr:   s.rollback(ctx, match.Flavor, restores),
			}
		}
		restores = append(restores, storage.SetAnnotation(side.id, match.Flavor, side.ref))
		if inSnapshot {
			snapshot[i] = *updated
		}
	}

	if err := s.ledger.UpdateMatchStatus(ctx, match.ID, matcher.MatchStatusUnmatched); err != nil {
		return transactions, &PersistenceError{
			Op:          "update match status",
			Err:         err,
			RollbackErr: s.rollback(ctx, match.Flavor, restores),
		}
	}
	match.Status = matcher.MatchStatusUnmatched
	match.UpdatedAt = s.now()

	s.logger.Info("match removed",
		"match_id", match.ID,
		"flavor", match.Flavor,
		"source", match.SourceID,
		"target", match.TargetID,
	)
	s.publish(ctx, events.EventMatchUnmatched, match)

	return snapshot, nil
}

// rollback undoes updates in reverse order, even after ctx is cancelled
func (s *ReconciliationService) rollback(ctx context.Context, flavor matcher.Flavor, updates []storage.TransactionUpdate) error {
	ctx = context.WithoutCancel(ctx)
	note := fmt.Sprintf("%s match rolled back", flavor.Title())

	var errs []error
	for i := len(updates) - 1; i >= 0; i-- {
		if _, err := s.store.UpdateTransaction(ctx, updates[i], note); err != nil {
			s.logger.Error("rollback failed",
				"transaction_id", updates[i].ID,
				"flavor", flavor,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", updates[i].ID, err))
		}
	}
	return errors.Join(errs...)
}
