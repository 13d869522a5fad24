package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/events"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

// Options configures a ReconciliationService. Every field is optional.
type Options struct {
	BaseCurrency string                            // Defaults to USD
	Converter    matcher.CurrencyConverter         // nil disables cross-currency matching
	Profiles     map[matcher.Flavor]matcher.Config // Missing flavors use matcher.DefaultConfig
	Publisher    events.Publisher
	Logger       *slog.Logger
	Now          func() time.Time
}

// ReconciliationService finds, applies and removes matches.
//
// Callers pass a snapshot of transactions in and get an updated snapshot
// back; the service keeps no transaction state of its own. Writes go
// through the store, one transaction at a time, and are compensated on
// failure so a pair is either fully applied or not at all.
type ReconciliationService struct {
	store     storage.TransactionStore
	ledger    matcher.MatchLedger
	matcher   *matcher.Matcher
	profiles  map[matcher.Flavor]matcher.Config
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time

	// Flavor-level locking (one apply/unmatch per flavor at a time)
	flavorLocks map[matcher.Flavor]*sync.Mutex
	locksMutex  sync.Mutex
}

// NewReconciliationService creates a new reconciliation service.
// store and ledger may be nil for read-only use (FindMatches and queries).
func NewReconciliationService(store storage.TransactionStore, ledger matcher.MatchLedger, opts Options) *ReconciliationService {
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = "USD"
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	profiles := make(map[matcher.Flavor]matcher.Config, len(matcher.AllFlavors))
	for _, f := range matcher.AllFlavors {
		profiles[f] = matcher.DefaultConfig(f)
	}
	for f, cfg := range opts.Profiles {
		profiles[f] = cfg
	}

	return &ReconciliationService{
		store:       store,
		ledger:      ledger,
		matcher:     matcher.NewMatcher(opts.BaseCurrency, opts.Converter),
		profiles:    profiles,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		now:         opts.Now,
		flavorLocks: make(map[matcher.Flavor]*sync.Mutex),
	}
}

// Profile returns the configured tolerance profile for a flavor
func (s *ReconciliationService) Profile(flavor matcher.Flavor) matcher.Config {
	if cfg, ok := s.profiles[flavor]; ok {
		return cfg
	}
	return matcher.DefaultConfig(flavor)
}

// Snapshot loads every transaction from the store
func (s *ReconciliationService) Snapshot(ctx context.Context) ([]matcher.Transaction, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetAllTransactions(ctx)
}

// FindMatches returns the conflict-free, ranked set of proposed matches.
// Nothing is written; the same input always yields the same output.
func (s *ReconciliationService) FindMatches(flavor matcher.Flavor, transactions []matcher.Transaction, cfg matcher.Config) ([]matcher.MatchResult, error) {
	gen, err := s.matcher.Generate(transactions, flavor, cfg)
	if err != nil {
		return nil, err
	}

	accepted := matcher.Resolve(gen.Candidates)
	index := indexByID(transactions)

	results := make([]matcher.MatchResult, 0, len(accepted))
	for _, c := range accepted {
		results = append(results, matcher.MatchResult{
			Candidate:         c,
			SourceTransaction: transactions[index[c.SourceID]],
			TargetTransaction: transactions[index[c.TargetID]],
		})
	}

	s.logger.Debug("candidate scan complete",
		"flavor", flavor,
		"transactions", len(transactions),
		"pairs_scanned", gen.Stats.PairsScanned,
		"pairs_eligible", gen.Stats.PairsEligible,
		"candidates", gen.Stats.Candidates,
		"accepted", len(results),
	)
	if gen.Stats.ConversionUnavailable > 0 {
		s.logger.Warn("pairs skipped for missing exchange rates",
			"flavor", flavor,
			"count", gen.Stats.ConversionUnavailable,
		)
	}

	return results, nil
}

// AutoReconcile applies every proposed match at or above the flavor's
// auto-apply confidence. Flavors with auto-apply disabled are left alone.
func (s *ReconciliationService) AutoReconcile(ctx context.Context, flavor matcher.Flavor, transactions []matcher.Transaction) (*ApplyResult, error) {
	cfg := s.Profile(flavor)
	if cfg.AutoApplyConfidence <= 0 {
		s.logger.Debug("auto-apply disabled", "flavor", flavor)
		return &ApplyResult{Transactions: transactions}, nil
	}

	proposed, err := s.FindMatches(flavor, transactions, cfg)
	if err != nil {
		return nil, err
	}

	var confident []matcher.MatchCandidate
	for _, r := range proposed {
		if r.Candidate.Confidence >= cfg.AutoApplyConfidence {
			confident = append(confident, r.Candidate)
		}
	}

	s.logger.Info("auto-reconciling",
		"flavor", flavor,
		"proposed", len(proposed),
		"above_threshold", len(confident),
		"threshold", cfg.AutoApplyConfidence,
	)

	return s.ApplyMatches(ctx, transactions, confident)
}

// lockFlavor serializes writes within one flavor
func (s *ReconciliationService) lockFlavor(flavor matcher.Flavor) func() {
	s.locksMutex.Lock()
	lock, ok := s.flavorLocks[flavor]
	if !ok {
		lock = &sync.Mutex{}
		s.flavorLocks[flavor] = lock
	}
	s.locksMutex.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *ReconciliationService) publish(ctx context.Context, eventType events.EventType, m *matcher.Match) {
	if err := s.publisher.Publish(ctx, events.NewMatchEvent(eventType, m)); err != nil {
		s.logger.Warn("failed to publish match event",
			"type", eventType,
			"match_id", m.ID,
			"error", err,
		)
	}
}

// indexByID maps transaction IDs to their position in the slice
func indexByID(transactions []matcher.Transaction) map[string]int {
	index := make(map[string]int, len(transactions))
	for i, tx := range transactions {
		index[tx.ID] = i
	}
	return index
}
