package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/finance-reconciler/internal/application/service"
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/events"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

func testTransfer(id, account, amount string, d int) matcher.Transaction {
	return matcher.Transaction{
		ID:          id,
		Date:        time.Date(2024, time.May, d, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Account:     account,
		Description: "Transfer " + id,
		Type:        matcher.TransactionTypeTransfer,
	}
}

func newTestApp(t *testing.T, transactions ...matcher.Transaction) (*App, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	repo.AddTransactions(transactions...)

	cfg := config.LoadFromEnv()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := newApp(cfg, repo, events.NopPublisher{}, logger)
	require.NoError(t, err)
	return app, repo
}

func TestParseReconcileFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		flags, err := parseReconcileFlags(flag.NewFlagSet("test", flag.ContinueOnError), nil)

		require.NoError(t, err)
		assert.False(t, flags.Apply)
		assert.Equal(t, "", flags.Flavor)
		assert.Equal(t, -1, flags.MaxDays)

		flavors, err := flags.Flavors()
		require.NoError(t, err)
		assert.Equal(t, matcher.AllFlavors, flavors)
	})

	t.Run("overrides", func(t *testing.T) {
		args := []string{"-flavor", "Transfer", "-apply", "-min-confidence", "0.95", "-max-days", "2", "-tolerance", "0.01"}

		flags, err := parseReconcileFlags(flag.NewFlagSet("test", flag.ContinueOnError), args)

		require.NoError(t, err)
		assert.True(t, flags.Apply)
		assert.Equal(t, 0.95, flags.MinConfidence)

		flavors, err := flags.Flavors()
		require.NoError(t, err)
		assert.Equal(t, []matcher.Flavor{matcher.FlavorTransfer}, flavors)

		profile := flags.Profile(matcher.DefaultConfig(matcher.FlavorTransfer))
		assert.Equal(t, 2, profile.MaxDaysDifference)
		assert.Equal(t, 0.01, profile.TolerancePercentage)
		assert.Equal(t, 0.9, profile.AutoApplyConfidence)
	})

	t.Run("rejects confidence outside [0,1]", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)

		_, err := parseReconcileFlags(fs, []string{"-min-confidence", "1.5"})

		assert.Error(t, err)
	})

	t.Run("unknown flavor", func(t *testing.T) {
		flags := ReconcileFlags{Flavor: "refund"}

		_, err := flags.Flavors()

		assert.ErrorIs(t, err, matcher.ErrUnknownFlavor)
	})
}

func TestRunReconcile_DryRun(t *testing.T) {
	// Arrange
	app, repo := newTestApp(t,
		testTransfer("out", "checking", "-500.00", 3),
		testTransfer("in", "savings", "500.00", 4),
	)
	var out bytes.Buffer

	// Act
	runs, err := RunReconcile(context.Background(), app, ReconcileFlags{Flavor: "transfer", MaxDays: -1, Tolerance: -1}, &out)

	// Assert
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Len(t, runs[0].Proposed, 1)
	assert.Nil(t, runs[0].Result)
	assert.Equal(t, 0, repo.MatchCount())
	assert.Contains(t, out.String(), "DRY-RUN")
	assert.Contains(t, out.String(), "out")
	assert.Contains(t, out.String(), "Unmatched=2")
}

func TestRunReconcile_Apply(t *testing.T) {
	t.Run("applies proposals above the threshold", func(t *testing.T) {
		// Arrange
		app, repo := newTestApp(t,
			testTransfer("out", "checking", "-500.00", 3),
			testTransfer("in", "savings", "500.00", 4),
		)
		var out bytes.Buffer
		flags := ReconcileFlags{Flavor: "transfer", Apply: true, MinConfidence: 0.9, MaxDays: -1, Tolerance: -1}

		// Act
		runs, err := RunReconcile(context.Background(), app, flags, &out)

		// Assert
		require.NoError(t, err)
		require.NotNil(t, runs[0].Result)
		assert.Equal(t, 1, runs[0].Result.Count(service.OutcomeApplied))
		assert.Equal(t, 1, repo.MatchCount())
		assert.Contains(t, out.String(), "Applied=1")
	})

	t.Run("leaves proposals below the threshold", func(t *testing.T) {
		// Arrange - one day apart scores 0.93
		app, repo := newTestApp(t,
			testTransfer("out", "checking", "-500.00", 3),
			testTransfer("in", "savings", "500.00", 4),
		)
		flags := ReconcileFlags{Flavor: "transfer", Apply: true, MinConfidence: 0.95, MaxDays: -1, Tolerance: -1}

		// Act
		runs, err := RunReconcile(context.Background(), app, flags, io.Discard)

		// Assert
		require.NoError(t, err)
		assert.Len(t, runs[0].Proposed, 1)
		assert.Empty(t, runs[0].Result.Results)
		assert.Equal(t, 0, repo.MatchCount())
	})

	t.Run("snapshot load failure", func(t *testing.T) {
		app, repo := newTestApp(t)
		repo.GetAllTransactionsErr = errors.New("database locked")

		_, err := RunReconcile(context.Background(), app, ReconcileFlags{MaxDays: -1, Tolerance: -1}, io.Discard)

		assert.ErrorContains(t, err, "database locked")
	})
}

type fakeServer struct {
	started  chan struct{}
	stop     chan struct{}
	startErr error
	shutdown atomic.Bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}), stop: make(chan struct{})}
}

func (f *fakeServer) Start() error {
	close(f.started)
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stop
	return nil
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	if f.shutdown.CompareAndSwap(false, true) {
		close(f.stop)
	}
	return nil
}

func TestServe(t *testing.T) {
	t.Run("shuts down when the context is cancelled", func(t *testing.T) {
		app, _ := newTestApp(t)
		srv := newFakeServer()
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- serve(ctx, srv, app) }()

		<-srv.started
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
			assert.True(t, srv.shutdown.Load())
		case <-time.After(5 * time.Second):
			t.Fatal("serve did not return after cancel")
		}
	})

	t.Run("returns start errors", func(t *testing.T) {
		app, _ := newTestApp(t)
		srv := newFakeServer()
		srv.startErr = errors.New("address already in use")

		err := serve(context.Background(), srv, app)

		assert.ErrorContains(t, err, "address already in use")
		assert.True(t, srv.shutdown.Load())
	})
}
