package core

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/gorm"

	nativecommon "jokeledger/native/common"
	"jokeledger/native/jokes"
	"jokeledger/storage"
	"jokeledger/storage/journal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	author = [20]byte{0x01}
	voter1 = [20]byte{0x02}
	voter2 = [20]byte{0x03}
	buyer  = [20]byte{0x05}
)

type fixture struct {
	ledger  *Ledger
	db      *storage.MemDB
	journal *journal.Journal
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	j, err := journal.New(gdb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	db := storage.NewMemDB()
	t.Cleanup(db.Close)

	f := &fixture{db: db, journal: j, now: time.Unix(1_000, 0)}
	ledger, err := NewLedger(db, Options{
		Clock:   func() time.Time { return f.now },
		Journal: j,
	})
	require.NoError(t, err)
	t.Cleanup(ledger.Feed().Close)
	f.ledger = ledger
	return f
}

func (f *fixture) approve(t *testing.T, name string) uint64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.ledger.Submit(ctx, author, name, "content "+name, "ref/"+name)
	require.NoError(t, err)
	_, err = f.ledger.VotePending(ctx, id, voter1)
	require.NoError(t, err)
	_, err = f.ledger.VotePending(ctx, id, voter2)
	require.NoError(t, err)
	res, err := f.ledger.Finalize(ctx, id)
	require.NoError(t, err)
	require.Equal(t, jokes.OutcomeApproved, res.Outcome)
	return id
}

func TestLedgerCommitsAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	live, cancel, backlog := f.ledger.Feed().Subscribe(ctx, "")
	defer cancel()
	require.Empty(t, backlog)

	id := f.approve(t, "J1")

	joke, err := f.ledger.Joke(ctx, id)
	require.NoError(t, err)
	require.Equal(t, author, joke.Owner)
	require.Equal(t, jokes.TierBasic, joke.Tier)
	require.Zero(t, joke.Value.Sign())

	want := []string{
		jokes.EventTypeSubmissionCreated,
		jokes.EventTypeUserCountChanged,
		jokes.EventTypePendingVoted,
		jokes.EventTypePendingVoted,
		jokes.EventTypeVotingFinalized,
	}
	for i, typ := range want {
		rec := <-live
		require.EqualValues(t, i+1, rec.Sequence)
		require.Equal(t, typ, rec.Event.Type)
		require.Equal(t, f.now.Unix(), rec.Timestamp)
	}

	entries, err := f.journal.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, len(want))
	for i, entry := range entries {
		require.Equal(t, want[i], entry.Type)
	}
	require.NoError(t, f.journal.Verify(ctx))
}

func TestLedgerFailedOperationLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.approve(t, "J1")

	_, err := f.ledger.Credit(ctx, buyer, big.NewInt(1_000))
	require.NoError(t, err)
	require.NoError(t, f.ledger.ListForSale(ctx, id, author, big.NewInt(500)))

	seq := f.ledger.Feed().Sequence()
	head, _ := f.journal.Head()

	// Underpaying fails after nothing has been written.
	err = f.ledger.Buy(ctx, id, buyer, big.NewInt(100))
	require.ErrorIs(t, err, jokes.ErrInsufficientPayment)

	// Paying more than the balance fails after the checks pass.
	err = f.ledger.Buy(ctx, id, buyer, big.NewInt(2_000))
	require.ErrorIs(t, err, jokes.ErrInsufficientFunds)

	require.Equal(t, seq, f.ledger.Feed().Sequence())
	after, _ := f.journal.Head()
	require.Equal(t, head, after)

	owner, err := f.ledger.OwnerOf(ctx, id)
	require.NoError(t, err)
	require.Equal(t, author, owner)
	balance, err := f.ledger.BalanceOf(ctx, buyer)
	require.NoError(t, err)
	require.EqualValues(t, 1_000, balance.Int64())
	count, err := f.ledger.UserJokeCount(ctx, buyer)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestLedgerBuyMovesFundsAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.approve(t, "J1")
	_, err := f.ledger.Credit(ctx, buyer, big.NewInt(1_000))
	require.NoError(t, err)
	require.NoError(t, f.ledger.ListForSale(ctx, id, author, big.NewInt(500)))

	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.ledger.Buy(ctx, id, buyer, big.NewInt(500)))

	summary, err := f.ledger.Account(ctx, buyer)
	require.NoError(t, err)
	require.EqualValues(t, 500, summary.Balance.Int64())
	require.EqualValues(t, 1, summary.JokeCount)
	require.Len(t, summary.Owned, 1)
	require.Equal(t, id, summary.Owned[0].ID)
	require.EqualValues(t, f.now.Unix(), summary.Owned[0].LastTransferAt)

	seller, err := f.ledger.Account(ctx, author)
	require.NoError(t, err)
	require.EqualValues(t, 500, seller.Balance.Int64())
	require.Zero(t, seller.JokeCount)

	listed, err := f.ledger.ListedJokes(ctx)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestLedgerQueriesTrackLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.ledger.Submit(ctx, author, "J1", "C1", "ref1")
	require.NoError(t, err)
	pending, err := f.ledger.PendingJokes(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	total, err := f.ledger.TotalPending(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	_, err = f.ledger.VotePending(ctx, id, voter1)
	require.NoError(t, err)
	voted, err := f.ledger.HasVoted(ctx, id, voter1)
	require.NoError(t, err)
	require.True(t, voted)

	_, err = f.ledger.Finalize(ctx, id)
	require.ErrorIs(t, err, jokes.ErrVotingStillOpen)

	f.now = f.now.Add(2 * time.Hour)
	res, err := f.ledger.Finalize(ctx, id)
	require.NoError(t, err)
	require.Equal(t, jokes.OutcomeRejected, res.Outcome)

	tomb, err := f.ledger.PendingJoke(ctx, id)
	require.NoError(t, err)
	require.Equal(t, jokes.PendingTombstoned, tomb.Status)

	stats, err := f.ledger.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Rejected)
	require.Zero(t, stats.Pending)
	approved, err := f.ledger.TotalApproved(ctx)
	require.NoError(t, err)
	require.Zero(t, approved)
}

func TestLedgerGenesisAppliesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	allocations := map[[20]byte]*big.Int{
		buyer:  big.NewInt(1_000),
		voter1: big.NewInt(250),
	}

	applied, err := f.ledger.ApplyGenesis(ctx, allocations)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = f.ledger.ApplyGenesis(ctx, allocations)
	require.NoError(t, err)
	require.False(t, applied)

	balance, err := f.ledger.BalanceOf(ctx, buyer)
	require.NoError(t, err)
	require.EqualValues(t, 1_000, balance.Int64())
	balance, err = f.ledger.BalanceOf(ctx, voter1)
	require.NoError(t, err)
	require.EqualValues(t, 250, balance.Int64())

	entries, err := f.journal.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Allocations are applied in address order.
	first, err := entries[0].Event()
	require.NoError(t, err)
	require.Equal(t, jokes.FormatAddress(voter1), first.Attr("account"))
}

func TestLedgerPauseBlocksMutationsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.approve(t, "J1")

	f.ledger.SetPaused(true)
	require.True(t, f.ledger.Paused())

	_, err := f.ledger.Submit(ctx, author, "J2", "C2", "ref2")
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	require.Equal(t, jokes.CodeModulePaused, jokes.Code(err))

	joke, err := f.ledger.Joke(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "J1", joke.Name)

	f.ledger.SetPaused(false)
	_, err = f.ledger.Submit(ctx, author, "J2", "C2", "ref2")
	require.NoError(t, err)
}

func TestLedgerRejectsCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.ledger.Submit(ctx, author, "J1", "C1", "ref1")
	require.ErrorIs(t, err, context.Canceled)
	_, err = f.ledger.PendingJokes(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, f.ledger.Feed().Sequence())
}

func TestNewLedgerValidatesParams(t *testing.T) {
	params := jokes.DefaultParams()
	params.ApprovalThreshold = 0
	_, err := NewLedger(storage.NewMemDB(), Options{Params: &params})
	require.Error(t, err)

	_, err = NewLedger(nil, Options{})
	require.Error(t, err)
}
