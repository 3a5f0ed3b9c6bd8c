package core

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jokeledger/core/events"
	"jokeledger/core/state"
	"jokeledger/core/types"
	nativecommon "jokeledger/native/common"
	"jokeledger/native/jokes"
	"jokeledger/observability"
	"jokeledger/observability/metrics"
	telemetry "jokeledger/observability/otel"
	"jokeledger/storage"
	"jokeledger/storage/journal"
)

const moduleJokes = "jokes"

var genesisMarkerKey = []byte("genesis/applied")

// EventJournal durably records committed events.
type EventJournal interface {
	Append(ctx context.Context, evt *types.Event, at time.Time) (*journal.Entry, error)
}

// Options configures a Ledger. Zero values select defaults.
type Options struct {
	Params  *jokes.Params
	Clock   func() time.Time
	Feed    *events.Feed
	Journal EventJournal
	Pauses  *nativecommon.Pauses
	Logger  *slog.Logger
	Metrics *metrics.LedgerMetrics
	Tracer  trace.Tracer
}

// Ledger is the single writer in front of the joke state. Operations run one
// at a time against a write buffer; a failed operation leaves no trace and a
// successful one is committed in a single batch before its events are
// published.
type Ledger struct {
	mu      sync.Mutex
	db      storage.Database
	params  jokes.Params
	clock   func() time.Time
	feed    *events.Feed
	journal EventJournal
	pauses  *nativecommon.Pauses
	logger  *slog.Logger
	metrics *metrics.LedgerMetrics
	tracer  trace.Tracer
}

// NewLedger constructs a ledger over db.
func NewLedger(db storage.Database, opts Options) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: database required")
	}
	params := jokes.DefaultParams()
	if opts.Params != nil {
		params = *opts.Params
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	l := &Ledger{
		db:      db,
		params:  params,
		clock:   opts.Clock,
		feed:    opts.Feed,
		journal: opts.Journal,
		pauses:  opts.Pauses,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.feed == nil {
		l.feed = events.NewFeed(0)
	}
	if l.pauses == nil {
		l.pauses = nativecommon.NewPauses()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.tracer == nil {
		l.tracer = telemetry.Tracer()
	}
	return l, nil
}

// Feed exposes the live event feed.
func (l *Ledger) Feed() *events.Feed { return l.feed }

// Params returns the ledger policy.
func (l *Ledger) Params() jokes.Params { return l.params }

func (l *Ledger) newEngine(st *state.Manager, emitter events.Emitter, now time.Time) *jokes.Engine {
	engine := jokes.NewEngine()
	// Params were validated in NewLedger.
	_ = engine.SetParams(l.params)
	engine.SetState(st)
	engine.SetEmitter(emitter)
	engine.SetPauses(l.pauses)
	unix := now.Unix()
	engine.SetNowFunc(func() int64 { return unix })
	return engine
}

// apply runs fn as one atomic operation.
func (l *Ledger) apply(ctx context.Context, op string, fn func(*jokes.Engine, *state.Manager) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := l.tracer.Start(ctx, "ledger."+op)
	defer span.End()
	started := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	overlay := storage.NewOverlay(l.db)
	mgr := state.NewManager(overlay)
	buffer := &events.Buffer{}
	err := fn(l.newEngine(mgr, buffer, now), mgr)
	if err == nil {
		err = overlay.Commit()
	} else {
		overlay.Discard()
	}

	code := jokes.Code(err)
	l.metrics.ObserveOperation(op, code, time.Since(started))
	if err != nil {
		span.SetAttributes(attribute.String("jokes.code", code))
		span.SetStatus(codes.Error, err.Error())
		if code == jokes.CodeInternal {
			l.logger.Error("ledger operation failed", "operation", op, "error", err)
		}
		return err
	}

	committed := buffer.Events()
	span.SetAttributes(attribute.Int("jokes.events", len(committed)))
	l.publish(ctx, committed, now)
	l.refreshGauges()
	return nil
}

func (l *Ledger) publish(ctx context.Context, committed []events.Event, now time.Time) {
	for _, evt := range committed {
		rendered := events.Render(evt)
		if rendered == nil {
			continue
		}
		l.feed.Publish(rendered, now.Unix())
		observability.Events().Record(rendered)
		if l.journal != nil {
			_, err := l.journal.Append(ctx, rendered, now)
			l.metrics.RecordJournalAppend(err)
			if err != nil {
				l.logger.Error("journal append failed", "type", rendered.Type, "error", err)
			}
		}
	}
	l.metrics.SetFeedDropped(l.feed.Dropped())
}

func (l *Ledger) refreshGauges() {
	if l.metrics == nil {
		return
	}
	stats, err := state.NewManager(l.db).JokeStats()
	if err != nil {
		return
	}
	l.metrics.SetTotals(stats.Pending, stats.Approved, stats.Fused)
}

// view runs a read-only query against committed state.
func (l *Ledger) view(ctx context.Context, fn func(*jokes.Engine) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.newEngine(state.NewManager(l.db), nil, l.clock()))
}

// Submit records a new submission by caller.
func (l *Ledger) Submit(ctx context.Context, caller [20]byte, name, content, contentRef string) (uint64, error) {
	var id uint64
	err := l.apply(ctx, "submit", func(e *jokes.Engine, _ *state.Manager) error {
		var err error
		id, err = e.Submit(caller, name, content, contentRef)
		return err
	})
	return id, err
}

// VotePending casts an approval vote on a submission.
func (l *Ledger) VotePending(ctx context.Context, id uint64, voter [20]byte) (uint64, error) {
	var score uint64
	err := l.apply(ctx, "vote_pending", func(e *jokes.Engine, _ *state.Manager) error {
		var err error
		score, err = e.VotePending(id, voter)
		return err
	})
	return score, err
}

// Finalize closes the vote on a submission.
func (l *Ledger) Finalize(ctx context.Context, id uint64) (*jokes.FinalizeResult, error) {
	var result *jokes.FinalizeResult
	err := l.apply(ctx, "finalize", func(e *jokes.Engine, _ *state.Manager) error {
		var err error
		result, err = e.Finalize(id)
		return err
	})
	return result, err
}

// VoteApproved casts a paid dadness vote on an approved joke.
func (l *Ledger) VoteApproved(ctx context.Context, id uint64, voter [20]byte, payment *big.Int) (uint64, error) {
	var score uint64
	err := l.apply(ctx, "vote_approved", func(e *jokes.Engine, _ *state.Manager) error {
		var err error
		score, err = e.VoteApproved(id, voter, payment)
		return err
	})
	return score, err
}

// ListForSale sets or clears a joke's asking price.
func (l *Ledger) ListForSale(ctx context.Context, id uint64, caller [20]byte, price *big.Int) error {
	return l.apply(ctx, "list_for_sale", func(e *jokes.Engine, _ *state.Manager) error {
		return e.ListForSale(id, caller, price)
	})
}

// Buy purchases a listed joke.
func (l *Ledger) Buy(ctx context.Context, id uint64, buyer [20]byte, payment *big.Int) error {
	return l.apply(ctx, "buy", func(e *jokes.Engine, _ *state.Manager) error {
		return e.Buy(id, buyer, payment)
	})
}

// Use records a use of the joke by its owner.
func (l *Ledger) Use(ctx context.Context, id uint64, caller [20]byte) (*jokes.Joke, error) {
	var joke *jokes.Joke
	err := l.apply(ctx, "use", func(e *jokes.Engine, _ *state.Manager) error {
		var err error
		joke, err = e.Use(id, caller)
		return err
	})
	return joke, err
}

// Fuse merges two same-tier jokes into a new one.
func (l *Ledger) Fuse(ctx context.Context, idA, idB uint64, caller [20]byte) (uint64, error) {
	var id uint64
	err := l.apply(ctx, "fuse", func(e *jokes.Engine, _ *state.Manager) error {
		var err error
		id, err = e.Fuse(idA, idB, caller)
		return err
	})
	return id, err
}

// Exchange swaps jokes between caller and counterparty.
func (l *Ledger) Exchange(ctx context.Context, give, take []uint64, counterparty, caller [20]byte) error {
	return l.apply(ctx, "exchange", func(e *jokes.Engine, _ *state.Manager) error {
		return e.Exchange(give, take, counterparty, caller)
	})
}

// Credit funds an account.
func (l *Ledger) Credit(ctx context.Context, addr [20]byte, amount *big.Int) (*big.Int, error) {
	var balance *big.Int
	err := l.apply(ctx, "credit", func(e *jokes.Engine, _ *state.Manager) error {
		var err error
		balance, err = e.Credit(addr, amount)
		return err
	})
	return balance, err
}

// ApplyGenesis credits the initial allocations exactly once. It reports
// whether the allocations were applied by this call.
func (l *Ledger) ApplyGenesis(ctx context.Context, allocations map[[20]byte]*big.Int) (bool, error) {
	var applied bool
	err := l.apply(ctx, "genesis", func(e *jokes.Engine, mgr *state.Manager) error {
		done, err := mgr.KVGet(genesisMarkerKey, nil)
		if err != nil || done {
			return err
		}
		for _, addr := range sortedAllocations(allocations) {
			if _, err := e.Credit(addr, allocations[addr]); err != nil {
				return fmt.Errorf("genesis allocation %s: %w", jokes.FormatAddress(addr), err)
			}
		}
		applied = true
		return mgr.KVPut(genesisMarkerKey, uint64(1))
	})
	return applied, err
}

func sortedAllocations(allocations map[[20]byte]*big.Int) [][20]byte {
	out := make([][20]byte, 0, len(allocations))
	for addr := range allocations {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// SetPaused pauses or resumes every mutating joke operation.
func (l *Ledger) SetPaused(paused bool) {
	l.pauses.Set(moduleJokes, paused)
	l.logger.Info("jokes module pause toggled", "paused", paused)
}

// Paused reports whether the joke module is paused.
func (l *Ledger) Paused() bool { return l.pauses.IsPaused(moduleJokes) }
