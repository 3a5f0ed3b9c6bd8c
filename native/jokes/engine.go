package jokes

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"jokeledger/core/events"
	"jokeledger/core/types"
	nativecommon "jokeledger/native/common"
)

type engineState interface {
	JokePendingGet(id uint64) (*PendingJoke, bool, error)
	JokePendingPut(pending *PendingJoke) error
	JokeGet(id uint64) (*Joke, bool, error)
	JokePut(joke *Joke) error
	JokeUserCount(addr [20]byte) (uint64, error)
	JokeSetUserCount(addr [20]byte, count uint64) error
	JokeStats() (*Stats, error)
	JokeStatsPut(stats *Stats) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine implements the joke lifecycle: submission, approval voting,
// finalization, dadness voting, the marketplace, usage, fusion and exchange.
// The engine holds no state of its own; every call reads and writes through
// the configured state backend and the caller decides whether to commit.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
	params  Params
	pauses  nativecommon.PauseView
}

// NewEngine constructs a joke engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
		params: DefaultParams(),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetParams replaces the engine policy.
func (e *Engine) SetParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	e.params = params
	return nil
}

// Params returns the active policy.
func (e *Engine) Params() Params { return e.params }

// SetPauses wires the module pause switch.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) guard() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

// Submit records a new submission authored by caller and opens its voting
// window.
func (e *Engine) Submit(caller [20]byte, name, content, contentRef string) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	content = strings.TrimSpace(content)
	contentRef = strings.TrimSpace(contentRef)
	if name == "" || content == "" || contentRef == "" {
		return 0, fmt.Errorf("%w: name, content and content reference are required", ErrInvalidArgument)
	}
	if caller == ([20]byte{}) {
		return 0, fmt.Errorf("%w: caller required", ErrInvalidArgument)
	}
	count, err := e.state.JokeUserCount(caller)
	if err != nil {
		return 0, err
	}
	if count >= e.params.MaxJokesPerUser {
		return 0, ErrQuotaExceeded
	}
	stats, err := e.loadStats()
	if err != nil {
		return 0, err
	}
	now := e.now()
	stats.LastID++
	stats.Pending++
	pending := &PendingJoke{
		ID:             stats.LastID,
		Name:           name,
		Content:        content,
		ContentRef:     contentRef,
		Author:         caller,
		CreatedAt:      now,
		VotingDeadline: now + e.params.VotingPeriodSeconds,
		Status:         PendingActive,
	}
	if err := e.state.JokePendingPut(pending); err != nil {
		return 0, err
	}
	if err := e.state.JokeStatsPut(stats); err != nil {
		return 0, err
	}
	e.emit(SubmissionCreated{
		ID:             pending.ID,
		Author:         caller,
		Name:           name,
		ContentRef:     contentRef,
		VotingDeadline: pending.VotingDeadline,
	})
	if err := e.setCount(caller, count+1); err != nil {
		return 0, err
	}
	return pending.ID, nil
}

// VotePending casts an unweighted approval vote on an active submission and
// returns the new score. Votes are accepted until the submission is finalized,
// even past its deadline. Votes never promote a submission; promotion only
// happens through Finalize.
func (e *Engine) VotePending(id uint64, voter [20]byte) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if voter == ([20]byte{}) {
		return 0, fmt.Errorf("%w: voter required", ErrInvalidArgument)
	}
	pending, err := e.activePending(id)
	if err != nil {
		return 0, err
	}
	if pending.HasVoter(voter) {
		return 0, ErrAlreadyVoted
	}
	pending.Voters = append(pending.Voters, voter)
	pending.Score = uint64(len(pending.Voters))
	if err := e.state.JokePendingPut(pending); err != nil {
		return 0, err
	}
	e.emit(PendingVoted{ID: id, Voter: voter, Score: pending.Score})
	return pending.Score, nil
}

// Finalize closes the vote on a submission. Submissions meeting the approval
// threshold become jokes under the same id; submissions short of it are
// rejected once the voting window has elapsed.
func (e *Engine) Finalize(id uint64) (*FinalizeResult, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	pending, err := e.activePending(id)
	if err != nil {
		return nil, err
	}
	now := e.now()
	stats, err := e.loadStats()
	if err != nil {
		return nil, err
	}
	result := &FinalizeResult{PendingID: id, Score: pending.Score}
	author := pending.Author
	switch {
	case pending.Score >= e.params.ApprovalThreshold:
		joke := &Joke{
			ID:             id,
			Name:           pending.Name,
			Content:        pending.Content,
			ContentRef:     pending.ContentRef,
			Tier:           TierBasic,
			Value:          big.NewInt(0),
			Price:          big.NewInt(0),
			Author:         author,
			Owner:          author,
			CreatedAt:      now,
			LastTransferAt: now,
			Status:         JokeActive,
		}
		if err := e.state.JokePut(joke); err != nil {
			return nil, err
		}
		stats.Approved++
		result.Outcome = OutcomeApproved
		result.JokeID = id
	case now >= pending.VotingDeadline:
		count, err := e.state.JokeUserCount(author)
		if err != nil {
			return nil, err
		}
		if err := e.setCount(author, decrement(count, 1)); err != nil {
			return nil, err
		}
		stats.Rejected++
		result.Outcome = OutcomeRejected
	default:
		return nil, ErrVotingStillOpen
	}
	stats.Pending = decrement(stats.Pending, 1)
	if err := e.state.JokePendingPut(tombstone(pending)); err != nil {
		return nil, err
	}
	if err := e.state.JokeStatsPut(stats); err != nil {
		return nil, err
	}
	e.emit(VotingFinalized{ID: id, Author: author, Outcome: result.Outcome, Score: result.Score})
	return result, nil
}

// Credit funds addr from outside the ledger (genesis or operator top-up).
func (e *Engine) Credit(addr [20]byte, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if addr == ([20]byte{}) {
		return nil, fmt.Errorf("%w: account required", ErrInvalidArgument)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", ErrInvalidArgument)
	}
	acc, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	acc.UpdatedAt = uint64(e.now())
	if err := e.state.PutAccount(addr[:], acc); err != nil {
		return nil, err
	}
	balance := new(big.Int).Set(acc.Balance)
	e.emit(AccountCredited{Account: addr, Amount: new(big.Int).Set(amount), Balance: balance})
	return balance, nil
}

func (e *Engine) activePending(id uint64) (*PendingJoke, error) {
	pending, ok, err := e.state.JokePendingGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || !pending.Active() {
		return nil, ErrNotFound
	}
	return pending, nil
}

func (e *Engine) loadStats() (*Stats, error) {
	stats, err := e.state.JokeStats()
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &Stats{}
	}
	return stats, nil
}

func (e *Engine) setCount(addr [20]byte, count uint64) error {
	if err := e.state.JokeSetUserCount(addr, count); err != nil {
		return err
	}
	e.emit(UserCountChanged{User: addr, Count: count})
	return nil
}

func (e *Engine) loadAccount(addr [20]byte) (*types.Account, error) {
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc, nil
}

// transfer moves amount from one balance to another.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if from == to {
		return fmt.Errorf("%w: transfer to self", ErrInvalidArgument)
	}
	payer, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if payer.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	payee, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	now := uint64(e.now())
	payer.Balance = new(big.Int).Sub(payer.Balance, amount)
	payer.UpdatedAt = now
	payee.Balance = new(big.Int).Add(payee.Balance, amount)
	payee.UpdatedAt = now
	if err := e.state.PutAccount(from[:], payer); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], payee)
}

func tombstone(pending *PendingJoke) *PendingJoke {
	return &PendingJoke{ID: pending.ID, Status: PendingTombstoned}
}

func decrement(v, by uint64) uint64 {
	if v < by {
		return 0
	}
	return v - by
}

func normalizeAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidArgument)
	}
	return new(big.Int).Set(amount), nil
}
