package jokes

import (
	"math/big"
)

// Joke returns the approved joke with id, including jokes retired by fusion.
func (e *Engine) Joke(id uint64) (*Joke, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	joke, ok, err := e.state.JokeGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return joke, nil
}

// PendingJoke returns the submission with id. Finalized submissions come back
// as empty tombstones rather than an error.
func (e *Engine) PendingJoke(id uint64) (*PendingJoke, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	pending, ok, err := e.state.JokePendingGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return pending, nil
}

// PendingJokes lists the active submissions in id order.
func (e *Engine) PendingJokes() ([]*PendingJoke, error) {
	stats, err := e.stats()
	if err != nil {
		return nil, err
	}
	out := make([]*PendingJoke, 0, stats.Pending)
	for id := uint64(1); id <= stats.LastID; id++ {
		pending, ok, err := e.state.JokePendingGet(id)
		if err != nil {
			return nil, err
		}
		if ok && pending.Active() {
			out = append(out, pending)
		}
	}
	return out, nil
}

// Jokes lists approved jokes in id order. When activeOnly is set, jokes
// retired by fusion are skipped.
func (e *Engine) Jokes(activeOnly bool) ([]*Joke, error) {
	return e.filterJokes(func(j *Joke) bool { return !activeOnly || j.Active() })
}

// ListedJokes returns the active jokes currently offered for sale.
func (e *Engine) ListedJokes() ([]*Joke, error) {
	return e.filterJokes(func(j *Joke) bool { return j.Active() && j.Listed() })
}

// JokesOwnedBy returns the active jokes owned by owner.
func (e *Engine) JokesOwnedBy(owner [20]byte) ([]*Joke, error) {
	return e.filterJokes(func(j *Joke) bool { return j.Active() && j.Owner == owner })
}

func (e *Engine) filterJokes(keep func(*Joke) bool) ([]*Joke, error) {
	stats, err := e.stats()
	if err != nil {
		return nil, err
	}
	var out []*Joke
	for id := uint64(1); id <= stats.LastID; id++ {
		joke, ok, err := e.state.JokeGet(id)
		if err != nil {
			return nil, err
		}
		if ok && keep(joke) {
			out = append(out, joke)
		}
	}
	return out, nil
}

// TotalApproved returns the number of active approved jokes.
func (e *Engine) TotalApproved() (uint64, error) {
	stats, err := e.stats()
	if err != nil {
		return 0, err
	}
	return stats.Approved, nil
}

// TotalPending returns the number of submissions still awaiting finalize.
func (e *Engine) TotalPending() (uint64, error) {
	stats, err := e.stats()
	if err != nil {
		return 0, err
	}
	return stats.Pending, nil
}

// Stats returns the ledger-wide counters.
func (e *Engine) Stats() (*Stats, error) { return e.stats() }

func (e *Engine) stats() (*Stats, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.loadStats()
}

// HasVoted reports whether voter has voted on id. While the submission is
// still pending the approval voters are consulted; afterwards the joke's
// dadness voters are.
func (e *Engine) HasVoted(id uint64, voter [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, ErrNilState
	}
	pending, submitted, err := e.state.JokePendingGet(id)
	if err != nil {
		return false, err
	}
	if submitted && pending.Active() {
		return pending.HasVoter(voter), nil
	}
	joke, ok, err := e.state.JokeGet(id)
	if err != nil {
		return false, err
	}
	if ok {
		return joke.HasVoter(voter), nil
	}
	if submitted {
		return false, nil
	}
	return false, ErrNotFound
}

// UserJokeCount returns the number of submissions and jokes counted against
// addr's cap.
func (e *Engine) UserJokeCount(addr [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.JokeUserCount(addr)
}

// OwnerOf returns the current owner of joke id.
func (e *Engine) OwnerOf(id uint64) ([20]byte, error) {
	joke, err := e.Joke(id)
	if err != nil {
		return [20]byte{}, err
	}
	return joke.Owner, nil
}

// AuthorizedVoters returns the identities that cast dadness votes on id.
func (e *Engine) AuthorizedVoters(id uint64) ([][20]byte, error) {
	joke, err := e.Joke(id)
	if err != nil {
		return nil, err
	}
	return append([][20]byte(nil), joke.AuthorizedVoters...), nil
}

// BalanceOf returns the spendable balance of addr.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	acc, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}
