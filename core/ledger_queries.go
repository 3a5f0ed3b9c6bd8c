package core

import (
	"context"
	"math/big"

	"jokeledger/native/jokes"
)

// AccountSummary groups what the ledger knows about one identity.
type AccountSummary struct {
	Address   [20]byte
	Balance   *big.Int
	JokeCount uint64
	Owned     []*jokes.Joke
}

// Joke returns the approved joke stored under id.
func (l *Ledger) Joke(ctx context.Context, id uint64) (*jokes.Joke, error) {
	var out *jokes.Joke
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.Joke(id)
		return err
	})
	return out, err
}

// PendingJoke returns the submission stored under id, including tombstones.
func (l *Ledger) PendingJoke(ctx context.Context, id uint64) (*jokes.PendingJoke, error) {
	var out *jokes.PendingJoke
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.PendingJoke(id)
		return err
	})
	return out, err
}

// PendingJokes lists the submissions still awaiting finalization.
func (l *Ledger) PendingJokes(ctx context.Context) ([]*jokes.PendingJoke, error) {
	var out []*jokes.PendingJoke
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.PendingJokes()
		return err
	})
	return out, err
}

// Jokes lists approved jokes in id order.
func (l *Ledger) Jokes(ctx context.Context, activeOnly bool) ([]*jokes.Joke, error) {
	var out []*jokes.Joke
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.Jokes(activeOnly)
		return err
	})
	return out, err
}

// ListedJokes lists jokes currently for sale.
func (l *Ledger) ListedJokes(ctx context.Context) ([]*jokes.Joke, error) {
	var out []*jokes.Joke
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.ListedJokes()
		return err
	})
	return out, err
}

// JokesOwnedBy lists the active jokes held by owner.
func (l *Ledger) JokesOwnedBy(ctx context.Context, owner [20]byte) ([]*jokes.Joke, error) {
	var out []*jokes.Joke
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.JokesOwnedBy(owner)
		return err
	})
	return out, err
}

// Stats returns the ledger-wide counters.
func (l *Ledger) Stats(ctx context.Context) (*jokes.Stats, error) {
	var out *jokes.Stats
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.Stats()
		return err
	})
	return out, err
}

func (l *Ledger) TotalApproved(ctx context.Context) (uint64, error) {
	var out uint64
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.TotalApproved()
		return err
	})
	return out, err
}

func (l *Ledger) TotalPending(ctx context.Context) (uint64, error) {
	var out uint64
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.TotalPending()
		return err
	})
	return out, err
}

// HasVoted reports whether voter already voted on id.
func (l *Ledger) HasVoted(ctx context.Context, id uint64, voter [20]byte) (bool, error) {
	var out bool
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.HasVoted(id, voter)
		return err
	})
	return out, err
}

func (l *Ledger) UserJokeCount(ctx context.Context, addr [20]byte) (uint64, error) {
	var out uint64
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.UserJokeCount(addr)
		return err
	})
	return out, err
}

func (l *Ledger) OwnerOf(ctx context.Context, id uint64) ([20]byte, error) {
	var out [20]byte
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.OwnerOf(id)
		return err
	})
	return out, err
}

func (l *Ledger) AuthorizedVoters(ctx context.Context, id uint64) ([][20]byte, error) {
	var out [][20]byte
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.AuthorizedVoters(id)
		return err
	})
	return out, err
}

func (l *Ledger) BalanceOf(ctx context.Context, addr [20]byte) (*big.Int, error) {
	var out *big.Int
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		out, err = e.BalanceOf(addr)
		return err
	})
	return out, err
}

// Account returns balance, cap usage and holdings for addr in one read.
func (l *Ledger) Account(ctx context.Context, addr [20]byte) (*AccountSummary, error) {
	summary := &AccountSummary{Address: addr}
	err := l.view(ctx, func(e *jokes.Engine) error {
		var err error
		if summary.Balance, err = e.BalanceOf(addr); err != nil {
			return err
		}
		if summary.JokeCount, err = e.UserJokeCount(addr); err != nil {
			return err
		}
		summary.Owned, err = e.JokesOwnedBy(addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
