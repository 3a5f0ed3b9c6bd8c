package jokes

import (
	"fmt"
	"math/big"
)

// Fuse merges two same-tier jokes owned by caller into a new joke one tier
// higher. The inputs stay on record with status Fused and point at the new
// joke; they can no longer be traded, used or voted on.
func (e *Engine) Fuse(idA, idB uint64, caller [20]byte) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if idA == idB {
		return 0, fmt.Errorf("%w: cannot fuse a joke with itself", ErrInvalidArgument)
	}
	first, err := e.activeJoke(idA)
	if err != nil {
		return 0, err
	}
	second, err := e.activeJoke(idB)
	if err != nil {
		return 0, err
	}
	if first.Owner != caller || second.Owner != caller {
		return 0, ErrNotOwner
	}
	if first.Tier != second.Tier {
		return 0, ErrTierMismatch
	}
	if first.Tier >= TierLegendary {
		return 0, ErrTierMaxed
	}
	stats, err := e.loadStats()
	if err != nil {
		return 0, err
	}
	count, err := e.state.JokeUserCount(caller)
	if err != nil {
		return 0, err
	}

	now := e.now()
	stats.LastID++
	value := new(big.Int).Add(valueOf(first), valueOf(second))
	value.Mul(value, new(big.Int).SetUint64(e.params.FusionMultiplier))
	fused := &Joke{
		ID:             stats.LastID,
		Name:           first.Name + " + " + second.Name,
		Content:        first.Content + "\n" + second.Content,
		ContentRef:     first.ContentRef + "," + second.ContentRef,
		Tier:           first.Tier + 1,
		Value:          value,
		Price:          big.NewInt(0),
		Author:         caller,
		Owner:          caller,
		CreatedAt:      now,
		LastTransferAt: now,
		Status:         JokeActive,
		Parents:        []uint64{idA, idB},
	}
	for _, input := range []*Joke{first, second} {
		input.Status = JokeFused
		input.FusedInto = fused.ID
		input.Price = big.NewInt(0)
		if err := e.state.JokePut(input); err != nil {
			return 0, err
		}
	}
	if err := e.state.JokePut(fused); err != nil {
		return 0, err
	}
	stats.Approved = decrement(stats.Approved, 2) + 1
	stats.Fused += 2
	if err := e.state.JokeStatsPut(stats); err != nil {
		return 0, err
	}
	if err := e.setCount(caller, decrement(count, 1)); err != nil {
		return 0, err
	}
	e.emit(JokesFused{
		ID:      fused.ID,
		Owner:   caller,
		Parents: [2]uint64{idA, idB},
		Tier:    fused.Tier,
		Value:   new(big.Int).Set(value),
	})
	return fused.ID, nil
}

// Exchange swaps ownership of give (owned by caller) and take (owned by
// counterparty) in one step. Every joke must be past its lock and cooldown
// windows and the two sides must be of comparable aggregate value.
func (e *Engine) Exchange(give, take []uint64, counterparty, caller [20]byte) error {
	if err := e.guard(); err != nil {
		return err
	}
	if len(give) == 0 || len(take) == 0 {
		return fmt.Errorf("%w: both sides of an exchange must name jokes", ErrInvalidArgument)
	}
	if counterparty == ([20]byte{}) || counterparty == caller {
		return fmt.Errorf("%w: counterparty must differ from caller", ErrInvalidArgument)
	}
	seen := make(map[uint64]struct{}, len(give)+len(take))
	for _, id := range append(append([]uint64(nil), give...), take...) {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: joke %d listed twice", ErrInvalidArgument, id)
		}
		seen[id] = struct{}{}
	}

	now := e.now()
	load := func(ids []uint64, owner [20]byte) ([]*Joke, *big.Int, error) {
		jokes := make([]*Joke, 0, len(ids))
		total := big.NewInt(0)
		for _, id := range ids {
			joke, err := e.activeJoke(id)
			if err != nil {
				return nil, nil, err
			}
			if joke.Owner != owner {
				return nil, nil, ErrNotOwner
			}
			if now < joke.CreatedAt+e.params.LockPeriodSeconds ||
				now < joke.LastTransferAt+e.params.CooldownPeriodSecs {
				return nil, nil, fmt.Errorf("%w: joke %d", ErrJokeLocked, id)
			}
			total.Add(total, valueOf(joke))
			jokes = append(jokes, joke)
		}
		return jokes, total, nil
	}
	given, givenValue, err := load(give, caller)
	if err != nil {
		return err
	}
	taken, takenValue, err := load(take, counterparty)
	if err != nil {
		return err
	}
	if !e.params.WithinTolerance(givenValue, takenValue) {
		return ErrInvalidExchangeCombination
	}

	callerCount, err := e.state.JokeUserCount(caller)
	if err != nil {
		return err
	}
	counterpartyCount, err := e.state.JokeUserCount(counterparty)
	if err != nil {
		return err
	}
	callerNext := decrement(callerCount, uint64(len(given))) + uint64(len(taken))
	counterpartyNext := decrement(counterpartyCount, uint64(len(taken))) + uint64(len(given))
	if callerNext > e.params.MaxJokesPerUser || counterpartyNext > e.params.MaxJokesPerUser {
		return ErrQuotaExceeded
	}

	for _, joke := range given {
		joke.Owner = counterparty
		joke.Price = big.NewInt(0)
		joke.LastTransferAt = now
		if err := e.state.JokePut(joke); err != nil {
			return err
		}
	}
	for _, joke := range taken {
		joke.Owner = caller
		joke.Price = big.NewInt(0)
		joke.LastTransferAt = now
		if err := e.state.JokePut(joke); err != nil {
			return err
		}
	}
	if callerNext != callerCount {
		if err := e.setCount(caller, callerNext); err != nil {
			return err
		}
	}
	if counterpartyNext != counterpartyCount {
		if err := e.setCount(counterparty, counterpartyNext); err != nil {
			return err
		}
	}
	e.emit(JokesExchanged{
		Caller:       caller,
		Counterparty: counterparty,
		Given:        append([]uint64(nil), give...),
		Taken:        append([]uint64(nil), take...),
	})
	return nil
}
