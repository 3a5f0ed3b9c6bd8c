package jokes

import (
	"fmt"
	"math/big"
)

// VoteApproved casts a paid dadness vote on an approved joke. The payment
// must cover the joke's current value and is forwarded in full to the owner.
// The joke's value is recomputed from its score and its tier can only rise.
func (e *Engine) VoteApproved(id uint64, voter [20]byte, payment *big.Int) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if voter == ([20]byte{}) {
		return 0, fmt.Errorf("%w: voter required", ErrInvalidArgument)
	}
	paid, err := normalizeAmount(payment)
	if err != nil {
		return 0, err
	}
	joke, err := e.activeJoke(id)
	if err != nil {
		return 0, err
	}
	if joke.Owner == voter {
		return 0, ErrSelfVoteForbidden
	}
	if joke.HasVoter(voter) {
		return 0, ErrAlreadyVoted
	}
	if paid.Cmp(valueOf(joke)) < 0 {
		return 0, ErrInsufficientPayment
	}
	if err := e.transfer(voter, joke.Owner, paid); err != nil {
		return 0, err
	}
	joke.AuthorizedVoters = append(joke.AuthorizedVoters, voter)
	joke.Score++
	joke.Value = e.params.ValueFor(joke.Score)
	if earned := e.params.TierFor(joke.Score); earned > joke.Tier {
		joke.Tier = earned
	}
	if err := e.state.JokePut(joke); err != nil {
		return 0, err
	}
	e.emit(DadnessVoted{
		ID:      id,
		Voter:   voter,
		Owner:   joke.Owner,
		Payment: paid,
		Score:   joke.Score,
		Value:   new(big.Int).Set(joke.Value),
		Tier:    joke.Tier,
	})
	return joke.Score, nil
}

// ListForSale sets the asking price of a joke. A zero price clears the
// listing.
func (e *Engine) ListForSale(id uint64, caller [20]byte, price *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	asking, err := normalizeAmount(price)
	if err != nil {
		return err
	}
	joke, err := e.activeJoke(id)
	if err != nil {
		return err
	}
	if joke.Owner != caller {
		return ErrNotOwner
	}
	joke.Price = asking
	if err := e.state.JokePut(joke); err != nil {
		return err
	}
	e.emit(JokeListed{ID: id, Owner: caller, Price: new(big.Int).Set(asking)})
	return nil
}

// Buy transfers a listed joke to buyer and forwards the payment to the
// previous owner.
func (e *Engine) Buy(id uint64, buyer [20]byte, payment *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if buyer == ([20]byte{}) {
		return fmt.Errorf("%w: buyer required", ErrInvalidArgument)
	}
	paid, err := normalizeAmount(payment)
	if err != nil {
		return err
	}
	joke, err := e.activeJoke(id)
	if err != nil {
		return err
	}
	if !joke.Listed() {
		return ErrNotListed
	}
	seller := joke.Owner
	if seller == buyer {
		return ErrSelfPurchase
	}
	if paid.Cmp(joke.Price) < 0 {
		return ErrInsufficientPayment
	}
	buyerCount, err := e.state.JokeUserCount(buyer)
	if err != nil {
		return err
	}
	if buyerCount >= e.params.MaxJokesPerUser {
		return ErrQuotaExceeded
	}
	sellerCount, err := e.state.JokeUserCount(seller)
	if err != nil {
		return err
	}
	if err := e.transfer(buyer, seller, paid); err != nil {
		return err
	}
	joke.Owner = buyer
	joke.Price = big.NewInt(0)
	joke.LastTransferAt = e.now()
	if err := e.state.JokePut(joke); err != nil {
		return err
	}
	if err := e.setCount(seller, decrement(sellerCount, 1)); err != nil {
		return err
	}
	if err := e.setCount(buyer, buyerCount+1); err != nil {
		return err
	}
	e.emit(JokeBought{ID: id, Seller: seller, Buyer: buyer, Amount: paid})
	return nil
}

// Use records that the owner told the joke. Each use devalues it. Jokes
// cannot be used during the lock period that follows their creation.
func (e *Engine) Use(id uint64, caller [20]byte) (*Joke, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	joke, err := e.activeJoke(id)
	if err != nil {
		return nil, err
	}
	if joke.Owner != caller {
		return nil, ErrNotOwner
	}
	now := e.now()
	if now < joke.CreatedAt+e.params.LockPeriodSeconds {
		return nil, ErrStillLocked
	}
	joke.UsageCount++
	joke.Value = e.params.Devalue(valueOf(joke))
	joke.LastUsedAt = now
	if err := e.state.JokePut(joke); err != nil {
		return nil, err
	}
	e.emit(JokeUsed{ID: id, Owner: caller, UsageCount: joke.UsageCount, Value: new(big.Int).Set(joke.Value)})
	return joke.Clone(), nil
}

func (e *Engine) activeJoke(id uint64) (*Joke, error) {
	joke, ok, err := e.state.JokeGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if !joke.Active() {
		return nil, ErrJokeRetired
	}
	if joke.Price == nil {
		joke.Price = big.NewInt(0)
	}
	return joke, nil
}

func valueOf(joke *Joke) *big.Int {
	if joke == nil || joke.Value == nil {
		return big.NewInt(0)
	}
	return joke.Value
}
