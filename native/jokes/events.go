package jokes

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"jokeledger/core/types"
)

const (
	EventTypeSubmissionCreated = "jokes.submission.created"
	EventTypePendingVoted      = "jokes.pending.voted"
	EventTypeVotingFinalized   = "jokes.voting.finalized"
	EventTypeJokeListed        = "jokes.joke.listed"
	EventTypeJokeBought        = "jokes.joke.bought"
	EventTypeDadnessVoted      = "jokes.dadness.voted"
	EventTypeJokeUsed          = "jokes.joke.used"
	EventTypeJokesFused        = "jokes.jokes.fused"
	EventTypeJokesExchanged    = "jokes.jokes.exchanged"
	EventTypeUserCountChanged  = "jokes.user.count_changed"
	EventTypeAccountCredited   = "jokes.account.credited"
)

// FormatAddress renders an identity the way events and the API expose it.
func FormatAddress(addr [20]byte) string { return common.Address(addr).Hex() }

// ParseAddress parses a 0x-prefixed hex identity.
func ParseAddress(value string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return out, ErrInvalidArgument
	}
	copy(out[:], common.HexToAddress(trimmed).Bytes())
	if out == ([20]byte{}) {
		return out, ErrInvalidArgument
	}
	return out, nil
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func i64(v int64) string { return strconv.FormatInt(v, 10) }

type SubmissionCreated struct {
	ID             uint64
	Author         [20]byte
	Name           string
	ContentRef     string
	VotingDeadline int64
}

func (SubmissionCreated) EventType() string { return EventTypeSubmissionCreated }

func (e SubmissionCreated) Event() *types.Event {
	return &types.Event{
		Type: EventTypeSubmissionCreated,
		Attributes: map[string]string{
			"id":             u64(e.ID),
			"author":         FormatAddress(e.Author),
			"name":           e.Name,
			"contentRef":     e.ContentRef,
			"votingDeadline": i64(e.VotingDeadline),
		},
	}
}

type PendingVoted struct {
	ID    uint64
	Voter [20]byte
	Score uint64
}

func (PendingVoted) EventType() string { return EventTypePendingVoted }

func (e PendingVoted) Event() *types.Event {
	return &types.Event{
		Type: EventTypePendingVoted,
		Attributes: map[string]string{
			"id":    u64(e.ID),
			"voter": FormatAddress(e.Voter),
			"score": u64(e.Score),
		},
	}
}

type VotingFinalized struct {
	ID      uint64
	Author  [20]byte
	Outcome Outcome
	Score   uint64
}

func (VotingFinalized) EventType() string { return EventTypeVotingFinalized }

func (e VotingFinalized) Event() *types.Event {
	return &types.Event{
		Type: EventTypeVotingFinalized,
		Attributes: map[string]string{
			"id":      u64(e.ID),
			"author":  FormatAddress(e.Author),
			"outcome": strings.ToLower(e.Outcome.String()),
			"score":   u64(e.Score),
		},
	}
}

type JokeListed struct {
	ID    uint64
	Owner [20]byte
	Price *big.Int
}

func (JokeListed) EventType() string { return EventTypeJokeListed }

func (e JokeListed) Event() *types.Event {
	return &types.Event{
		Type: EventTypeJokeListed,
		Attributes: map[string]string{
			"id":    u64(e.ID),
			"owner": FormatAddress(e.Owner),
			"price": formatAmount(e.Price),
		},
	}
}

type JokeBought struct {
	ID     uint64
	Seller [20]byte
	Buyer  [20]byte
	Amount *big.Int
}

func (JokeBought) EventType() string { return EventTypeJokeBought }

func (e JokeBought) Event() *types.Event {
	return &types.Event{
		Type: EventTypeJokeBought,
		Attributes: map[string]string{
			"id":     u64(e.ID),
			"seller": FormatAddress(e.Seller),
			"buyer":  FormatAddress(e.Buyer),
			"amount": formatAmount(e.Amount),
		},
	}
}

type DadnessVoted struct {
	ID      uint64
	Voter   [20]byte
	Owner   [20]byte
	Payment *big.Int
	Score   uint64
	Value   *big.Int
	Tier    Tier
}

func (DadnessVoted) EventType() string { return EventTypeDadnessVoted }

func (e DadnessVoted) Event() *types.Event {
	return &types.Event{
		Type: EventTypeDadnessVoted,
		Attributes: map[string]string{
			"id":      u64(e.ID),
			"voter":   FormatAddress(e.Voter),
			"owner":   FormatAddress(e.Owner),
			"payment": formatAmount(e.Payment),
			"score":   u64(e.Score),
			"value":   formatAmount(e.Value),
			"tier":    e.Tier.String(),
		},
	}
}

type JokeUsed struct {
	ID         uint64
	Owner      [20]byte
	UsageCount uint64
	Value      *big.Int
}

func (JokeUsed) EventType() string { return EventTypeJokeUsed }

func (e JokeUsed) Event() *types.Event {
	return &types.Event{
		Type: EventTypeJokeUsed,
		Attributes: map[string]string{
			"id":         u64(e.ID),
			"owner":      FormatAddress(e.Owner),
			"usageCount": u64(e.UsageCount),
			"value":      formatAmount(e.Value),
		},
	}
}

type JokesFused struct {
	ID      uint64
	Owner   [20]byte
	Parents [2]uint64
	Tier    Tier
	Value   *big.Int
}

func (JokesFused) EventType() string { return EventTypeJokesFused }

func (e JokesFused) Event() *types.Event {
	return &types.Event{
		Type: EventTypeJokesFused,
		Attributes: map[string]string{
			"id":      u64(e.ID),
			"owner":   FormatAddress(e.Owner),
			"parents": formatIDs(e.Parents[:]),
			"tier":    e.Tier.String(),
			"value":   formatAmount(e.Value),
		},
	}
}

type JokesExchanged struct {
	Caller       [20]byte
	Counterparty [20]byte
	Given        []uint64
	Taken        []uint64
}

func (JokesExchanged) EventType() string { return EventTypeJokesExchanged }

func (e JokesExchanged) Event() *types.Event {
	return &types.Event{
		Type: EventTypeJokesExchanged,
		Attributes: map[string]string{
			"caller":       FormatAddress(e.Caller),
			"counterparty": FormatAddress(e.Counterparty),
			"given":        formatIDs(e.Given),
			"taken":        formatIDs(e.Taken),
		},
	}
}

type UserCountChanged struct {
	User  [20]byte
	Count uint64
}

func (UserCountChanged) EventType() string { return EventTypeUserCountChanged }

func (e UserCountChanged) Event() *types.Event {
	return &types.Event{
		Type: EventTypeUserCountChanged,
		Attributes: map[string]string{
			"user":  FormatAddress(e.User),
			"count": u64(e.Count),
		},
	}
}

type AccountCredited struct {
	Account [20]byte
	Amount  *big.Int
	Balance *big.Int
}

func (AccountCredited) EventType() string { return EventTypeAccountCredited }

func (e AccountCredited) Event() *types.Event {
	return &types.Event{
		Type: EventTypeAccountCredited,
		Attributes: map[string]string{
			"account": FormatAddress(e.Account),
			"amount":  formatAmount(e.Amount),
			"balance": formatAmount(e.Balance),
		},
	}
}
