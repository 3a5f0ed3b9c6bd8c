package jokes

import (
	"fmt"
	"math/big"
	"strings"
)

// Tier ranks approved jokes by community reception.
type Tier uint8

const (
	TierBasic Tier = iota
	TierGroan
	TierCringe
	TierLegendary
)

func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "BASIC"
	case TierGroan:
		return "GROAN"
	case TierCringe:
		return "CRINGE"
	case TierLegendary:
		return "LEGENDARY"
	default:
		return fmt.Sprintf("Tier(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool { return t <= TierLegendary }

// ParseTier converts a tier name back into its value.
func ParseTier(value string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BASIC":
		return TierBasic, nil
	case "GROAN":
		return TierGroan, nil
	case "CRINGE":
		return TierCringe, nil
	case "LEGENDARY":
		return TierLegendary, nil
	}
	return 0, fmt.Errorf("%w: unknown tier %q", ErrInvalidArgument, value)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PendingStatus tracks a submission through the approval vote.
type PendingStatus uint8

const (
	PendingActive PendingStatus = iota
	PendingTombstoned
)

func (s PendingStatus) String() string {
	switch s {
	case PendingActive:
		return "ACTIVE"
	case PendingTombstoned:
		return "TOMBSTONED"
	default:
		return fmt.Sprintf("PendingStatus(%d)", uint8(s))
	}
}

func (s PendingStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// JokeStatus tracks an approved joke. Fused jokes are retired but kept for
// lineage lookups.
type JokeStatus uint8

const (
	JokeActive JokeStatus = iota
	JokeFused
)

func (s JokeStatus) String() string {
	switch s {
	case JokeActive:
		return "ACTIVE"
	case JokeFused:
		return "FUSED"
	default:
		return fmt.Sprintf("JokeStatus(%d)", uint8(s))
	}
}

func (s JokeStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome is the result of finalizing a pending submission.
type Outcome uint8

const (
	OutcomeApproved Outcome = iota + 1
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return "APPROVED"
	case OutcomeRejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// PendingJoke is a submission awaiting the approval vote.
type PendingJoke struct {
	ID             uint64        `json:"id"`
	Name           string        `json:"name"`
	Content        string        `json:"content"`
	ContentRef     string        `json:"contentRef"`
	Author         [20]byte      `json:"author"`
	Score          uint64        `json:"score"`
	Voters         [][20]byte    `json:"voters"`
	CreatedAt      int64         `json:"createdAt"`
	VotingDeadline int64         `json:"votingDeadline"`
	Status         PendingStatus `json:"status"`
}

// Clone returns a deep copy of the submission.
func (p *PendingJoke) Clone() *PendingJoke {
	if p == nil {
		return nil
	}
	clone := *p
	if len(p.Voters) > 0 {
		clone.Voters = append([][20]byte(nil), p.Voters...)
	}
	return &clone
}

// Active reports whether the submission still accepts votes or finalization.
func (p *PendingJoke) Active() bool { return p != nil && p.Status == PendingActive }

// HasVoter reports whether voter already cast an approval vote.
func (p *PendingJoke) HasVoter(voter [20]byte) bool {
	if p == nil {
		return false
	}
	return containsAddr(p.Voters, voter)
}

// Joke is an approved, tradeable joke.
type Joke struct {
	ID               uint64     `json:"id"`
	Name             string     `json:"name"`
	Content          string     `json:"content"`
	ContentRef       string     `json:"contentRef"`
	Tier             Tier       `json:"tier"`
	Value            *big.Int   `json:"value"`
	Price            *big.Int   `json:"price"`
	Author           [20]byte   `json:"author"`
	Owner            [20]byte   `json:"owner"`
	Score            uint64     `json:"score"`
	AuthorizedVoters [][20]byte `json:"authorizedVoters"`
	CreatedAt        int64      `json:"createdAt"`
	LastTransferAt   int64      `json:"lastTransferAt"`
	LastUsedAt       int64      `json:"lastUsedAt"`
	UsageCount       uint64     `json:"usageCount"`
	Status           JokeStatus `json:"status"`
	FusedInto        uint64     `json:"fusedInto,omitempty"`
	Parents          []uint64   `json:"parents,omitempty"`
}

// Clone returns a deep copy of the joke.
func (j *Joke) Clone() *Joke {
	if j == nil {
		return nil
	}
	clone := *j
	if j.Value != nil {
		clone.Value = new(big.Int).Set(j.Value)
	}
	if j.Price != nil {
		clone.Price = new(big.Int).Set(j.Price)
	}
	if len(j.AuthorizedVoters) > 0 {
		clone.AuthorizedVoters = append([][20]byte(nil), j.AuthorizedVoters...)
	}
	if len(j.Parents) > 0 {
		clone.Parents = append([]uint64(nil), j.Parents...)
	}
	return &clone
}

// Listed reports whether the joke carries a positive asking price.
func (j *Joke) Listed() bool {
	return j != nil && j.Price != nil && j.Price.Sign() > 0
}

// Active reports whether the joke can still be traded or voted on.
func (j *Joke) Active() bool { return j != nil && j.Status == JokeActive }

// HasVoter reports whether voter already cast a dadness vote.
func (j *Joke) HasVoter(voter [20]byte) bool {
	if j == nil {
		return false
	}
	return containsAddr(j.AuthorizedVoters, voter)
}

// FinalizeResult describes what finalize did with a submission.
type FinalizeResult struct {
	PendingID uint64  `json:"pendingId"`
	Outcome   Outcome `json:"outcome"`
	Score     uint64  `json:"score"`
	// JokeID is set only when the submission was approved.
	JokeID uint64 `json:"jokeId,omitempty"`
}

// Stats summarises ledger-wide counters.
type Stats struct {
	// LastID is the most recently allocated id. Pending submissions and
	// approved jokes share one id sequence.
	LastID   uint64 `json:"lastId"`
	Pending  uint64 `json:"pending"`
	Approved uint64 `json:"approved"`
	Rejected uint64 `json:"rejected"`
	Fused    uint64 `json:"fused"`
}

func containsAddr(list [][20]byte, addr [20]byte) bool {
	for _, candidate := range list {
		if candidate == addr {
			return true
		}
	}
	return false
}
