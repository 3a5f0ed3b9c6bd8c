package state

import (
	"fmt"
	"math/big"

	"jokeledger/native/jokes"
)

type storedPending struct {
	ID             uint64
	Name           string
	Content        string
	ContentRef     string
	Author         [20]byte
	Score          uint64
	Voters         [][20]byte
	CreatedAt      uint64
	VotingDeadline uint64
	Status         uint8
}

type storedJoke struct {
	ID               uint64
	Name             string
	Content          string
	ContentRef       string
	Tier             uint8
	Value            *big.Int
	Price            *big.Int
	Author           [20]byte
	Owner            [20]byte
	Score            uint64
	AuthorizedVoters [][20]byte
	CreatedAt        uint64
	LastTransferAt   uint64
	LastUsedAt       uint64
	UsageCount       uint64
	Status           uint8
	FusedInto        uint64
	Parents          []uint64
}

type storedStats struct {
	LastID   uint64
	Pending  uint64
	Approved uint64
	Rejected uint64
	Fused    uint64
}

func toUnix(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func fromUnix(v uint64) int64 { return int64(v) }

func nonNegative(v *big.Int) (*big.Int, error) {
	if v == nil {
		return big.NewInt(0), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("jokes state: negative amount")
	}
	return new(big.Int).Set(v), nil
}

func newStoredPending(p *jokes.PendingJoke) *storedPending {
	return &storedPending{
		ID:             p.ID,
		Name:           p.Name,
		Content:        p.Content,
		ContentRef:     p.ContentRef,
		Author:         p.Author,
		Score:          p.Score,
		Voters:         append([][20]byte(nil), p.Voters...),
		CreatedAt:      toUnix(p.CreatedAt),
		VotingDeadline: toUnix(p.VotingDeadline),
		Status:         uint8(p.Status),
	}
}

func (s *storedPending) toPending() *jokes.PendingJoke {
	return &jokes.PendingJoke{
		ID:             s.ID,
		Name:           s.Name,
		Content:        s.Content,
		ContentRef:     s.ContentRef,
		Author:         s.Author,
		Score:          s.Score,
		Voters:         append([][20]byte(nil), s.Voters...),
		CreatedAt:      fromUnix(s.CreatedAt),
		VotingDeadline: fromUnix(s.VotingDeadline),
		Status:         jokes.PendingStatus(s.Status),
	}
}

func newStoredJoke(j *jokes.Joke) (*storedJoke, error) {
	value, err := nonNegative(j.Value)
	if err != nil {
		return nil, err
	}
	price, err := nonNegative(j.Price)
	if err != nil {
		return nil, err
	}
	return &storedJoke{
		ID:               j.ID,
		Name:             j.Name,
		Content:          j.Content,
		ContentRef:       j.ContentRef,
		Tier:             uint8(j.Tier),
		Value:            value,
		Price:            price,
		Author:           j.Author,
		Owner:            j.Owner,
		Score:            j.Score,
		AuthorizedVoters: append([][20]byte(nil), j.AuthorizedVoters...),
		CreatedAt:        toUnix(j.CreatedAt),
		LastTransferAt:   toUnix(j.LastTransferAt),
		LastUsedAt:       toUnix(j.LastUsedAt),
		UsageCount:       j.UsageCount,
		Status:           uint8(j.Status),
		FusedInto:        j.FusedInto,
		Parents:          append([]uint64(nil), j.Parents...),
	}, nil
}

func (s *storedJoke) toJoke() *jokes.Joke {
	joke := &jokes.Joke{
		ID:               s.ID,
		Name:             s.Name,
		Content:          s.Content,
		ContentRef:       s.ContentRef,
		Tier:             jokes.Tier(s.Tier),
		Value:            big.NewInt(0),
		Price:            big.NewInt(0),
		Author:           s.Author,
		Owner:            s.Owner,
		Score:            s.Score,
		AuthorizedVoters: append([][20]byte(nil), s.AuthorizedVoters...),
		CreatedAt:        fromUnix(s.CreatedAt),
		LastTransferAt:   fromUnix(s.LastTransferAt),
		LastUsedAt:       fromUnix(s.LastUsedAt),
		UsageCount:       s.UsageCount,
		Status:           jokes.JokeStatus(s.Status),
		FusedInto:        s.FusedInto,
	}
	if s.Value != nil {
		joke.Value.Set(s.Value)
	}
	if s.Price != nil {
		joke.Price.Set(s.Price)
	}
	if len(s.Parents) > 0 {
		joke.Parents = append([]uint64(nil), s.Parents...)
	}
	return joke
}

// JokePendingGet loads the submission stored under id.
func (m *Manager) JokePendingGet(id uint64) (*jokes.PendingJoke, bool, error) {
	var stored storedPending
	ok, err := m.KVGet(JokePendingKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toPending(), true, nil
}

// JokePendingPut persists a submission record.
func (m *Manager) JokePendingPut(pending *jokes.PendingJoke) error {
	if pending == nil {
		return fmt.Errorf("jokes state: nil submission")
	}
	if pending.ID == 0 {
		return fmt.Errorf("jokes state: submission id required")
	}
	return m.KVPut(JokePendingKey(pending.ID), newStoredPending(pending))
}

// JokeGet loads the approved joke stored under id.
func (m *Manager) JokeGet(id uint64) (*jokes.Joke, bool, error) {
	var stored storedJoke
	ok, err := m.KVGet(JokeApprovedKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toJoke(), true, nil
}

// JokePut persists an approved joke. Jokes must always have an owner.
func (m *Manager) JokePut(joke *jokes.Joke) error {
	if joke == nil {
		return fmt.Errorf("jokes state: nil joke")
	}
	if joke.ID == 0 {
		return fmt.Errorf("jokes state: joke id required")
	}
	if joke.Owner == ([20]byte{}) {
		return fmt.Errorf("jokes state: joke %d has no owner", joke.ID)
	}
	stored, err := newStoredJoke(joke)
	if err != nil {
		return err
	}
	return m.KVPut(JokeApprovedKey(joke.ID), stored)
}

// JokeUserCount returns the counter charged against addr's cap.
func (m *Manager) JokeUserCount(addr [20]byte) (uint64, error) {
	var count uint64
	if _, err := m.KVGet(JokeCountKey(addr), &count); err != nil {
		return 0, err
	}
	return count, nil
}

// JokeSetUserCount stores addr's counter. Zero counters are removed.
func (m *Manager) JokeSetUserCount(addr [20]byte, count uint64) error {
	if count == 0 {
		return m.KVDelete(JokeCountKey(addr))
	}
	return m.KVPut(JokeCountKey(addr), count)
}

// JokeStats returns the ledger-wide counters.
func (m *Manager) JokeStats() (*jokes.Stats, error) {
	var stored storedStats
	if _, err := m.KVGet(JokeStatsKey(), &stored); err != nil {
		return nil, err
	}
	return &jokes.Stats{
		LastID:   stored.LastID,
		Pending:  stored.Pending,
		Approved: stored.Approved,
		Rejected: stored.Rejected,
		Fused:    stored.Fused,
	}, nil
}

// JokeStatsPut persists the ledger-wide counters.
func (m *Manager) JokeStatsPut(stats *jokes.Stats) error {
	if stats == nil {
		return fmt.Errorf("jokes state: nil stats")
	}
	return m.KVPut(JokeStatsKey(), storedStats{
		LastID:   stats.LastID,
		Pending:  stats.Pending,
		Approved: stats.Approved,
		Rejected: stats.Rejected,
		Fused:    stats.Fused,
	})
}
