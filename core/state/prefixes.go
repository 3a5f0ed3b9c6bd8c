package state

import (
	"encoding/binary"
)

var (
	jokesPendingPrefix  = []byte("jokes/pending/")
	jokesApprovedPrefix = []byte("jokes/approved/")
	jokesCountPrefix    = []byte("jokes/count/")
	jokesStatsKeyBytes  = []byte("jokes/stats")
	accountPrefix       = []byte("account/")
)

func idKey(prefix []byte, id uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], id)
	return buf
}

func addrKey(prefix []byte, addr []byte) []byte {
	buf := make([]byte, len(prefix)+len(addr))
	copy(buf, prefix)
	copy(buf[len(prefix):], addr)
	return buf
}

// JokePendingKey returns the unhashed key of the submission with id.
func JokePendingKey(id uint64) []byte { return idKey(jokesPendingPrefix, id) }

// JokeApprovedKey returns the unhashed key of the approved joke with id.
func JokeApprovedKey(id uint64) []byte { return idKey(jokesApprovedPrefix, id) }

// JokeCountKey returns the unhashed key of addr's joke counter.
func JokeCountKey(addr [20]byte) []byte { return addrKey(jokesCountPrefix, addr[:]) }

// JokeStatsKey returns the unhashed key of the ledger-wide counters.
func JokeStatsKey() []byte { return append([]byte(nil), jokesStatsKeyBytes...) }

// AccountKey returns the unhashed key of addr's balance record.
func AccountKey(addr []byte) []byte { return addrKey(accountPrefix, addr) }
