package jokes

import (
	"errors"

	nativecommon "jokeledger/native/common"
)

var (
	ErrNilState                   = errors.New("jokes: state not configured")
	ErrInvalidArgument            = errors.New("jokes: invalid argument")
	ErrQuotaExceeded              = errors.New("jokes: max jokes limit reached")
	ErrNotFound                   = errors.New("jokes: joke not found")
	ErrAlreadyVoted               = errors.New("jokes: already voted on this joke")
	ErrSelfVoteForbidden          = errors.New("jokes: owner cannot vote on their own joke")
	ErrInsufficientPayment        = errors.New("jokes: insufficient payment")
	ErrInsufficientFunds          = errors.New("jokes: insufficient balance")
	ErrNotListed                  = errors.New("jokes: joke not listed for sale")
	ErrSelfPurchase               = errors.New("jokes: owner cannot buy their own joke")
	ErrStillLocked                = errors.New("jokes: joke is still in initial lock period")
	ErrJokeLocked                 = errors.New("jokes: joke locked")
	ErrTierMismatch               = errors.New("jokes: jokes must be of same tier")
	ErrTierMaxed                  = errors.New("jokes: tier cannot be raised further")
	ErrInvalidExchangeCombination = errors.New("jokes: invalid exchange combination")
	ErrVotingStillOpen            = errors.New("jokes: voting period still open")
	ErrNotOwner                   = errors.New("jokes: caller does not own the joke")
	ErrJokeRetired                = errors.New("jokes: joke was fused into another joke")
)

// Error codes surfaced to callers.
const (
	CodeInvalidArgument            = "InvalidArgument"
	CodeQuotaExceeded              = "QuotaExceeded"
	CodeNotFound                   = "NotFound"
	CodeAlreadyVoted               = "AlreadyVoted"
	CodeSelfVoteForbidden          = "SelfVoteForbidden"
	CodeInsufficientPayment        = "InsufficientPayment"
	CodeInsufficientFunds          = "InsufficientFunds"
	CodeNotListed                  = "NotListed"
	CodeSelfPurchase               = "SelfPurchase"
	CodeStillLocked                = "StillLocked"
	CodeJokeLocked                 = "JokeLocked"
	CodeTierMismatch               = "TierMismatch"
	CodeTierMaxed                  = "TierMaxed"
	CodeInvalidExchangeCombination = "InvalidExchangeCombination"
	CodeVotingStillOpen            = "VotingStillOpen"
	CodeNotOwner                   = "NotOwner"
	CodeJokeRetired                = "JokeRetired"
	CodeModulePaused               = "ModulePaused"
	CodeInternal                   = "Internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrQuotaExceeded, CodeQuotaExceeded},
	{ErrNotFound, CodeNotFound},
	{ErrAlreadyVoted, CodeAlreadyVoted},
	{ErrSelfVoteForbidden, CodeSelfVoteForbidden},
	{ErrInsufficientPayment, CodeInsufficientPayment},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrNotListed, CodeNotListed},
	{ErrSelfPurchase, CodeSelfPurchase},
	{ErrStillLocked, CodeStillLocked},
	{ErrJokeLocked, CodeJokeLocked},
	{ErrTierMismatch, CodeTierMismatch},
	{ErrTierMaxed, CodeTierMaxed},
	{ErrInvalidExchangeCombination, CodeInvalidExchangeCombination},
	{ErrVotingStillOpen, CodeVotingStillOpen},
	{ErrNotOwner, CodeNotOwner},
	{ErrJokeRetired, CodeJokeRetired},
	{nativecommon.ErrModulePaused, CodeModulePaused},
}

// Code maps err onto the caller-facing error taxonomy. Unknown errors are
// reported as Internal; a nil error yields "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeInternal
}
