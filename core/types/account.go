package types

import "math/big"

// Account holds the spendable balance the ledger moves when an operation
// carries a payment.
type Account struct {
	Balance   *big.Int `json:"balance"`
	UpdatedAt uint64   `json:"updatedAt"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return &clone
}
