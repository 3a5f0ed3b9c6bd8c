package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"jokeledger/core/types"
)

type storedAccount struct {
	Balance   *big.Int
	UpdatedAt uint64
}

// GetAccount returns the balance record stored for addr. Unknown addresses
// yield a zero balance.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("address must not be empty")
	}
	var stored storedAccount
	ok, err := m.KVGet(AccountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	account := &types.Account{Balance: big.NewInt(0)}
	if !ok {
		return account, nil
	}
	if stored.Balance != nil {
		account.Balance = new(big.Int).Set(stored.Balance)
	}
	account.UpdatedAt = stored.UpdatedAt
	return account, nil
}

// PutAccount persists the balance record for addr. Balances must be
// non-negative and fit in 256 bits.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("account must not be nil")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Sign() < 0 {
		return fmt.Errorf("account balance must not be negative")
	}
	if _, overflow := uint256.FromBig(balance); overflow {
		return fmt.Errorf("account balance exceeds 256 bits")
	}
	return m.KVPut(AccountKey(addr), storedAccount{
		Balance:   new(big.Int).Set(balance),
		UpdatedAt: account.UpdatedAt,
	})
}
