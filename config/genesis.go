package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"jokeledger/native/jokes"
)

// Genesis lists the balances funded when a ledger starts from empty state.
type Genesis struct {
	Allocations []Allocation `yaml:"allocations"`
}

// Allocation credits Amount base units to Account.
type Allocation struct {
	Account string `yaml:"account"`
	Amount  string `yaml:"amount"`
}

// LoadGenesis reads a YAML genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open genesis: %w", err)
	}
	return ParseGenesis(raw)
}

// ParseGenesis decodes YAML genesis content and rejects unknown fields.
func ParseGenesis(raw []byte) (*Genesis, error) {
	var g Genesis
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&g); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	return &g, nil
}

// Balances validates the allocations and returns them keyed by address.
// An account may appear only once.
func (g *Genesis) Balances() (map[[20]byte]*big.Int, error) {
	out := make(map[[20]byte]*big.Int, len(g.Allocations))
	seen := make(map[[20]byte]struct{}, len(g.Allocations))
	for i, alloc := range g.Allocations {
		addr, err := jokes.ParseAddress(alloc.Account)
		if err != nil {
			return nil, fmt.Errorf("genesis allocations[%d]: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("genesis allocations[%d]: duplicate account %s", i, strings.TrimSpace(alloc.Account))
		}
		seen[addr] = struct{}{}
		amount, err := parseUintAmount(alloc.Amount)
		if err != nil {
			return nil, fmt.Errorf("genesis allocations[%d]: %w", i, err)
		}
		if amount.Sign() == 0 {
			continue
		}
		out[addr] = amount
	}
	return out, nil
}
