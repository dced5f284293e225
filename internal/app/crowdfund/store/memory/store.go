// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package memory

import (
	"context"
	"math/big"
	"sync"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store"
)

// Store keeps the whole state in process memory. Every unit of work writes
// into its own layer over the committed state; the layer is merged into its
// parent on success and dropped otherwise.
type Store struct {
	mu   sync.Mutex
	root *layer
}

func NewStore() *Store {
	return &Store{root: newLayer(nil)}
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, st store.State) error) error {
	if st, ok := store.StateFromContext(ctx); ok {
		if parent, ok := st.(*state); ok && parent.owner == s {
			return s.run(ctx, parent.layer, fn)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, s.root, fn)
}

func (s *Store) run(ctx context.Context, parent *layer, fn func(ctx context.Context, st store.State) error) error {
	l := newLayer(parent)
	st := &state{owner: s, layer: l}
	if err := fn(store.WithState(ctx, st), st); err != nil {
		return err
	}
	l.commit()
	return nil
}

type fundedKey struct {
	contract crowdfund.Address
	funder   crowdfund.Address
}

type layer struct {
	parent *layer

	balances  map[crowdfund.Address]*big.Int
	nonces    map[crowdfund.Address]uint64
	contracts map[crowdfund.Address]store.Contract
	funded    map[fundedKey]*big.Int
	// whole list per contract, written on first change within the layer
	funders map[crowdfund.Address][]crowdfund.Address
}

func newLayer(parent *layer) *layer {
	return &layer{
		parent:    parent,
		balances:  make(map[crowdfund.Address]*big.Int),
		nonces:    make(map[crowdfund.Address]uint64),
		contracts: make(map[crowdfund.Address]store.Contract),
		funded:    make(map[fundedKey]*big.Int),
		funders:   make(map[crowdfund.Address][]crowdfund.Address),
	}
}

func (l *layer) commit() {
	p := l.parent
	if p == nil {
		return
	}
	for k, v := range l.balances {
		p.balances[k] = v
	}
	for k, v := range l.nonces {
		p.nonces[k] = v
	}
	for k, v := range l.contracts {
		p.contracts[k] = v
	}
	for k, v := range l.funded {
		p.funded[k] = v
	}
	for k, v := range l.funders {
		p.funders[k] = v
	}
}

func (l *layer) balance(addr crowdfund.Address) *big.Int {
	for c := l; c != nil; c = c.parent {
		if v, ok := c.balances[addr]; ok {
			return v
		}
	}
	return nil
}

func (l *layer) nonce(addr crowdfund.Address) uint64 {
	for c := l; c != nil; c = c.parent {
		if v, ok := c.nonces[addr]; ok {
			return v
		}
	}
	return 0
}

func (l *layer) contract(addr crowdfund.Address) (store.Contract, bool) {
	for c := l; c != nil; c = c.parent {
		if v, ok := c.contracts[addr]; ok {
			return v, true
		}
	}
	return store.Contract{}, false
}

func (l *layer) amountFunded(key fundedKey) *big.Int {
	for c := l; c != nil; c = c.parent {
		if v, ok := c.funded[key]; ok {
			return v
		}
	}
	return nil
}

func (l *layer) funderList(contract crowdfund.Address) []crowdfund.Address {
	for c := l; c != nil; c = c.parent {
		if v, ok := c.funders[contract]; ok {
			return v
		}
	}
	return nil
}

type state struct {
	owner *Store
	layer *layer
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func (s *state) Balance(_ context.Context, addr crowdfund.Address) (*big.Int, error) {
	return copyInt(s.layer.balance(addr)), nil
}

func (s *state) SetBalance(_ context.Context, addr crowdfund.Address, amount *big.Int) error {
	s.layer.balances[addr] = copyInt(amount)
	return nil
}

func (s *state) Nonce(_ context.Context, addr crowdfund.Address) (uint64, error) {
	return s.layer.nonce(addr), nil
}

func (s *state) SetNonce(_ context.Context, addr crowdfund.Address, nonce uint64) error {
	s.layer.nonces[addr] = nonce
	return nil
}

func (s *state) Contract(_ context.Context, addr crowdfund.Address) (store.Contract, error) {
	c, ok := s.layer.contract(addr)
	if !ok {
		return store.Contract{}, store.ErrNotFound
	}
	return c, nil
}

func (s *state) CreateContract(_ context.Context, c store.Contract) error {
	if _, ok := s.layer.contract(c.Address); ok {
		return store.ErrExists
	}
	s.layer.contracts[c.Address] = c
	return nil
}

func (s *state) AmountFunded(_ context.Context, contract, funder crowdfund.Address) (*big.Int, error) {
	return copyInt(s.layer.amountFunded(fundedKey{contract: contract, funder: funder})), nil
}

func (s *state) SetAmountFunded(_ context.Context, contract, funder crowdfund.Address, amount *big.Int) error {
	s.layer.funded[fundedKey{contract: contract, funder: funder}] = copyInt(amount)
	return nil
}

func (s *state) FunderCount(_ context.Context, contract crowdfund.Address) (int, error) {
	return len(s.layer.funderList(contract)), nil
}

func (s *state) Funder(_ context.Context, contract crowdfund.Address, index int) (crowdfund.Address, error) {
	list := s.layer.funderList(contract)
	if index < 0 || index >= len(list) {
		return crowdfund.ZeroAddress, store.ErrNotFound
	}
	return list[index], nil
}

func (s *state) Funders(_ context.Context, contract crowdfund.Address) ([]crowdfund.Address, error) {
	list := s.layer.funderList(contract)
	out := make([]crowdfund.Address, len(list))
	copy(out, list)
	return out, nil
}

func (s *state) AppendFunder(_ context.Context, contract, funder crowdfund.Address) error {
	list := s.layer.funderList(contract)
	next := make([]crowdfund.Address, len(list), len(list)+1)
	copy(next, list)
	s.layer.funders[contract] = append(next, funder)
	return nil
}

func (s *state) ClearFunders(_ context.Context, contract crowdfund.Address) error {
	s.layer.funders[contract] = []crowdfund.Address{}
	return nil
}
