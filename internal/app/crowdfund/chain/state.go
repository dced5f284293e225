// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package chain

import (
	"context"
	"math/big"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store"
)

// meteredState charges every storage access to the frame meter.
type meteredState struct {
	st    store.State
	m     *meter
	costs Costs
}

func (s *meteredState) read(n int) error {
	if err := s.m.charge(uint64(n) * s.costs.Read); err != nil {
		return err
	}
	s.m.reads += n
	return nil
}

func (s *meteredState) write() error {
	if err := s.m.charge(s.costs.Write); err != nil {
		return err
	}
	s.m.writes++
	return nil
}

func (s *meteredState) Balance(ctx context.Context, addr crowdfund.Address) (*big.Int, error) {
	if err := s.read(1); err != nil {
		return nil, err
	}
	return s.st.Balance(ctx, addr)
}

func (s *meteredState) SetBalance(ctx context.Context, addr crowdfund.Address, amount *big.Int) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.st.SetBalance(ctx, addr, amount)
}

func (s *meteredState) Nonce(ctx context.Context, addr crowdfund.Address) (uint64, error) {
	if err := s.read(1); err != nil {
		return 0, err
	}
	return s.st.Nonce(ctx, addr)
}

func (s *meteredState) SetNonce(ctx context.Context, addr crowdfund.Address, nonce uint64) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.st.SetNonce(ctx, addr, nonce)
}

func (s *meteredState) Contract(ctx context.Context, addr crowdfund.Address) (store.Contract, error) {
	if err := s.read(1); err != nil {
		return store.Contract{}, err
	}
	return s.st.Contract(ctx, addr)
}

func (s *meteredState) CreateContract(ctx context.Context, c store.Contract) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.st.CreateContract(ctx, c)
}

func (s *meteredState) AmountFunded(ctx context.Context, contract, funder crowdfund.Address) (*big.Int, error) {
	if err := s.read(1); err != nil {
		return nil, err
	}
	return s.st.AmountFunded(ctx, contract, funder)
}

func (s *meteredState) SetAmountFunded(ctx context.Context, contract, funder crowdfund.Address, amount *big.Int) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.st.SetAmountFunded(ctx, contract, funder, amount)
}

func (s *meteredState) FunderCount(ctx context.Context, contract crowdfund.Address) (int, error) {
	if err := s.read(1); err != nil {
		return 0, err
	}
	return s.st.FunderCount(ctx, contract)
}

func (s *meteredState) Funder(ctx context.Context, contract crowdfund.Address, index int) (crowdfund.Address, error) {
	if err := s.read(1); err != nil {
		return crowdfund.ZeroAddress, err
	}
	return s.st.Funder(ctx, contract, index)
}

// Funders costs one read for the length and one per element.
func (s *meteredState) Funders(ctx context.Context, contract crowdfund.Address) ([]crowdfund.Address, error) {
	list, err := s.st.Funders(ctx, contract)
	if err != nil {
		return nil, err
	}
	if err := s.read(1 + len(list)); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *meteredState) AppendFunder(ctx context.Context, contract, funder crowdfund.Address) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.st.AppendFunder(ctx, contract, funder)
}

// ClearFunders costs a single write, the length slot.
func (s *meteredState) ClearFunders(ctx context.Context, contract crowdfund.Address) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.st.ClearFunders(ctx, contract)
}
