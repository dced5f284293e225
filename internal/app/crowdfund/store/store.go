// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package store

import (
	"context"
	"math/big"
	"time"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
)

// Contract is the immutable part of a deployed ledger.
type Contract struct {
	Address   crowdfund.Address
	Owner     crowdfund.Address
	PriceFeed crowdfund.Address
	CreatedAt time.Time
}

// Accounts holds native balances and nonces. Unknown accounts read as zero.
type Accounts interface {
	Balance(ctx context.Context, addr crowdfund.Address) (*big.Int, error)
	SetBalance(ctx context.Context, addr crowdfund.Address, amount *big.Int) error
	Nonce(ctx context.Context, addr crowdfund.Address) (uint64, error)
	SetNonce(ctx context.Context, addr crowdfund.Address, nonce uint64) error
}

// Contracts holds deployed ledgers.
type Contracts interface {
	// Contract returns ErrNotFound for an address without a contract.
	Contract(ctx context.Context, addr crowdfund.Address) (Contract, error)
	// CreateContract returns ErrExists if the address is taken.
	CreateContract(ctx context.Context, c Contract) error
}

// Funding holds the per-ledger contributor balance map and contributor list.
type Funding interface {
	// AmountFunded returns zero for a contributor without an entry.
	AmountFunded(ctx context.Context, contract, funder crowdfund.Address) (*big.Int, error)
	SetAmountFunded(ctx context.Context, contract, funder crowdfund.Address, amount *big.Int) error

	FunderCount(ctx context.Context, contract crowdfund.Address) (int, error)
	// Funder returns ErrNotFound for an index outside the list.
	Funder(ctx context.Context, contract crowdfund.Address, index int) (crowdfund.Address, error)
	Funders(ctx context.Context, contract crowdfund.Address) ([]crowdfund.Address, error)
	AppendFunder(ctx context.Context, contract, funder crowdfund.Address) error
	ClearFunders(ctx context.Context, contract crowdfund.Address) error
}

// State is the view of the store inside one atomic unit.
type State interface {
	Accounts
	Contracts
	Funding
}

// Store runs units of work atomically: fn either commits all of its writes or
// none of them. Calling Atomic with a context produced by an enclosing Atomic
// of the same store opens a nested unit whose failure only discards its own
// writes.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, st State) error) error
}

type stateKey struct{}

// WithState marks ctx as running inside a unit of work of st.
func WithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

func StateFromContext(ctx context.Context) (State, bool) {
	st, ok := ctx.Value(stateKey{}).(State)
	return st, ok
}
