// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package chain

import (
	"context"
	"sync"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
)

// Receiver is code attached to an address. It runs whenever value is sent
// to that address. Returning an error rejects the payment.
type Receiver interface {
	Receive(ctx context.Context, f *Frame) error
}

type ReceiverFunc func(ctx context.Context, f *Frame) error

func (fn ReceiverFunc) Receive(ctx context.Context, f *Frame) error {
	return fn(ctx, f)
}

// Receivers maps addresses to their code. Addresses without code accept any payment.
type Receivers struct {
	mu sync.RWMutex
	m  map[crowdfund.Address]Receiver
}

func NewReceivers() *Receivers {
	return &Receivers{m: make(map[crowdfund.Address]Receiver)}
}

func (r *Receivers) Register(addr crowdfund.Address, rcv Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[addr] = rcv
}

func (r *Receivers) Unregister(addr crowdfund.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, addr)
}

func (r *Receivers) lookup(addr crowdfund.Address) (Receiver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rcv, ok := r.m[addr]
	return rcv, ok
}
