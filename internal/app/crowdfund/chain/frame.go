// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store"
)

// Frame is the running context of one piece of code: who called it, what
// it was sent and what it may touch.
type Frame struct {
	exec  *Executor
	st    store.State
	state *meteredState
	m     *meter

	caller crowdfund.Address
	self   crowdfund.Address
	value  *big.Int

	events      []crowdfund.Event
	transferred *big.Int
}

func (e *Executor) newFrame(st store.State, m *meter, caller, self crowdfund.Address, value *big.Int) *Frame {
	if value == nil {
		value = new(big.Int)
	}
	return &Frame{
		exec:        e,
		st:          st,
		state:       &meteredState{st: st, m: m, costs: e.cfg.Costs},
		m:           m,
		caller:      caller,
		self:        self,
		value:       value,
		transferred: new(big.Int),
	}
}

type frameKey struct{}

func withFrame(ctx context.Context, f *Frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

func frameFromContext(ctx context.Context) (*Frame, bool) {
	f, ok := ctx.Value(frameKey{}).(*Frame)
	return f, ok
}

func (f *Frame) Caller() crowdfund.Address {
	return f.caller
}

func (f *Frame) Self() crowdfund.Address {
	return f.self
}

// Value returns the amount sent with the call.
func (f *Frame) Value() *big.Int {
	return new(big.Int).Set(f.value)
}

// State is the storage of the unit, every access is charged.
func (f *Frame) State() store.State {
	return f.state
}

func (f *Frame) GasLeft() uint64 {
	return f.m.remaining()
}

func (f *Frame) Charge(gas uint64) error {
	return f.m.charge(gas)
}

// SelfBalance is the native balance held by the running code.
func (f *Frame) SelfBalance(ctx context.Context) (*big.Int, error) {
	return f.state.Balance(ctx, f.self)
}

// Emit records an event. It is published only if the outermost call commits.
func (f *Frame) Emit(topic string, payload interface{}) error {
	if err := f.m.charge(f.exec.cfg.Costs.Emit); err != nil {
		return err
	}
	f.events = append(f.events, crowdfund.Event{Topic: topic, Contract: f.self, Payload: payload})
	return nil
}

// CreateAddress derives a fresh contract address from the caller and its nonce.
func (f *Frame) CreateAddress(ctx context.Context) (crowdfund.Address, error) {
	if err := f.m.charge(f.exec.cfg.Costs.Create); err != nil {
		return crowdfund.ZeroAddress, err
	}
	nonce, err := f.state.Nonce(ctx, f.caller)
	if err != nil {
		return crowdfund.ZeroAddress, err
	}
	if err := f.state.SetNonce(ctx, f.caller, nonce+1); err != nil {
		return crowdfund.ZeroAddress, err
	}
	return crowdfund.ContractAddress(f.caller, nonce), nil
}

// CallError is a failure of the recipient side of Call or Transfer.
type CallError struct {
	To  crowdfund.Address
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call to %s failed: %s", e.To, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Call sends amount to addr and forwards all remaining gas to its code.
func (f *Frame) Call(ctx context.Context, to crowdfund.Address, amount *big.Int) error {
	if err := f.m.charge(f.exec.cfg.Costs.Call); err != nil {
		return err
	}
	return f.send(ctx, to, amount, f.m.remaining(), true)
}

// Transfer sends amount to addr giving its code only the stipend.
func (f *Frame) Transfer(ctx context.Context, to crowdfund.Address, amount *big.Int) error {
	if err := f.m.charge(f.exec.cfg.Costs.Transfer); err != nil {
		return err
	}
	return f.send(ctx, to, amount, f.exec.cfg.Stipend, false)
}

func (f *Frame) send(ctx context.Context, to crowdfund.Address, amount *big.Int, gas uint64, billed bool) error {
	child := &meter{limit: gas}
	var callee *Frame
	err := f.exec.store.Atomic(ctx, func(ctx context.Context, st store.State) error {
		callee = f.exec.newFrame(st, child, f.self, to, amount)
		if err := callee.moveValue(ctx, f.self, to, amount); err != nil {
			return err
		}
		rcv, ok := f.exec.receivers.lookup(to)
		if !ok {
			return nil
		}
		return rcv.Receive(withFrame(ctx, callee), callee)
	})
	f.m.absorb(child, billed)
	if err != nil {
		return &CallError{To: to, Err: err}
	}
	f.events = append(f.events, callee.events...)
	f.transferred.Add(f.transferred, amount)
	return nil
}

func (f *Frame) moveValue(ctx context.Context, from, to crowdfund.Address, amount *big.Int) error {
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBalance, err := f.st.Balance(ctx, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return crowdfund.ErrInsufficientBalance
	}
	toBalance, err := f.st.Balance(ctx, to)
	if err != nil {
		return err
	}
	if err := f.st.SetBalance(ctx, from, fromBalance.Sub(fromBalance, amount)); err != nil {
		return err
	}
	return f.st.SetBalance(ctx, to, toBalance.Add(toBalance, amount))
}
