// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store"
)

// Message is a call request: From sends Value to To and runs To's code.
type Message struct {
	From  crowdfund.Address
	To    crowdfund.Address
	Value *big.Int
}

type Receipt struct {
	GasUsed       uint64
	StorageReads  int
	StorageWrites int
	// Transferred is the value sent out by the called code.
	Transferred *big.Int
	Events      []crowdfund.Event
}

// Publisher receives events of committed calls.
type Publisher interface {
	Publish(ctx context.Context, events ...crowdfund.Event) error
}

type gasLimitKey struct{}

// WithGasLimit overrides the configured gas limit for calls started with ctx.
func WithGasLimit(ctx context.Context, limit uint64) context.Context {
	return context.WithValue(ctx, gasLimitKey{}, limit)
}

func gasLimitFromContext(ctx context.Context) (uint64, bool) {
	limit, ok := ctx.Value(gasLimitKey{}).(uint64)
	return limit, ok
}

// Func is the code of a call.
type Func func(ctx context.Context, f *Frame) error

// Executor runs calls one at a time. Each call is a unit of work of the
// store: it either commits as a whole or leaves no trace.
type Executor struct {
	store     store.Store
	receivers *Receivers
	cfg       Config
	log       *logrus.Logger
	publisher Publisher

	mu sync.Mutex
}

func NewExecutor(st store.Store, receivers *Receivers, cfg Config, log *logrus.Logger) *Executor {
	if receivers == nil {
		receivers = NewReceivers()
	}
	return &Executor{
		store:     st,
		receivers: receivers,
		cfg:       cfg,
		log:       log,
	}
}

func (e *Executor) SetPublisher(p Publisher) {
	e.publisher = p
}

func (e *Executor) Receivers() *Receivers {
	return e.receivers
}

func (e *Executor) Config() Config {
	return e.cfg
}

// Execute runs fn as the code of msg.To. Called from inside another call
// (a receiver re-entering), it runs as a nested unit on the caller's gas.
func (e *Executor) Execute(ctx context.Context, msg Message, fn Func) (Receipt, error) {
	if msg.Value == nil {
		msg.Value = new(big.Int)
	}
	if msg.Value.Sign() < 0 {
		return Receipt{Transferred: new(big.Int)}, crowdfund.NewError(crowdfund.KindInvalidArgument, "negative value")
	}
	if parent, ok := frameFromContext(ctx); ok && parent.exec == e {
		return e.nested(ctx, parent, msg, fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m := &meter{limit: e.cfg.GasLimit}
	if limit, ok := gasLimitFromContext(ctx); ok {
		m.limit = limit
	}
	if err := m.charge(e.cfg.Costs.Base); err != nil {
		return newReceipt(m, meter{}, nil), err
	}
	var f *Frame
	err := e.store.Atomic(ctx, func(ctx context.Context, st store.State) error {
		f = e.newFrame(st, m, msg.From, msg.To, msg.Value)
		if err := f.moveValue(ctx, msg.From, msg.To, msg.Value); err != nil {
			return err
		}
		return fn(withFrame(ctx, f), f)
	})
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"from": msg.From,
			"to":   msg.To,
			"gas":  m.used,
		}).Debugf("call reverted: %s", err)
		return newReceipt(m, meter{}, nil), err
	}

	r := newReceipt(m, meter{}, f)
	e.publish(ctx, r.Events)
	return r, nil
}

func (e *Executor) nested(ctx context.Context, parent *Frame, msg Message, fn Func) (Receipt, error) {
	before := *parent.m
	if msg.From != parent.self {
		return newReceipt(parent.m, before, nil), crowdfund.NewError(crowdfund.KindInvalidArgument, "nested call must come from the running code")
	}
	if err := parent.m.charge(e.cfg.Costs.Call); err != nil {
		return newReceipt(parent.m, before, nil), err
	}
	var f *Frame
	err := e.store.Atomic(ctx, func(ctx context.Context, st store.State) error {
		f = e.newFrame(st, parent.m, msg.From, msg.To, msg.Value)
		if err := f.moveValue(ctx, msg.From, msg.To, msg.Value); err != nil {
			return err
		}
		return fn(withFrame(ctx, f), f)
	})
	if err != nil {
		return newReceipt(parent.m, before, nil), err
	}
	parent.events = append(parent.events, f.events...)
	return newReceipt(parent.m, before, f), nil
}

// View runs read-only code of self. Nothing it does is kept.
func (e *Executor) View(ctx context.Context, self crowdfund.Address, fn Func) error {
	m := &meter{limit: e.cfg.GasLimit}
	caller := crowdfund.ZeroAddress
	if parent, ok := frameFromContext(ctx); ok && parent.exec == e {
		m = parent.m
		caller = parent.self
	}
	errView := errors.New("view")
	err := e.store.Atomic(ctx, func(ctx context.Context, st store.State) error {
		f := e.newFrame(st, m, caller, self, nil)
		if err := fn(withFrame(ctx, f), f); err != nil {
			return err
		}
		return errView
	})
	if err == errView {
		return nil
	}
	return err
}

// Balance returns the native balance of addr.
func (e *Executor) Balance(ctx context.Context, addr crowdfund.Address) (*big.Int, error) {
	var balance *big.Int
	err := e.View(ctx, addr, func(ctx context.Context, f *Frame) error {
		var err error
		balance, err = f.st.Balance(ctx, addr)
		return err
	})
	return balance, err
}

// Genesis credits addr with balance unless the account was already used.
func (e *Executor) Genesis(ctx context.Context, addr crowdfund.Address, balance *big.Int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	created := false
	err := e.store.Atomic(ctx, func(ctx context.Context, st store.State) error {
		current, err := st.Balance(ctx, addr)
		if err != nil {
			return err
		}
		nonce, err := st.Nonce(ctx, addr)
		if err != nil {
			return err
		}
		if current.Sign() != 0 || nonce != 0 {
			return nil
		}
		created = true
		return st.SetBalance(ctx, addr, balance)
	})
	return created, errors.Wrapf(err, "failed to credit genesis account %s", addr)
}

func (e *Executor) publish(ctx context.Context, events []crowdfund.Event) {
	if e.publisher == nil || len(events) == 0 {
		return
	}
	if err := e.publisher.Publish(ctx, events...); err != nil {
		e.log.Error(errors.Wrap(err, "failed to publish events"))
	}
}

func newReceipt(m *meter, before meter, f *Frame) Receipt {
	r := Receipt{
		GasUsed:       m.used - before.used,
		StorageReads:  m.reads - before.reads,
		StorageWrites: m.writes - before.writes,
		Transferred:   new(big.Int),
	}
	if f != nil {
		r.Transferred.Set(f.transferred)
		r.Events = f.events
	}
	return r
}
