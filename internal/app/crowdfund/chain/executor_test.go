// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package chain

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store/memory"
)

var (
	alice = crowdfund.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	bob   = crowdfund.MustParseAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	code  = crowdfund.MustParseAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []crowdfund.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...crowdfund.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func newExecutor(t *testing.T) (*Executor, *recordingPublisher) {
	e := NewExecutor(memory.NewStore(), nil, DefaultConfig(), logrus.New())
	pub := &recordingPublisher{}
	e.SetPublisher(pub)
	created, err := e.Genesis(context.Background(), alice, crowdfund.Ether(100))
	require.NoError(t, err)
	require.True(t, created)
	return e, pub
}

func balance(t *testing.T, e *Executor, addr crowdfund.Address) *big.Int {
	b, err := e.Balance(context.Background(), addr)
	require.NoError(t, err)
	return b
}

func TestExecutor_ValueMoves(t *testing.T) {
	e, pub := newExecutor(t)
	ctx := context.Background()

	r, err := e.Execute(ctx, Message{From: alice, To: code, Value: crowdfund.Ether(1)}, func(ctx context.Context, f *Frame) error {
		require.Equal(t, alice, f.Caller())
		require.Equal(t, code, f.Self())
		require.Equal(t, crowdfund.Ether(1).String(), f.Value().String())
		return f.Emit("test.paid", f.Value().String())
	})
	require.NoError(t, err)
	require.Equal(t, crowdfund.Ether(99).String(), balance(t, e, alice).String())
	require.Equal(t, crowdfund.Ether(1).String(), balance(t, e, code).String())
	require.True(t, r.GasUsed >= DefaultConfig().Costs.Base)
	require.Len(t, pub.events, 1)
	require.Equal(t, code, pub.events[0].Contract)
}

func TestExecutor_RevertLeavesNoTrace(t *testing.T) {
	e, pub := newExecutor(t)
	ctx := context.Background()
	failure := errors.New("revert")

	_, err := e.Execute(ctx, Message{From: alice, To: code, Value: crowdfund.Ether(1)}, func(ctx context.Context, f *Frame) error {
		require.NoError(t, f.State().AppendFunder(ctx, code, alice))
		require.NoError(t, f.Emit("test.paid", nil))
		return failure
	})
	require.Equal(t, failure, err)
	require.Equal(t, crowdfund.Ether(100).String(), balance(t, e, alice).String())
	require.Empty(t, pub.events)

	err = e.View(ctx, code, func(ctx context.Context, f *Frame) error {
		n, err := f.State().FunderCount(ctx, code)
		require.Zero(t, n)
		return err
	})
	require.NoError(t, err)
}

func TestExecutor_InsufficientBalance(t *testing.T) {
	e, _ := newExecutor(t)
	_, err := e.Execute(context.Background(), Message{From: bob, To: code, Value: big.NewInt(1)}, func(ctx context.Context, f *Frame) error {
		t.Fatal("must not run")
		return nil
	})
	require.True(t, errors.Is(err, crowdfund.ErrInsufficientBalance))

	_, err = e.Execute(context.Background(), Message{From: alice, To: code, Value: big.NewInt(-1)}, func(ctx context.Context, f *Frame) error {
		return nil
	})
	require.True(t, errors.Is(err, crowdfund.ErrInvalidArgument))
}

func TestExecutor_OutOfGas(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GasLimit = cfg.Costs.Base + cfg.Costs.Write
	e := NewExecutor(memory.NewStore(), nil, cfg, logrus.New())
	ctx := context.Background()

	r, err := e.Execute(ctx, Message{From: alice, To: code}, func(ctx context.Context, f *Frame) error {
		if err := f.State().AppendFunder(ctx, code, alice); err != nil {
			return err
		}
		return f.State().AppendFunder(ctx, code, bob)
	})
	require.True(t, errors.Is(err, crowdfund.ErrOutOfGas))
	require.Equal(t, cfg.GasLimit, r.GasUsed)

	err = e.View(ctx, code, func(ctx context.Context, f *Frame) error {
		list, err := f.st.Funders(ctx, code)
		require.Empty(t, list)
		return err
	})
	require.NoError(t, err)
}

func TestFrame_CallRejected(t *testing.T) {
	e, _ := newExecutor(t)
	ctx := context.Background()
	rejection := errors.New("no thanks")
	e.Receivers().Register(bob, ReceiverFunc(func(ctx context.Context, f *Frame) error {
		require.NoError(t, f.State().AppendFunder(ctx, bob, bob))
		return rejection
	}))

	r, err := e.Execute(ctx, Message{From: alice, To: code, Value: crowdfund.Ether(2)}, func(ctx context.Context, f *Frame) error {
		err := f.Call(ctx, bob, crowdfund.Ether(1))
		var callErr *CallError
		require.True(t, errors.As(err, &callErr))
		require.Equal(t, bob, callErr.To)
		require.True(t, errors.Is(err, rejection))
		// the caller goes on, only the callee side is undone
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, r.Transferred.Sign())
	require.Equal(t, crowdfund.Ether(2).String(), balance(t, e, code).String())
	require.Equal(t, 0, balance(t, e, bob).Sign())

	err = e.View(ctx, bob, func(ctx context.Context, f *Frame) error {
		n, err := f.st.FunderCount(ctx, bob)
		require.Zero(t, n)
		return err
	})
	require.NoError(t, err)
}

func TestFrame_StipendLimitsReceiver(t *testing.T) {
	e, _ := newExecutor(t)
	ctx := context.Background()
	e.Receivers().Register(bob, ReceiverFunc(func(ctx context.Context, f *Frame) error {
		return f.State().AppendFunder(ctx, bob, bob)
	}))

	_, err := e.Execute(ctx, Message{From: alice, To: code, Value: crowdfund.Ether(2)}, func(ctx context.Context, f *Frame) error {
		err := f.Transfer(ctx, bob, crowdfund.Ether(1))
		require.True(t, errors.Is(err, crowdfund.ErrOutOfGas))

		return f.Call(ctx, bob, crowdfund.Ether(1))
	})
	require.NoError(t, err)
	require.Equal(t, crowdfund.Ether(1).String(), balance(t, e, bob).String())
}

func TestExecutor_NestedCall(t *testing.T) {
	e, pub := newExecutor(t)
	ctx := context.Background()

	e.Receivers().Register(bob, ReceiverFunc(func(ctx context.Context, f *Frame) error {
		// re-enter code with a part of the received value
		_, err := e.Execute(ctx, Message{From: bob, To: code, Value: big.NewInt(10)}, func(ctx context.Context, inner *Frame) error {
			require.Equal(t, bob, inner.Caller())
			return inner.Emit("test.reentered", nil)
		})
		if err != nil {
			return err
		}
		// a contract can't act on behalf of somebody else
		_, err = e.Execute(ctx, Message{From: alice, To: code}, func(ctx context.Context, inner *Frame) error {
			return nil
		})
		require.True(t, errors.Is(err, crowdfund.ErrInvalidArgument))
		return nil
	}))

	r, err := e.Execute(ctx, Message{From: alice, To: code, Value: big.NewInt(100)}, func(ctx context.Context, f *Frame) error {
		return f.Call(ctx, bob, big.NewInt(50))
	})
	require.NoError(t, err)
	require.Equal(t, int64(50), r.Transferred.Int64())
	require.Equal(t, int64(60), balance(t, e, code).Int64())
	require.Equal(t, int64(40), balance(t, e, bob).Int64())
	require.Len(t, pub.events, 1)
	require.Equal(t, "test.reentered", pub.events[0].Topic)
}

func TestFrame_CreateAddress(t *testing.T) {
	e, _ := newExecutor(t)
	ctx := context.Background()

	var first, second crowdfund.Address
	_, err := e.Execute(ctx, Message{From: alice}, func(ctx context.Context, f *Frame) error {
		var err error
		first, err = f.CreateAddress(ctx)
		if err != nil {
			return err
		}
		second, err = f.CreateAddress(ctx)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, crowdfund.ContractAddress(alice, 0), first)
	require.Equal(t, crowdfund.ContractAddress(alice, 1), second)

	created, err := e.Genesis(ctx, alice, crowdfund.Ether(1))
	require.NoError(t, err)
	require.False(t, created)
}
