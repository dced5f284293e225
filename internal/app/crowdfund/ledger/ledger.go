// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/chain"
	"github.com/insolar/crowdfund/internal/app/crowdfund/oracle"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store"
	"github.com/insolar/crowdfund/observability"
)

// MinimumUSD is the smallest accepted contribution: 50 USD with 18 decimals.
func MinimumUSD() *big.Int {
	return new(big.Int).Mul(big.NewInt(50), crowdfund.Pow10(18))
}

const (
	MethodWithdraw        = "withdraw"
	MethodCheaperWithdraw = "cheaperWithdraw"
)

type FeedResolver interface {
	Feed(addr crowdfund.Address) (oracle.PriceFeed, error)
}

type Deps struct {
	Executor *chain.Executor
	Feeds    FeedResolver
	Log      *logrus.Logger
	// Metrics is optional.
	Metrics *observability.LedgerMetrics
}

// Ledger is a handle of one deployed crowdfunding contract. All state lives
// in the executor's store, the handle itself is stateless.
type Ledger struct {
	Deps
	address crowdfund.Address
}

// Deploy creates a new ledger owned by deployer that prices contributions
// with the feed at priceFeed.
func Deploy(ctx context.Context, deps Deps, deployer, priceFeed crowdfund.Address) (*Ledger, chain.Receipt, error) {
	l := &Ledger{Deps: deps}
	r, err := deps.Executor.Execute(ctx, chain.Message{From: deployer}, func(ctx context.Context, f *chain.Frame) error {
		addr, err := f.CreateAddress(ctx)
		if err != nil {
			return err
		}
		l.address = addr
		err = f.State().CreateContract(ctx, store.Contract{
			Address:   addr,
			Owner:     f.Caller(),
			PriceFeed: priceFeed,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return errors.Wrap(err, "failed to create contract")
		}
		return f.Emit(crowdfund.TopicDeployed, crowdfund.Deployed{Owner: f.Caller(), PriceFeed: priceFeed})
	})
	if err != nil {
		return nil, r, err
	}
	deps.Log.WithFields(logrus.Fields{
		"address":    l.address,
		"owner":      deployer,
		"price_feed": priceFeed,
	}).Info("ledger deployed")
	return l, r, nil
}

// Attach opens a previously deployed ledger.
func Attach(ctx context.Context, deps Deps, address crowdfund.Address) (*Ledger, error) {
	l := &Ledger{Deps: deps, address: address}
	if _, err := l.contract(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Address() crowdfund.Address {
	return l.address
}

// Fund accepts value from funder if it is worth at least MinimumUSD.
func (l *Ledger) Fund(ctx context.Context, funder crowdfund.Address, value *big.Int) (chain.Receipt, error) {
	msg := chain.Message{From: funder, To: l.address, Value: value}
	return l.execute(ctx, "fund", msg, l.counter(func(m *observability.LedgerMetrics) prometheus.Counter { return m.Funds }),
		func(ctx context.Context, f *chain.Frame) error {
			c, err := loadContract(ctx, f, l.address)
			if err != nil {
				return err
			}
			feed, err := l.Feeds.Feed(c.PriceFeed)
			if err != nil {
				return err
			}
			if err := f.Charge(l.Executor.Config().Costs.Call); err != nil {
				return err
			}
			converted, err := oracle.ConversionRate(ctx, feed, f.Value())
			if err != nil {
				return err
			}
			if converted.Cmp(MinimumUSD()) < 0 {
				return crowdfund.ErrInsufficientContribution
			}

			st := f.State()
			total, err := st.AmountFunded(ctx, l.address, f.Caller())
			if err != nil {
				return err
			}
			total.Add(total, f.Value())
			if err := st.SetAmountFunded(ctx, l.address, f.Caller(), total); err != nil {
				return err
			}
			if err := st.AppendFunder(ctx, l.address, f.Caller()); err != nil {
				return err
			}
			return f.Emit(crowdfund.TopicFunded, crowdfund.Funded{
				Funder: f.Caller(),
				Amount: f.Value().String(),
				Total:  total.String(),
			})
		})
}

// Withdraw resets every contributor entry, re-reading the list from storage
// on each step, and sends the held balance to the owner with all remaining gas.
func (l *Ledger) Withdraw(ctx context.Context, caller crowdfund.Address) (chain.Receipt, error) {
	msg := chain.Message{From: caller, To: l.address}
	return l.execute(ctx, MethodWithdraw, msg, l.counter(func(m *observability.LedgerMetrics) prometheus.Counter { return m.Withdrawals }),
		func(ctx context.Context, f *chain.Frame) error {
			c, err := l.onlyOwner(ctx, f)
			if err != nil {
				return err
			}
			st := f.State()
			held, err := f.SelfBalance(ctx)
			if err != nil {
				return err
			}

			i := 0
			for ; ; i++ {
				n, err := st.FunderCount(ctx, l.address)
				if err != nil {
					return err
				}
				if i >= n {
					break
				}
				funder, err := st.Funder(ctx, l.address, i)
				if err != nil {
					return err
				}
				if err := st.SetAmountFunded(ctx, l.address, funder, new(big.Int)); err != nil {
					return err
				}
			}
			if err := st.ClearFunders(ctx, l.address); err != nil {
				return err
			}
			if err := emitWithdrawn(f, c.Owner, held, MethodWithdraw, i); err != nil {
				return err
			}
			return transferFailed(f.Call(ctx, c.Owner, held))
		})
}

// CheaperWithdraw does what Withdraw does reading the contributor list only
// once. The owner gets the held balance with the transfer stipend only.
func (l *Ledger) CheaperWithdraw(ctx context.Context, caller crowdfund.Address) (chain.Receipt, error) {
	msg := chain.Message{From: caller, To: l.address}
	return l.execute(ctx, MethodCheaperWithdraw, msg, l.counter(func(m *observability.LedgerMetrics) prometheus.Counter { return m.CheaperWithdrawals }),
		func(ctx context.Context, f *chain.Frame) error {
			c, err := l.onlyOwner(ctx, f)
			if err != nil {
				return err
			}
			st := f.State()
			funders, err := st.Funders(ctx, l.address)
			if err != nil {
				return err
			}
			for _, funder := range funders {
				if err := st.SetAmountFunded(ctx, l.address, funder, new(big.Int)); err != nil {
					return err
				}
			}
			if err := st.ClearFunders(ctx, l.address); err != nil {
				return err
			}
			held, err := f.SelfBalance(ctx)
			if err != nil {
				return err
			}
			if err := emitWithdrawn(f, c.Owner, held, MethodCheaperWithdraw, len(funders)); err != nil {
				return err
			}
			return transferFailed(f.Transfer(ctx, c.Owner, held))
		})
}

func (l *Ledger) PriceFeed(ctx context.Context) (crowdfund.Address, error) {
	c, err := l.contract(ctx)
	return c.PriceFeed, err
}

func (l *Ledger) Owner(ctx context.Context) (crowdfund.Address, error) {
	c, err := l.contract(ctx)
	return c.Owner, err
}

// AddressToAmountFunded is zero for addresses that never funded.
func (l *Ledger) AddressToAmountFunded(ctx context.Context, funder crowdfund.Address) (*big.Int, error) {
	var amount *big.Int
	err := l.view(ctx, func(ctx context.Context, f *chain.Frame) error {
		var err error
		amount, err = f.State().AmountFunded(ctx, l.address, funder)
		return err
	})
	return amount, err
}

func (l *Ledger) Funder(ctx context.Context, index uint64) (crowdfund.Address, error) {
	var funder crowdfund.Address
	err := l.view(ctx, func(ctx context.Context, f *chain.Frame) error {
		n, err := f.State().FunderCount(ctx, l.address)
		if err != nil {
			return err
		}
		if index >= uint64(n) {
			return crowdfund.ErrIndexOutOfRange
		}
		funder, err = f.State().Funder(ctx, l.address, int(index))
		return err
	})
	return funder, err
}

func (l *Ledger) FunderCount(ctx context.Context) (int, error) {
	var n int
	err := l.view(ctx, func(ctx context.Context, f *chain.Frame) error {
		var err error
		n, err = f.State().FunderCount(ctx, l.address)
		return err
	})
	return n, err
}

func (l *Ledger) Funders(ctx context.Context) ([]crowdfund.Address, error) {
	var list []crowdfund.Address
	err := l.view(ctx, func(ctx context.Context, f *chain.Frame) error {
		var err error
		list, err = f.State().Funders(ctx, l.address)
		return err
	})
	return list, err
}

// HeldBalance is the native balance of the ledger.
func (l *Ledger) HeldBalance(ctx context.Context) (*big.Int, error) {
	var held *big.Int
	err := l.view(ctx, func(ctx context.Context, f *chain.Frame) error {
		var err error
		held, err = f.SelfBalance(ctx)
		return err
	})
	return held, err
}

// GetConversionRate values amount in USD with 18 decimals at the current feed rate.
func (l *Ledger) GetConversionRate(ctx context.Context, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, crowdfund.NewError(crowdfund.KindInvalidArgument, "amount must be non-negative")
	}
	var converted *big.Int
	err := l.view(ctx, func(ctx context.Context, f *chain.Frame) error {
		c, err := loadContract(ctx, f, l.address)
		if err != nil {
			return err
		}
		feed, err := l.Feeds.Feed(c.PriceFeed)
		if err != nil {
			return err
		}
		converted, err = oracle.ConversionRate(ctx, feed, amount)
		return err
	})
	return converted, err
}

func (l *Ledger) contract(ctx context.Context) (store.Contract, error) {
	var c store.Contract
	err := l.view(ctx, func(ctx context.Context, f *chain.Frame) error {
		var err error
		c, err = loadContract(ctx, f, l.address)
		return err
	})
	return c, err
}

func (l *Ledger) view(ctx context.Context, fn chain.Func) error {
	return l.Executor.View(ctx, l.address, fn)
}

func (l *Ledger) onlyOwner(ctx context.Context, f *chain.Frame) (store.Contract, error) {
	c, err := loadContract(ctx, f, l.address)
	if err != nil {
		return store.Contract{}, err
	}
	if f.Caller() != c.Owner {
		return store.Contract{}, crowdfund.ErrNotOwner
	}
	return c, nil
}

func (l *Ledger) execute(ctx context.Context, method string, msg chain.Message, success prometheus.Counter, fn chain.Func) (chain.Receipt, error) {
	r, err := l.Executor.Execute(ctx, msg, fn)
	log := l.Log.WithFields(logrus.Fields{
		"ledger": l.address,
		"method": method,
		"caller": msg.From,
		"gas":    r.GasUsed,
	})
	if err != nil {
		log.Debugf("call failed: %s", err)
		if l.Metrics != nil {
			if errors.Is(err, crowdfund.ErrInsufficientContribution) {
				l.Metrics.Rejections.Inc()
			} else {
				l.Metrics.Reverts.Inc()
			}
		}
		return r, err
	}
	log.Debug("call committed")
	if success != nil {
		success.Inc()
		l.Metrics.GasUsed.Observe(float64(r.GasUsed))
	}
	return r, nil
}

func (l *Ledger) counter(pick func(m *observability.LedgerMetrics) prometheus.Counter) prometheus.Counter {
	if l.Metrics == nil {
		return nil
	}
	return pick(l.Metrics)
}

func loadContract(ctx context.Context, f *chain.Frame, address crowdfund.Address) (store.Contract, error) {
	c, err := f.State().Contract(ctx, address)
	if err == store.ErrNotFound {
		return store.Contract{}, crowdfund.NewError(crowdfund.KindUnknownContract, "no ledger at "+address.String())
	}
	return c, err
}

func emitWithdrawn(f *chain.Frame, owner crowdfund.Address, held *big.Int, method string, funders int) error {
	return f.Emit(crowdfund.TopicWithdrawn, crowdfund.Withdrawn{
		Owner:   owner,
		Amount:  held.String(),
		Method:  method,
		Funders: funders,
	})
}

// transferFailed turns a failure of the recipient into TransferFailed. Gas
// exhaustion of the ledger itself stays as is.
func transferFailed(err error) error {
	if err == nil {
		return nil
	}
	var callErr *chain.CallError
	if errors.As(err, &callErr) {
		return crowdfund.Wrap(crowdfund.KindTransferFailed, err, crowdfund.ErrTransferFailed.Error())
	}
	return err
}
