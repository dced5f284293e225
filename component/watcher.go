// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package component

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/events"
	"github.com/insolar/crowdfund/internal/app/crowdfund/ledger"
	"github.com/insolar/crowdfund/observability"
)

// watcher logs committed ledger events and keeps the ledger gauges current.
type watcher struct {
	ledger  *ledger.Ledger
	metrics *observability.LedgerMetrics
	log     *logrus.Logger
}

func (w *watcher) handle(ctx context.Context, r events.Record) error {
	entry := w.log.WithFields(logrus.Fields{
		"topic":    r.Topic,
		"contract": r.Contract,
	})
	switch r.Topic {
	case crowdfund.TopicFunded:
		var e crowdfund.Funded
		if err := r.Decode(&e); err != nil {
			return err
		}
		entry = entry.WithFields(logrus.Fields{"funder": e.Funder, "amount": e.Amount, "total": e.Total})
	case crowdfund.TopicWithdrawn:
		var e crowdfund.Withdrawn
		if err := r.Decode(&e); err != nil {
			return err
		}
		entry = entry.WithFields(logrus.Fields{"method": e.Method, "amount": e.Amount, "funders": e.Funders})
	}
	entry.Info("ledger event")

	if r.Contract != w.ledger.Address() {
		return nil
	}
	return w.refresh(ctx)
}

func (w *watcher) refresh(ctx context.Context) error {
	held, err := w.ledger.HeldBalance(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read held balance")
	}
	n, err := w.ledger.FunderCount(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read funder count")
	}
	w.metrics.HeldBalance.Set(toEther(held))
	w.metrics.Funders.Set(float64(n))
	return nil
}

func toEther(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt(crowdfund.Ether(1))).Float64()
	return f
}
