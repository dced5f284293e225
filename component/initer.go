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

	"github.com/insolar/crowdfund/configuration"
	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/chain"
	"github.com/insolar/crowdfund/internal/app/crowdfund/ledger"
	"github.com/insolar/crowdfund/internal/app/crowdfund/oracle"
)

// initLedger attaches to the configured ledger or deploys a new one.
func initLedger(ctx context.Context, cfg *configuration.Crowdfund, deps ledger.Deps, registry *oracle.Registry) (*ledger.Ledger, error) {
	network, ok := oracle.LookupNetwork(cfg.Network.ChainID, cfg.Network.Name)
	if !ok {
		return nil, errors.Errorf("unknown network %q (chain id %d)", cfg.Network.Name, cfg.Network.ChainID)
	}
	deps.Log.WithFields(logrus.Fields{
		"network":  network.Name,
		"chain_id": network.ChainID,
	}).Info("network selected")

	if cfg.Ledger.Address != "" {
		return attachLedger(ctx, cfg, deps, registry, network)
	}
	return deployLedger(ctx, cfg, deps, registry, network)
}

func attachLedger(ctx context.Context, cfg *configuration.Crowdfund, deps ledger.Deps, registry *oracle.Registry, network oracle.Network) (*ledger.Ledger, error) {
	addr, err := crowdfund.ParseAddress(cfg.Ledger.Address)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Ledger.Address")
	}
	l, err := ledger.Attach(ctx, deps, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to attach ledger %s", addr)
	}
	feedAddr, err := l.PriceFeed(ctx)
	if err != nil {
		return nil, err
	}
	if network.Development {
		answer, err := mockAnswer(cfg)
		if err != nil {
			return nil, err
		}
		registry.Register(oracle.NewMockAggregator(feedAddr, cfg.Oracle.MockDecimals, answer))
	} else {
		feed, err := newHTTPFeed(feedAddr, cfg, deps.Log)
		if err != nil {
			return nil, err
		}
		registry.Register(feed)
	}
	deps.Log.WithFields(logrus.Fields{
		"address":    addr,
		"price_feed": feedAddr,
	}).Info("ledger attached")
	return l, nil
}

func deployLedger(ctx context.Context, cfg *configuration.Crowdfund, deps ledger.Deps, registry *oracle.Registry, network oracle.Network) (*ledger.Ledger, error) {
	if err := applyGenesis(ctx, cfg.Genesis, deps.Executor, deps.Log); err != nil {
		return nil, err
	}
	deployer, err := crowdfund.ParseAddress(cfg.Ledger.Deployer)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Ledger.Deployer")
	}

	var feedAddr crowdfund.Address
	if network.Development {
		answer, err := mockAnswer(cfg)
		if err != nil {
			return nil, err
		}
		mock, err := ledger.DeployMockAggregator(ctx, deps.Executor, registry, deployer, cfg.Oracle.MockDecimals, answer, deps.Log)
		if err != nil {
			return nil, errors.Wrap(err, "failed to deploy mock price feed")
		}
		feedAddr = mock.Address()
	} else {
		feed, err := newHTTPFeed(network.PriceFeed, cfg, deps.Log)
		if err != nil {
			return nil, err
		}
		registry.Register(feed)
		feedAddr = network.PriceFeed
	}

	l, _, err := ledger.Deploy(ctx, deps, deployer, feedAddr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to deploy ledger")
	}
	deps.Log.Infof("set Ledger.Address to %s to attach on restart", l.Address())
	return l, nil
}

func applyGenesis(ctx context.Context, cfg configuration.Genesis, exec *chain.Executor, log *logrus.Logger) error {
	for _, acc := range cfg.Accounts {
		addr, err := crowdfund.ParseAddress(acc.Address)
		if err != nil {
			return errors.Wrapf(err, "invalid genesis address %q", acc.Address)
		}
		balance, err := crowdfund.ParseAmount(acc.Balance)
		if err != nil {
			return errors.Wrapf(err, "invalid genesis balance of %s", addr)
		}
		credited, err := exec.Genesis(ctx, addr, balance)
		if err != nil {
			return errors.Wrapf(err, "failed to credit %s", addr)
		}
		if credited {
			log.WithFields(logrus.Fields{"address": addr, "balance": balance.String()}).Debug("genesis account")
		}
	}
	return nil
}

func newHTTPFeed(addr crowdfund.Address, cfg *configuration.Crowdfund, log *logrus.Logger) (*oracle.HTTPFeed, error) {
	feed, err := oracle.NewHTTPFeed(addr, oracle.HTTPFeedConfig{
		URL:       cfg.Oracle.URL,
		Symbol:    cfg.Oracle.Symbol,
		Decimals:  cfg.Oracle.Decimals,
		Timeout:   cfg.Oracle.Timeout,
		CacheSize: cfg.Oracle.CacheSize,
	}, log)
	return feed, errors.Wrap(err, "failed to create price feed")
}

func mockAnswer(cfg *configuration.Crowdfund) (*big.Int, error) {
	answer, ok := new(big.Int).SetString(cfg.Oracle.MockAnswer, 10)
	if !ok {
		return nil, errors.Errorf("invalid Oracle.MockAnswer %q", cfg.Oracle.MockAnswer)
	}
	return answer, nil
}
