// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package ledger

import (
	"context"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/chain"
	"github.com/insolar/crowdfund/internal/app/crowdfund/oracle"
)

// DeployMockAggregator places a settable price feed at the next address of
// deployer and registers it.
func DeployMockAggregator(
	ctx context.Context,
	exec *chain.Executor,
	registry *oracle.Registry,
	deployer crowdfund.Address,
	decimals uint8,
	answer *big.Int,
	log *logrus.Logger,
) (*oracle.MockAggregator, error) {
	var mock *oracle.MockAggregator
	_, err := exec.Execute(ctx, chain.Message{From: deployer}, func(ctx context.Context, f *chain.Frame) error {
		addr, err := f.CreateAddress(ctx)
		if err != nil {
			return err
		}
		mock = oracle.NewMockAggregator(addr, decimals, answer)
		return nil
	})
	if err != nil {
		return nil, err
	}
	registry.Register(mock)
	log.WithFields(logrus.Fields{
		"address":  mock.Address(),
		"decimals": decimals,
		"answer":   answer.String(),
	}).Info("mock price feed deployed")
	return mock, nil
}
