// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package oracle

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
)

var ErrRoundNotFound = errors.New("round not found")

// RoundData is a single price observation. Answer is the native-to-USD rate
// scaled by 10^Decimals.
type RoundData struct {
	RoundID   uint64
	Answer    *big.Int
	StartedAt time.Time
	UpdatedAt time.Time
}

// PriceFeed is an aggregator-style price source.
type PriceFeed interface {
	Address() crowdfund.Address
	Decimals(ctx context.Context) (uint8, error)
	LatestRoundData(ctx context.Context) (RoundData, error)
}

// Rate is the latest answer of a feed together with its precision.
type Rate struct {
	Answer   *big.Int
	Decimals uint8
}

// LatestRate reads the current answer and decimals of feed. Negative answers
// are rejected, anything else is taken as is.
func LatestRate(ctx context.Context, feed PriceFeed) (Rate, error) {
	round, err := feed.LatestRoundData(ctx)
	if err != nil {
		return Rate{}, errors.Wrapf(err, "failed to read latest round of %s", feed.Address())
	}
	if round.Answer == nil || round.Answer.Sign() < 0 {
		return Rate{}, crowdfund.NewError(crowdfund.KindInvalidArgument, "price feed returned a negative answer")
	}
	decimals, err := feed.Decimals(ctx)
	if err != nil {
		return Rate{}, errors.Wrapf(err, "failed to read decimals of %s", feed.Address())
	}
	return Rate{Answer: new(big.Int).Set(round.Answer), Decimals: decimals}, nil
}

// Convert returns amount*answer/10^decimals. Division truncates.
func (r Rate) Convert(amount *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, r.Answer)
	return out.Quo(out, crowdfund.Pow10(r.Decimals))
}

// ConversionRate converts a wei amount into USD reference units using the feed.
func ConversionRate(ctx context.Context, feed PriceFeed, amount *big.Int) (*big.Int, error) {
	rate, err := LatestRate(ctx, feed)
	if err != nil {
		return nil, err
	}
	return rate.Convert(amount), nil
}
