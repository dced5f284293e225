// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package models

import (
	"math/big"
	"time"

	"github.com/pkg/errors"
)

type Account struct {
	tableName struct{} `sql:"accounts"` //nolint: unused,structcheck

	Address string `sql:"address"`
	Balance string `sql:"balance"`
	Nonce   uint64 `sql:"nonce"`
}

type Contract struct {
	tableName struct{} `sql:"contracts"` //nolint: unused,structcheck

	Address   string    `sql:"address"`
	Owner     string    `sql:"owner"`
	PriceFeed string    `sql:"price_feed"`
	CreatedAt time.Time `sql:"created_at"`
}

type FundedAmount struct {
	tableName struct{} `sql:"funded_amounts"` //nolint: unused,structcheck

	Contract string `sql:"contract"`
	Funder   string `sql:"funder"`
	Amount   string `sql:"amount"`
}

type Funder struct {
	tableName struct{} `sql:"funders"` //nolint: unused,structcheck

	Contract string `sql:"contract"`
	Position int    `sql:"position"`
	Funder   string `sql:"funder"`
}

// Numeric parses a numeric column value. An empty value is zero.
func Numeric(v string) (*big.Int, error) {
	if v == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, errors.Errorf("invalid numeric value %q", v)
	}
	return n, nil
}

func (a Account) BalanceInt() (*big.Int, error) {
	return Numeric(a.Balance)
}

func (f FundedAmount) AmountInt() (*big.Int, error) {
	return Numeric(f.Amount)
}
