// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package api

import (
	"context"
	"math/big"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/chain"
)

// Ledger is the call surface of a deployed crowdfunding contract.
type Ledger interface {
	Fund(ctx context.Context, funder crowdfund.Address, value *big.Int) (chain.Receipt, error)
	Withdraw(ctx context.Context, caller crowdfund.Address) (chain.Receipt, error)
	CheaperWithdraw(ctx context.Context, caller crowdfund.Address) (chain.Receipt, error)
	PriceFeed(ctx context.Context) (crowdfund.Address, error)
	Owner(ctx context.Context) (crowdfund.Address, error)
	AddressToAmountFunded(ctx context.Context, funder crowdfund.Address) (*big.Int, error)
	Funder(ctx context.Context, index uint64) (crowdfund.Address, error)
	Funders(ctx context.Context) ([]crowdfund.Address, error)
	GetConversionRate(ctx context.Context, amount *big.Int) (*big.Int, error)
}

type Balances interface {
	Balance(ctx context.Context, addr crowdfund.Address) (*big.Int, error)
}

type CrowdfundServer struct {
	ledger   Ledger
	balances Balances
	log      *logrus.Logger
}

func NewCrowdfundServer(ledger Ledger, balances Balances, log *logrus.Logger) *CrowdfundServer {
	return &CrowdfundServer{
		ledger:   ledger,
		balances: balances,
		log:      log,
	}
}

func (s *CrowdfundServer) Fund(ctx echo.Context) error {
	var req FundRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, NewSingleMessageError("invalid request body"))
	}
	from, err := crowdfund.ParseAddress(req.From)
	if err != nil {
		return s.fail(ctx, err)
	}
	value, err := crowdfund.ParseAmount(req.Value)
	if err != nil {
		return s.fail(ctx, err)
	}
	r, err := s.ledger.Fund(callContext(ctx, req.Gas), from, value)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ReceiptToAPIReceipt(r))
}

func (s *CrowdfundServer) Withdraw(ctx echo.Context) error {
	return s.withdraw(ctx, s.ledger.Withdraw)
}

func (s *CrowdfundServer) CheaperWithdraw(ctx echo.Context) error {
	return s.withdraw(ctx, s.ledger.CheaperWithdraw)
}

func (s *CrowdfundServer) withdraw(ctx echo.Context, call func(context.Context, crowdfund.Address) (chain.Receipt, error)) error {
	var req WithdrawRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, NewSingleMessageError("invalid request body"))
	}
	from, err := crowdfund.ParseAddress(req.From)
	if err != nil {
		return s.fail(ctx, err)
	}
	r, err := call(callContext(ctx, req.Gas), from)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ReceiptToAPIReceipt(r))
}

func (s *CrowdfundServer) PriceFeed(ctx echo.Context) error {
	addr, err := s.ledger.PriceFeed(ctx.Request().Context())
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ResponsesAddress{Address: addr.String()})
}

func (s *CrowdfundServer) Owner(ctx echo.Context) error {
	addr, err := s.ledger.Owner(ctx.Request().Context())
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ResponsesAddress{Address: addr.String()})
}

func (s *CrowdfundServer) AmountFunded(ctx echo.Context, address string) error {
	funder, err := crowdfund.ParseAddress(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	amount, err := s.ledger.AddressToAmountFunded(ctx.Request().Context(), funder)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ResponsesFunded{Address: funder.String(), Amount: amount.String()})
}

func (s *CrowdfundServer) Funders(ctx echo.Context) error {
	list, err := s.ledger.Funders(ctx.Request().Context())
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, FundersToAPIFunders(list))
}

func (s *CrowdfundServer) Funder(ctx echo.Context, index int) error {
	if index < 0 {
		return s.fail(ctx, crowdfund.NewError(crowdfund.KindInvalidArgument, "negative index"))
	}
	funder, err := s.ledger.Funder(ctx.Request().Context(), uint64(index))
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ResponsesFunder{Index: uint64(index), Address: funder.String()})
}

func (s *CrowdfundServer) Balance(ctx echo.Context, address string) error {
	addr, err := crowdfund.ParseAddress(address)
	if err != nil {
		return s.fail(ctx, err)
	}
	balance, err := s.balances.Balance(ctx.Request().Context(), addr)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ResponsesBalance{Address: addr.String(), Balance: balance.String()})
}

func (s *CrowdfundServer) Conversion(ctx echo.Context, params ConversionParams) error {
	value, err := crowdfund.ParseAmount(params.Value)
	if err != nil {
		return s.fail(ctx, err)
	}
	usd, err := s.ledger.GetConversionRate(ctx.Request().Context(), value)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ResponsesConversion{Value: value.String(), USD: usd.String()})
}

func (s *CrowdfundServer) fail(ctx echo.Context, err error) error {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		s.log.Error(err)
		return ctx.JSON(status, NewSingleMessageError("internal error"))
	}
	return ctx.JSON(status, NewSingleMessageError(err.Error()))
}

// StatusOf maps a call failure to the HTTP status reported for it.
func StatusOf(err error) int {
	switch crowdfund.KindOf(err) {
	case crowdfund.KindInsufficientContribution, crowdfund.KindInvalidArgument:
		return http.StatusBadRequest
	case crowdfund.KindNotOwner:
		return http.StatusForbidden
	case crowdfund.KindIndexOutOfRange, crowdfund.KindUnknownContract:
		return http.StatusNotFound
	case crowdfund.KindTransferFailed:
		return http.StatusConflict
	case crowdfund.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case crowdfund.KindOutOfGas:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func callContext(ctx echo.Context, gas *uint64) context.Context {
	c := ctx.Request().Context()
	if gas != nil {
		c = chain.WithGasLimit(c, *gas)
	}
	return c
}
