// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

// Package api provides primitives to interact the crowdfund HTTP API.
package api

import (
	"fmt"
	"net/http"

	"github.com/deepmap/oapi-codegen/pkg/runtime"
	"github.com/labstack/echo/v4"
)

// FundRequest defines model for FundRequest.
type FundRequest struct {
	From  string  `json:"from"`
	Value string  `json:"value"`
	Gas   *uint64 `json:"gas,omitempty"`
}

// WithdrawRequest defines model for WithdrawRequest.
type WithdrawRequest struct {
	From string  `json:"from"`
	Gas  *uint64 `json:"gas,omitempty"`
}

// ResponsesReceipt defines model for responses-receipt.
type ResponsesReceipt struct {
	GasUsed       uint64          `json:"gas_used"`
	StorageReads  int             `json:"storage_reads"`
	StorageWrites int             `json:"storage_writes"`
	Transferred   string          `json:"transferred"`
	Events        []ResponseEvent `json:"events"`
}

// ResponseEvent defines model for response-event.
type ResponseEvent struct {
	Topic    string `json:"topic"`
	Contract string `json:"contract"`
}

// ResponsesAddress defines model for responses-address.
type ResponsesAddress struct {
	Address string `json:"address"`
}

// ResponsesFunded defines model for responses-funded.
type ResponsesFunded struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// ResponsesFunders defines model for responses-funders.
type ResponsesFunders struct {
	Count   int      `json:"count"`
	Funders []string `json:"funders"`
}

// ResponsesFunder defines model for responses-funder.
type ResponsesFunder struct {
	Index   uint64 `json:"index"`
	Address string `json:"address"`
}

// ResponsesBalance defines model for responses-balance.
type ResponsesBalance struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// ResponsesConversion defines model for responses-conversion.
type ResponsesConversion struct {
	Value string `json:"value"`
	USD   string `json:"usd"`
}

// ConversionParams defines parameters for Conversion.
type ConversionParams struct {
	Value string `json:"value"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /api/fund)
	Fund(ctx echo.Context) error
	// (POST /api/withdraw)
	Withdraw(ctx echo.Context) error
	// (POST /api/cheaper-withdraw)
	CheaperWithdraw(ctx echo.Context) error
	// (GET /api/price-feed)
	PriceFeed(ctx echo.Context) error
	// (GET /api/owner)
	Owner(ctx echo.Context) error
	// (GET /api/funded/{address})
	AmountFunded(ctx echo.Context, address string) error
	// (GET /api/funders)
	Funders(ctx echo.Context) error
	// (GET /api/funders/{index})
	Funder(ctx echo.Context, index int) error
	// (GET /api/balance/{address})
	Balance(ctx echo.Context, address string) error
	// (GET /api/conversion)
	Conversion(ctx echo.Context, params ConversionParams) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// Fund converts echo context to params.
func (w *ServerInterfaceWrapper) Fund(ctx echo.Context) error {
	return w.Handler.Fund(ctx)
}

// Withdraw converts echo context to params.
func (w *ServerInterfaceWrapper) Withdraw(ctx echo.Context) error {
	return w.Handler.Withdraw(ctx)
}

// CheaperWithdraw converts echo context to params.
func (w *ServerInterfaceWrapper) CheaperWithdraw(ctx echo.Context) error {
	return w.Handler.CheaperWithdraw(ctx)
}

// PriceFeed converts echo context to params.
func (w *ServerInterfaceWrapper) PriceFeed(ctx echo.Context) error {
	return w.Handler.PriceFeed(ctx)
}

// Owner converts echo context to params.
func (w *ServerInterfaceWrapper) Owner(ctx echo.Context) error {
	return w.Handler.Owner(ctx)
}

// AmountFunded converts echo context to params.
func (w *ServerInterfaceWrapper) AmountFunded(ctx echo.Context) error {
	var err error
	// ------------- Path parameter "address" -------------
	var address string

	err = runtime.BindStyledParameter("simple", false, "address", ctx.Param("address"), &address)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter address: %s", err))
	}

	return w.Handler.AmountFunded(ctx, address)
}

// Funders converts echo context to params.
func (w *ServerInterfaceWrapper) Funders(ctx echo.Context) error {
	return w.Handler.Funders(ctx)
}

// Funder converts echo context to params.
func (w *ServerInterfaceWrapper) Funder(ctx echo.Context) error {
	var err error
	// ------------- Path parameter "index" -------------
	var index int

	err = runtime.BindStyledParameter("simple", false, "index", ctx.Param("index"), &index)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter index: %s", err))
	}

	return w.Handler.Funder(ctx, index)
}

// Balance converts echo context to params.
func (w *ServerInterfaceWrapper) Balance(ctx echo.Context) error {
	var err error
	// ------------- Path parameter "address" -------------
	var address string

	err = runtime.BindStyledParameter("simple", false, "address", ctx.Param("address"), &address)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter address: %s", err))
	}

	return w.Handler.Balance(ctx, address)
}

// Conversion converts echo context to params.
func (w *ServerInterfaceWrapper) Conversion(ctx echo.Context) error {
	var err error

	// Parameter object where we will unmarshal all parameters from the context
	var params ConversionParams
	// ------------- Required query parameter "value" -------------

	err = runtime.BindQueryParameter("form", true, true, "value", ctx.QueryParams(), &params.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter value: %s", err))
	}

	return w.Handler.Conversion(ctx, params)
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router runtime.EchoRouter, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	router.POST("/api/fund", wrapper.Fund)
	router.POST("/api/withdraw", wrapper.Withdraw)
	router.POST("/api/cheaper-withdraw", wrapper.CheaperWithdraw)
	router.GET("/api/price-feed", wrapper.PriceFeed)
	router.GET("/api/owner", wrapper.Owner)
	router.GET("/api/funded/:address", wrapper.AmountFunded)
	router.GET("/api/funders", wrapper.Funders)
	router.GET("/api/funders/:index", wrapper.Funder)
	router.GET("/api/balance/:address", wrapper.Balance)
	router.GET("/api/conversion", wrapper.Conversion)
}
