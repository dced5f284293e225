// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package api

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/insolar/crowdfund/observability"
)

// MetricsMiddleware counts handled requests by route and status.
func MetricsMiddleware(obs *observability.Observability) echo.MiddlewareFunc {
	requests := obs.CounterVec(prometheus.CounterOpts{
		Name: "crowdfund_api_requests_total",
		Help: "Number of handled API requests",
	}, "method", "path", "status")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			err := next(ctx)
			status := ctx.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			requests.WithLabelValues(ctx.Request().Method, ctx.Path(), strconv.Itoa(status)).Inc()
			return err
		}
	}
}
