// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package api

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/insolar/crowdfund/observability"
)

func TestMetricsMiddleware(t *testing.T) {
	a := newTestAPI(t)
	obs := observability.Make(logrus.New())
	a.e.Use(MetricsMiddleware(obs))

	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/owner", "", nil))
	require.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/funders/3", "", nil))
	require.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/funders/4", "", nil))

	requests := obs.CounterVec(prometheus.CounterOpts{Name: "crowdfund_api_requests_total"}, "method", "path", "status")
	require.Equal(t, float64(1), testutil.ToFloat64(requests.WithLabelValues(http.MethodGet, "/api/owner", "200")))
	require.Equal(t, float64(2), testutil.ToFloat64(requests.WithLabelValues(http.MethodGet, "/api/funders/:index", "404")))
}
