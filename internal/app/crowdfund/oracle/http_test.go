// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestFeed(t *testing.T, handler http.HandlerFunc, cacheSize int) (*HTTPFeed, func()) {
	srv := httptest.NewServer(handler)
	feed, err := NewHTTPFeed(feedAddress, HTTPFeedConfig{
		URL:       srv.URL + "/api/v3/",
		Symbol:    "ETHUSDT",
		Decimals:  8,
		Timeout:   time.Second,
		CacheSize: cacheSize,
	}, logrus.New())
	require.NoError(t, err)
	return feed, srv.Close
}

func TestHTTPFeed_LatestRoundData(t *testing.T) {
	prices := []string{"2000.12345678", "1999.5"}
	calls := 0
	feed, closer := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/avgPrice", r.URL.Path)
		require.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"mins":5,"price":"` + prices[calls] + `"}`))
		calls++
	}, 1)
	defer closer()
	ctx := context.Background()

	first, err := feed.LatestRoundData(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.RoundID)
	require.Equal(t, "200012345678", first.Answer.String())

	second, err := feed.LatestRoundData(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.RoundID)
	require.Equal(t, "199950000000", second.Answer.String())

	cached, err := feed.RoundData(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, second.Answer.String(), cached.Answer.String())

	// evicted by the size-one cache
	_, err = feed.RoundData(ctx, 1)
	require.Equal(t, ErrRoundNotFound, err)
}

func TestHTTPFeed_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("rate_limited", func(t *testing.T) {
		feed, closer := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, 4)
		defer closer()
		_, err := feed.LatestRoundData(ctx)
		require.Error(t, err)
		require.Contains(t, err.Error(), "limits are exceeded")
	})

	t.Run("bad_status", func(t *testing.T) {
		feed, closer := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, 4)
		defer closer()
		_, err := feed.LatestRoundData(ctx)
		require.Error(t, err)
	})

	t.Run("bad_price", func(t *testing.T) {
		feed, closer := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"price":"-1"}`))
		}, 4)
		defer closer()
		_, err := feed.LatestRoundData(ctx)
		require.Error(t, err)
	})

	t.Run("bad_json", func(t *testing.T) {
		feed, closer := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}, 4)
		defer closer()
		_, err := feed.LatestRoundData(ctx)
		require.Error(t, err)
	})
}

func TestNewHTTPFeed_Validation(t *testing.T) {
	_, err := NewHTTPFeed(feedAddress, HTTPFeedConfig{CacheSize: 1}, logrus.New())
	require.Error(t, err)

	_, err = NewHTTPFeed(feedAddress, HTTPFeedConfig{Symbol: "ETHUSDT"}, logrus.New())
	require.Error(t, err)
}
