// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package oracle

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
)

// BinanceAPIUrl is the default average price endpoint base.
const BinanceAPIUrl = "https://api.binance.com/api/v3/"

type HTTPFeedConfig struct {
	URL       string
	Symbol    string
	Decimals  uint8
	Timeout   time.Duration
	CacheSize int
}

// HTTPFeed turns an exchange average price endpoint into a price feed. Every
// successful poll is a new round.
type HTTPFeed struct {
	address crowdfund.Address
	cfg     HTTPFeedConfig
	client  *http.Client
	log     *logrus.Logger
	now     func() time.Time

	mu     sync.Mutex
	latest uint64
	rounds *lru.Cache
}

func NewHTTPFeed(address crowdfund.Address, cfg HTTPFeedConfig, log *logrus.Logger) (*HTTPFeed, error) {
	if cfg.Symbol == "" {
		return nil, errors.New("symbol should be provided")
	}
	if cfg.URL == "" {
		cfg.URL = BinanceAPIUrl
	}
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init cache")
	}
	return &HTTPFeed{
		address: address,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
		now:     time.Now,
		rounds:  cache,
	}, nil
}

func (f *HTTPFeed) Address() crowdfund.Address {
	return f.address
}

func (f *HTTPFeed) Decimals(context.Context) (uint8, error) {
	return f.cfg.Decimals, nil
}

type avgPrice struct {
	Price string `json:"price"`
	Mins  int    `json:"mins"`
}

func (f *HTTPFeed) LatestRoundData(ctx context.Context) (RoundData, error) {
	raw, err := f.fetch(ctx)
	if err != nil {
		return RoundData{}, err
	}
	answer, err := crowdfund.ParseFixed(raw, f.cfg.Decimals)
	if err != nil {
		return RoundData{}, errors.Wrapf(err, "price %q can't be parsed", raw)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest++
	now := f.now()
	round := RoundData{RoundID: f.latest, Answer: answer, StartedAt: now, UpdatedAt: now}
	f.rounds.Add(round.RoundID, copyRound(round))
	return round, nil
}

// RoundData returns a previously observed round while it is still cached.
func (f *HTTPFeed) RoundData(_ context.Context, id uint64) (RoundData, error) {
	val, ok := f.rounds.Get(id)
	if !ok {
		return RoundData{}, ErrRoundNotFound
	}
	round, ok := val.(RoundData)
	if !ok {
		return RoundData{}, ErrRoundNotFound
	}
	return copyRound(round), nil
}

func (f *HTTPFeed) fetch(ctx context.Context) (string, error) {
	endpoint := f.cfg.URL + "avgPrice?symbol=" + url.QueryEscape(f.cfg.Symbol)
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build price request")
	}
	resp, err := f.client.Do(req.WithContext(ctx))
	if err != nil {
		return "", errors.Wrap(err, "price request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", errors.New("price api request limits are exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("price api responded with status %d", resp.StatusCode)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read price response")
	}
	price := avgPrice{}
	if err := json.Unmarshal(body, &price); err != nil {
		return "", errors.Wrap(err, "failed to decode price response")
	}
	f.log.WithField("symbol", f.cfg.Symbol).Debugf("get price result: %s", string(body))
	return price.Price, nil
}
