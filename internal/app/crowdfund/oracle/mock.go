// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package oracle

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
)

const (
	DefaultMockDecimals = 8
	// DefaultMockAnswer is 2000 USD with 8 decimals.
	DefaultMockAnswer = 200000000000
)

// MockAggregator is a settable price feed for development networks.
type MockAggregator struct {
	address  crowdfund.Address
	decimals uint8
	now      func() time.Time

	mu     sync.RWMutex
	latest uint64
	rounds map[uint64]RoundData
}

func NewMockAggregator(address crowdfund.Address, decimals uint8, initialAnswer *big.Int) *MockAggregator {
	m := &MockAggregator{
		address:  address,
		decimals: decimals,
		now:      time.Now,
		rounds:   make(map[uint64]RoundData),
	}
	m.UpdateAnswer(initialAnswer)
	return m
}

func (m *MockAggregator) Address() crowdfund.Address {
	return m.address
}

func (m *MockAggregator) Decimals(context.Context) (uint8, error) {
	return m.decimals, nil
}

func (m *MockAggregator) LatestRoundData(context.Context) (RoundData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRound(m.rounds[m.latest]), nil
}

func (m *MockAggregator) RoundData(_ context.Context, id uint64) (RoundData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rounds[id]
	if !ok {
		return RoundData{}, ErrRoundNotFound
	}
	return copyRound(r), nil
}

// UpdateAnswer starts a new round with answer.
func (m *MockAggregator) UpdateAnswer(answer *big.Int) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.latest++
	m.rounds[m.latest] = RoundData{
		RoundID:   m.latest,
		Answer:    new(big.Int).Set(answer),
		StartedAt: now,
		UpdatedAt: now,
	}
	return m.latest
}

// UpdateRoundData overwrites round r.RoundID and makes it the latest one.
func (m *MockAggregator) UpdateRoundData(r RoundData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = r.RoundID
	m.rounds[r.RoundID] = copyRound(r)
}

func copyRound(r RoundData) RoundData {
	if r.Answer != nil {
		r.Answer = new(big.Int).Set(r.Answer)
	}
	return r
}
