// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package oracle

import (
	"sync"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
)

// Registry resolves price feed addresses stored by ledgers.
type Registry struct {
	mu    sync.RWMutex
	feeds map[crowdfund.Address]PriceFeed
}

func NewRegistry(feeds ...PriceFeed) *Registry {
	r := &Registry{feeds: make(map[crowdfund.Address]PriceFeed)}
	for _, f := range feeds {
		r.Register(f)
	}
	return r
}

func (r *Registry) Register(feed PriceFeed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[feed.Address()] = feed
}

func (r *Registry) Feed(addr crowdfund.Address) (PriceFeed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	feed, ok := r.feeds[addr]
	if !ok {
		return nil, crowdfund.NewError(crowdfund.KindUnknownContract, "no price feed at "+addr.String())
	}
	return feed, nil
}

type Network struct {
	ChainID     uint64
	Name        string
	PriceFeed   crowdfund.Address
	Development bool
}

var networks = []Network{
	{ChainID: 5, Name: "goerli", PriceFeed: crowdfund.MustParseAddress("0xD4a33860578De61DBAbDc8BFdb98FD742fA7028e")},
	{ChainID: 137, Name: "polygon", PriceFeed: crowdfund.MustParseAddress("0xF9680D99D6C9589e2a93a78A04A279e509205945")},
	{ChainID: 31337, Name: "hardhat", Development: true},
	{ChainID: 31337, Name: "localhost", Development: true},
}

// LookupNetwork finds a network by name, or by chain id when name is empty.
func LookupNetwork(chainID uint64, name string) (Network, bool) {
	for _, n := range networks {
		if name != "" {
			if n.Name == name {
				return n, true
			}
			continue
		}
		if n.ChainID == chainID {
			return n, true
		}
	}
	return Network{}, false
}
