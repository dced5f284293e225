// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package crowdfund

const (
	TopicDeployed  = "crowdfund.deployed"
	TopicFunded    = "crowdfund.funded"
	TopicWithdrawn = "crowdfund.withdrawn"
)

// Event is a log entry emitted by a call. Events of a failed call are dropped.
type Event struct {
	Topic    string
	Contract Address
	Payload  interface{}
}

type Deployed struct {
	Owner     Address `json:"owner"`
	PriceFeed Address `json:"price_feed"`
}

type Funded struct {
	Funder Address `json:"funder"`
	Amount string  `json:"amount"`
	Total  string  `json:"total"`
}

type Withdrawn struct {
	Owner   Address `json:"owner"`
	Amount  string  `json:"amount"`
	Method  string  `json:"method"`
	Funders int     `json:"funders"`
}
