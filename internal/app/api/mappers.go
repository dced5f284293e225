// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package api

import (
	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/chain"
)

func ReceiptToAPIReceipt(r chain.Receipt) ResponsesReceipt {
	res := ResponsesReceipt{
		GasUsed:       r.GasUsed,
		StorageReads:  r.StorageReads,
		StorageWrites: r.StorageWrites,
		Transferred:   "0",
		Events:        []ResponseEvent{},
	}
	if r.Transferred != nil {
		res.Transferred = r.Transferred.String()
	}
	for _, e := range r.Events {
		res.Events = append(res.Events, ResponseEvent{Topic: e.Topic, Contract: e.Contract.String()})
	}
	return res
}

func FundersToAPIFunders(list []crowdfund.Address) ResponsesFunders {
	res := ResponsesFunders{Count: len(list), Funders: make([]string, 0, len(list))}
	for _, a := range list {
		res.Funders = append(res.Funders, a.String())
	}
	return res
}
