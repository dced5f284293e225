// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package chain

import (
	"github.com/insolar/crowdfund/internal/app/crowdfund"
)

// Costs is the gas price list of the execution environment.
type Costs struct {
	Base     uint64
	Read     uint64
	Write    uint64
	Call     uint64
	Transfer uint64
	Emit     uint64
	Create   uint64
}

type Config struct {
	GasLimit uint64
	// Stipend is the gas given to a recipient of Transfer.
	Stipend uint64
	Costs   Costs
}

func DefaultConfig() Config {
	return Config{
		GasLimit: 10000000,
		Stipend:  2300,
		Costs: Costs{
			Base:     21000,
			Read:     800,
			Write:    5000,
			Call:     700,
			Transfer: 700,
			Emit:     375,
			Create:   32000,
		},
	}
}

// meter counts gas of one frame. Reads and writes are counted separately for receipts.
type meter struct {
	limit  uint64
	used   uint64
	reads  int
	writes int
}

func (m *meter) remaining() uint64 {
	return m.limit - m.used
}

func (m *meter) charge(gas uint64) error {
	if gas > m.remaining() {
		m.used = m.limit
		return crowdfund.ErrOutOfGas
	}
	m.used += gas
	return nil
}

// absorb accounts the usage of a finished child frame. Gas of an unbilled
// child came from a stipend and is not charged.
func (m *meter) absorb(child *meter, billed bool) {
	if billed {
		m.used += child.used
		if m.used > m.limit {
			m.used = m.limit
		}
	}
	m.reads += child.reads
	m.writes += child.writes
}
