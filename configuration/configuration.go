// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package configuration

import (
	"time"

	"github.com/insolar/crowdfund/internal/pkg/cycle"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Crowdfund struct {
	Log       Log
	DB        DB
	Storage   Storage
	API       API
	Metrics   Metrics
	Network   Network
	Oracle    Oracle
	Execution Execution
	Ledger    Ledger
	Genesis   Genesis
	Events    Events
}

type Log struct {
	Level string
	// text or json
	Format string
	// stderr, stdout or file
	OutputType string
	// file path when OutputType is file
	OutputParams string
}

type DB struct {
	URL      string
	PoolSize int
	Attempts cycle.Limit
	// Interval between connection attempts
	AttemptInterval time.Duration
}

type Storage struct {
	// memory or postgres
	Driver string
}

type API struct {
	Listen string
}

// Metrics is the ops listener: metrics and health check.
type Metrics struct {
	Listen string
}

type Network struct {
	ChainID uint64
	Name    string
}

type Oracle struct {
	URL       string
	Symbol    string
	Decimals  uint8
	Timeout   time.Duration
	CacheSize int
	// Used on development networks only
	MockDecimals uint8
	MockAnswer   string
}

type Execution struct {
	GasLimit uint64
	Stipend  uint64
}

type Ledger struct {
	// Empty address deploys a new ledger on start
	Address  string
	Deployer string
}

type Genesis struct {
	Accounts []Account
}

type Account struct {
	Address string
	Balance string
}

type Events struct {
	Buffer int64
}

func (Crowdfund) Default() *Crowdfund {
	return &Crowdfund{
		Log: Log{
			Level:        "debug",
			Format:       "text",
			OutputType:   "stderr",
			OutputParams: "",
		},
		DB: DB{
			URL:             "postgres://postgres@localhost/postgres?sslmode=disable",
			PoolSize:        20,
			Attempts:        5,
			AttemptInterval: 3 * time.Second,
		},
		Storage: Storage{
			Driver: StorageMemory,
		},
		API: API{
			Listen: ":8080",
		},
		Metrics: Metrics{
			Listen: ":8888",
		},
		Network: Network{
			ChainID: 31337,
			Name:    "hardhat",
		},
		Oracle: Oracle{
			URL:          "https://api.binance.com/api/v3/",
			Symbol:       "ETHUSDT",
			Decimals:     8,
			Timeout:      10 * time.Second,
			CacheSize:    1000,
			MockDecimals: 8,
			MockAnswer:   "200000000000",
		},
		Execution: Execution{
			GasLimit: 10000000,
			Stipend:  2300,
		},
		Ledger: Ledger{
			Address:  "",
			Deployer: "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		},
		Genesis: Genesis{
			Accounts: []Account{
				{Address: "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", Balance: "10000000000000000000000"},
				{Address: "0x70997970c51812dc3a010c7d01b50e0d17dc79c8", Balance: "10000000000000000000000"},
				{Address: "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc", Balance: "10000000000000000000000"},
				{Address: "0x90f79bf6eb2c4f870365e785982e1f101e93b906", Balance: "10000000000000000000000"},
				{Address: "0x15d34aaf54267db7d7c367839aaf71a00a2c6a65", Balance: "10000000000000000000000"},
				{Address: "0x9965507d1a55bcc2695c58ba16fb37d819b0a4dc", Balance: "10000000000000000000000"},
			},
		},
		Events: Events{
			Buffer: 64,
		},
	}
}

func (Crowdfund) GetConfig() interface{} {
	return &Crowdfund{}
}
