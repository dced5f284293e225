// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package configuration

type Migrate struct {
	Log Log
	DB  DB
}

func (Migrate) Default() *Migrate {
	d := Crowdfund{}.Default()
	return &Migrate{Log: d.Log, DB: d.DB}
}

func (Migrate) GetConfig() interface{} {
	return &Migrate{}
}
