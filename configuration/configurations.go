// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package configuration

// Configurations are the default config files by file name.
func Configurations() map[string]interface{} {
	cfgs := make(map[string]interface{})
	cfgs["crowdfund.yaml"] = Crowdfund{}.Default()
	cfgs["migrate.yaml"] = Migrate{}.Default()

	return cfgs
}
