// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package configuration

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/insolar/crowdfund/configuration/insconfig"
)

func TestConfigurations_RoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "crowdfund-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	table := map[string]insconfig.ConfigStruct{
		"crowdfund.yaml": Crowdfund{},
		"migrate.yaml":   Migrate{},
	}
	for fileName, cfg := range Configurations() {
		t.Run(fileName, func(t *testing.T) {
			out, err := yaml.Marshal(cfg)
			require.NoError(t, err)
			path := filepath.Join(dir, fileName)
			require.NoError(t, ioutil.WriteFile(path, out, 0600))

			loaded, err := insconfig.LoadFile(insconfig.Params{
				ConfigStruct: table[fileName],
				EnvPrefix:    "crowdfundtest",
			}, path)
			require.NoError(t, err)
			require.Equal(t, cfg, loaded)
		})
	}
}

func TestCrowdfund_Default(t *testing.T) {
	d := Crowdfund{}.Default()
	require.Equal(t, StorageMemory, d.Storage.Driver)
	require.Equal(t, uint64(31337), d.Network.ChainID)
	require.Equal(t, uint64(2300), d.Execution.Stipend)
	require.NotEmpty(t, d.Genesis.Accounts)
	require.Equal(t, d.Ledger.Deployer, d.Genesis.Accounts[0].Address)
}
