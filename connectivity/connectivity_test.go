// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package connectivity

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/insolar/crowdfund/configuration"
	"github.com/insolar/crowdfund/observability"
)

func TestConnectivity_Memory(t *testing.T) {
	cfg := configuration.Crowdfund{}.Default()
	cfg.Storage.Driver = configuration.StorageMemory

	conn, err := Make(cfg, observability.Make(logrus.New()))
	require.NoError(t, err)
	require.Nil(t, conn.PG())
	require.NoError(t, conn.Close())
}

func TestConnectivity_BadURL(t *testing.T) {
	cfg := configuration.Crowdfund{}.Default()
	cfg.Storage.Driver = configuration.StoragePostgres
	cfg.DB.URL = "mysql://localhost"

	_, err := Make(cfg, observability.Make(logrus.New()))
	require.Error(t, err)
}
