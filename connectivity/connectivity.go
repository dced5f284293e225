// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package connectivity

import (
	"github.com/go-pg/pg"
	"github.com/pkg/errors"

	"github.com/insolar/crowdfund/configuration"
	"github.com/insolar/crowdfund/internal/dbconn"
	"github.com/insolar/crowdfund/observability"
)

// Make opens the external connections the configured storage needs.
func Make(cfg *configuration.Crowdfund, obs *observability.Observability) (*Connectivity, error) {
	c := &Connectivity{}
	if cfg.Storage.Driver != configuration.StoragePostgres {
		return c, nil
	}
	db, err := dbconn.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := dbconn.WaitReady(db, cfg.DB, obs.Log()); err != nil {
		_ = db.Close()
		return nil, err
	}
	c.pg = db
	return c, nil
}

type Connectivity struct {
	pg *pg.DB
}

// PG is nil unless postgres storage is configured.
func (c *Connectivity) PG() *pg.DB {
	return c.pg
}

func (c *Connectivity) Close() error {
	if c.pg == nil {
		return nil
	}
	return errors.Wrap(c.pg.Close(), "failed to close db")
}
