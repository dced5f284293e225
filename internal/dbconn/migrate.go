// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package dbconn

import (
	"github.com/go-pg/migrations"
	"github.com/go-pg/pg"
	"github.com/pkg/errors"
)

// Migrate applies SQL migrations from dir. With doInit the migrations table
// is created first.
func Migrate(db *pg.DB, dir string, doInit bool) error {
	collection := migrations.NewCollection()
	if doInit {
		if _, _, err := collection.Run(db, "init"); err != nil {
			return errors.Wrap(err, "could not init migrations")
		}
	}
	if err := collection.DiscoverSQLMigrations(dir); err != nil {
		return errors.Wrap(err, "failed to read migrations")
	}
	_, _, err := collection.Run(db, "up")
	return errors.Wrap(err, "could not migrate")
}
