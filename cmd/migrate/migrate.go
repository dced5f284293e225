// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/configuration"
	"github.com/insolar/crowdfund/configuration/insconfig"
	"github.com/insolar/crowdfund/internal/dbconn"
	"github.com/insolar/crowdfund/internal/logger"
)

var migrationDir = flag.String("dir", "", "directory with migrations")
var doInit = flag.Bool("init", false, "perform db init (for empty db)")

func main() {
	prms := insconfig.Params{
		ConfigStruct: configuration.Migrate{},
		EnvPrefix:    "migrate",
		GoFlags:      flag.CommandLine,
	}
	loaded, err := insconfig.Load(prms)
	if err != nil {
		logrus.Fatal(err)
	}
	cfg := loaded.(*configuration.Migrate)

	log, closer, err := logger.NewLogger(cfg.Log)
	if err != nil {
		logrus.Fatal(err)
	}
	defer closer.Close()
	insconfig.PrintConfig(log, cfg)

	db, err := dbconn.Connect(cfg.DB)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer db.Close()
	if err := dbconn.WaitReady(db, cfg.DB, log); err != nil {
		log.Fatal(err)
	}
	if err := dbconn.Migrate(db, *migrationDir, *doInit); err != nil {
		log.Fatal(err)
	}
	log.Info("migrated successfully!")
}
