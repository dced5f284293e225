// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/component"
	"github.com/insolar/crowdfund/configuration"
	"github.com/insolar/crowdfund/configuration/insconfig"
	"github.com/insolar/crowdfund/internal/logger"
)

var stop = make(chan os.Signal, 1)
var Version string

func main() {
	params := insconfig.Params{
		ConfigStruct: configuration.Crowdfund{},
		EnvPrefix:    "crowdfund",
	}
	loaded, err := insconfig.Load(params)
	if err != nil {
		logrus.Fatal(err)
	}
	cfg := loaded.(*configuration.Crowdfund)

	log, closer, err := logger.NewLogger(cfg.Log)
	if err != nil {
		logrus.Fatal(err)
	}
	defer closer.Close()
	insconfig.PrintConfig(log, cfg)
	if len(Version) == 0 {
		Version = "dev"
	}
	log.Infof("crowdfund version=%s", Version)

	manager, err := component.Prepare(context.Background(), cfg, log)
	if err != nil {
		log.Fatal(err)
	}
	if err := manager.Start(); err != nil {
		manager.Stop()
		log.Fatal(err)
	}
	graceful(log, manager.Stop)
}

func graceful(log *logrus.Logger, that func()) {
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Infof("gracefully stopping...")
	that()
}
