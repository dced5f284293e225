// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package component

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/configuration"
	"github.com/insolar/crowdfund/connectivity"
	"github.com/insolar/crowdfund/internal/app/api"
	"github.com/insolar/crowdfund/internal/app/crowdfund/chain"
	"github.com/insolar/crowdfund/internal/app/crowdfund/events"
	"github.com/insolar/crowdfund/internal/app/crowdfund/ledger"
	"github.com/insolar/crowdfund/internal/app/crowdfund/oracle"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store/memory"
	pgstore "github.com/insolar/crowdfund/internal/app/crowdfund/store/pg"
	"github.com/insolar/crowdfund/observability"
)

type Manager struct {
	cfg *configuration.Crowdfund
	log *logrus.Logger

	bus     *events.Bus
	ledger  *ledger.Ledger
	watcher *watcher
	api     *echo.Echo
	router  *Router

	ctx  context.Context
	stop func()
}

// Prepare wires the service and brings the ledger up: deployed on a fresh
// store, attached when the configuration names its address.
func Prepare(ctx context.Context, cfg *configuration.Crowdfund, log *logrus.Logger) (*Manager, error) {
	obs := observability.Make(log)
	conn, err := connectivity.Make(cfg, obs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect")
	}
	st, err := makeStore(cfg, conn, log)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	exec := chain.NewExecutor(st, chain.NewReceivers(), chain.Config{
		GasLimit: cfg.Execution.GasLimit,
		Stipend:  cfg.Execution.Stipend,
		Costs:    chain.DefaultConfig().Costs,
	}, log)
	bus := events.NewBus(log, cfg.Events.Buffer)
	exec.SetPublisher(bus)

	metrics := observability.MakeLedgerMetrics(obs)
	registry := oracle.NewRegistry()
	l, err := initLedger(ctx, cfg, ledger.Deps{
		Executor: exec,
		Feeds:    registry,
		Log:      log,
		Metrics:  metrics,
	}, registry)
	if err != nil {
		_ = bus.Close()
		_ = conn.Close()
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(api.MetricsMiddleware(obs))
	api.RegisterHandlers(e, api.NewCrowdfundServer(l, exec, log))

	router := NewRouter(cfg.Metrics.Listen, obs)
	watchCtx, cancel := context.WithCancel(ctx)
	return &Manager{
		cfg:     cfg,
		log:     log,
		bus:     bus,
		ledger:  l,
		watcher: &watcher{ledger: l, metrics: metrics, log: log},
		api:     e,
		router:  router,
		ctx:     watchCtx,
		stop:    makeStopper(obs, conn, router, e, bus, cancel),
	}, nil
}

func makeStore(cfg *configuration.Crowdfund, conn *connectivity.Connectivity, log *logrus.Logger) (store.Store, error) {
	switch cfg.Storage.Driver {
	case configuration.StorageMemory:
		return memory.NewStore(), nil
	case configuration.StoragePostgres:
		return pgstore.NewPgStore(conn.PG(), log), nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (m *Manager) Ledger() *ledger.Ledger {
	return m.ledger
}

func (m *Manager) Start() error {
	if err := m.watcher.refresh(m.ctx); err != nil {
		return err
	}
	if err := m.bus.Watch(m.ctx, m.watcher.handle, events.Topics...); err != nil {
		return err
	}
	m.router.Start()
	go func() {
		err := m.api.Start(m.cfg.API.Listen)
		if err != http.ErrServerClosed {
			m.log.Error(errors.Wrapf(err, "api server Start"))
		}
	}()
	m.log.WithFields(logrus.Fields{
		"api":     m.cfg.API.Listen,
		"metrics": m.cfg.Metrics.Listen,
		"ledger":  m.ledger.Address(),
	}).Info("crowdfund started")
	return nil
}

func (m *Manager) Stop() {
	m.stop()
}
