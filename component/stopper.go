// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package component

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/insolar/crowdfund/connectivity"
	"github.com/insolar/crowdfund/internal/app/crowdfund/events"
	"github.com/insolar/crowdfund/observability"
)

const shutdownTimeout = 10 * time.Second

func makeStopper(obs *observability.Observability, conn *connectivity.Connectivity, router *Router, e *echo.Echo, bus *events.Bus, cancel context.CancelFunc) func() {
	log := obs.Log()
	return func() {
		ctx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := e.Shutdown(ctx); err != nil {
				log.Error(errors.Wrapf(err, "api server shutdown"))
			}
		}()
		go func() {
			defer wg.Done()
			router.Stop(ctx)
		}()
		wg.Wait()

		// no calls are running past this point
		cancel()
		if err := bus.Close(); err != nil {
			log.Error(err)
		}
		if err := conn.Close(); err != nil {
			log.Error(err)
		}
	}
}
