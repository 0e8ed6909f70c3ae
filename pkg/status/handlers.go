// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package status

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	httptypes "github.com/canonical/care-service/internal/http/types"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/version"
)

const checkTimeout = 2 * time.Second

type Status struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type API struct {
	checks map[string]CheckerInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Get("/api/v0/status", a.alive)
	mux.Get("/api/v0/version", a.version)
}

// alive pings every dependency concurrently, any failure turns the answer into a 503
func (a *API) alive(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "status.API.alive")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		ret = Status{Status: "ok", Dependencies: make(map[string]string, len(a.checks))}
	)

	for _, name := range a.names() {
		wg.Add(1)

		go func(name string, c CheckerInterface) {
			defer wg.Done()

			state, availability := "ok", 1.0
			if err := c.Ping(ctx); err != nil {
				a.logger.Errorf("status check %s failed: %v", name, err)
				state, availability = "unavailable", 0.0
			}

			_ = a.monitor.SetDependencyAvailability(map[string]string{"component": name}, availability)

			mu.Lock()
			defer mu.Unlock()

			ret.Dependencies[name] = state
			if state != "ok" {
				ret.Status = "degraded"
			}
		}(name, a.checks[name])
	}

	wg.Wait()

	code := http.StatusOK
	if ret.Status != "ok" {
		code = http.StatusServiceUnavailable
	}

	httptypes.WriteJSON(w, code, httptypes.Response{Success: code == http.StatusOK, Message: ret.Status, Data: ret})
}

func (a *API) version(w http.ResponseWriter, _ *http.Request) {
	httptypes.WriteSuccess(w, http.StatusOK, "ok", version.Info())
}

func (a *API) names() []string {
	ret := make([]string, 0, len(a.checks))
	for name := range a.checks {
		ret = append(ret, name)
	}
	sort.Strings(ret)

	return ret
}

func NewAPI(checks map[string]CheckerInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.checks = checks
	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}
