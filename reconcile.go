// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

package deckhand

import (
	"context"
	"errors"
	"time"

	"github.com/halos/deckhand/dashboard"
	"github.com/halos/deckhand/discovery"
	"github.com/halos/deckhand/source"
	"github.com/halos/deckhand/state"

	log "github.com/sirupsen/logrus"
)

// fullReconcile lists all running containers, funnels the eligible ones
// through the shared apply gate, and deregisters recorded apps whose
// containers have vanished. The dashboard side is never auto-deleted: a
// vanished container only erases the adapter's own record, so the user can
// keep the tile and a later container restart isn't mistaken for something
// new. State gets persisted at the end of the cycle whether or not any
// dashboard mutation occurred. Callers must hold the adapter mutex.
func (a *Adapter) fullReconcile(ctx context.Context, s *state.State) error {
	containers, err := a.source.List(ctx)
	if err != nil {
		return err // runtime unavailable: abort this cycle, retry next time.
	}
	alive := map[string]bool{}
	added := 0
	for _, cntr := range containers {
		app, eligible := discovery.FromLabels(cntr.ID, cntr.Labels, a.product)
		if !eligible {
			continue
		}
		alive[cntr.ID] = true
		if a.apply(ctx, s, app) {
			added++
		}
	}
	gone := 0
	for id := range s.DiscoveredApps {
		if alive[id] {
			continue
		}
		log.Debugf("container %s has vanished, deregistering its app record", id)
		s.Forget(id)
		gone++
	}
	s.TouchSync()
	if err := a.store.Save(s); err != nil {
		return err
	}
	log.Infof("reconciled %d eligible containers: %d added, %d deregistered",
		len(alive), added, gone)
	return nil
}

// apply is the single eligibility decision gate shared by the full and the
// incremental reconciliation paths, so both paths necessarily have
// identical idempotency semantics. It reports whether it changed the
// adapter state. A dashboard API failure only aborts this one container's
// action: it is logged and the remaining containers still get processed
// within the same cycle; no in-cycle retry.
func (a *Adapter) apply(ctx context.Context, s *state.State, app discovery.App) bool {
	id := app.ContainerID
	if s.IsRemoved(id) {
		log.Debugf("skipping app '%s': container %s was removed by the user", app.Name, id)
		return false
	}
	if _, known := s.DiscoveredApps[id]; known {
		return false
	}
	if err := a.ensureSession(ctx); err != nil {
		log.Warnf("cannot establish dashboard session: %s", err.Error())
		return false
	}
	if _, err := a.dash.CreateApp(ctx, dashboard.App{
		Name:        app.Name,
		Description: app.Description,
		IconURL:     app.IconURL,
		Href:        app.URL,
	}); err != nil && !errors.Is(err, dashboard.ErrAlreadyExists) {
		log.Warnf("cannot add app '%s' (container %s) to the dashboard: %s",
			app.Name, id, err.Error())
		return false
	}
	log.Infof("added app '%s' (%s) for container %s", app.Name, app.URL, app.ContainerName)
	s.Record(id, state.App{
		Name:    app.Name,
		URL:     app.URL,
		AddedAt: time.Now().UTC(),
	})
	return true
}

// handleEvent runs one incremental reconciliation step for a single
// container lifecycle event. A started container gets inspected once and
// then pushed through the same apply gate as full reconciliation; a stopped
// container only loses its record. State is persisted immediately after any
// mutation.
func (a *Adapter) handleEvent(ctx context.Context, ev source.Event) {
	a.mux.Lock()
	defer a.mux.Unlock()
	s, err := a.store.Load()
	if err != nil {
		log.Errorf("cannot load state: %s", err.Error())
		return
	}
	switch ev.Type {
	case source.ContainerStarted:
		cntr, err := a.source.Inspect(ctx, ev.ID)
		if err != nil {
			// The container might have stopped again already; nothing
			// lost, the next full scan settles it either way.
			log.Warnf("cannot inspect started container: %s", err.Error())
			return
		}
		app, eligible := discovery.FromLabels(cntr.ID, cntr.Labels, a.product)
		if !eligible {
			return
		}
		if !a.apply(ctx, s, app) {
			return
		}
	case source.ContainerStopped:
		if _, known := s.DiscoveredApps[ev.ID]; !known {
			return
		}
		log.Debugf("container %s stopped, deregistering its app record", ev.ID)
		s.Forget(ev.ID)
	default:
		return
	}
	if err := a.store.Save(s); err != nil {
		log.Errorf("cannot persist state: %s", err.Error())
	}
}
