// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

package deckhand

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/halos/deckhand/source"

	log "github.com/sirupsen/logrus"
)

// Run reconciles until the passed context gets done: an initial full cycle,
// then periodic full scans plus live incremental reconciliation of the
// container lifecycle events. The event subscription and the periodic
// trigger act as two producers feeding one serialized consumer through a
// bounded queue; a slow consumer back-pressures the producers instead of
// silently dropping events.
//
// Run returns nil when shut down through context cancellation.
func (a *Adapter) Run(ctx context.Context) error {
	if err := a.Sync(ctx); err != nil {
		// Not fatal to the adapter as a whole: the next periodic cycle
		// retries from scratch.
		log.Errorf("initial reconciliation failed: %s", err.Error())
	}
	events := make(chan source.Event, a.queuelen)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		a.pump(ctx, events)
		return nil
	})
	g.Go(func() error {
		a.consume(ctx, events)
		return nil
	})
	return g.Wait()
}

// pump keeps a container lifecycle event subscription alive, forwarding its
// events into the adapter's serialized consumer queue. A terminated
// subscription (connection to the runtime lost) is not a process error:
// pump resubscribes with exponential backoff while the periodic full scans
// keep covering in the meantime. pump returns once the context is done.
func (a *Adapter) pump(ctx context.Context, events chan<- source.Event) {
	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = 0 // keep trying for as long as we're running.
	for {
		evs, errs := a.source.Watch(ctx)
		log.Infof("subscribed to container lifecycle events")
		for ev := range evs {
			boff.Reset() // the subscription evidently works again.
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		// The subscription has ended; either we're shutting down, or the
		// stream failed terminally and we need a new one.
		select {
		case <-ctx.Done():
			return
		default:
		}
		select {
		case err := <-errs:
			log.Warnf("container event subscription lost: %s", err.Error())
		default:
		}
		wait := boff.NextBackOff()
		log.Infof("falling back to periodic scans, resubscribing in %s", wait)
		// time.After would leak its timer on the ctx.Done path, so do it
		// properly with an explicit timer and drain.
		wecker := time.NewTimer(wait)
		select {
		case <-wecker.C:
		case <-ctx.Done():
			if !wecker.Stop() {
				<-wecker.C
			}
			return
		}
	}
}

// consume is the single serialized consumer of both reconciliation
// triggers: the periodic full-scan tick and the live lifecycle events. One
// consumer means no concurrent processing of the same container identifier,
// ever, and events for the same identifier are handled in arrival order.
func (a *Adapter) consume(ctx context.Context, events <-chan source.Event) {
	ticker := time.NewTicker(a.syncevery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Sync(ctx); err != nil {
				log.Errorf("periodic reconciliation failed: %s", err.Error())
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handleEvent(ctx, ev)
		}
	}
}
