// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

package deckhand

import (
	"time"

	"github.com/halos/deckhand/onboard"
)

// NewOption represents options to New when creating a new adapter.
type NewOption func(*Adapter)

// WithSyncInterval sets the period of the full reconciliation scans run by
// [Adapter.Run]. A zero or negative duration keeps the default.
func WithSyncInterval(d time.Duration) NewOption {
	return func(a *Adapter) {
		if d > 0 {
			a.syncevery = d
		}
	}
}

// WithEventQueueLength bounds the queue between the container lifecycle
// event subscription and the serialized reconciliation consumer. A slow
// consumer causes the producer to block rather than drop events; duplicate
// events are naturally absorbed by reconciliation idempotency anyway.
func WithEventQueueLength(n int) NewOption {
	return func(a *Adapter) {
		if n > 0 {
			a.queuelen = n
		}
	}
}

// WithProductName sets the dashboard's own product name, used to suppress
// containers that would end up as a dashboard tile pointing at the
// dashboard itself.
func WithProductName(name string) NewOption {
	return func(a *Adapter) {
		if name != "" {
			a.product = name
		}
	}
}

// WithOnboardingOptions passes options through to the onboarding
// orchestrator created on first boot.
func WithOnboardingOptions(opts ...onboard.Option) NewOption {
	return func(a *Adapter) {
		a.onboardopts = append(a.onboardopts, opts...)
	}
}
