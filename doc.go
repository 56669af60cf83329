// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

/*
Package deckhand implements a sidecar adapter that keeps a self-hosted
dashboard in step with the containers running next to it. It bootstraps a
freshly installed dashboard by driving its multi-step onboarding API to
completion, and afterwards continuously discovers containers carrying
dashboard labels, reconciling them into the dashboard's app list.

# Discovery & Reconciliation

Containers opt into discovery through labels (see the discovery package);
the adapter never manages any container lifecycle itself. Reconciliation
runs along two paths that share one and the same eligibility gate:

  - full reconciliation lists all running containers periodically (or on
    demand) and computes the delta against the persisted state: newly
    labelled containers get added to the dashboard and recorded; vanished
    containers only get deregistered from the adapter's records; the
    dashboard-side tile stays, as the user may well want to keep it.
  - incremental reconciliation reacts to live container start/stop events
    from the runtime's event stream, inspecting single containers as they
    come and go.

Apps the user explicitly removed from the dashboard are remembered in a
persisted removed-set and never re-added by either path. The removed-set is
the only deletion memory there is: deleting an app through the dashboard UI
without the adapter learning about it makes the app reappear on the next
full scan.

Both paths feed a single serialized consumer, so reconciliation cycles and
onboarding never mutate the persisted state concurrently, and events for
the same container are always handled in arrival order. When the event
subscription terminates, the adapter falls back to its periodic full scans
and resubscribes with exponential backoff.

# First Boot

On the first cycle ever the adapter runs the onboarding orchestrator (see
the onboard package) before any discovery. The dashboard itself stays
authoritative for onboarding progress throughout, so a half-finished or
externally driven onboarding gets picked up exactly where it stands.

# Quick Start

	src, _ := moby.New("unix:///var/run/docker.sock")
	dash, _ := dashboard.New("http://127.0.0.1:7575")
	adapter := deckhand.New(src, dash,
		state.NewStore("/var/lib/deckhand/state.json"), branding)
	err := adapter.Run(ctx) // watch and reconcile until ctx is done
*/
package deckhand
