// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

// Package source abstracts the container runtime the adapter discovers
// dashboard apps from: listing the currently running containers, fetching a
// single container's labels, and subscribing to container lifecycle
// transitions. The moby subpackage implements this contract on top of the
// Docker Engine API.
package source

import "context"

// Container is one running container as seen by a Source: its opaque
// identifier plus a flat snapshot of its labels. The adapter never keeps
// Containers around beyond a single reconciliation step.
type Container struct {
	ID     string
	Labels map[string]string
}

// EventType tells whether a container became eligible for discovery or
// ceased to be.
type EventType string

const (
	// ContainerStarted signals a container that has come alive and might
	// now be discoverable.
	ContainerStarted EventType = "started"
	// ContainerStopped signals a container that has gone away (stopped or
	// died) and is no longer discoverable.
	ContainerStopped EventType = "stopped"
)

// Event is a single container lifecycle transition, normalized from the
// runtime-specific event vocabulary.
type Event struct {
	Type EventType
	ID   string // container identifier
}

// Source gives access to a container runtime's current and future workload.
type Source interface {
	// List returns the currently running containers together with their
	// label snapshots, using a single runtime API round-trip. Errors
	// indicate that the runtime is unavailable.
	List(ctx context.Context) ([]Container, error)

	// Inspect returns the label snapshot of a single container. Errors
	// indicate that the runtime is unavailable or the container has
	// already vanished again.
	Inspect(ctx context.Context, id string) (Container, error)

	// Watch subscribes to container lifecycle transitions, delivering
	// started/stopped events on the returned event channel until either
	// the passed context gets cancelled or the subscription fails
	// terminally. A terminal failure is reported once on the returned
	// error channel; transient per-event hiccups are skipped without
	// ending the subscription. After a terminal failure the subscription
	// is dead and the caller has to resubscribe (or fall back to periodic
	// listing).
	Watch(ctx context.Context) (<-chan Event, <-chan error)
}
