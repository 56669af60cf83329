// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

// Package moby implements the source.Source contract on top of the Docker
// Engine API.
package moby

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"github.com/halos/deckhand/source"

	log "github.com/sirupsen/logrus"
)

// engineClient is the (narrow) slice of the Docker client API this Source
// actually consumes; it doubles as the mock injection point for tests.
type engineClient interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	Events(ctx context.Context, options events.ListOptions) (<-chan events.Message, <-chan error)
	Close() error
}

// Source talks to a single Docker engine. It is safe for use from multiple
// goroutines, as the underlying Docker client is.
type Source struct {
	moby engineClient
}

// Source implements the source.Source contract.
var _ source.Source = (*Source)(nil)

// New returns a Source connected to the Docker engine at the specified host
// (such as “unix:///var/run/docker.sock”). An empty host falls back to the
// usual DOCKER_HOST environment configuration. The engine API version gets
// negotiated, so the adapter keeps working across engine upgrades.
func New(host string) (*Source, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	} else {
		opts = append(opts, client.FromEnv)
	}
	moby, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create Docker client: %w", err)
	}
	return &Source{moby: moby}, nil
}

// NewWithClient returns a Source using the specified Docker (API) client;
// this is also the hook for injecting a mock engine in tests.
func NewWithClient(moby engineClient) *Source {
	return &Source{moby: moby}
}

// Close releases the underlying Docker client resources.
func (s *Source) Close() error { return s.moby.Close() }

// List returns the currently running containers and their label snapshots in
// a single engine API round-trip. Stopped containers are of no interest, so
// we don't ask for them in the first place.
func (s *Source) List(ctx context.Context) ([]source.Container, error) {
	cntrs, err := s.moby.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("container runtime unavailable: %w", err)
	}
	containers := make([]source.Container, 0, len(cntrs))
	for _, cntr := range cntrs {
		containers = append(containers, source.Container{
			ID:     cntr.ID,
			Labels: cntr.Labels,
		})
	}
	return containers, nil
}

// Inspect returns the label snapshot of the single specified container.
func (s *Source) Inspect(ctx context.Context, id string) (source.Container, error) {
	details, err := s.moby.ContainerInspect(ctx, id)
	if err != nil {
		return source.Container{}, fmt.Errorf("cannot inspect container %s: %w", id, err)
	}
	labels := map[string]string{}
	if details.Config != nil {
		labels = details.Config.Labels
	}
	return source.Container{ID: details.ID, Labels: labels}, nil
}

// Watch subscribes to the engine's event stream, filtered (engine-side) down
// to container start/stop/die transitions, and translates the engine
// vocabulary into started/stopped events. The event channel closes when the
// subscription ends; a terminal subscription failure is additionally
// reported on the error channel. Cancelling the context is the normal way to
// shut the subscription down and doesn't count as a failure.
func (s *Source) Watch(ctx context.Context) (<-chan source.Event, <-chan error) {
	evs := make(chan source.Event)
	errch := make(chan error, 1)
	msgs, errs := s.moby.Events(ctx, events.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("type", string(events.ContainerEventType)),
			filters.Arg("event", string(events.ActionStart)),
			filters.Arg("event", string(events.ActionStop)),
			filters.Arg("event", string(events.ActionDie)),
		),
	})
	go func() {
		defer close(evs)
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				if err == nil || errors.Is(err, context.Canceled) {
					return
				}
				log.Warnf("container event subscription ended, reason: %s", err.Error())
				errch <- err
				return
			case msg := <-msgs:
				ev, ok := normalize(msg)
				if !ok {
					// Either not addressed to us despite the filters, or
					// an action we don't care for; skip and carry on.
					log.Debugf("skipping engine event %s/%s for %q",
						msg.Type, msg.Action, msg.Actor.ID)
					continue
				}
				select {
				case evs <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return evs, errch
}

// normalize maps an engine event message onto the started/stopped event
// vocabulary, rejecting everything else.
func normalize(msg events.Message) (source.Event, bool) {
	if msg.Type != events.ContainerEventType || msg.Actor.ID == "" {
		return source.Event{}, false
	}
	switch msg.Action {
	case events.ActionStart:
		return source.Event{Type: source.ContainerStarted, ID: msg.Actor.ID}, true
	case events.ActionStop, events.ActionDie:
		return source.Event{Type: source.ContainerStopped, ID: msg.Actor.ID}, true
	}
	return source.Event{}, false
}
