// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

package deckhand

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/halos/deckhand/config"
	"github.com/halos/deckhand/dashboard"
	"github.com/halos/deckhand/onboard"
	"github.com/halos/deckhand/source"
	"github.com/halos/deckhand/state"

	log "github.com/sirupsen/logrus"
)

// Adapter ties the container source, the dashboard client, and the durable
// reconciliation state together. It can be safely used from multiple
// goroutines: all state-mutating operations (reconciliation cycles,
// incremental event handling, onboarding) are serialized behind a
// single mutex, so the persisted state only ever has one writer.
type Adapter struct {
	source      source.Source     // the container runtime to discover from.
	dash        dashboard.Service // the dashboard to reconcile into.
	store       *state.Store      // durable reconciliation state.
	branding    *config.Branding  // declarative first-boot input.
	product     string            // the dashboard's own product name.
	syncevery   time.Duration     // period of full reconciliation scans.
	queuelen    int               // bounded lifecycle event queue length.
	onboardopts []onboard.Option  // passed through to the orchestrator.

	mux    sync.Mutex // serializes all cycles and onboarding runs.
	authed bool       // a credentialed dashboard session exists.
}

// New returns an Adapter for further use, discovering apps from the
// specified container source and reconciling them into the specified
// dashboard, with its durable memory at the specified store. The branding
// document supplies the onboarding input as well as the admin credentials
// for the dashboard session.
//
// Further options ([NewOption], such as [WithSyncInterval] and
// [WithProductName]) allow to customize the Adapter returned.
func New(
	src source.Source,
	dash dashboard.Service,
	store *state.Store,
	branding *config.Branding,
	opts ...NewOption,
) *Adapter {
	a := &Adapter{
		source:    src,
		dash:      dash,
		store:     store,
		branding:  branding,
		product:   config.DefaultProductName,
		syncevery: time.Duration(config.DefaultSyncSeconds) * time.Second,
		queuelen:  config.DefaultEventQueueLen,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sync runs one full reconciliation cycle: on the first run ever it first
// drives onboarding to completion, then lists the eligible containers and
// reconciles them against the persisted state. State only gets persisted at
// clean cycle boundaries, so an aborted cycle never leaves partial state
// behind and the next invocation simply retries from scratch.
func (a *Adapter) Sync(ctx context.Context) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	s, err := a.store.Load()
	if err != nil {
		return err
	}
	if !s.OnboardingCompleted {
		if err := a.onboard(ctx, s); err != nil {
			return err
		}
	}
	return a.fullReconcile(ctx, s)
}

// Setup runs onboarding only, without any discovery; the CLI exposes this
// as its own subcommand for appliance provisioning scripts.
func (a *Adapter) Setup(ctx context.Context) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	s, err := a.store.Load()
	if err != nil {
		return err
	}
	if s.OnboardingCompleted {
		log.Infof("onboarding already completed, nothing to do")
		return nil
	}
	return a.onboard(ctx, s)
}

// onboard runs the orchestrator and, only after the whole run succeeded,
// marks onboarding as completed in the persisted state. A failed run leaves
// the flag unset, so the next cycle resumes from the dashboard's actual
// current step instead of starting over. Callers must hold the adapter
// mutex.
func (a *Adapter) onboard(ctx context.Context, s *state.State) error {
	log.Infof("first boot detected, onboarding the dashboard")
	orchestrator := onboard.New(a.dash, a.branding, a.onboardopts...)
	if err := orchestrator.Run(ctx); err != nil {
		return fmt.Errorf("onboarding failed: %w", err)
	}
	a.authed = true // the orchestrator just logged in.
	s.OnboardingCompleted = true
	if err := a.store.Save(s); err != nil {
		return err
	}
	log.Infof("onboarding completed")
	return nil
}

// ensureSession makes sure a credentialed dashboard session exists before
// mutating dashboard state; the session cookie then lives in the dashboard
// client for the remainder of the process.
func (a *Adapter) ensureSession(ctx context.Context) error {
	if a.authed {
		return nil
	}
	credentials := a.branding.Credentials
	if err := a.dash.Login(ctx, credentials.AdminUsername, credentials.AdminPassword); err != nil {
		return err
	}
	a.authed = true
	return nil
}
