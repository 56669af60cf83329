// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

// Package onboard drives a freshly installed dashboard through its
// multi-step onboarding to completion, exactly once and idempotently.
//
// The dashboard itself is the single source of truth for onboarding
// progress: the orchestrator re-queries the current step on every iteration
// instead of assuming its own request advanced anything, so it resumes
// correctly from whatever intermediate step a previous (crashed, raced,
// manually driven) run left behind. After the step machine reaches its
// terminal step, a second phase logs in and idempotently ensures the
// branded default board, the optional entry tile, the home board setting,
// and the color scheme.
package onboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/halos/deckhand/config"
	"github.com/halos/deckhand/dashboard"

	log "github.com/sirupsen/logrus"
)

// defaultStepPause is the pause between onboarding step iterations, giving
// the dashboard a moment to settle before the next re-query.
const defaultStepPause = 250 * time.Millisecond

// Orchestrator drives the dashboard's onboarding. It keeps no local step
// state whatsoever.
type Orchestrator struct {
	dash      dashboard.Service
	branding  *config.Branding
	maxsteps  int
	steppause time.Duration
}

// Option customizes an Orchestrator returned by New.
type Option func(*Orchestrator)

// WithMaxSteps caps the number of step-machine iterations before the
// orchestrator gives up on a persistently misbehaving dashboard. Zero or
// less keeps the default.
func WithMaxSteps(max int) Option {
	return func(o *Orchestrator) {
		if max > 0 {
			o.maxsteps = max
		}
	}
}

// WithStepPause sets the pause between step-machine iterations; useful to
// zero out in specs.
func WithStepPause(d time.Duration) Option {
	return func(o *Orchestrator) { o.steppause = d }
}

// New returns an Orchestrator driving the specified dashboard using the
// declarative branding input.
func New(dash dashboard.Service, branding *config.Branding, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dash:      dash,
		branding:  branding,
		maxsteps:  config.DefaultMaxOnboardSteps,
		steppause: defaultStepPause,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives onboarding to completion: first the step machine until the
// dashboard reports the terminal step, then the authenticated board setup
// phase. Run only returns nil after every phase has succeeded, so callers
// can safely gate their onboarding-completed flag on it; on error, simply
// run again later and the orchestrator resumes from the dashboard's actual
// state.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.completeSteps(ctx); err != nil {
		return err
	}
	return o.setupBoard(ctx)
}

// completeSteps loops the onboarding step machine until the dashboard
// reports the terminal step, dispatching on the step names it understands
// and advancing unconditionally over any step it doesn't, so unknown future
// steps can't hang the machine. The loop is bounded: a dashboard that never
// reaches the terminal step within the iteration cap fails the run.
func (o *Orchestrator) completeSteps(ctx context.Context) error {
	credentials := o.branding.Credentials
	for iteration := 0; iteration < o.maxsteps; iteration++ {
		step, err := o.dash.CurrentStep(ctx)
		if err != nil {
			return fmt.Errorf("cannot query onboarding step: %w", err)
		}
		log.Infof("dashboard reports onboarding step '%s'", step.Current)
		switch step.Current {
		case dashboard.StepFinish:
			return nil
		case dashboard.StepStart:
			err = o.dash.NextStep(ctx)
		case dashboard.StepUser:
			// No admin account, no dashboard: this is the one step
			// failure that immediately fails the whole attempt.
			if err := o.dash.CreateAdminUser(ctx,
				credentials.AdminUsername, credentials.AdminPassword); err != nil {
				return fmt.Errorf("cannot create administrator account: %w", err)
			}
		case dashboard.StepSettings:
			err = o.dash.InitServerSettings(ctx, serverSettings(o.branding))
		default:
			log.Infof("skipping unknown onboarding step '%s'", step.Current)
			err = o.dash.NextStep(ctx)
		}
		if err != nil {
			return fmt.Errorf("onboarding step '%s' failed: %w", step.Current, err)
		}
		if o.steppause > 0 {
			pause := time.NewTimer(o.steppause)
			select {
			case <-pause.C:
			case <-ctx.Done():
				if !pause.Stop() {
					<-pause.C
				}
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("onboarding still not finished after %d steps", o.maxsteps)
}

// setupBoard runs the post-terminal phase: login, then the independently
// idempotent board/tile/home/theme phases. The board must exist before
// anything else can be placed on it, so a board failure ends the run; the
// remaining phases each log their failure and let the others continue, as
// every one of them is safe to retry on the next run.
func (o *Orchestrator) setupBoard(ctx context.Context) error {
	credentials := o.branding.Credentials
	if err := o.dash.Login(ctx, credentials.AdminUsername, credentials.AdminPassword); err != nil {
		return fmt.Errorf("cannot establish dashboard session: %w", err)
	}
	boardID, err := o.ensureBoard(ctx)
	if err != nil {
		return err
	}
	var errs []error
	if o.branding.Board.EntryTile.Enabled {
		if err := o.ensureEntryTile(ctx); err != nil {
			log.Warnf("cannot place entry tile: %s", err.Error())
			errs = append(errs, err)
		}
	}
	if err := o.dash.SetHomeBoard(ctx, boardID); err != nil {
		log.Warnf("cannot set home board: %s", err.Error())
		errs = append(errs, fmt.Errorf("cannot set home board: %w", err))
	}
	if err := o.dash.ChangeColorScheme(ctx, o.branding.Theme.DefaultColorScheme); err != nil {
		log.Warnf("cannot apply color scheme: %s", err.Error())
		errs = append(errs, fmt.Errorf("cannot apply color scheme: %w", err))
	}
	return errors.Join(errs...)
}

// ensureBoard makes sure the branded board exists, returning its
// identifier. Query-by-name first, create only on not-found.
func (o *Orchestrator) ensureBoard(ctx context.Context) (string, error) {
	name := o.branding.Board.Name
	board, err := o.dash.BoardByName(ctx, name)
	if err == nil {
		log.Infof("board '%s' already exists", name)
		return board.ID, nil
	}
	if !errors.Is(err, dashboard.ErrNotFound) {
		return "", fmt.Errorf("cannot query board '%s': %w", name, err)
	}
	log.Infof("creating board '%s'", name)
	boardID, err := o.dash.CreateBoard(ctx, name,
		o.branding.Board.ColumnCount, o.branding.Board.IsPublic)
	if err != nil {
		return "", fmt.Errorf("cannot create board '%s': %w", name, err)
	}
	return boardID, nil
}

// ensureEntryTile creates the configured entry tile app and places it on the
// branded board. An app that already exists counts as the tile already being
// satisfied from an earlier run.
func (o *Orchestrator) ensureEntryTile(ctx context.Context) error {
	tile := o.branding.Board.EntryTile
	appID, err := o.dash.CreateApp(ctx, dashboard.App{
		Name:        tile.Name,
		Description: tile.Description,
		IconURL:     tile.IconURL,
		Href:        tile.Href,
	})
	if err != nil {
		if errors.Is(err, dashboard.ErrAlreadyExists) {
			log.Infof("entry tile app '%s' already exists", tile.Name)
			return nil
		}
		return fmt.Errorf("cannot create entry tile app '%s': %w", tile.Name, err)
	}
	// Re-query the board: tile placement needs the board's current
	// sections and layouts.
	board, err := o.dash.BoardByName(ctx, o.branding.Board.Name)
	if err != nil {
		return fmt.Errorf("cannot query board '%s' for tile placement: %w",
			o.branding.Board.Name, err)
	}
	if err := o.dash.PlaceTile(ctx, board, appID, dashboard.TilePlacement{
		Width:   tile.Width,
		Height:  tile.Height,
		XOffset: tile.XOffset,
		YOffset: tile.YOffset,
	}); err != nil {
		return fmt.Errorf("cannot place entry tile on board '%s': %w",
			o.branding.Board.Name, err)
	}
	return nil
}

// serverSettings maps the branding toggles onto the dashboard's settings
// payload shape.
func serverSettings(branding *config.Branding) dashboard.ServerSettings {
	analytics := branding.Settings.Analytics
	crawling := branding.Settings.Crawling
	return dashboard.ServerSettings{
		Analytics: dashboard.AnalyticsSettings{
			EnableGeneral:         analytics.EnableGeneral,
			EnableWidgetData:      analytics.EnableWidgetData,
			EnableIntegrationData: analytics.EnableIntegrationData,
			EnableUserData:        analytics.EnableUserData,
		},
		Crawling: dashboard.CrawlingSettings{
			NoIndex:              crawling.NoIndex,
			NoFollow:             crawling.NoFollow,
			NoTranslate:          crawling.NoTranslate,
			NoSiteLinksSearchBox: crawling.NoSiteLinksSearchBox,
		},
	}
}
