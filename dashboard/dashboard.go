// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

// Package dashboard is a thin request/response wrapper around the
// authenticated RPC endpoints of a Homarr-compatible dashboard. It contains
// no orchestration logic whatsoever: each operation is a single remote
// procedure call, and it is the callers (the reconciliation engine and the
// onboarding orchestrator) that decide what to call when.
package dashboard

import (
	"context"
	"errors"
)

// Step is the dashboard-reported onboarding progress. The dashboard, not the
// adapter, is authoritative for it, so it never gets persisted and is
// re-queried on every orchestration iteration.
type Step struct {
	Current  string `json:"current"`
	Previous string `json:"previous,omitempty"`
}

// The named onboarding steps the orchestrator dispatches on; anything else
// is advanced unconditionally for forward compatibility.
const (
	StepStart    = "start"
	StepUser     = "user"
	StepSettings = "settings"
	StepFinish   = "finish" // the terminal step: nothing left to set up.
)

// AnalyticsSettings are the dashboard's analytics toggles.
type AnalyticsSettings struct {
	EnableGeneral         bool `json:"enableGeneral"`
	EnableWidgetData      bool `json:"enableWidgetData"`
	EnableIntegrationData bool `json:"enableIntegrationData"`
	EnableUserData        bool `json:"enableUserData"`
}

// CrawlingSettings are the dashboard's crawler/indexing toggles.
type CrawlingSettings struct {
	NoIndex              bool `json:"noIndex"`
	NoFollow             bool `json:"noFollow"`
	NoTranslate          bool `json:"noTranslate"`
	NoSiteLinksSearchBox bool `json:"noSiteLinksSearchBox"`
}

// ServerSettings is the fixed settings bundle submitted during the
// “settings” onboarding step.
type ServerSettings struct {
	Analytics AnalyticsSettings `json:"analytics"`
	Crawling  CrawlingSettings  `json:"crawlingAndIndexing"`
}

// Section is one layout section of a board.
type Section struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	XOffset int    `json:"xOffset"`
	YOffset int    `json:"yOffset"`
}

// Layout is one responsive layout of a board.
type Layout struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ColumnCount int    `json:"columnCount"`
	Breakpoint  int    `json:"breakpoint"`
}

// Board is the board information needed for placing tiles.
type Board struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Sections []Section `json:"sections"`
	Layouts  []Layout  `json:"layouts"`
}

// App is the payload for creating a dashboard app.
type App struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
	Href        string `json:"href"`
}

// TilePlacement is the size and position of a tile placed onto a board.
type TilePlacement struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	XOffset int `json:"xOffset"`
	YOffset int `json:"yOffset"`
}

// ErrNotFound signals that a queried dashboard object (such as a board)
// doesn't exist; an expected condition, not a failure.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists signals that a to-be-created dashboard object already
// exists; callers running idempotent phases treat this as success.
var ErrAlreadyExists = errors.New("already exists")

// Service enumerates the remote dashboard procedures the adapter consumes.
// *Client implements it; tests substitute fakes.
type Service interface {
	// CurrentStep queries the dashboard-reported onboarding step.
	CurrentStep(ctx context.Context) (Step, error)
	// NextStep asks the dashboard to advance to the next onboarding step;
	// a no-op if the current step is already satisfied.
	NextStep(ctx context.Context) error
	// CreateAdminUser submits the initial administrator credentials.
	CreateAdminUser(ctx context.Context, username, password string) error
	// InitServerSettings submits the privacy/analytics/crawling toggles.
	InitServerSettings(ctx context.Context, settings ServerSettings) error
	// Login performs the token handshake and establishes a credentialed
	// session for the operations requiring authentication.
	Login(ctx context.Context, username, password string) error
	// BoardByName returns the named board, or ErrNotFound.
	BoardByName(ctx context.Context, name string) (Board, error)
	// CreateBoard creates a board and returns its identifier.
	CreateBoard(ctx context.Context, name string, columnCount int, public bool) (string, error)
	// CreateApp creates a dashboard app and returns its identifier, or
	// ErrAlreadyExists.
	CreateApp(ctx context.Context, app App) (string, error)
	// PlaceTile saves the specified board with a single app tile added at
	// the given placement.
	PlaceTile(ctx context.Context, board Board, appID string, placement TilePlacement) error
	// SetHomeBoard makes the specified board the home board.
	SetHomeBoard(ctx context.Context, boardID string) error
	// ChangeColorScheme applies the specified color scheme.
	ChangeColorScheme(ctx context.Context, scheme string) error
}
