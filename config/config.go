// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

// Package config loads the adapter configuration and the branding document
// that drives first-boot onboarding. Both are TOML files; missing optional
// settings fall back to defaults suitable for a single-node appliance.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied before decoding the adapter configuration.
const (
	DefaultDockerHost      = "unix:///var/run/docker.sock"
	DefaultDashboardURL    = "http://127.0.0.1:7575"
	DefaultStateFile       = "/var/lib/deckhand/state.json"
	DefaultBrandingFile    = "/etc/deckhand/branding.toml"
	DefaultProductName     = "Homarr"
	DefaultSyncSeconds     = 300
	DefaultEventQueueLen   = 64
	DefaultMaxOnboardSteps = 32
)

// Config is the adapter configuration.
type Config struct {
	// DockerHost is the container runtime API endpoint; empty means the
	// usual DOCKER_HOST environment configuration.
	DockerHost string `toml:"docker_host"`
	// DashboardURL is the base URL of the dashboard to adapt.
	DashboardURL string `toml:"dashboard_url"`
	// StateFile is the path of the persisted reconciliation state.
	StateFile string `toml:"state_file"`
	// BrandingFile is the path of the branding document.
	BrandingFile string `toml:"branding_file"`
	// ProductName is the dashboard's own product name, used to suppress
	// self-referencing tiles.
	ProductName string `toml:"product_name"`
	// SyncSeconds is the period of full reconciliation scans, in seconds.
	SyncSeconds int `toml:"sync_seconds"`
	// EventQueueLen bounds the container lifecycle event queue between the
	// watch subscription and the reconciliation loop.
	EventQueueLen int `toml:"event_queue_len"`
	// MaxOnboardSteps caps the onboarding step loop so a persistently
	// misbehaving dashboard can't hang the adapter forever.
	MaxOnboardSteps int `toml:"max_onboard_steps"`
}

// Default returns an adapter configuration with all defaults applied.
func Default() *Config {
	return &Config{
		DockerHost:      DefaultDockerHost,
		DashboardURL:    DefaultDashboardURL,
		StateFile:       DefaultStateFile,
		BrandingFile:    DefaultBrandingFile,
		ProductName:     DefaultProductName,
		SyncSeconds:     DefaultSyncSeconds,
		EventQueueLen:   DefaultEventQueueLen,
		MaxOnboardSteps: DefaultMaxOnboardSteps,
	}
}

// Load reads the adapter configuration from the TOML document at the
// specified path, applying defaults for everything left unspecified.
func Load(path string) (*Config, error) {
	cfg := Default()
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read configuration %s: %w", path, err)
	}
	if err := toml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// Credentials are the administrator account credentials submitted during
// onboarding and used for the credentialed dashboard session afterwards.
type Credentials struct {
	AdminUsername string `toml:"admin_username"`
	AdminPassword string `toml:"admin_password"`
}

// Analytics are the dashboard analytics toggles submitted during the server
// settings onboarding step.
type Analytics struct {
	EnableGeneral         bool `toml:"enable_general"`
	EnableWidgetData      bool `toml:"enable_widget_data"`
	EnableIntegrationData bool `toml:"enable_integration_data"`
	EnableUserData        bool `toml:"enable_user_data"`
}

// Crawling are the crawler/indexing toggles submitted during the server
// settings onboarding step.
type Crawling struct {
	NoIndex              bool `toml:"no_index"`
	NoFollow             bool `toml:"no_follow"`
	NoTranslate          bool `toml:"no_translate"`
	NoSiteLinksSearchBox bool `toml:"no_sitelinks_search_box"`
}

// Settings bundles the privacy-related server settings.
type Settings struct {
	Analytics Analytics `toml:"analytics"`
	Crawling  Crawling  `toml:"crawling"`
}

// EntryTile describes the single fixed tile optionally placed on the default
// board, typically pointing at the appliance's system console.
type EntryTile struct {
	Enabled     bool   `toml:"enabled"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	IconURL     string `toml:"icon_url"`
	Href        string `toml:"href"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	XOffset     int    `toml:"x_offset"`
	YOffset     int    `toml:"y_offset"`
}

// Board describes the default board ensured during onboarding.
type Board struct {
	Name        string    `toml:"name"`
	ColumnCount int       `toml:"column_count"`
	IsPublic    bool      `toml:"is_public"`
	EntryTile   EntryTile `toml:"entry_tile"`
}

// Theme holds the appearance defaults applied after onboarding.
type Theme struct {
	DefaultColorScheme string `toml:"default_color_scheme"`
}

// Branding is the declarative first-boot input: admin credentials, privacy
// defaults, the default board with its optional entry tile, and the color
// scheme.
type Branding struct {
	Credentials Credentials `toml:"credentials"`
	Settings    Settings    `toml:"settings"`
	Board       Board       `toml:"board"`
	Theme       Theme       `toml:"theme"`
}

// LoadBranding reads the branding document from the TOML file at the
// specified path.
func LoadBranding(path string) (*Branding, error) {
	branding := &Branding{
		Board: Board{
			Name:        "Home",
			ColumnCount: 12,
		},
		Theme: Theme{DefaultColorScheme: "dark"},
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read branding document %s: %w", path, err)
	}
	if err := toml.Unmarshal(contents, branding); err != nil {
		return nil, fmt.Errorf("invalid branding document %s: %w", path, err)
	}
	return branding, nil
}
