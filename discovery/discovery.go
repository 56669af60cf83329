// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

// Package discovery turns the label set of a container into a validated
// dashboard app record, or rejects the container.
//
// A container is eligible only if it carries the [EnableLabel] with the
// literal value “true” and additionally specifies both a display name and a
// target URL. Anything else (missing enable flag, “True”, “1”, missing name
// or URL) silently makes the container ineligible; labels are user-supplied
// and half-filled label sets are an everyday occurrence, not an error.
package discovery

import (
	"strings"
)

// Well-known labels controlling dashboard app discovery.
const (
	// EnableLabel must be set to the literal string “true” to opt a
	// container into discovery.
	EnableLabel = "homarr.enable"
	// NameLabel gives the display name of the dashboard app; required.
	NameLabel = "homarr.name"
	// URLLabel gives the target URL of the dashboard app; required.
	URLLabel = "homarr.url"
	// DescriptionLabel optionally describes the app.
	DescriptionLabel = "homarr.description"
	// IconLabel optionally references an icon image URL.
	IconLabel = "homarr.icon"
	// CategoryLabel optionally assigns the app to a category.
	CategoryLabel = "homarr.category"

	// ComposeServiceLabel is attached by docker compose and names the
	// service a container belongs to; used as the human-readable container
	// name when present.
	ComposeServiceLabel = "com.docker.compose.service"
)

// shortIDLen is the number of leading container ID characters used as the
// fallback container name, mirroring the usual short-ID presentation of
// container CLIs.
const shortIDLen = 12

// App is a single discovered dashboard app, produced from one eligible
// container's label snapshot. App values are immutable; re-discovering the
// same container produces a new value superseding the old one.
type App struct {
	ContainerID   string // opaque container identifier
	ContainerName string // compose service name or shortened ID
	Name          string // dashboard display name (required)
	Description   string // optional
	URL           string // target URL (required)
	IconURL       string // optional
	Category      string // optional
}

// FromLabels parses the flat label mapping of the container with the
// specified ID into an App. The second return value reports eligibility:
// false means the container is to be silently excluded from discovery.
//
// product is the dashboard's own product name: a container whose display
// name or resolved container name equals it (case-insensitively) is
// excluded, so the adapter never adds a dashboard tile pointing at the
// dashboard itself.
//
// FromLabels is pure and total: it never fails, whatever mapping (including
// nil) is thrown at it.
func FromLabels(id string, labels map[string]string, product string) (App, bool) {
	if labels[EnableLabel] != "true" {
		return App{}, false
	}
	name := labels[NameLabel]
	url := labels[URLLabel]
	if name == "" || url == "" {
		return App{}, false
	}
	containername := labels[ComposeServiceLabel]
	if containername == "" {
		containername = shortID(id)
	}
	if strings.EqualFold(name, product) || strings.EqualFold(containername, product) {
		return App{}, false
	}
	return App{
		ContainerID:   id,
		ContainerName: containername,
		Name:          name,
		Description:   labels[DescriptionLabel],
		URL:           url,
		IconURL:       labels[IconLabel],
		Category:      labels[CategoryLabel],
	}, true
}

// shortID returns the first 12 characters of a container ID, or the whole ID
// where it is shorter than that.
func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
