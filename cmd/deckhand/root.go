// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/halos/deckhand"
	"github.com/halos/deckhand/config"
	"github.com/halos/deckhand/dashboard"
	"github.com/halos/deckhand/onboard"
	"github.com/halos/deckhand/source/moby"
	"github.com/halos/deckhand/state"

	log "github.com/sirupsen/logrus"
)

// defaultConfigPath is where an appliance installation drops the adapter
// configuration.
const defaultConfigPath = "/etc/deckhand/config.toml"

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool
	rootCmd := &cobra.Command{
		Use:   "deckhand",
		Short: "dashboard sidecar: first-boot onboarding and container app discovery",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		defaultConfigPath, "adapter configuration file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d",
		false, "enable debug logging")
	rootCmd.AddCommand(
		newSyncCmd(&configPath),
		newSetupCmd(&configPath),
		newStatusCmd(&configPath),
		newWatchCmd(&configPath),
	)
	return rootCmd
}

// newAdapter wires up the container source, dashboard client, state store,
// and branding input according to the configuration at the specified path.
func newAdapter(configPath string) (*deckhand.Adapter, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	branding, err := config.LoadBranding(cfg.BrandingFile)
	if err != nil {
		return nil, err
	}
	src, err := moby.New(cfg.DockerHost)
	if err != nil {
		return nil, err
	}
	dash, err := dashboard.New(cfg.DashboardURL)
	if err != nil {
		return nil, err
	}
	return deckhand.New(src, dash, state.NewStore(cfg.StateFile), branding,
		deckhand.WithProductName(cfg.ProductName),
		deckhand.WithSyncInterval(time.Duration(cfg.SyncSeconds)*time.Second),
		deckhand.WithEventQueueLength(cfg.EventQueueLen),
		deckhand.WithOnboardingOptions(onboard.WithMaxSteps(cfg.MaxOnboardSteps)),
	), nil
}

func newSyncCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "run a single reconciliation cycle (for timer units)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			adapter, err := newAdapter(*configPath)
			if err != nil {
				return err
			}
			return adapter.Sync(cmd.Context())
		},
	}
}

func newSetupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "run first-boot dashboard onboarding only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			adapter, err := newAdapter(*configPath)
			if err != nil {
				return err
			}
			return adapter.Setup(cmd.Context())
		},
	}
}

func newWatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "reconcile continuously, reacting to container lifecycle events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			adapter, err := newAdapter(*configPath)
			if err != nil {
				return err
			}
			return adapter.Run(cmd.Context())
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report first-boot setup and sync status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			s, err := state.NewStore(cfg.StateFile).Load()
			if err != nil {
				return err
			}
			if !s.OnboardingCompleted {
				fmt.Println("Status: first-boot setup pending")
				return nil
			}
			fmt.Println("Status: first-boot setup completed")
			if s.LastSync != nil {
				fmt.Printf("Last sync: %s\n", s.LastSync.Format(time.RFC3339))
			} else {
				fmt.Println("Last sync: never")
			}
			fmt.Printf("Discovered apps: %d\n", len(s.DiscoveredApps))
			fmt.Printf("User-removed apps: %d\n", len(s.RemovedApps))
			return nil
		},
	}
}
