// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

// deckhand is the HaLOS dashboard sidecar: it onboards a freshly installed
// dashboard on first boot and keeps the dashboard's app list in step with
// the labelled containers running next to it.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
