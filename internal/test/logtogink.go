// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

// Package test provides spec plumbing shared by the adapter's suites.
package test

import (
	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
)

// LogToGinkgo redirects logrus output to the GinkgoWriter for the duration of
// a single spec, so log output surfaces only for failing specs instead of
// cluttering the report. The previous logger configuration is restored when
// the spec ends.
//
// Usage:
//
//	BeforeEach(test.LogToGinkgo)
func LogToGinkgo() {
	std := logrus.StandardLogger()
	out := std.Out
	formatter := std.Formatter
	std.SetOutput(GinkgoWriter)
	std.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})
	DeferCleanup(func() {
		std.SetOutput(out)
		std.SetFormatter(formatter)
	})
}
