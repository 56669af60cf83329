// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

package discovery

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const product = "Homarr"

// eligible returns a minimal label mapping that passes all checks, for
// specs to then knock individual labels out of.
func eligible() map[string]string {
	return map[string]string{
		EnableLabel: "true",
		NameLabel:   "Photos",
		URLLabel:    "http://photos.local",
	}
}

var _ = Describe("discovering apps from container labels", func() {

	const containerID = "abcdef0123456789"

	It("parses a fully labelled container", func() {
		labels := eligible()
		labels[DescriptionLabel] = "family photo library"
		labels[IconLabel] = "http://icons.local/photos.png"
		labels[CategoryLabel] = "media"
		labels[ComposeServiceLabel] = "photos"
		app, ok := FromLabels(containerID, labels, product)
		Expect(ok).To(BeTrue())
		Expect(app).To(Equal(App{
			ContainerID:   containerID,
			ContainerName: "photos",
			Name:          "Photos",
			Description:   "family photo library",
			URL:           "http://photos.local",
			IconURL:       "http://icons.local/photos.png",
			Category:      "media",
		}))
	})

	It("leaves optional fields empty when only the required labels are present", func() {
		app, ok := FromLabels(containerID, eligible(), product)
		Expect(ok).To(BeTrue())
		Expect(app.Description).To(BeEmpty())
		Expect(app.IconURL).To(BeEmpty())
		Expect(app.Category).To(BeEmpty())
		Expect(app.ContainerName).To(Equal("abcdef012345"),
			"container name must fall back to the truncated identifier")
	})

	DescribeTable("rejecting containers without the enable flag set to exactly \"true\"",
		func(enable string) {
			labels := eligible()
			if enable == "" {
				delete(labels, EnableLabel)
			} else {
				labels[EnableLabel] = enable
			}
			_, ok := FromLabels(containerID, labels, product)
			Expect(ok).To(BeFalse())
		},
		Entry("absent flag", ""),
		Entry("uppercase True", "True"),
		Entry("numeric 1", "1"),
		Entry("yes", "yes"),
		Entry("false", "false"),
	)

	DescribeTable("rejecting containers missing a required label",
		func(missing string) {
			labels := eligible()
			delete(labels, missing)
			_, ok := FromLabels(containerID, labels, product)
			Expect(ok).To(BeFalse())
		},
		Entry("missing name", NameLabel),
		Entry("missing url", URLLabel),
	)

	It("tolerates nil and empty label mappings", func() {
		_, ok := FromLabels(containerID, nil, product)
		Expect(ok).To(BeFalse())
		_, ok = FromLabels(containerID, map[string]string{}, product)
		Expect(ok).To(BeFalse())
	})

	It("ignores unknown labels", func() {
		labels := eligible()
		labels["homarr.frobnicate"] = "42"
		labels["org.opencontainers.image.source"] = "https://example.com"
		_, ok := FromLabels(containerID, labels, product)
		Expect(ok).To(BeTrue())
	})

	Context("container name resolution", func() {

		It("prefers the compose service name", func() {
			labels := eligible()
			labels[ComposeServiceLabel] = "svc"
			app, _ := FromLabels(containerID, labels, product)
			Expect(app.ContainerName).To(Equal("svc"))
		})

		It("truncates long identifiers to twelve characters", func() {
			app, _ := FromLabels("abcdef0123456789", eligible(), product)
			Expect(app.ContainerName).To(Equal("abcdef012345"))
		})

		It("keeps short identifiers unchanged", func() {
			app, _ := FromLabels("short", eligible(), product)
			Expect(app.ContainerName).To(Equal("short"))
		})

	})

	Context("self-reference guard", func() {

		It("excludes an app named like the dashboard product, whatever the case", func() {
			labels := eligible()
			labels[NameLabel] = "hOmArR"
			_, ok := FromLabels(containerID, labels, product)
			Expect(ok).To(BeFalse())
		})

		It("excludes a compose service named like the dashboard product", func() {
			labels := eligible()
			labels[ComposeServiceLabel] = "homarr"
			_, ok := FromLabels(containerID, labels, product)
			Expect(ok).To(BeFalse())
		})

		It("doesn't mistake other apps for self-references", func() {
			labels := eligible()
			labels[NameLabel] = "Homarrrrr"
			_, ok := FromLabels(containerID, labels, product)
			Expect(ok).To(BeTrue())
		})

	})

})
