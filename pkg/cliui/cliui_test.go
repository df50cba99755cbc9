package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("FormatDuration", func() {
		It("uses milliseconds under a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses seconds otherwise", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Step", func() {
		It("returns the error of fn and ends the line", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")

			err := cliui.Step(&buf, "syncing", func() error { return boom })
			Expect(err).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring("syncing"))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})
	})

	Describe("KeyValue", func() {
		It("marks empty values", func() {
			var buf bytes.Buffer
			cliui.KeyValue(&buf, "llm.api_key", "", 12)
			Expect(buf.String()).To(ContainSubstring("<not set>"))
		})

		It("prints the value", func() {
			var buf bytes.Buffer
			cliui.KeyValue(&buf, "llm.model", "llama3.2", 12)
			Expect(buf.String()).To(ContainSubstring("llama3.2"))
		})
	})
})
