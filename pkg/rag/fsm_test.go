package rag_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/rag"
)

var _ = Describe("Transition", func() {
	DescribeTable("valid transitions",
		func(from rag.State, event rag.Event, to rag.State, effect rag.Effect) {
			next, eff, err := rag.Transition(from, event)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(to))
			Expect(eff).To(Equal(effect))
		},
		Entry("start asked", rag.StateStart, rag.EventAsked, rag.StateRetrieve, rag.EffectRetrieve),
		Entry("retrieve done", rag.StateRetrieve, rag.EventRetrieved, rag.StateGenerate, rag.EffectGenerate),
		Entry("retrieve errored", rag.StateRetrieve, rag.EventErrored, rag.StateFailed, rag.EffectFail),
		Entry("generate done", rag.StateGenerate, rag.EventGenerated, rag.StateEnd, rag.EffectReturn),
		Entry("generate errored", rag.StateGenerate, rag.EventErrored, rag.StateFailed, rag.EffectFail),
	)

	DescribeTable("invalid transitions",
		func(from rag.State, event rag.Event) {
			next, eff, err := rag.Transition(from, event)
			Expect(errors.Is(err, rag.ErrInvalidTransition)).To(BeTrue())
			Expect(next).To(Equal(from))
			Expect(eff).To(Equal(rag.EffectNone))
		},
		Entry("start cannot error", rag.StateStart, rag.EventErrored),
		Entry("start cannot generate", rag.StateStart, rag.EventGenerated),
		Entry("retrieve asked twice", rag.StateRetrieve, rag.EventAsked),
		Entry("generate skips back", rag.StateGenerate, rag.EventRetrieved),
		Entry("end is terminal", rag.StateEnd, rag.EventAsked),
		Entry("failed is terminal", rag.StateFailed, rag.EventAsked),
	)

	It("names states and events", func() {
		Expect(rag.StateRetrieve.String()).To(Equal("retrieve"))
		Expect(rag.EventErrored.String()).To(Equal("errored"))
		err := &rag.TransitionError{State: rag.StateEnd, Event: rag.EventAsked}
		Expect(err.Error()).To(ContainSubstring("asked in end"))
	})
})
