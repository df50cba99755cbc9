package qdrant_test

import (
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/vector"
	"github.com/papercomputeco/tomes/pkg/vector/qdrant"
)

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("requires a host", func() {
			_, err := qdrant.NewDriver(qdrant.Config{Dimensions: 4}, zap.NewNop())
			Expect(err).To(MatchError(ContainSubstring("qdrant host is required")))
		})

		It("requires dimensions", func() {
			_, err := qdrant.NewDriver(qdrant.Config{Host: "localhost"}, zap.NewNop())
			Expect(err).To(MatchError(ContainSubstring("dimensions")))
		})
	})

	Describe("PointID", func() {
		It("derives a stable UUID from a record id", func() {
			id := qdrant.PointID("mat-0000000001")
			Expect(id).To(Equal(qdrant.PointID("mat-0000000001")))

			parsed, err := uuid.Parse(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Version()).To(Equal(uuid.Version(5)))
		})

		It("maps distinct ids to distinct points", func() {
			Expect(qdrant.PointID("a")).NotTo(Equal(qdrant.PointID("b")))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*qdrant.Driver)(nil)
		})
	})
})
