package sqlitevec_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/vector"
	"github.com/papercomputeco/tomes/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath: ":memory:",
			}, logger)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Collection", func() {
		var (
			ctx    context.Context
			driver *sqlitevec.Driver
			col    vector.Collection
		)

		BeforeEach(func() {
			ctx = context.Background()
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			col, err = driver.GetOrCreateCollection(ctx, "material")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("returns the same handle for the same name", func() {
			again, err := driver.GetOrCreateCollection(ctx, "material")
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeIdenticalTo(col))
		})

		It("should do nothing when given empty records", func() {
			Expect(col.Upsert(ctx, []vector.Record{})).To(Succeed())
		})

		It("should query the nearest records with their documents", func() {
			Expect(col.Upsert(ctx, []vector.Record{
				{ID: "a", Document: "alpha", Embedding: []float32{1, 0, 0, 0}},
				{ID: "b", Document: "beta", Embedding: []float32{0, 1, 0, 0}},
				{ID: "c", Document: "gamma", Embedding: []float32{0.9, 0.1, 0, 0}},
			})).To(Succeed())

			results, err := col.Query(ctx, []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("a"))
			Expect(results[0].Document).To(Equal("alpha"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 0.001))
			Expect(results[1].ID).To(Equal("c"))
		})

		It("should replace a record with an existing id", func() {
			Expect(col.Upsert(ctx, []vector.Record{
				{ID: "a", Document: "alpha", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())
			Expect(col.Upsert(ctx, []vector.Record{
				{ID: "a", Document: "updated", Embedding: []float32{0, 0, 0, 1}},
			})).To(Succeed())

			results, err := col.Query(ctx, []float32{0, 0, 0, 1}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Document).To(Equal("updated"))
		})

		It("should reject embeddings with the wrong dimensions", func() {
			err := col.Upsert(ctx, []vector.Record{{ID: "a", Embedding: []float32{1, 0}}})
			Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
		})

		It("should keep collections isolated", func() {
			other, err := driver.GetOrCreateCollection(ctx, "other")
			Expect(err).NotTo(HaveOccurred())

			Expect(col.Upsert(ctx, []vector.Record{
				{ID: "a", Document: "alpha", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())

			results, err := other.Query(ctx, []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("should delete records", func() {
			Expect(col.Upsert(ctx, []vector.Record{
				{ID: "a", Document: "alpha", Embedding: []float32{1, 0, 0, 0}},
				{ID: "b", Document: "beta", Embedding: []float32{0, 1, 0, 0}},
			})).To(Succeed())
			Expect(col.Delete(ctx, []string{"a", "missing"})).To(Succeed())

			results, err := col.Query(ctx, []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("b"))
		})
	})
})
