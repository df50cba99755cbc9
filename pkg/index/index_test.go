package index_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/embeddings/hash"
	"github.com/papercomputeco/tomes/pkg/index"
	"github.com/papercomputeco/tomes/pkg/splitter"
	testutils "github.com/papercomputeco/tomes/pkg/utils/test"
	"github.com/papercomputeco/tomes/pkg/vector"
	"github.com/papercomputeco/tomes/pkg/vector/inmemory"
)

var _ = Describe("Index", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("New", func() {
		It("requires a driver and an embedder", func() {
			_, err := index.New(index.Config{Embedder: testutils.NewMockEmbedder()})
			Expect(err).To(HaveOccurred())
			_, err = index.New(index.Config{Driver: testutils.NewMockVectorDriver()})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetOrCreateCollection", func() {
		var (
			driver *testutils.MockVectorDriver
			idx    *index.Index
		)

		BeforeEach(func() {
			driver = testutils.NewMockVectorDriver()
			var err error
			idx, err = index.New(index.Config{Driver: driver, Embedder: testutils.NewMockEmbedder()})
			Expect(err).NotTo(HaveOccurred())
		})

		It("caches the handle", func() {
			a, err := idx.GetOrCreateCollection(ctx, "material")
			Expect(err).NotTo(HaveOccurred())
			b, err := idx.GetOrCreateCollection(ctx, "material")
			Expect(err).NotTo(HaveOccurred())

			Expect(a).To(BeIdenticalTo(b))
			Expect(driver.CreateCalls()).To(Equal(1))
		})

		It("shares one driver call between concurrent callers", func() {
			driver.CreateDelay = 50 * time.Millisecond

			var wg sync.WaitGroup
			handles := make([]vector.Collection, 8)
			for n := range handles {
				wg.Add(1)
				go func(n int) {
					defer GinkgoRecover()
					defer wg.Done()
					c, err := idx.GetOrCreateCollection(ctx, "material")
					Expect(err).NotTo(HaveOccurred())
					handles[n] = c
				}(n)
			}
			wg.Wait()

			Expect(driver.CreateCalls()).To(Equal(1))
			for _, h := range handles {
				Expect(h).To(BeIdenticalTo(handles[0]))
			}
		})

		It("lets a caller give up without failing the others", func() {
			driver.CreateDelay = 100 * time.Millisecond

			short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()

			var (
				wg       sync.WaitGroup
				shortErr error
			)
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, shortErr = idx.GetOrCreateCollection(short, "material")
			}()

			time.Sleep(5 * time.Millisecond)
			c, err := idx.GetOrCreateCollection(ctx, "material")
			wg.Wait()

			Expect(err).NotTo(HaveOccurred())
			Expect(c).NotTo(BeNil())
			Expect(errors.Is(shortErr, context.DeadlineExceeded)).To(BeTrue())
			Expect(driver.CreateCalls()).To(Equal(1))
		})

		It("wraps driver failures", func() {
			driver.FailCollection = true
			_, err := idx.GetOrCreateCollection(ctx, "material")

			var rerr *index.RetrievalError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Op).To(Equal("collection"))
			Expect(errors.Is(err, index.ErrRetrieval)).To(BeTrue())
			Expect(errors.Is(err, testutils.ErrMockVector)).To(BeTrue())
		})
	})

	Describe("Upsert", func() {
		var (
			driver   *testutils.MockVectorDriver
			embedder *testutils.MockEmbedder
			idx      *index.Index
		)

		BeforeEach(func() {
			driver = testutils.NewMockVectorDriver()
			embedder = testutils.NewMockEmbedder()
			embedder.Embeddings["alpha"] = []float32{1, 0, 0}
			var err error
			idx, err = index.New(index.Config{Driver: driver, Embedder: embedder})
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unequal ids and documents", func() {
			err := idx.Upsert(ctx, "material", []string{"a", "b"}, []string{"alpha"})
			Expect(errors.Is(err, index.ErrLengthMismatch)).To(BeTrue())
			Expect(errors.Is(err, index.ErrRetrieval)).To(BeTrue())
			Expect(embedder.Calls()).To(BeEmpty())
		})

		It("embeds every document and upserts records", func() {
			Expect(idx.Upsert(ctx, "material", []string{"a", "b"}, []string{"alpha", "beta"})).To(Succeed())

			upserts := driver.Collection("material").Upserts()
			Expect(upserts).To(HaveLen(1))
			Expect(upserts[0]).To(HaveLen(2))
			Expect(upserts[0][0]).To(Equal(vector.Record{ID: "a", Document: "alpha", Embedding: []float32{1, 0, 0}}))
			Expect(upserts[0][1].Document).To(Equal("beta"))
			Expect(embedder.Calls()).To(Equal([]string{"alpha", "beta"}))
		})

		It("reports embedding failures", func() {
			embedder.FailOn = "beta"
			err := idx.Upsert(ctx, "material", []string{"a", "b"}, []string{"alpha", "beta"})

			var rerr *index.RetrievalError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Op).To(Equal("embed"))
			Expect(driver.Collection("material").Upserts()).To(BeEmpty())
		})

		It("is a no-op for empty input", func() {
			Expect(idx.Upsert(ctx, "material", nil, nil)).To(Succeed())
			Expect(driver.CreateCalls()).To(BeZero())
		})
	})

	Describe("Query", func() {
		var idx *index.Index

		BeforeEach(func() {
			var err error
			idx, err = index.New(index.Config{
				Driver:   inmemory.NewDriver(),
				Embedder: hash.NewEmbedder(1024),
				Splitter: splitter.New(splitter.WithChunkSize(30), splitter.WithChunkOverlap(0)),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(idx.Upsert(ctx, "material",
				[]string{"r1", "r2", "r3"},
				[]string{"refund within thirty days", "shipping takes two weeks", "store opens at nine"},
			)).To(Succeed())
		})

		It("returns the closest document first", func() {
			res, err := idx.Query(ctx, "material", []string{"refund days"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Documents).To(Equal([]string{"refund within thirty days"}))
			Expect(res.Hits[0].ID).To(Equal("r1"))
		})

		It("merges hits across texts without duplicates", func() {
			res, err := idx.Query(ctx, "material", []string{"refund days", "shipping weeks", "refund"}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Documents).To(HaveLen(3))
			Expect(res.Documents).To(ContainElements("refund within thirty days", "shipping takes two weeks"))

			for n := 1; n < len(res.Hits); n++ {
				Expect(res.Hits[n-1].Score).To(BeNumerically(">=", res.Hits[n].Score))
			}
		})

		It("collapses records with identical text into one hit", func() {
			Expect(idx.Upsert(ctx, "material", []string{"r4"}, []string{"refund within thirty days"})).To(Succeed())

			res, err := idx.Query(ctx, "material", []string{"refund within thirty days"}, 3)
			Expect(err).NotTo(HaveOccurred())

			count := 0
			for _, doc := range res.Documents {
				if doc == "refund within thirty days" {
					count++
				}
			}
			Expect(count).To(Equal(1))
		})

		It("caps results at topK", func() {
			res, err := idx.Query(ctx, "material", []string{"refund", "shipping", "store"}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Documents).To(HaveLen(2))
		})

		It("returns an empty result for an empty collection", func() {
			res, err := idx.Query(ctx, "empty", []string{"refund"}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Documents).NotTo(BeNil())
			Expect(res.Documents).To(BeEmpty())
		})

		It("splits questions before querying", func() {
			res, err := idx.QueryQuestion(ctx, "material", "how long does shipping take? can I get a refund?", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Documents).To(ContainElements("refund within thirty days", "shipping takes two weeks"))
		})
	})

	Describe("Query failures", func() {
		It("wraps driver query errors", func() {
			driver := testutils.NewMockVectorDriver()
			driver.FailQuery = true
			idx, err := index.New(index.Config{Driver: driver, Embedder: testutils.NewMockEmbedder()})
			Expect(err).NotTo(HaveOccurred())

			_, err = idx.Query(ctx, "material", []string{"x"}, 3)
			var rerr *index.RetrievalError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Op).To(Equal("query"))
			Expect(rerr.Collection).To(Equal("material"))
		})
	})
})
