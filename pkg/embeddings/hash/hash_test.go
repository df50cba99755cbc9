package hash_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/embeddings/hash"
	"github.com/papercomputeco/tomes/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		ctx context.Context
		e   *hash.Embedder
	)

	BeforeEach(func() {
		ctx = context.Background()
		e = hash.NewEmbedder(64)
	})

	It("produces vectors of the configured size", func() {
		emb, err := e.Embed(ctx, "refund policy")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(HaveLen(64))
		Expect(hash.NewEmbedder(0).Dimensions()).To(Equal(hash.DefaultDimensions))
	})

	It("is deterministic and case-insensitive", func() {
		a, _ := e.Embed(ctx, "Refund Policy")
		b, _ := e.Embed(ctx, "refund policy")
		Expect(a).To(Equal(b))
	})

	It("scores shared words above unrelated text", func() {
		q, _ := e.Embed(ctx, "what is the refund policy")
		related, _ := e.Embed(ctx, "our refund policy lasts 30 days")
		unrelated, _ := e.Embed(ctx, "shipping takes two weeks")

		Expect(vector.CosineSimilarity(q, related)).To(BeNumerically(">", vector.CosineSimilarity(q, unrelated)))
	})

	It("returns the zero vector for empty text", func() {
		emb, err := e.Embed(ctx, "  ")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(HaveEach(BeZero()))
	})
})
