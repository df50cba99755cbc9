package rag_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/embeddings/hash"
	"github.com/papercomputeco/tomes/pkg/index"
	"github.com/papercomputeco/tomes/pkg/llm"
	"github.com/papercomputeco/tomes/pkg/rag"
	"github.com/papercomputeco/tomes/pkg/splitter"
	testutils "github.com/papercomputeco/tomes/pkg/utils/test"
	"github.com/papercomputeco/tomes/pkg/vector/inmemory"
)

type fakeRetriever struct {
	docs       []string
	err        error
	collection string
	topK       int
}

func (f *fakeRetriever) QueryQuestion(_ context.Context, collection, _ string, topK int) (*index.Result, error) {
	f.collection = collection
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return &index.Result{Documents: f.docs}, nil
}

var _ = Describe("Pipeline", func() {
	var (
		ctx       context.Context
		retriever *fakeRetriever
		client    *testutils.MockLLMClient
	)

	BeforeEach(func() {
		ctx = context.Background()
		retriever = &fakeRetriever{docs: []string{"The sky is blue.", "Grass is green."}}
		client = testutils.NewMockLLMClient("  Blue.  ")
	})

	newPipeline := func() *rag.Pipeline {
		p, err := rag.New(rag.Config{Retriever: retriever, Client: client})
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	It("requires a retriever and a client", func() {
		_, err := rag.New(rag.Config{Client: client})
		Expect(err).To(HaveOccurred())
		_, err = rag.New(rag.Config{Retriever: retriever})
		Expect(err).To(HaveOccurred())
	})

	It("retrieves, generates, and returns question, context and answer", func() {
		answer, err := newPipeline().Ask(ctx, "What colour is the sky?")
		Expect(err).NotTo(HaveOccurred())

		Expect(answer.Question).To(Equal("What colour is the sky?"))
		Expect(answer.Context).To(Equal("The sky is blue.\nGrass is green."))
		Expect(answer.Answer).To(Equal("Blue."))
		Expect(retriever.collection).To(Equal(index.DefaultCollection))
		Expect(retriever.topK).To(Equal(rag.DefaultTopK))
	})

	It("sends the fixed instruction and a rendered human message", func() {
		_, err := newPipeline().Ask(ctx, "What colour is the sky?")
		Expect(err).NotTo(HaveOccurred())

		req := client.LastRequest()
		Expect(req.System).To(Equal(rag.SystemInstruction))
		Expect(req.Tools).To(BeEmpty())
		Expect(req.Messages).To(HaveLen(1))
		Expect(req.Messages[0].Role).To(Equal(llm.RoleUser))
		text := req.Messages[0].GetText()
		Expect(text).To(ContainSubstring("What colour is the sky?"))
		Expect(text).To(ContainSubstring("The sky is blue.\nGrass is green."))
	})

	It("still generates when nothing is retrieved", func() {
		retriever.docs = nil
		answer, err := newPipeline().Ask(ctx, "Anything?")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).NotTo(BeNil())
		Expect(answer.Context).To(BeEmpty())
		Expect(answer.Answer).To(Equal("Blue."))
		Expect(client.Requests()).To(HaveLen(1))
	})

	It("tags retrieval failures with the retrieve state", func() {
		retriever.err = &index.RetrievalError{Op: "query", Err: errors.New("down")}
		_, err := newPipeline().Ask(ctx, "q")

		var perr *rag.PipelineError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.State).To(Equal(rag.StateRetrieve))
		Expect(errors.Is(err, rag.ErrPipeline)).To(BeTrue())
		Expect(errors.Is(err, index.ErrRetrieval)).To(BeTrue())
		Expect(client.Requests()).To(BeEmpty())
	})

	It("tags model failures with the generate state", func() {
		client.Fail = true
		_, err := newPipeline().Ask(ctx, "q")

		var perr *rag.PipelineError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.State).To(Equal(rag.StateGenerate))
		Expect(errors.Is(err, testutils.ErrMockLLM)).To(BeTrue())
	})

	It("rejects blank questions", func() {
		_, err := newPipeline().Ask(ctx, "   ")
		Expect(err).To(MatchError(rag.ErrEmptyQuestion))
	})

	It("answers from a real index", func() {
		idx, err := index.New(index.Config{
			Driver:   inmemory.NewDriver(),
			Embedder: hash.NewEmbedder(1024),
			Splitter: splitter.New(splitter.WithChunkSize(200), splitter.WithChunkOverlap(0)),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(idx.Upsert(ctx, "notes", []string{"a", "b"}, []string{
			"penguins live in antarctica",
			"volcanoes erupt molten rock",
		})).To(Succeed())

		p, err := rag.New(rag.Config{Retriever: idx, Client: client, Collection: "notes", TopK: 1})
		Expect(err).NotTo(HaveOccurred())

		answer, err := p.Ask(ctx, "where do penguins live")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Split(answer.Context, "\n")).To(Equal([]string{"penguins live in antarctica"}))
	})
})
