// Package storagetest holds behaviour shared by every storage.ChunkStore
// implementation's test suite.
package storagetest

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/material"
	"github.com/papercomputeco/tomes/pkg/storage"
)

func fileChunk(fileID, text string, index int) material.Chunk {
	return material.Chunk{MaterialID: "m1", RecordID: "rec-" + text, Text: text, Source: material.FileRef(fileID), Index: index}
}

func linkChunk(linkID, text string, index int) material.Chunk {
	return material.Chunk{MaterialID: "m1", Text: text, Source: material.LinkRef(linkID), Index: index}
}

// ItBehavesLikeAChunkStore registers specs against the store returned by
// newStore. newStore is called before every spec and the store is closed
// after it.
func ItBehavesLikeAChunkStore(newStore func() storage.ChunkStore) {
	var (
		ctx   context.Context
		store storage.ChunkStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = nil
		store = newStore()
	})

	AfterEach(func() {
		if store != nil {
			Expect(store.Close()).To(Succeed())
		}
	})

	Describe("CreateMany", func() {
		It("assigns unique ids in input order", func() {
			ids, err := store.CreateMany(ctx, []material.Chunk{
				fileChunk("f1", "first", 0),
				fileChunk("f1", "second", 1),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(HaveLen(2))
			Expect(ids[0]).NotTo(Equal(ids[1]))

			chunks, err := store.FindByFile(ctx, "f1")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(2))
			Expect(chunks[0].ID).To(Equal(ids[0]))
			Expect(chunks[0].Text).To(Equal("first"))
			Expect(chunks[0].RecordID).To(Equal("rec-first"))
			Expect(chunks[0].MaterialID).To(Equal("m1"))
			Expect(chunks[1].Index).To(Equal(1))
		})

		It("rejects chunks without a valid source", func() {
			_, err := store.CreateMany(ctx, []material.Chunk{{Text: "orphan"}})
			Expect(errors.Is(err, storage.ErrInvalidChunk)).To(BeTrue())
		})

		It("rejects empty chunks", func() {
			_, err := store.CreateMany(ctx, []material.Chunk{fileChunk("f1", "", 0)})
			Expect(errors.Is(err, storage.ErrInvalidChunk)).To(BeTrue())
		})

		It("stores nothing when one chunk is invalid", func() {
			_, err := store.CreateMany(ctx, []material.Chunk{fileChunk("f1", "ok", 0), {Text: "bad"}})
			Expect(err).To(HaveOccurred())

			chunks, err := store.FindByFile(ctx, "f1")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(BeEmpty())
		})
	})

	Describe("FindByFile and FindByLink", func() {
		BeforeEach(func() {
			_, err := store.CreateMany(ctx, []material.Chunk{
				fileChunk("f1", "file text", 0),
				linkChunk("l1", "link text", 0),
				fileChunk("f2", "other file", 0),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps file and link chunks apart", func() {
			files, err := store.FindByFile(ctx, "f1")
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(HaveLen(1))
			Expect(files[0].Source).To(Equal(material.FileRef("f1")))

			links, err := store.FindByLink(ctx, "l1")
			Expect(err).NotTo(HaveOccurred())
			Expect(links).To(HaveLen(1))
			Expect(links[0].Source).To(Equal(material.LinkRef("l1")))
			Expect(links[0].Text).To(Equal("link text"))
		})

		It("does not match a link id against files", func() {
			files, err := store.FindByFile(ctx, "l1")
			Expect(err).NotTo(HaveOccurred())
			Expect(files).NotTo(BeNil())
			Expect(files).To(BeEmpty())
		})
	})

	Describe("DeleteBySource", func() {
		It("removes only the referenced source", func() {
			_, err := store.CreateMany(ctx, []material.Chunk{
				fileChunk("f1", "a", 0),
				fileChunk("f1", "b", 1),
				fileChunk("f2", "c", 0),
			})
			Expect(err).NotTo(HaveOccurred())

			n, err := store.DeleteBySource(ctx, material.FileRef("f1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			remaining, err := store.FindByFile(ctx, "f2")
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(1))
		})

		It("returns zero for an unknown source", func() {
			n, err := store.DeleteBySource(ctx, material.LinkRef("nope"))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})

		It("rejects invalid references", func() {
			_, err := store.DeleteBySource(ctx, material.SourceRef{Kind: material.KindText, ID: "x"})
			Expect(errors.Is(err, material.ErrInvalidRef)).To(BeTrue())
		})
	})
}
