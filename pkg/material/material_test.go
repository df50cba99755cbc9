package material_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/material"
)

var _ = Describe("Item", func() {
	Describe("ParseItem", func() {
		It("resolves a text payload", func() {
			item, err := material.ParseItem("m1", "hello", "", "", "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.MaterialID).To(Equal("m1"))
			Expect(item.Source).To(Equal(material.TextSource{Text: "hello"}))
		})

		It("resolves a file payload and defaults the file id to the path", func() {
			item, err := material.ParseItem("m1", "", "/tmp/doc.pdf", "", "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Source).To(Equal(material.FileSource{FileID: "/tmp/doc.pdf", Path: "/tmp/doc.pdf"}))
		})

		It("resolves a link payload with an explicit link id", func() {
			item, err := material.ParseItem("m1", "", "", "https://example.com", "", "l-7")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Source).To(Equal(material.LinkSource{LinkID: "l-7", URL: "https://example.com"}))
		})

		It("rejects a payload with no source", func() {
			_, err := material.ParseItem("m1", " ", "", "", "", "")
			Expect(errors.Is(err, material.ErrAmbiguousSource)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("none set"))
		})

		It("rejects a payload with several sources", func() {
			_, err := material.ParseItem("m1", "hello", "/tmp/doc.pdf", "https://example.com", "", "")
			var ambiguous *material.AmbiguousSourceError
			Expect(errors.As(err, &ambiguous)).To(BeTrue())
			Expect(ambiguous.Set).To(ConsistOf(material.KindText, material.KindFile, material.KindLink))
		})
	})

	Describe("Ref", func() {
		It("has no reference for text items", func() {
			_, ok := material.NewTextItem("m1", "hello").Ref()
			Expect(ok).To(BeFalse())
		})

		It("references the file for file items", func() {
			ref, ok := material.NewFileItem("m1", "f-1", "/tmp/a.pdf").Ref()
			Expect(ok).To(BeTrue())
			Expect(ref).To(Equal(material.FileRef("f-1")))
		})

		It("references the link for link items", func() {
			ref, ok := material.NewLinkItem("m1", "", "https://example.com").Ref()
			Expect(ok).To(BeTrue())
			Expect(ref).To(Equal(material.LinkRef("https://example.com")))
		})
	})

	Describe("Validate", func() {
		It("rejects an item with no source", func() {
			Expect(material.Item{}.Validate()).To(MatchError(material.ErrInvalidItem))
		})

		It("rejects a file item with an empty path", func() {
			err := material.Item{Source: material.FileSource{FileID: "f"}}.Validate()
			Expect(err).To(MatchError(material.ErrInvalidItem))
		})

		It("accepts a text item", func() {
			Expect(material.NewTextItem("m1", "").Validate()).To(Succeed())
		})
	})
})

var _ = Describe("SourceRef", func() {
	It("accepts file and link references", func() {
		Expect(material.FileRef("f").Validate()).To(Succeed())
		Expect(material.LinkRef("l").Validate()).To(Succeed())
	})

	It("rejects unknown kinds", func() {
		Expect(material.SourceRef{Kind: material.KindText, ID: "x"}.Validate()).To(MatchError(material.ErrInvalidRef))
	})

	It("rejects empty ids", func() {
		Expect(material.FileRef("").Validate()).To(MatchError(material.ErrInvalidRef))
	})

	It("renders kind and id", func() {
		Expect(material.LinkRef("l-1").String()).To(Equal("link:l-1"))
	})
})
