package splitter_test

import (
	"fmt"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/splitter"
)

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

var _ = Describe("Splitter", func() {
	Describe("Split", func() {
		It("returns an empty slice for empty text", func() {
			chunks := splitter.Split("", 100, 10)
			Expect(chunks).NotTo(BeNil())
			Expect(chunks).To(BeEmpty())
		})

		It("returns an empty slice for whitespace-only text", func() {
			Expect(splitter.Split("  \n\n \t ", 100, 10)).To(BeEmpty())
		})

		It("returns short text as a single segment", func() {
			Expect(splitter.Split("A. B. C.", 100, 10)).To(Equal([]string{"A. B. C."}))
		})

		It("never emits a segment longer than the chunk size", func() {
			text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
			for _, size := range []int{10, 25, 50, 100} {
				for _, chunk := range splitter.Split(text, size, size/5) {
					Expect(utf8.RuneCountInString(chunk)).To(BeNumerically("<=", size))
					Expect(chunk).NotTo(BeEmpty())
				}
			}
		})

		It("hard splits text with no separators", func() {
			text := strings.Repeat("x", 250)
			chunks := splitter.Split(text, 100, 10)
			Expect(chunks).To(HaveLen(3))
			Expect(strings.Join(chunks, "")).To(Equal(text))
		})

		It("counts runes rather than bytes", func() {
			text := strings.Repeat("é", 150)
			chunks := splitter.Split(text, 100, 0)
			Expect(chunks).To(HaveLen(2))
			Expect(utf8.RuneCountInString(chunks[0])).To(Equal(100))
		})

		It("prefers paragraph breaks over spaces", func() {
			first := strings.Repeat("a", 40)
			second := strings.Repeat("b", 40)
			chunks := splitter.Split(first+" tail\n\n"+second, 50, 0)
			Expect(chunks).To(Equal([]string{first + " tail", second}))
		})

		It("reconstructs the words of the text when overlap is zero", func() {
			text := numberedWords(300)
			chunks := splitter.Split(text, 40, 0)
			Expect(len(chunks)).To(BeNumerically(">", 1))
			Expect(strings.Fields(strings.Join(chunks, " "))).To(Equal(strings.Fields(text)))
		})

		It("overlaps consecutive segments", func() {
			text := numberedWords(200)
			chunks := splitter.Split(text, 20, 5)
			Expect(len(chunks)).To(BeNumerically(">", 2))

			for i := 0; i+1 < len(chunks); i++ {
				prev := strings.Fields(chunks[i])
				next := strings.Fields(chunks[i+1])
				Expect(next).To(ContainElement(prev[len(prev)-1]))
				Expect(prev).To(ContainElement(next[0]))
			}
		})

		It("is deterministic", func() {
			text := strings.Repeat("Alpha beta, gamma. Delta epsilon.\n\n", 30)
			Expect(splitter.Split(text, 60, 10)).To(Equal(splitter.Split(text, 60, 10)))
		})

		It("returns an already split segment unchanged", func() {
			text := strings.Repeat("Alpha beta, gamma. Delta epsilon. ", 30)
			for _, chunk := range splitter.Split(text, 60, 10) {
				Expect(splitter.Split(chunk, 60, 10)).To(Equal([]string{chunk}))
			}
		})
	})

	Describe("New", func() {
		It("applies defaults", func() {
			s := splitter.New()
			Expect(s.ChunkSize()).To(Equal(splitter.DefaultChunkSize))
			Expect(s.ChunkOverlap()).To(Equal(splitter.DefaultChunkOverlap))
		})

		It("clamps an overlap that is not smaller than the chunk size", func() {
			s := splitter.New(splitter.WithChunkSize(40), splitter.WithChunkOverlap(40))
			Expect(s.ChunkOverlap()).To(Equal(10))
		})

		It("ignores non-positive chunk sizes", func() {
			s := splitter.New(splitter.WithChunkSize(0))
			Expect(s.ChunkSize()).To(Equal(splitter.DefaultChunkSize))
		})

		It("supports custom separators", func() {
			s := splitter.New(splitter.WithChunkSize(5), splitter.WithChunkOverlap(0), splitter.WithSeparators("|"))
			Expect(s.Split("abc|def|ghi")).To(Equal([]string{"abc", "def", "ghi"}))
		})
	})
})
