package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/llm"
)

var _ = Describe("Message", func() {
	It("concatenates text blocks", func() {
		m := llm.Message{Role: llm.RoleAssistant, Content: []llm.ContentBlock{
			{Type: llm.BlockText, Text: "Hello, "},
			{Type: llm.BlockToolUse, ToolName: "noop"},
			{Type: llm.BlockText, Text: "world"},
		}}
		Expect(m.GetText()).To(Equal("Hello, world"))
	})

	It("returns tool uses in order", func() {
		m := llm.Message{Content: []llm.ContentBlock{
			{Type: llm.BlockToolUse, ToolName: "a"},
			{Type: llm.BlockText, Text: "x"},
			{Type: llm.BlockToolUse, ToolName: "b"},
		}}
		uses := m.ToolUses()
		Expect(uses).To(HaveLen(2))
		Expect(uses[0].ToolName).To(Equal("a"))
		Expect(uses[1].ToolName).To(Equal("b"))
	})

	It("builds text messages", func() {
		m := llm.NewTextMessage(llm.RoleUser, "hi")
		Expect(m.Role).To(Equal("user"))
		Expect(m.GetText()).To(Equal("hi"))
		Expect(m.ToolUses()).To(BeEmpty())
	})
})
