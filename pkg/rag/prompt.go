package rag

import (
	"fmt"
	"strings"
)

// SystemInstruction is sent as the system prompt of every generation.
const SystemInstruction = `You answer questions using only the provided context.
If the context does not contain the answer, say that you do not know.
Keep answers concise and do not mention the context itself.`

const humanTemplate = `Question: %s

Context:
%s`

// JoinContext joins retrieved passages with newlines.
func JoinContext(passages []string) string {
	return strings.Join(passages, "\n")
}

// HumanMessage renders the user turn for question and context.
func HumanMessage(question, context string) string {
	return fmt.Sprintf(humanTemplate, question, context)
}
