package dispatch

// Tool names in DefaultRegistry.
const (
	ToolAskMaterial  = "ask_material"
	ToolSyncMaterial = "sync_material"
	ToolHandoffHuman = "handoff_human"
)

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// DefaultRegistry returns the tools served by the tomes API.
func DefaultRegistry() *Registry {
	return MustRegistry(
		ToolSpec{
			Name:        ToolAskMaterial,
			Description: "Answer a question from the ingested material.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": stringProp("The question to answer."),
				},
				"required": []string{"question"},
			},
		},
		ToolSpec{
			Name:        ToolSyncMaterial,
			Description: "Add new material from raw text, a local file, or a web page. Set exactly one of text, file or url.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": stringProp("Raw text to ingest."),
					"file": stringProp("Path of a local file to ingest."),
					"url":  stringProp("URL of a web page to ingest."),
				},
			},
		},
		ToolSpec{
			Name:        ToolHandoffHuman,
			Description: "Hand the conversation to a human when the request cannot be served.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason": stringProp("Why a human is needed."),
				},
				"required": []string{"reason"},
			},
		},
	)
}
