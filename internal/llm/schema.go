package llm

// BuildNoteJSONSchema returns the JSON Schema a refined note must satisfy.
// Used both in the prompt and to validate model output.
func BuildNoteJSONSchema() map[string]any {
	field := map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"type":     "object",
		"required": []string{"soap", "summary", "rp"},
		"properties": map[string]any{
			"soap": map[string]any{
				"type":     "object",
				"required": []string{"S", "O", "A", "P"},
				"properties": map[string]any{
					"S": field,
					"O": field,
					"A": field,
					"P": field,
				},
			},
			"summary": field,
			"rp":      field,
		},
	}
}
