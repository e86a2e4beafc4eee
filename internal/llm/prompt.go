package llm

import (
	"encoding/json"
	"strings"
)

// BuildSystemPrompt asks for a SOAP note plus summary and recommendations
// as a single JSON object with fixed keys.
func BuildSystemPrompt() string {
	schema, _ := json.Marshal(BuildNoteJSONSchema())
	parts := []string{
		"You are a clinical documentation assistant.",
		"From the consultation material produce a SOAP note, a brief clinical summary and recommendations (rp).",
		"Write in the language of the material.",
		`Return ONLY valid JSON with exactly these keys: {"soap":{"S":"","O":"","A":"","P":""},"summary":"","rp":""}.`,
		`If something is not documented write "` + NotRecorded + `". Never invent findings.`,
		"Sections marked as errors describe files that could not be read; do not treat them as findings.",
		"JSON Schema: " + string(schema),
	}
	return strings.Join(parts, "\n")
}

func BuildUserPrompt(unified string) string {
	return "Use this content to write the SOAP note, summary and rp:\n\n" + unified
}
