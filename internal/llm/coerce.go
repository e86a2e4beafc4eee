package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var (
	soapKeys = map[string][]string{
		"S": {"S", "s", "subjective", "subjetivo"},
		"O": {"O", "o", "objective", "objetivo"},
		"A": {"A", "a", "assessment", "analisis", "análisis", "evaluacion", "evaluación"},
		"P": {"P", "p", "plan"},
	}
	summaryKeys = []string{"summary", "resumen", "Summary"}
	rpKeys      = []string{"rp", "RP", "recommendations", "recomendaciones"}
)

// CoerceNote decodes model output into a Note without failing on shape
// drift: known synonyms are accepted, numbers and lists are stringified,
// a flat object without "soap" is read as the SOAP itself, and anything
// missing becomes NotRecorded. It errors only when raw is not a JSON object.
// The returned list names the fields that were filled or rewritten.
func CoerceNote(raw []byte) (Note, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Note{}, nil, fmt.Errorf("coerce note: decode: %w", err)
	}
	if m == nil {
		return Note{}, nil, fmt.Errorf("coerce note: not an object")
	}

	var fixed []string
	soap, ok := m["soap"].(map[string]any)
	if !ok {
		if s, isStr := m["soap"].(string); isStr && strings.TrimSpace(s) != "" {
			// a prose SOAP cannot be split reliably; keep it as the assessment
			soap = map[string]any{"A": s}
			fixed = append(fixed, "soap(string)")
		} else {
			soap = m
			fixed = append(fixed, "soap(missing)")
		}
	}

	pick := func(src map[string]any, label string, keys []string) string {
		for i, k := range keys {
			v, ok := src[k]
			if !ok {
				continue
			}
			s := stringify(v)
			if i > 0 {
				fixed = append(fixed, k+"->"+label)
			}
			if strings.TrimSpace(s) != "" {
				return s
			}
		}
		fixed = append(fixed, label+"(NR)")
		return ""
	}

	n := Note{
		SOAP: SOAP{
			S: pick(soap, "S", soapKeys["S"]),
			O: pick(soap, "O", soapKeys["O"]),
			A: pick(soap, "A", soapKeys["A"]),
			P: pick(soap, "P", soapKeys["P"]),
		},
		Summary: pick(m, "summary", summaryKeys),
		RP:      pick(m, "rp", rpKeys),
	}
	return n.Fill(), fixed, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := stringify(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
