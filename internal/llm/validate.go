package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var noteSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return CompileSchema("note.json", BuildNoteJSONSchema())
})

// CompileSchema compiles schemaMap under the given resource name.
func CompileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateNote checks model output against the note schema. It returns one
// "schema: <location>: <message>" entry per failed constraint; an empty
// result means raw can be decoded into a Note directly.
func ValidateNote(raw []byte) ([]string, error) {
	schema, err := noteSchema()
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	err = schema.Validate(v)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	return violations(ve, nil), nil
}

func violations(ve *jsonschema.ValidationError, out []string) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return append(out, fmt.Sprintf("schema: %s: %s", loc, ve.Message))
	}
	for _, c := range ve.Causes {
		out = violations(c, out)
	}
	return out
}

// DecodeNote turns model output into a filled Note. Output that satisfies
// the schema is decoded as is and fixed stays empty. Otherwise the schema
// violations lead the fixed list and CoerceNote repairs the rest.
func DecodeNote(raw []byte) (Note, []string, error) {
	bad, err := ValidateNote(raw)
	if err != nil {
		return Note{}, nil, fmt.Errorf("decode note: %w", err)
	}
	if len(bad) == 0 {
		var n Note
		if err := json.Unmarshal(raw, &n); err != nil {
			return Note{}, nil, fmt.Errorf("decode note: %w", err)
		}
		return n.Fill(), nil, nil
	}
	n, fixed, err := CoerceNote(raw)
	if err != nil {
		return Note{}, bad, fmt.Errorf("decode note: %w", err)
	}
	return n, append(bad, fixed...), nil
}
