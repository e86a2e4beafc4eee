package llm

import (
	"context"
	"fmt"
	"strings"
)

// NotRecorded fills any note field the model left empty.
const NotRecorded = "NR"

// SOAP is the four-part clinical note.
type SOAP struct {
	S string `json:"S"` // subjective
	O string `json:"O"` // objective
	A string `json:"A"` // assessment
	P string `json:"P"` // plan
}

// Note is the refined output for one consultation.
type Note struct {
	SOAP    SOAP   `json:"soap"`
	Summary string `json:"summary"`
	RP      string `json:"rp"` // recommendations / prescription
}

// Refiner turns a unified document into a structured note.
type Refiner interface {
	Refine(ctx context.Context, unified string) (Note, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, contentType string) (string, error)
}

// Fill trims every field and replaces blanks with NotRecorded.
func (n Note) Fill() Note {
	fill := func(s string) string {
		if s = strings.TrimSpace(s); s == "" {
			return NotRecorded
		}
		return s
	}
	n.SOAP.S = fill(n.SOAP.S)
	n.SOAP.O = fill(n.SOAP.O)
	n.SOAP.A = fill(n.SOAP.A)
	n.SOAP.P = fill(n.SOAP.P)
	n.Summary = fill(n.Summary)
	n.RP = fill(n.RP)
	return n
}

// PlaceholderNote is returned to callers when the refiner fails; the error
// text goes into the assessment so it stays visible in the note.
func PlaceholderNote(err error) Note {
	return Note{SOAP: SOAP{A: fmt.Sprintf("refiner error: %v", err)}}.Fill()
}
