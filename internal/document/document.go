// Package document assembles per-source texts into one labeled unified
// document and bounds its size.
package document

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/clinical-notes/constants"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
)

// Item is one resolved input: a blob id and what came out of it.
type Item struct {
	ID       string
	Filename string
	Kind     constants.DocumentKind
	Status   constants.ItemStatus
	Result   extract.Result
}

// Section is one labeled block of the unified document.
type Section struct {
	Channel constants.Channel
	ID      string
	Label   string
	Body    string
	Failed  bool
}

// UnifiedDocument is the ordered list of sections handed to the refiner.
type UnifiedDocument struct {
	Sections []Section
}

const sectionSeparator = "\n\n"

// Aggregate builds the unified document: doctor text first, then
// attachments, then audio, each group in input order. Failed items keep a
// section with an inline error so the gap stays visible; empty bodies are
// dropped.
func Aggregate(doctorText string, attachments, audio []Item) UnifiedDocument {
	var doc UnifiedDocument
	doc.add(constants.ChannelDoctor, "", doctorText, false)
	for _, it := range attachments {
		doc.addItem(constants.ChannelDocument, it)
	}
	for _, it := range audio {
		doc.addItem(constants.ChannelAudio, it)
	}
	return doc
}

// FromChannels builds a document from already-flattened channel texts.
func FromChannels(doctorText, attachmentsText, transcriptText string) UnifiedDocument {
	var doc UnifiedDocument
	doc.add(constants.ChannelDoctor, "", doctorText, false)
	doc.add(constants.ChannelAttachments, "", attachmentsText, false)
	doc.add(constants.ChannelAudio, "", transcriptText, false)
	return doc
}

func (d *UnifiedDocument) addItem(ch constants.Channel, it Item) {
	if it.Result.Failed() {
		d.add(ch, it.ID, ErrorBody(it.ID, it.Result.Reason), true)
		return
	}
	d.add(ch, it.ID, it.Result.Text, false)
}

func (d *UnifiedDocument) add(ch constants.Channel, id, body string, failed bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	d.Sections = append(d.Sections, Section{
		Channel: ch,
		ID:      id,
		Label:   ch.Label(id),
		Body:    body,
		Failed:  failed,
	})
}

// ErrorBody is the inline diagnostic used in place of a failed item's text.
func ErrorBody(id, reason string) string {
	return fmt.Sprintf("Error %s: %s", id, reason)
}

// Empty reports whether no section survived aggregation.
func (d UnifiedDocument) Empty() bool { return len(d.Sections) == 0 }

// Text renders every section as a "--- label ---" header line followed by
// its body, sections separated by a blank line.
func (d UnifiedDocument) Text() string {
	var b strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteString(sectionSeparator)
		}
		b.WriteString("--- ")
		b.WriteString(s.Label)
		b.WriteString(" ---\n")
		b.WriteString(s.Body)
	}
	return b.String()
}

// Bodies renders only section bodies, without headers.
func (d UnifiedDocument) Bodies() string {
	parts := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		parts = append(parts, s.Body)
	}
	return strings.Join(parts, sectionSeparator)
}

// Failures counts sections that carry an inline error.
func (d UnifiedDocument) Failures() int {
	n := 0
	for _, s := range d.Sections {
		if s.Failed {
			n++
		}
	}
	return n
}
