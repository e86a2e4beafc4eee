package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-notes/constants"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
)

func TestAggregate_DoctorThenDocumentsWithInlineError(t *testing.T) {
	doc := Aggregate("Dolor lumbar de 3 días.", []Item{
		{ID: "1", Result: extract.Text("Rx columna sin hallazgos.")},
		{ID: "2", Result: extract.Failure("bad format")},
	}, nil)

	require.Len(t, doc.Sections, 3)
	assert.Equal(t, []string{"Doctor", "Document 1", "Document 2"},
		[]string{doc.Sections[0].Label, doc.Sections[1].Label, doc.Sections[2].Label})
	assert.Equal(t, "Error 2: bad format", doc.Sections[2].Body)
	assert.True(t, doc.Sections[2].Failed)
	assert.Equal(t, 1, doc.Failures())

	want := "--- Doctor ---\nDolor lumbar de 3 días.\n\n" +
		"--- Document 1 ---\nRx columna sin hallazgos.\n\n" +
		"--- Document 2 ---\nError 2: bad format"
	assert.Equal(t, want, doc.Text())
}

func TestAggregate_ChannelOrderAndInputOrder(t *testing.T) {
	doc := Aggregate("nota", []Item{
		{ID: "b", Result: extract.Text("B")},
		{ID: "a", Result: extract.Text("A")},
	}, []Item{
		{ID: "z", Result: extract.Text("audio z")},
		{ID: "y", Result: extract.Text("audio y")},
	})

	var labels []string
	for _, s := range doc.Sections {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{"Doctor", "Document b", "Document a", "Audio z", "Audio y"}, labels)
	assert.Equal(t, constants.ChannelAudio, doc.Sections[3].Channel)
}

func TestAggregate_OmitsEmptySections(t *testing.T) {
	doc := Aggregate("   ", []Item{
		{ID: "1", Result: extract.Text("")},
		{ID: "2", Result: extract.Text(" \n ")},
		{ID: "3", Result: extract.Text("ok")},
	}, []Item{{ID: "4", Result: extract.Text("")}})

	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Document 3", doc.Sections[0].Label)
}

func TestAggregate_NothingLeft(t *testing.T) {
	doc := Aggregate("", nil, nil)
	assert.True(t, doc.Empty())
	assert.Equal(t, "", doc.Text())
}

func TestFromChannels(t *testing.T) {
	doc := FromChannels("anamnesis", "", "transcripción")

	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Doctor", doc.Sections[0].Label)
	assert.Equal(t, "Audio", doc.Sections[1].Label)
	assert.Equal(t, "anamnesis\n\ntranscripción", doc.Bodies())
}
