package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceNote_WellFormed(t *testing.T) {
	raw := `{"soap":{"S":"cefalea 3 días","O":"TA 120/80","A":"cefalea tensional","P":"paracetamol"},"summary":"consulta por cefalea","rp":"paracetamol 500 mg c/8h"}`

	n, fixed, err := CoerceNote([]byte(raw))
	require.NoError(t, err)
	assert.Empty(t, fixed)
	assert.Equal(t, "cefalea 3 días", n.SOAP.S)
	assert.Equal(t, "TA 120/80", n.SOAP.O)
	assert.Equal(t, "cefalea tensional", n.SOAP.A)
	assert.Equal(t, "paracetamol", n.SOAP.P)
	assert.Equal(t, "consulta por cefalea", n.Summary)
	assert.Equal(t, "paracetamol 500 mg c/8h", n.RP)
}

func TestCoerceNote_MissingAndBlankBecomeNR(t *testing.T) {
	raw := `{"soap":{"S":"dolor","O":"   ","A":null},"rp":""}`

	n, fixed, err := CoerceNote([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "dolor", n.SOAP.S)
	assert.Equal(t, NotRecorded, n.SOAP.O)
	assert.Equal(t, NotRecorded, n.SOAP.A)
	assert.Equal(t, NotRecorded, n.SOAP.P)
	assert.Equal(t, NotRecorded, n.Summary)
	assert.Equal(t, NotRecorded, n.RP)
	assert.Contains(t, fixed, "P(NR)")
	assert.Contains(t, fixed, "summary(NR)")
}

func TestCoerceNote_Aliases(t *testing.T) {
	raw := `{"soap":{"subjetivo":"tos","objective":"sat 97%","A":"bronquitis","plan":["reposo","hidratación"]},"resumen":"bronquitis aguda","recomendaciones":"control en 7 días"}`

	n, fixed, err := CoerceNote([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "tos", n.SOAP.S)
	assert.Equal(t, "sat 97%", n.SOAP.O)
	assert.Equal(t, "reposo\nhidratación", n.SOAP.P)
	assert.Equal(t, "bronquitis aguda", n.Summary)
	assert.Equal(t, "control en 7 días", n.RP)
	assert.Contains(t, fixed, "resumen->summary")
	assert.Contains(t, fixed, "recomendaciones->rp")
}

func TestCoerceNote_FlatAndStringSOAP(t *testing.T) {
	n, _, err := CoerceNote([]byte(`{"S":"s","O":"o","A":"a","P":"p","summary":"x","rp":"y"}`))
	require.NoError(t, err)
	assert.Equal(t, SOAP{S: "s", O: "o", A: "a", P: "p"}, n.SOAP)

	n, fixed, err := CoerceNote([]byte(`{"soap":"paciente estable","summary":3,"rp":true}`))
	require.NoError(t, err)
	assert.Equal(t, "paciente estable", n.SOAP.A)
	assert.Equal(t, NotRecorded, n.SOAP.S)
	assert.Equal(t, "3", n.Summary)
	assert.Equal(t, "true", n.RP)
	assert.Contains(t, fixed, "soap(string)")
}

func TestCoerceNote_NotAnObject(t *testing.T) {
	for _, raw := range []string{``, `not json`, `[1,2]`, `"text"`, `null`} {
		_, _, err := CoerceNote([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestPlaceholderNote(t *testing.T) {
	n := PlaceholderNote(errors.New("timeout"))
	assert.Equal(t, "refiner error: timeout", n.SOAP.A)
	assert.Equal(t, NotRecorded, n.SOAP.S)
	assert.Equal(t, NotRecorded, n.SOAP.O)
	assert.Equal(t, NotRecorded, n.SOAP.P)
	assert.Equal(t, NotRecorded, n.Summary)
	assert.Equal(t, NotRecorded, n.RP)
}

func TestNoteJSONShape(t *testing.T) {
	b, err := json.Marshal(Note{SOAP: SOAP{S: "a"}}.Fill())
	require.NoError(t, err)
	assert.JSONEq(t, `{"soap":{"S":"a","O":"NR","A":"NR","P":"NR"},"summary":"NR","rp":"NR"}`, string(b))
}

func TestValidateNote(t *testing.T) {
	ok := `{"soap":{"S":"a","O":"b","A":"c","P":"d"},"summary":"e","rp":"f"}`
	bad, err := ValidateNote([]byte(ok))
	require.NoError(t, err)
	assert.Empty(t, bad)

	bad, err = ValidateNote([]byte(`{"soap":{"S":"a","O":"b","A":"c"},"summary":"e","rp":"f"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"schema: /soap: missing properties: 'P'"}, bad)

	bad, err = ValidateNote([]byte(`{"soap":{"S":"","O":"b","A":"c","P":"d"},"summary":"e","rp":"f"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"schema: /soap/S: length must be >= 1, but got 0"}, bad)

	_, err = ValidateNote([]byte(`{`))
	assert.Error(t, err)

	// anything CoerceNote produces satisfies the schema
	n, _, err := CoerceNote([]byte(`{}`))
	require.NoError(t, err)
	b, err := json.Marshal(n)
	require.NoError(t, err)
	bad, err = ValidateNote(b)
	require.NoError(t, err)
	assert.Empty(t, bad)
}

func TestDecodeNote(t *testing.T) {
	t.Run("valid output is decoded as written", func(t *testing.T) {
		raw := `{"soap":{"S":" s ","O":"o","A":"a","P":"p"},"summary":"x","rp":"y","recomendaciones":"otra"}`
		n, fixed, err := DecodeNote([]byte(raw))
		require.NoError(t, err)
		assert.Empty(t, fixed)
		assert.Equal(t, "s", n.SOAP.S)
		assert.Equal(t, "y", n.RP)
	})

	t.Run("violations lead the fixed list", func(t *testing.T) {
		n, fixed, err := DecodeNote([]byte(`{"soap":{"S":"s","O":"o","A":"a","P":"p"},"summary":"x","recomendaciones":"reposo"}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"schema: /: missing properties: 'rp'", "recomendaciones->rp"}, fixed)
		assert.Equal(t, "reposo", n.RP)
	})

	t.Run("wrong types are coerced", func(t *testing.T) {
		n, fixed, err := DecodeNote([]byte(`{"soap":{"S":"s","O":"o","A":"a","P":"p"},"summary":3,"rp":"y"}`))
		require.NoError(t, err)
		assert.Equal(t, "3", n.Summary)
		require.NotEmpty(t, fixed)
		assert.Contains(t, fixed[0], "schema: /summary:")
	})

	t.Run("not an object", func(t *testing.T) {
		_, _, err := DecodeNote([]byte(`[1,2]`))
		assert.ErrorContains(t, err, "decode note")

		_, _, err = DecodeNote([]byte(`lo siento`))
		assert.ErrorContains(t, err, "decode note")
	})
}

func TestPrompts(t *testing.T) {
	sys := BuildSystemPrompt()
	assert.Contains(t, sys, `"soap"`)
	assert.Contains(t, sys, `"NR"`)
	assert.Contains(t, sys, "JSON Schema:")

	user := BuildUserPrompt("--- Doctor ---\nnota")
	assert.Contains(t, user, "--- Doctor ---\nnota")
}
