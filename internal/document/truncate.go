package document

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TruncationMarker is appended to any text cut by Truncate.
const TruncationMarker = "\n\n[TRUNCATED]"

// Truncate bounds text to maxChars characters (runes) plus the marker.
// Trailing whitespace left by the cut is trimmed. Truncating an already
// truncated text with the same budget returns it unchanged. maxChars <= 0
// means no budget.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	if body, ok := strings.CutSuffix(text, TruncationMarker); ok && utf8.RuneCountInString(body) <= maxChars {
		return text
	}
	runes := []rune(text)
	head := strings.TrimRightFunc(string(runes[:maxChars]), unicode.IsSpace)
	return head + TruncationMarker
}

// Budgets are per-channel character limits. Doctor, Document and
// Transcript apply to each item before aggregation, Unified to the
// rendered result.
type Budgets struct {
	Doctor     int `yaml:"doctor"`
	Document   int `yaml:"document"`
	Transcript int `yaml:"transcript"`
	Unified    int `yaml:"unified"`
}

func DefaultBudgets() Budgets {
	return Budgets{
		Doctor:     20000,
		Document:   20000,
		Transcript: 30000,
		Unified:    45000,
	}
}

// TruncateItems applies max to every successful item's text in place.
func TruncateItems(items []Item, max int) {
	for i := range items {
		if !items[i].Result.Failed() {
			items[i].Result.Text = Truncate(items[i].Result.Text, max)
		}
	}
}
