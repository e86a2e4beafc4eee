package constants

// ItemStatus is the outcome recorded for each input of a batch.
type ItemStatus string

// Stable values, also written to the export workbook.
const (
	ItemStatusOK       ItemStatus = "OK"
	ItemStatusFailed   ItemStatus = "FAILED"    // extraction or transcription failed
	ItemStatusNotFound ItemStatus = "NOT_FOUND" // no blob under that id
	ItemStatusSkipped  ItemStatus = "SKIPPED"   // canceled before it ran
)
