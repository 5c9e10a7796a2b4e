package diag

import "strings"

// Extract converts raw toolchain diagnostic text into records.
//
// Recognised error blocks become Diagnostics in the order they appear.
// When nothing is recognised and the text is not blank, the trimmed raw
// text is returned as a single Fallback. Blank text yields an empty,
// non-nil slice. Extract never fails.
func Extract(raw string) []Record {
	records := make([]Record, 0, 4)
	for _, b := range splitBlocks(prepareText(raw)) {
		if d, ok := b.diagnostic(); ok {
			records = append(records, d)
		}
	}
	if len(records) > 0 {
		return records
	}
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		records = append(records, Fallback{Message: trimmed})
	}
	return records
}
