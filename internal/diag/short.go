package diag

import (
	"fmt"
	"strings"
)

// FormatShort renders records into a stable single-line-per-entry form:
//
//	<file>:<line>:<col>: [CODE ]<message>
//	error: <message>
//
// Multi-line messages are folded onto one line. Order is preserved, an
// empty slice gives an empty string.
func FormatShort(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, r := range records {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch rec := r.(type) {
		case Diagnostic:
			fmt.Fprintf(&sb, "%s:%d:%d: ", rec.File, rec.Line, rec.Column)
			if rec.Code != "" {
				sb.WriteString(rec.Code)
				sb.WriteByte(' ')
			}
			sb.WriteString(foldLines(rec.Message))
		case Fallback:
			sb.WriteString("error: ")
			sb.WriteString(foldLines(rec.Message))
		}
	}
	return sb.String()
}

func foldLines(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
