package diag

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/charmbracelet/x/ansi"
)

var (
	// error: msg | error[E01002]: msg
	blockStartRe = regexp.MustCompile(`^\s*error(?:\[([^\]\s]*)\])?:(.*)$`)
	// warning[W09001]: ... | note: ... | bug: ... ends the current error block
	otherHeaderRe = regexp.MustCompile(`^\s*(?:warning|note|bug)(?:\[[^\]]*\])?:`)
	// ┌─ path/to/file.move:12:5 ; the path may itself contain colons
	locationRe = regexp.MustCompile(`^\s*┌─\s*(.*):([^:]*):([^:]*)$`)
	gutterRe   = regexp.MustCompile(`^\s*[│|]?\s*$`)
	contextRe  = regexp.MustCompile(`^\s*(\d+)\s*[│|](.*)$`)
)

// block is the slice of lines between two error markers.
type block struct {
	code  string
	first string
	lines []string
}

// prepareText returns the text the scanner works on: colour escapes
// removed, line endings normalised and the CLI's {"Error": "..."} envelope
// unwrapped.
func prepareText(raw string) string {
	text := unwrapEnvelope(raw)
	if strings.IndexByte(text, '\x1b') >= 0 {
		text = ansi.Strip(text)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return text
}

// unwrapEnvelope handles the JSON object printed by the movement/aptos CLI,
// whose "Error" field holds the compiler output with escaped newlines.
func unwrapEnvelope(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return raw
	}
	var envelope struct {
		Error string `json:"Error"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil || envelope.Error == "" {
		return raw
	}
	return envelope.Error
}

// splitBlocks is the first scan stage: it locates block boundaries.
// Lines before the first marker belong to no block, and so do non-error
// diagnostics (warning, note, bug) up to the next error marker.
func splitBlocks(text string) []block {
	var (
		blocks []block
		cur    *block
	)
	for _, line := range strings.Split(text, "\n") {
		if m := blockStartRe.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, block{code: m[1], first: m[2]})
			cur = &blocks[len(blocks)-1]
			continue
		}
		if otherHeaderRe.MatchString(line) {
			cur = nil
			continue
		}
		if cur != nil {
			cur.lines = append(cur.lines, line)
		}
	}
	return blocks
}

// diagnostic is the second scan stage. ok is false when the block has no
// location marker or the marker is malformed.
func (b block) diagnostic() (Diagnostic, bool) {
	msg := []string{b.first}
	for i, line := range b.lines {
		m := locationRe.FindStringSubmatch(strings.TrimRight(line, " \t"))
		if m == nil {
			msg = append(msg, line)
			continue
		}
		file := strings.TrimSpace(m[1])
		lineNo, okLine := parsePosition(m[2])
		colNo, okCol := parsePosition(m[3])
		if file == "" || !okLine || !okCol {
			return Diagnostic{}, false
		}
		return Diagnostic{
			Message:    strings.TrimSpace(strings.Join(msg, "\n")),
			File:       file,
			Line:       lineNo,
			Column:     colNo,
			SourceLine: sourceContext(b.lines[i+1:]),
			Code:       b.code,
		}, true
	}
	return Diagnostic{}, false
}

// sourceContext returns the first numbered source line that follows the
// location marker, skipping gutter-only lines.
func sourceContext(lines []string) string {
	for _, line := range lines {
		if m := contextRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[2])
		}
		if gutterRe.MatchString(line) {
			continue
		}
		break
	}
	return ""
}

// parsePosition parses a 1-based line or column number.
func parsePosition(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}
