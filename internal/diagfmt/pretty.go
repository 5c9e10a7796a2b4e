package diagfmt

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"moveforge/internal/diag"
	"moveforge/internal/result"
)

type palette struct {
	err    *color.Color
	loc    *color.Color
	gutter *color.Color
	caret  *color.Color
	ok     *color.Color
	dim    *color.Color
}

func newPalette(on bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		loc:    color.New(color.FgCyan),
		gutter: color.New(color.FgBlue, color.Bold),
		caret:  color.New(color.FgRed, color.Bold),
		ok:     color.New(color.FgGreen, color.Bold),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.loc, p.gutter, p.caret, p.ok, p.dim} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty writes res in the compiler's own layout:
//
//	error: <message>
//	  ┌─ <path>:<line>:<col>
//	  │
//	3 │ <source line>
//	  │     ^
//
// Fallback records are printed as plain error messages.
func Pretty(w io.Writer, res result.Result, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	switch r := res.(type) {
	case *result.Success:
		return prettySuccess(w, r, p)
	case *result.Failure:
		return prettyFailure(w, r, opts, p)
	default:
		return errors.New("diagfmt: nil result")
	}
}

func prettySuccess(w io.Writer, r *result.Success, p palette) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s compiled %s\n", p.ok.Sprint("ok:"), plural(len(r.Modules), "module"))
	for _, m := range r.Modules {
		name, size := moduleInfo(m)
		if name == "" {
			continue
		}
		fmt.Fprintf(&b, "  - %s", name)
		if size >= 0 {
			b.WriteString(p.dim.Sprintf(" (%d bytes)", size))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func prettyFailure(w io.Writer, r *result.Failure, opts PrettyOpts, p palette) error {
	var b strings.Builder
	if len(r.Errors) == 0 {
		fmt.Fprintf(&b, "%s compilation failed without diagnostics\n", p.err.Sprint("error:"))
	}
	for i, rec := range r.Errors {
		if i > 0 {
			b.WriteString("\n")
		}
		switch rec := rec.(type) {
		case diag.Diagnostic:
			writeDiagnostic(&b, rec, opts, p)
		default:
			writeMessage(&b, p.err.Sprint("error:"), rec.Text())
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.err.Sprintf("%s generated", plural(r.ErrorCount, "error")))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeDiagnostic(b *strings.Builder, d diag.Diagnostic, opts PrettyOpts, p palette) {
	label := "error"
	if opts.ShowCodes && d.Code != "" {
		label += "[" + d.Code + "]"
	}
	writeMessage(b, p.err.Sprint(label+":"), d.Message)

	lineNo := strconv.FormatUint(uint64(d.Line), 10)
	pad := strings.Repeat(" ", runewidth.StringWidth(lineNo))
	fmt.Fprintf(b, "%s %s %s\n", pad, p.gutter.Sprint("┌─"), p.loc.Sprintf("%s:%d:%d", opts.displayPath(d.File), d.Line, d.Column))

	line, exact := sourceLine(d, opts)
	if line == "" {
		return
	}
	fmt.Fprintf(b, "%s %s\n", pad, p.gutter.Sprint("│"))
	shown := line
	if opts.Width > 0 && runewidth.StringWidth(shown) > opts.Width {
		shown = runewidth.Truncate(shown, opts.Width, "…")
	}
	fmt.Fprintf(b, "%s %s %s\n", p.gutter.Sprint(lineNo), p.gutter.Sprint("│"), shown)
	if exact {
		fmt.Fprintf(b, "%s %s %s%s\n", pad, p.gutter.Sprint("│"), caretPad(line, d.Column), p.caret.Sprint("^"))
	}
}

// sourceLine returns the offending line. exact is true when it comes from
// the resolved source with its original indentation, so the caret can be
// placed under the column.
func sourceLine(d diag.Diagnostic, opts PrettyOpts) (string, bool) {
	if opts.Sources != nil {
		if src, ok := opts.Sources(d.File); ok && src.Content != "" {
			lines := strings.Split(strings.ReplaceAll(src.Content, "\r\n", "\n"), "\n")
			if idx := int(d.Line) - 1; idx < len(lines) {
				return lines[idx], true
			}
		}
	}
	if !d.HasSourceLine() {
		return "", false
	}
	return d.SourceLine, false
}

// caretPad returns the whitespace preceding column col of line, keeping
// tabs so the caret lines up in the terminal.
func caretPad(line string, col uint32) string {
	var b strings.Builder
	n := uint32(1)
	for _, r := range line {
		if n >= col {
			break
		}
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
		}
		n++
	}
	return b.String()
}

func writeMessage(b *strings.Builder, label, msg string) {
	lines := strings.Split(msg, "\n")
	fmt.Fprintf(b, "%s %s\n", label, lines[0])
	for _, l := range lines[1:] {
		fmt.Fprintf(b, "  %s\n", l)
	}
}

func moduleInfo(m any) (string, int) {
	mm, ok := m.(map[string]any)
	if !ok {
		return "", -1
	}
	name, _ := mm["name"].(string)
	size := -1
	if bc, ok := mm["bytecode"].(string); ok {
		size = decodedLen(bc)
	}
	return name, size
}

// decodedLen is the byte length of a padded base64 string.
func decodedLen(s string) int {
	n := len(s) / 4 * 3
	switch {
	case strings.HasSuffix(s, "=="):
		n -= 2
	case strings.HasSuffix(s, "="):
		n--
	}
	return n
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
