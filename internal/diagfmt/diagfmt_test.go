package diagfmt

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"moveforge/internal/diag"
	"moveforge/internal/result"
)

const workspaceFile = "/tmp/moveforge-1/sources/module.move"

func sampleFailure() *result.Failure {
	return result.NewFailure([]diag.Record{
		diag.Diagnostic{
			Message:    "unbound module",
			File:       workspaceFile,
			Line:       2,
			Column:     9,
			SourceLine: "use 0x1::missing;",
			Code:       "E03003",
		},
		diag.Fallback{Message: "Killed"},
	})
}

func TestPrettyFailureWithoutSource(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleFailure(), PrettyOpts{}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	want := "error: unbound module\n" +
		"  ┌─ " + workspaceFile + ":2:9\n" +
		"  │\n" +
		"2 │ use 0x1::missing;\n" +
		"\n" +
		"error: Killed\n" +
		"\n" +
		"2 errors generated\n"
	if buf.String() != want {
		t.Fatalf("pretty mismatch\n got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrettyCaretFromResolvedSource(t *testing.T) {
	code := "module 0x1::m {\n\tuse 0x1::missing;\n}\n"
	opts := PrettyOpts{
		ShowCodes: true,
		Sources: func(file string) (Source, bool) {
			if file == workspaceFile {
				return Source{Display: "hello/m.move", Content: code}, true
			}
			return Source{}, false
		},
	}
	d := sampleFailure().Errors[0].(diag.Diagnostic)
	d.Column = 6
	f := result.NewFailure([]diag.Record{d})
	var buf bytes.Buffer
	if err := Pretty(&buf, f, opts); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "error[E03003]: unbound module\n") {
		t.Fatalf("missing code in header:\n%s", out)
	}
	if !strings.Contains(out, "┌─ hello/m.move:2:6\n") {
		t.Fatalf("display path not applied:\n%s", out)
	}
	// column 6 of "\tuse 0x1::missing;" is the 0 of 0x1
	if !strings.Contains(out, "2 │ \tuse 0x1::missing;\n  │ \t    ^\n") {
		t.Fatalf("caret misplaced:\n%q", out)
	}
	if !strings.HasSuffix(out, "1 error generated\n") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestPrettySuccess(t *testing.T) {
	s := result.Normalize(true, &result.SuccessPayload{
		Modules: []any{map[string]any{"name": "m", "bytecode": "QkND"}, "opaque"},
	}, "")
	var buf bytes.Buffer
	if err := Pretty(&buf, s, PrettyOpts{}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	if buf.String() != "ok: compiled 2 modules\n  - m (3 bytes)\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrettyEmptyFailureAndNil(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, result.NewFailure(nil), PrettyOpts{}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	if buf.String() != "error: compilation failed without diagnostics\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if err := Pretty(&buf, nil, PrettyOpts{}); err == nil {
		t.Fatalf("nil result should fail")
	}
}

func TestPrettyColor(t *testing.T) {
	var plain, colored bytes.Buffer
	_ = Pretty(&plain, sampleFailure(), PrettyOpts{})
	_ = Pretty(&colored, sampleFailure(), PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("plain output has escapes")
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("colored output has no escapes")
	}
}

func TestShort(t *testing.T) {
	var buf bytes.Buffer
	if err := Short(&buf, sampleFailure(), PrettyOpts{PathMode: PathModeBasename}); err != nil {
		t.Fatalf("Short: %v", err)
	}
	if buf.String() != "module.move:2:9: unbound module\nerror: Killed\n" {
		t.Fatalf("unexpected short output %q", buf.String())
	}
	buf.Reset()
	_ = Short(&buf, sampleFailure(), PrettyOpts{ShowCodes: true, PathMode: PathModeBasename})
	if !strings.HasPrefix(buf.String(), "module.move:2:9: E03003 unbound module\n") {
		t.Fatalf("code not shown: %q", buf.String())
	}
	buf.Reset()
	_ = Short(&buf, result.Normalize(true, nil, ""), PrettyOpts{})
	if buf.String() != "ok: 0 modules\n" {
		t.Fatalf("unexpected success line %q", buf.String())
	}
}

func TestDisplayPathModes(t *testing.T) {
	cases := []struct {
		mode PathMode
		base string
		in   string
		want string
	}{
		{PathModeAuto, "/home/u/proj", "/home/u/proj/sources/a.move", "sources/a.move"},
		{PathModeAuto, "/home/u/proj", "/tmp/x/a.move", "/tmp/x/a.move"},
		{PathModeRelative, "/home/u/proj", "/home/u/other/a.move", "../other/a.move"},
		{PathModeBasename, "", "/tmp/x/a.move", "a.move"},
		{PathModeAbsolute, "/home/u/proj", "/tmp/x/a.move", "/tmp/x/a.move"},
		{PathModeAuto, "/home/u/proj", "sources/a.move", "sources/a.move"},
	}
	for _, tc := range cases {
		got := PrettyOpts{PathMode: tc.mode, BaseDir: tc.base}.displayPath(tc.in)
		if got != tc.want {
			t.Fatalf("displayPath(%v, %q) = %q, want %q", tc.mode, tc.in, got, tc.want)
		}
	}
	if _, err := ParsePathMode("sideways"); err == nil {
		t.Fatalf("expected error for unknown path mode")
	}
}

func TestJSONLine(t *testing.T) {
	var buf bytes.Buffer
	f := result.Normalize(false, nil, "error: expected '<' here\n  ┌─ a.move:1:1\n")
	if err := JSONLine(&buf, "a.log", f, nil); err != nil {
		t.Fatalf("JSONLine: %v", err)
	}
	if err := JSONLine(&buf, "b.log", nil, errors.New("no such file")); err != nil {
		t.Fatalf("JSONLine: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `expected '<' here`) {
		t.Fatalf("html characters escaped: %s", lines[0])
	}
	var first FileEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid line: %v", err)
	}
	decoded, err := result.Decode(first.Result)
	if err != nil || decoded.Type() != result.TypeFailure {
		t.Fatalf("result not decodable: %v %v", decoded, err)
	}
	var second FileEntry
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil || second.Error != "no such file" || second.Result != nil {
		t.Fatalf("unexpected error entry %#v %v", second, err)
	}
	if err := JSONLine(&buf, "c.log", nil, nil); err == nil {
		t.Fatalf("expected error without result")
	}
}

func TestJSONIndent(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, result.NewFailure(nil), true); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"type\": \"compile_failed\"") {
		t.Fatalf("not indented: %q", buf.String())
	}
}
