package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"moveforge/internal/buildpipeline"
	"moveforge/internal/diag"
	"moveforge/internal/result"
	"moveforge/internal/version"
)

func TestReadUIMode(t *testing.T) {
	cases := map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, " on ": uiModeOn, "off": uiModeOff}
	for in, want := range cases {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("maybe"); err == nil {
		t.Fatalf("expected error for unknown ui mode")
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Fatalf("explicit ui modes ignored")
	}
}

func TestReadOutputFormat(t *testing.T) {
	for in, want := range map[string]outputFormat{"": formatPretty, "Short": formatShort, "json": formatJSON} {
		got, err := readOutputFormat(in)
		if err != nil || got != want {
			t.Fatalf("readOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readOutputFormat("sarif"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func workspaceFailure() *result.Failure {
	return result.NewFailure([]diag.Record{diag.Diagnostic{
		Message:    "unexpected token",
		File:       "/tmp/moveforge-42/sources/module.move",
		Line:       1,
		Column:     8,
		SourceLine: "module x",
	}})
}

func TestRenderResultsMapsWorkspaceSource(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hello.move")
	if err := os.WriteFile(input, []byte("module x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	files := []buildpipeline.FileResult{{File: input, Result: workspaceFailure()}}
	var buf bytes.Buffer
	opts := renderOptions{format: formatPretty, sourceFile: "module.move"}
	if err := renderResults(&buf, files, opts); err != nil {
		t.Fatalf("renderResults: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "┌─ "+input+":1:8\n") {
		t.Fatalf("input path not shown:\n%s", out)
	}
	if !strings.Contains(out, "1 │ module x\n  │        ^\n") {
		t.Fatalf("caret line missing:\n%q", out)
	}
	if strings.Contains(out, "==>") {
		t.Fatalf("single file should not print a header:\n%s", out)
	}
}

func TestRenderResultsJSONLines(t *testing.T) {
	files := []buildpipeline.FileResult{
		{File: "a.move", Result: workspaceFailure()},
		{File: "b.move", Err: errors.New("failed to read b.move")},
	}
	var buf bytes.Buffer
	if err := renderResults(&buf, files, renderOptions{format: formatJSON}); err != nil {
		t.Fatalf("renderResults: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var entry struct {
		File  string `json:"file"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil || entry.File != "b.move" || entry.Error == "" {
		t.Fatalf("unexpected entry %+v %v", entry, err)
	}
	if got := failedCount(files); got != 2 {
		t.Fatalf("failedCount = %d", got)
	}
}

func TestRenderResultsShortHeaders(t *testing.T) {
	ok := result.Normalize(true, nil, "")
	files := []buildpipeline.FileResult{
		{File: "a.move", Result: ok},
		{File: "b.move", Result: ok, CacheHit: true},
	}
	files[1].Timings.Set(buildpipeline.StageBuild, 0)
	var buf bytes.Buffer
	if err := renderResults(&buf, files, renderOptions{format: formatShort, timings: true}); err != nil {
		t.Fatalf("renderResults: %v", err)
	}
	want := "==> a.move\nok: 0 modules\n==> b.move\nok: 0 modules\ntimings: build 0s (cached)\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
	if failedCount(files) != 0 {
		t.Fatalf("successful files counted as failed")
	}
}

func TestLocalSourceIgnoresOtherFiles(t *testing.T) {
	resolve := localSource("hello.move", "module.move")
	if _, ok := resolve("/tmp/w/sources/other.move"); ok {
		t.Fatalf("other file resolved")
	}
	if _, ok := resolve("/tmp/w/module.move"); ok {
		t.Fatalf("file outside sources resolved")
	}
	if localSource(buildpipeline.StdinName, "module.move") != nil {
		t.Fatalf("stdin should have no resolver")
	}
	if sourceFileName("") != "module.move" || sourceFileName("x.move") != "x.move" {
		t.Fatalf("unexpected source file names")
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	info := version.Info{Tool: "moveforge", Version: "1.2.3", GitCommit: ""}
	if err := renderVersionJSON(&buf, info, versionOptions{format: "json", showHash: true}); err != nil {
		t.Fatalf("renderVersionJSON: %v", err)
	}
	var got version.Info
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.GitCommit != "unknown" || got.BuildDate != "" || got.Version != "1.2.3" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestDiagRendersSavedResultJSON(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "moveforge.toml")
	saved := filepath.Join(dir, "answer.json")
	if err := os.WriteFile(cfgPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	body := `{"type":"compile_failed","success":false,"error_count":2,"errors":[` +
		`{"message":"boom","file":"a.move","line":3,"column":4},{"message":"Killed"}]}`
	if err := os.WriteFile(saved, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"diag", "--config", cfgPath, "--color", "off", "--input", "json", "--format", "short", saved})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("diag: %v", err)
	}
	if out.String() != "a.move:3:4: boom\nerror: Killed\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
