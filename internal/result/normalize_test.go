package result

import (
	"reflect"
	"testing"

	"moveforge/internal/diag"
)

func TestNormalizeSuccessCopiesPayload(t *testing.T) {
	payload := &SuccessPayload{
		Modules:         []any{map[string]any{"name": "m", "bytecode": "oRzrCw=="}},
		PackageMetadata: "AAEC",
		CompilerLogs:    "BUILDING my_module\n",
		Metadata:        map[string]any{"package_name": "my_module"},
	}
	got := Normalize(true, payload, "error: ignored\n ┌─ a.move:1:1")
	s, ok := got.(*Success)
	if !ok {
		t.Fatalf("expected *Success, got %T", got)
	}
	if !reflect.DeepEqual(s.Modules, payload.Modules) {
		t.Fatalf("modules = %#v", s.Modules)
	}
	if s.PackageMetadata != "AAEC" {
		t.Fatalf("package metadata = %#v", s.PackageMetadata)
	}
	if s.CompilerLogs != payload.CompilerLogs {
		t.Fatalf("compiler logs = %q", s.CompilerLogs)
	}
	if s.Metadata["package_name"] != "my_module" {
		t.Fatalf("metadata = %#v", s.Metadata)
	}
	if !got.Succeeded() || got.Type() != TypeSuccess {
		t.Fatalf("unexpected discriminator %q", got.Type())
	}
}

func TestNormalizeSuccessDefaults(t *testing.T) {
	for _, payload := range []*SuccessPayload{nil, {}} {
		s := Normalize(true, payload, "").(*Success)
		if s.Modules == nil || len(s.Modules) != 0 {
			t.Fatalf("modules = %#v, want empty slice", s.Modules)
		}
		if s.Metadata == nil || len(s.Metadata) != 0 {
			t.Fatalf("metadata = %#v, want empty map", s.Metadata)
		}
		if s.PackageMetadata != nil || s.CompilerLogs != "" {
			t.Fatalf("unexpected defaults %#v", s)
		}
	}
}

func TestNormalizeFailure(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		count int
	}{
		{"empty", "", 0},
		{"blank", "  \n", 0},
		{"fallback", "linker exploded", 1},
		{"two blocks", "error: a\n ┌─ a.move:1:1\nerror: b\n ┌─ b.move:2:2\n", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(false, nil, tc.raw)
			f, ok := got.(*Failure)
			if !ok {
				t.Fatalf("expected *Failure, got %T", got)
			}
			if f.ErrorCount != tc.count || len(f.Errors) != f.ErrorCount {
				t.Fatalf("error_count = %d, len(errors) = %d, want %d", f.ErrorCount, len(f.Errors), tc.count)
			}
			if f.Errors == nil {
				t.Fatalf("errors must not be nil")
			}
		})
	}
}

func TestNormalizeFailureIgnoresPayload(t *testing.T) {
	got := Normalize(false, &SuccessPayload{CompilerLogs: "ok"}, "boom")
	f := got.(*Failure)
	want := []diag.Record{diag.Fallback{Message: "boom"}}
	if !reflect.DeepEqual(f.Errors, want) {
		t.Fatalf("errors = %#v, want %#v", f.Errors, want)
	}
}

func TestFailureDiagnostics(t *testing.T) {
	f := NewFailure([]diag.Record{
		diag.Diagnostic{Message: "a", File: "a.move", Line: 1, Column: 1},
	})
	if got := f.Diagnostics(); len(got) != 1 || got[0].File != "a.move" {
		t.Fatalf("Diagnostics() = %#v", got)
	}
	if got := NewFailure([]diag.Record{diag.Fallback{Message: "x"}}).Diagnostics(); len(got) != 0 {
		t.Fatalf("fallback must not be reported as diagnostic: %#v", got)
	}
}

func TestNewFailureNil(t *testing.T) {
	f := NewFailure(nil)
	if f.ErrorCount != 0 || f.Errors == nil {
		t.Fatalf("NewFailure(nil) = %#v", f)
	}
}
