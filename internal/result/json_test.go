package result

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"moveforge/internal/diag"
)

func TestMarshalShapes(t *testing.T) {
	cases := []struct {
		name string
		in   Result
		want string
	}{
		{
			name: "empty success",
			in:   Normalize(true, nil, ""),
			want: `{"type":"compile_success","success":true,"modules":[],"package_metadata_bcs":null,"compiler_stdout":"","metadata":{}}`,
		},
		{
			name: "success with payload",
			in: Normalize(true, &SuccessPayload{
				Modules:         []any{map[string]any{"name": "m"}},
				PackageMetadata: "AAEC",
				CompilerLogs:    "BUILDING my_module",
				Metadata:        map[string]any{"b": 2, "a": "x"},
			}, ""),
			want: `{"type":"compile_success","success":true,"modules":[{"name":"m"}],"package_metadata_bcs":"AAEC","compiler_stdout":"BUILDING my_module","metadata":{"a":"x","b":2}}`,
		},
		{
			name: "empty failure",
			in:   Normalize(false, nil, ""),
			want: `{"type":"compile_failed","success":false,"error_count":0,"errors":[]}`,
		},
		{
			name: "fallback failure",
			in:   Normalize(false, nil, "  boom  "),
			want: `{"type":"compile_failed","success":false,"error_count":1,"errors":[{"message":"boom"}]}`,
		},
		{
			name: "located failure",
			in:   Normalize(false, nil, "error[E01]: a < b\n ┌─ a.move:1:2\n │\n1 │ x && y\n"),
			want: `{"type":"compile_failed","success":false,"error_count":1,"errors":[{"message":"a < b","file":"a.move","line":1,"column":2,"source_line":"x && y"}]}`,
		},
		{
			name: "located failure without context",
			in:   Normalize(false, nil, "error: a\n ┌─ a.move:3:4\n"),
			want: `{"type":"compile_failed","success":false,"error_count":1,"errors":[{"message":"a","file":"a.move","line":3,"column":4}]}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Marshal(tc.in)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("Marshal() =\n%s\nwant\n%s", got, tc.want)
			}
		})
	}
}

func TestStdlibMarshalUsesSameShape(t *testing.T) {
	r := Normalize(false, nil, "error: a\n ┌─ a.move:3:4\n")
	std, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	ours, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(std, ours) {
		t.Fatalf("json.Marshal = %s, Marshal = %s", std, ours)
	}
}

func TestEncodeIndent(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Normalize(false, nil, ""), "  "); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"error_count\": 0,") {
		t.Fatalf("expected indented output, got %s", buf.String())
	}
	if err := Encode(&buf, nil, ""); err == nil {
		t.Fatalf("expected error for nil result")
	}
}

func TestDecodeRestoresVariant(t *testing.T) {
	inputs := []Result{
		Normalize(true, &SuccessPayload{CompilerLogs: "ok", Metadata: map[string]any{"k": "v"}}, ""),
		Normalize(false, nil, "boom"),
		Normalize(false, nil, "error[E02]: a\n ┌─ a.move:1:2\n │\n1 │ code\nerror: b\n ┌─ b.move:3:4\n"),
	}
	for _, in := range inputs {
		data, err := Marshal(in)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		out, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%s): %v", data, err)
		}
		if out.Type() != in.Type() {
			t.Fatalf("Decode type = %q, want %q", out.Type(), in.Type())
		}
		again, err := Marshal(out)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(data, again) {
			t.Fatalf("decoded result re-encodes differently:\n%s\n%s", data, again)
		}
	}
}

func TestDecodeRecords(t *testing.T) {
	data := []byte(`{"type":"compile_failed","success":false,"error_count":2,"errors":[{"message":"x","file":"a.move","line":1,"column":2},{"message":"raw"}]}`)
	r, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []diag.Record{
		diag.Diagnostic{Message: "x", File: "a.move", Line: 1, Column: 2},
		diag.Fallback{Message: "raw"},
	}
	if got := r.(*Failure).Errors; !reflect.DeepEqual(got, want) {
		t.Fatalf("errors = %#v, want %#v", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, input := range []string{`not json`, `{"type":"mystery"}`, `{"type":"compile_failed","errors":[1]}`} {
		if _, err := Decode([]byte(input)); err == nil {
			t.Fatalf("Decode(%s) expected error", input)
		}
	}
}
