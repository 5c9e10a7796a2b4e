package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"moveforge/internal/diag"
)

// successJSON fixes the key order of the success shape.
type successJSON struct {
	Type               string         `json:"type"`
	Success            bool           `json:"success"`
	Modules            []any          `json:"modules"`
	PackageMetadataBCS any            `json:"package_metadata_bcs"`
	CompilerStdout     string         `json:"compiler_stdout"`
	Metadata           map[string]any `json:"metadata"`
}

// failureJSON fixes the key order of the failure shape.
type failureJSON struct {
	Type       string        `json:"type"`
	Success    bool          `json:"success"`
	ErrorCount int           `json:"error_count"`
	Errors     []diag.Record `json:"errors"`
}

// MarshalJSON implements json.Marshaler.
func (s *Success) MarshalJSON() ([]byte, error) {
	out := successJSON{
		Type:               TypeSuccess,
		Success:            true,
		Modules:            s.Modules,
		PackageMetadataBCS: s.PackageMetadata,
		CompilerStdout:     s.CompilerLogs,
		Metadata:           s.Metadata,
	}
	if out.Modules == nil {
		out.Modules = []any{}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	return marshalNoEscape(out)
}

// MarshalJSON implements json.Marshaler. error_count is always derived
// from the records.
func (f *Failure) MarshalJSON() ([]byte, error) {
	out := failureJSON{
		Type:       TypeFailure,
		Success:    false,
		ErrorCount: len(f.Errors),
		Errors:     f.Errors,
	}
	if out.Errors == nil {
		out.Errors = []diag.Record{}
	}
	return marshalNoEscape(out)
}

// Encode writes r as JSON followed by a newline. Compiler messages keep
// '<', '>' and '&' unescaped.
func Encode(w io.Writer, r Result, indent string) error {
	if r == nil {
		return errors.New("result: nil result")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(r)
}

// Marshal returns the compact JSON form of r without a trailing newline.
func Marshal(r Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r, ""); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses either JSON shape back into a Result.
func Decode(data []byte) (Result, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("result: decode: %w", err)
	}
	switch head.Type {
	case TypeSuccess:
		var in successJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("result: decode success: %w", err)
		}
		return newSuccess(&SuccessPayload{
			Modules:         in.Modules,
			PackageMetadata: in.PackageMetadataBCS,
			CompilerLogs:    in.CompilerStdout,
			Metadata:        in.Metadata,
		}), nil
	case TypeFailure:
		var in struct {
			Errors []json.RawMessage `json:"errors"`
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("result: decode failure: %w", err)
		}
		records := make([]diag.Record, 0, len(in.Errors))
		for i, raw := range in.Errors {
			rec, err := decodeRecord(raw)
			if err != nil {
				return nil, fmt.Errorf("result: decode errors[%d]: %w", i, err)
			}
			records = append(records, rec)
		}
		return NewFailure(records), nil
	default:
		return nil, fmt.Errorf("result: unknown type %q", head.Type)
	}
}

func decodeRecord(raw json.RawMessage) (diag.Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if _, located := fields["file"]; !located {
		var fb diag.Fallback
		if err := json.Unmarshal(raw, &fb); err != nil {
			return nil, err
		}
		return fb, nil
	}
	var d diag.Diagnostic
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}
