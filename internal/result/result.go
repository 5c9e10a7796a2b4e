// Package result defines the normalised compile result sent to frontends.
//
// A Result is exactly one of *Success or *Failure. Both variants serialise
// to the fixed JSON shapes the frontend consumes:
//
//	{"type":"compile_success","success":true,"modules":[...],"package_metadata_bcs":...,"compiler_stdout":"...","metadata":{...}}
//	{"type":"compile_failed","success":false,"error_count":N,"errors":[...]}
package result

import "moveforge/internal/diag"

// Type discriminators used in the JSON "type" field.
const (
	TypeSuccess = "compile_success"
	TypeFailure = "compile_failed"
)

// Result is the outcome of one compiler invocation.
// Implemented by *Success and *Failure only.
type Result interface {
	// Type returns the JSON discriminator of the variant.
	Type() string
	// Succeeded reports whether the variant is *Success.
	Succeeded() bool
	isResult()
}

// SuccessPayload carries the opaque artifacts of a successful build.
type SuccessPayload struct {
	Modules         []any          `msgpack:"modules"`
	PackageMetadata any            `msgpack:"package_metadata"`
	CompilerLogs    string         `msgpack:"compiler_logs"`
	Metadata        map[string]any `msgpack:"metadata"`
}

// Success is the result of a successful build.
type Success struct {
	Modules         []any
	PackageMetadata any
	CompilerLogs    string
	Metadata        map[string]any
}

func (*Success) Type() string    { return TypeSuccess }
func (*Success) Succeeded() bool { return true }
func (*Success) isResult()       {}

// Failure is the result of a failed build.
type Failure struct {
	ErrorCount int
	Errors     []diag.Record
}

// NewFailure builds a Failure whose count always matches its records.
func NewFailure(records []diag.Record) *Failure {
	if records == nil {
		records = []diag.Record{}
	}
	return &Failure{ErrorCount: len(records), Errors: records}
}

func (*Failure) Type() string    { return TypeFailure }
func (*Failure) Succeeded() bool { return false }
func (*Failure) isResult()       {}

// Diagnostics returns only the located records of the failure.
func (f *Failure) Diagnostics() []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(f.Errors))
	for _, r := range f.Errors {
		if d, ok := r.(diag.Diagnostic); ok {
			out = append(out, d)
		}
	}
	return out
}
