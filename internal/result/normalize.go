package result

import "moveforge/internal/diag"

// Normalize turns one compiler outcome into a Result.
//
// On success the payload is copied as is; a nil payload or nil fields give
// empty modules, empty metadata, empty logs and null package metadata. The
// extractor is not consulted. On failure rawErrorText is handed to
// diag.Extract and the records are embedded in a Failure. Normalize is
// total: it never panics and never returns nil.
func Normalize(success bool, payload *SuccessPayload, rawErrorText string) Result {
	if success {
		return newSuccess(payload)
	}
	return NewFailure(diag.Extract(rawErrorText))
}

func newSuccess(payload *SuccessPayload) *Success {
	s := &Success{
		Modules:  []any{},
		Metadata: map[string]any{},
	}
	if payload == nil {
		return s
	}
	if payload.Modules != nil {
		s.Modules = payload.Modules
	}
	if payload.Metadata != nil {
		s.Metadata = payload.Metadata
	}
	s.PackageMetadata = payload.PackageMetadata
	s.CompilerLogs = payload.CompilerLogs
	return s
}
