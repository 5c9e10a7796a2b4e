package diag

// Record is one entry of an extracted error list.
// Implemented by Diagnostic and Fallback only.
type Record interface {
	// Text returns the human readable message of the record.
	Text() string
	isRecord()
}

// Diagnostic is a located compiler error.
type Diagnostic struct {
	Message string `json:"message"`
	File    string `json:"file"`
	Line    uint32 `json:"line"`
	Column  uint32 `json:"column"`
	// SourceLine is the trimmed offending source line, empty when the block
	// carried no context.
	SourceLine string `json:"source_line,omitempty"`
	// Code is the compiler code from "error[CODE]:". It is not part of the
	// JSON contract.
	Code string `json:"-"`
}

// Text returns the diagnostic message.
func (d Diagnostic) Text() string { return d.Message }

// HasSourceLine reports whether a source context line was captured.
func (d Diagnostic) HasSourceLine() bool { return d.SourceLine != "" }

func (Diagnostic) isRecord() {}

// Fallback carries raw diagnostic text that matched no block.
type Fallback struct {
	Message string `json:"message"`
}

// Text returns the raw message.
func (f Fallback) Text() string { return f.Message }

func (Fallback) isRecord() {}
