package diagfmt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"moveforge/internal/diag"
	"moveforge/internal/result"
)

// Short writes one line per record, grep-friendly:
//
//	<path>:<line>:<col>: <message>
//	error: <message>
//
// A success prints "ok: N modules".
func Short(w io.Writer, res result.Result, opts PrettyOpts) error {
	switch r := res.(type) {
	case *result.Success:
		_, err := fmt.Fprintf(w, "ok: %s\n", plural(len(r.Modules), "module"))
		return err
	case *result.Failure:
		records := make([]diag.Record, len(r.Errors))
		for i, rec := range r.Errors {
			if d, ok := rec.(diag.Diagnostic); ok {
				d.File = opts.displayPath(d.File)
				if !opts.ShowCodes {
					d.Code = ""
				}
				rec = d
			}
			records[i] = rec
		}
		out := diag.FormatShort(records) + "\n"
		if len(records) == 0 {
			out = "error: compilation failed without diagnostics\n"
		}
		_, err := io.WriteString(w, out)
		return err
	default:
		return errors.New("diagfmt: nil result")
	}
}

// JSON writes res with the frontend JSON shape.
func JSON(w io.Writer, res result.Result, indent bool) error {
	ind := ""
	if indent {
		ind = "  "
	}
	return result.Encode(w, res, ind)
}

// FileEntry is one line of batch JSON output.
type FileEntry struct {
	File   string          `json:"file"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// JSONLine writes a single NDJSON entry for file. Exactly one of res and
// fileErr should be set.
func JSONLine(w io.Writer, file string, res result.Result, fileErr error) error {
	entry := FileEntry{File: file}
	switch {
	case fileErr != nil:
		entry.Error = fileErr.Error()
	case res != nil:
		data, err := result.Marshal(res)
		if err != nil {
			return err
		}
		entry.Result = data
	default:
		return errors.New("diagfmt: nil result")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(entry)
}
