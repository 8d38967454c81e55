// Package output implements the canonical JSON shapes and formatting
// modes from spec.md section 4.13 (C13). It is the CLI counterpart of
// the teacher's pkg/common/responses.go: one place that knows how a
// result becomes bytes on stdout, kept separate from every primitive's
// business logic.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// Format enumerates the --format values from spec.md section 6.
type Format string

const (
	FormatJSON      Format = "json"
	FormatJSONLines Format = "json-lines"
	FormatValue     Format = "value"
	FormatTable     Format = "table"
)

// Record is the canonical shape every primitive returns: a map so each
// primitive controls its own field set (spec.md section 6's "Example
// shapes, non-exhaustive"), plus an optional designated "primary" field
// used by --format value.
type Record map[string]any

// Writer renders Records to an io.Writer according to the selected
// Format. table rendering uses text/tabwriter from the standard
// library — no library in the retrieval pack does ad hoc CLI table
// layout, and a single aligned-column writer is exactly what
// text/tabwriter is for; see DESIGN.md.
type Writer struct {
	out    io.Writer
	format Format
}

func New(out io.Writer, format Format) *Writer {
	return &Writer{out: out, format: format}
}

// PrimaryField names, per primitive, which key --format value should
// print bare (e.g. "value" for kv/get, counter/inc; "receipt" for
// queue/pop would be unusual — primitives choose their own primary key
// when they call WriteOne).
func (w *Writer) WriteOne(rec Record, primaryField string) error {
	switch w.format {
	case FormatValue:
		v, ok := rec[primaryField]
		if !ok {
			return fmt.Errorf("format value: record has no field %q", primaryField)
		}
		fmt.Fprintln(w.out, scalarString(v))
		return nil
	case FormatTable:
		return w.writeTable([]Record{rec})
	default:
		enc := json.NewEncoder(w.out)
		return enc.Encode(rec)
	}
}

// WriteMany renders a slice of Records for enumerating operations
// (list, smembers, lrange, peek, list-versions).
func (w *Writer) WriteMany(recs []Record, primaryField string) error {
	switch w.format {
	case FormatJSONLines:
		enc := json.NewEncoder(w.out)
		for _, r := range recs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case FormatValue:
		for _, r := range recs {
			v, ok := r[primaryField]
			if !ok {
				continue
			}
			fmt.Fprintln(w.out, scalarString(v))
		}
		return nil
	case FormatTable:
		return w.writeTable(recs)
	default:
		enc := json.NewEncoder(w.out)
		return enc.Encode(Record{"items": recs, "count": len(recs)})
	}
}

func (w *Writer) writeTable(recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	cols := orderedKeys(recs[0])
	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, r := range recs {
		for i, c := range cols {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, scalarString(r[c]))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func orderedKeys(r Record) []string {
	// Deterministic, human-friendly column order: well-known keys first,
	// then whatever else the record carries, alphabetically.
	preferred := []string{"key", "queue", "lock", "name", "value", "body", "receipt", "owner", "type", "ttl", "createdAt", "updatedAt"}
	seen := make(map[string]bool, len(r))
	var keys []string
	for _, k := range preferred {
		if _, ok := r[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range r {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
