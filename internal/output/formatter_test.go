package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteOneJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatJSON)
	if err := w.WriteOne(Record{"key": "session-1", "value": "abc"}, "value"); err != nil {
		t.Fatalf("WriteOne returned error: %v", err)
	}

	var decoded Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output was not valid JSON: %v (%q)", err, buf.String())
	}
	if decoded["value"] != "abc" {
		t.Fatalf("decoded value = %v, want %q", decoded["value"], "abc")
	}
}

func TestWriteOneValueFormat(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatValue)
	if err := w.WriteOne(Record{"value": "abc"}, "value"); err != nil {
		t.Fatalf("WriteOne returned error: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "abc" {
		t.Fatalf("WriteOne(value format) = %q, want %q", got, "abc")
	}
}

func TestWriteOneValueFormatMissingField(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatValue)
	err := w.WriteOne(Record{"value": "abc"}, "missing")
	if err == nil {
		t.Fatal("expected an error when the primary field is absent")
	}
}

func TestWriteManyJSONWrapsItemsAndCount(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatJSON)
	recs := []Record{{"value": "a"}, {"value": "b"}}
	if err := w.WriteMany(recs, "value"); err != nil {
		t.Fatalf("WriteMany returned error: %v", err)
	}

	var decoded struct {
		Items []Record `json:"items"`
		Count int      `json:"count"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output was not valid JSON: %v", err)
	}
	if decoded.Count != 2 || len(decoded.Items) != 2 {
		t.Fatalf("decoded = %+v, want count=2 and 2 items", decoded)
	}
}

func TestWriteManyJSONLinesEmitsOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatJSONLines)
	recs := []Record{{"value": "a"}, {"value": "b"}}
	if err := w.WriteMany(recs, "value"); err != nil {
		t.Fatalf("WriteMany returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %q was not a standalone JSON object: %v", line, err)
		}
	}
}

func TestWriteManyValueFormatSkipsMissingField(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatValue)
	recs := []Record{{"value": "a"}, {"other": "b"}, {"value": "c"}}
	if err := w.WriteMany(recs, "value"); err != nil {
		t.Fatalf("WriteMany returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "c" {
		t.Fatalf("expected [a c], got %v", lines)
	}
}

func TestWriteTableRendersHeaderAndAlignedColumns(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatTable)
	recs := []Record{
		{"name": "queue-a", "value": int64(3)},
		{"name": "queue-b", "value": int64(12)},
	}
	if err := w.WriteMany(recs, "value"); err != nil {
		t.Fatalf("WriteMany returned error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected a header row plus two data rows, got %d lines: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "name") || !strings.Contains(lines[0], "value") {
		t.Fatalf("header row %q missing expected columns", lines[0])
	}
	if !strings.Contains(lines[1], "queue-a") || !strings.Contains(lines[2], "queue-b") {
		t.Fatalf("data rows did not preserve record order: %v", lines[1:])
	}
}

func TestWriteTableEmptyIsNoOp(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatTable)
	if err := w.WriteMany(nil, "value"); err != nil {
		t.Fatalf("WriteMany returned error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for an empty record slice, got %q", buf.String())
	}
}

func TestScalarStringHandlesNilAndComposites(t *testing.T) {
	if got := scalarString(nil); got != "" {
		t.Fatalf("scalarString(nil) = %q, want empty string", got)
	}
	if got := scalarString("abc"); got != "abc" {
		t.Fatalf("scalarString(string) = %q, want %q", got, "abc")
	}
	if got := scalarString(map[string]any{"a": 1}); got != `{"a":1}` {
		t.Fatalf("scalarString(map) = %q, want %q", got, `{"a":1}`)
	}
}
