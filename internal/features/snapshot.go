package features

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/abhisek/heartrisk/internal/schema"
)

// SnapshotFileName is the download name of an exported record.
const SnapshotFileName = "input.json"

//go:embed record.schema.json
var recordSchema []byte

// MarshalSnapshot encodes rec as the JSON object offered for download.
func MarshalSnapshot(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

// WriteSnapshot writes rec as a JSON object to w.
func WriteSnapshot(w io.Writer, rec Record) error {
	b, err := MarshalSnapshot(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// ReadSnapshot parses an exported record. Besides the bare object it accepts
// a one-element array, which is how record-oriented dataframe exports look.
func ReadSnapshot(r io.Reader) (Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Record{}, fmt.Errorf("read snapshot: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	if len(raw) > 0 && raw[0] == '[' {
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return Record{}, fmt.Errorf("parse snapshot: %w", err)
		}
		if len(rows) != 1 {
			return Record{}, fmt.Errorf("snapshot holds %d records, want 1", len(rows))
		}
		raw = rows[0]
	}

	if err := schema.Validate("feature-record", recordSchema, raw); err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return rec, nil
}
