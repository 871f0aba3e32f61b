// Package export serializes connection records to JSON, either bare or in
// the metadata envelope, and writes them atomically to a file or a stream.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/xxh3"

	"guacmigrate/internal/connection"
)

// Indent is the per-level indentation of every written document.
const Indent = "    "

// SensitiveWarning is printed whenever an export may expose credentials.
const SensitiveWarning = "*** WARNING: This file contains sensitive data including ENCRYPTED passwords stored in the database. Store it securely and delete it after use. ***"

// ConcealedWarning is printed by the document converter when encrypted
// passwords were present in the source and had to be dropped.
const ConcealedWarning = "*** WARNING: %d connection(s) carried encrypted passwords that were not exported. Re-enter them in Guacamole after import. ***"

// Timestamp is the envelope's typed date value (unix seconds).
type Timestamp struct {
	Type  string `json:"$type"`
	Value int64  `json:"value"`
}

// Envelope wraps an export with its provenance.
type Envelope struct {
	ExportedFromDatabase  string              `json:"exported_from_database"`
	ExportTimestamp       Timestamp           `json:"export_timestamp"`
	TotalConnectionsFound int                 `json:"total_connections_found"`
	Connections           []connection.Record `json:"connections"`
}

// NewEnvelope wraps recs. source is a credential-free description of where
// the records came from, e.g. "db:5432/guacamole_db".
func NewEnvelope(source string, at time.Time, recs []connection.Record) Envelope {
	if recs == nil {
		recs = []connection.Record{}
	}
	return Envelope{
		ExportedFromDatabase:  source,
		ExportTimestamp:       Timestamp{Type: "date", Value: at.Unix()},
		TotalConnectionsFound: len(recs),
		Connections:           recs,
	}
}

// Result describes a completed write.
type Result struct {
	Path        string
	Bytes       int
	Fingerprint string
}

// Marshal renders v with four-space indentation, without HTML escaping and
// with a trailing newline. Map keys come out sorted, so equal input always
// yields identical bytes.
func Marshal(v any) ([]byte, error) {
	if recs, ok := v.([]connection.Record); ok && recs == nil {
		v = []connection.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("export: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Fingerprint returns the xxh3 digest of b as 16 hex digits.
func Fingerprint(b []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(b))
}

// Write encodes v to w.
func Write(w io.Writer, v any) (Result, error) {
	b, err := Marshal(v)
	if err != nil {
		return Result{}, err
	}
	n, err := w.Write(b)
	if err != nil {
		return Result{}, fmt.Errorf("export: write: %w", err)
	}
	return Result{Bytes: n, Fingerprint: Fingerprint(b)}, nil
}

// WriteFile encodes v into path. The document is written to a temporary file
// in the same directory and renamed into place, so path is either left
// untouched or holds the complete export.
func WriteFile(path string, v any) (Result, error) {
	b, err := Marshal(v)
	if err != nil {
		return Result{}, err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return Result{}, fmt.Errorf("export: create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		return Result{}, fmt.Errorf("export: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return Result{}, fmt.Errorf("export: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("export: close %s: %w", tmpName, err)
	}
	// Exports may hold credentials.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return Result{}, fmt.Errorf("export: chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return Result{}, fmt.Errorf("export: rename to %s: %w", path, err)
	}
	committed = true

	return Result{Path: path, Bytes: len(b), Fingerprint: Fingerprint(b)}, nil
}

// Warn prints msg on its own line to w, typically stderr.
func Warn(w io.Writer, msg string) {
	fmt.Fprintln(w, msg)
}
