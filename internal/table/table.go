// Package table implements the typed, append-only columnar table store the
// specification treats the Parquet format as a stand-in for: rows are
// appended under an advisory cross-process lock, and each append stages a
// full rewrite to a temp file followed by an atomic rename — so a reader at
// any point in time sees either the old file or the new one, never a partial
// write. Concrete Parquet encoding is out of scope (it is named as an
// external collaborator in the specification); this package gives every
// caller the same durability contract using JSON-lines on disk.
package table

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Table is an append-only store of rows of type T, identified by a single
// file path. The zero value is not usable; construct with Open.
type Table[T any] struct {
	path string
}

// Open returns a handle to the table at path. The file and its parent
// directory are created lazily on first Append.
func Open[T any](path string) *Table[T] {
	return &Table[T]{path: path}
}

// Path returns the underlying file path.
func (t *Table[T]) Path() string { return t.path }

// Append adds rows to the table under the advisory file lock, reading the
// existing rows, concatenating, and atomically replacing the file. A no-op
// (including no lock acquisition) is taken for an empty rows slice, matching
// the original atomic-writer's "union columns, write once" behavior —
// reads never observe a half-appended file because the replace is atomic.
//
// DataCorruption handling: if the existing file cannot be decoded, progress
// is preserved by treating the existing rows as empty rather than failing
// the append — the new rows are still durably written.
func (t *Table[T]) Append(rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("table: mkdir: %w", err)
	}
	lock, err := Acquire(t.path, 5*time.Second, 20*time.Millisecond)
	if err != nil {
		return fmt.Errorf("table: %w", err)
	}
	defer lock.Release()

	existing, err := t.readAllUnlocked()
	if err != nil {
		existing = nil // DataCorruption: preserve progress by writing new-only
	}
	all := append(existing, rows...)
	return atomicWriteJSONLines(t.path, all)
}

// ReadAll returns every row currently in the table, in append order. A
// missing file is not an error — it returns an empty slice.
func (t *Table[T]) ReadAll() ([]T, error) {
	return t.readAllUnlocked()
}

// WriteAll atomically replaces the table's entire contents with rows,
// discarding whatever was previously stored. Unlike Append, it performs no
// read-and-union of existing rows — for callers that recompute the full
// table themselves from a canonical source (e.g. re-aggregating bars from
// the full trade log on every flush, so a bucket whose trades straddle two
// flushes is never split across two rows).
func (t *Table[T]) WriteAll(rows []T) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("table: mkdir: %w", err)
	}
	lock, err := Acquire(t.path, 5*time.Second, 20*time.Millisecond)
	if err != nil {
		return fmt.Errorf("table: %w", err)
	}
	defer lock.Release()
	return atomicWriteJSONLines(t.path, rows)
}

func (t *Table[T]) readAllUnlocked() ([]T, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("table: open %s: %w", t.path, err)
	}
	defer f.Close()

	var rows []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return rows, fmt.Errorf("table: decode row in %s: %w", t.path, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return rows, fmt.Errorf("table: scan %s: %w", t.path, err)
	}
	return rows, nil
}

// atomicWriteJSONLines stages the full row set to "<path>.tmp<pid>" and
// swaps it into place with os.Rename, which is atomic on the same
// filesystem. This is the Go analogue of the original stage-to-temp +
// os.replace writer, and is safe to call concurrently with readers because
// a reader either opens the old inode or the new one, never a half-written
// file.
func atomicWriteJSONLines[T any](path string, rows []T) error {
	tmp := fmt.Sprintf("%s.tmp%d", path, os.Getpid())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("table: create temp: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("table: encode row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("table: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("table: close temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("table: rename into place: %w", err)
	}
	return nil
}

// AtomicWriteFile stages arbitrary bytes to a temp file and renames them
// into place, for single-writer files (runtime params, controller state)
// that don't need the full append-table machinery but still want a
// torn-write-free swap.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("table: mkdir: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp%d", path, os.Getpid())
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("table: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("table: rename into place: %w", err)
	}
	return nil
}
