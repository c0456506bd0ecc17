// Package ledger implements the append-only event ledger every daemon
// reads and execd/engined write: one typed table per day, built on
// internal/table's atomic-append primitive. No entry is ever mutated after
// it is written; ordering within a tag is by EventTS when present, else TS.
package ledger

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/chidi150c/tradingstack/internal/table"
)

// Kind enumerates the ledger entry kinds.
type Kind string

const (
	KindIntent       Kind = "INTENT"
	KindIntentShadow Kind = "INTENT_SHADOW"
	KindAck          Kind = "ACK"
	KindRej          Kind = "REJ"
	KindPartial      Kind = "PARTIAL"
	KindFill         Kind = "FILL"
	KindCancel       Kind = "CANCEL"
	KindPnlSnapshot  Kind = "PNL_SNAPSHOT"
)

// Entry is one ledger row. Fields not meaningful for a given Kind are left
// at their zero value.
type Entry struct {
	TS      time.Time `json:"ts"`
	EventTS time.Time `json:"event_ts"`
	Kind    Kind      `json:"kind"`
	Tag     string    `json:"tag"`

	Symbol string   `json:"symbol,omitempty"`
	Side   string   `json:"side,omitempty"`
	Qty    float64  `json:"qty,omitempty"`
	Limit  *float64 `json:"limit,omitempty"`

	FillQty float64 `json:"fill_qty,omitempty"`
	AvgPx   float64 `json:"avg_px,omitempty"`

	Reason string `json:"reason,omitempty"`

	ShortfallBps float64 `json:"shortfall_bps,omitempty"`
}

// sortTS returns EventTS when set, else TS — the ordering key used within
// a tag's lifetime.
func (e Entry) sortTS() time.Time {
	if !e.EventTS.IsZero() {
		return e.EventTS
	}
	return e.TS
}

// Ledger is a day-partitioned append-only store of Entry rows, one file per
// UTC calendar day under root/{YYYY-MM-DD}/ledger.tbl (shadow entries
// share the same file — the daemons distinguish them by Kind, mirroring
// spec.md's ledger being the single append target for both execd and
// engined's shadow writes).
type Ledger struct {
	root string
}

// Open returns a handle rooted at root (e.g. "<DATA_ROOT>/exec").
func Open(root string) *Ledger {
	return &Ledger{root: root}
}

func (l *Ledger) pathForDay(day time.Time) string {
	return filepath.Join(l.root, day.UTC().Format("2006-01-02"), "ledger.tbl")
}

// Append writes entries to the ledger file for the UTC day of the first
// entry's sort timestamp. Callers are expected to batch entries from the
// same day; splitting across a day boundary is the caller's responsibility.
func (l *Ledger) Append(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	day := entries[0].sortTS()
	tbl := table.Open[Entry](l.pathForDay(day))
	if err := tbl.Append(entries); err != nil {
		return fmt.Errorf("ledger: append: %w", err)
	}
	return nil
}

// ReadDay returns every entry recorded for the given UTC day, in file
// order (which is append order, not necessarily event_ts order — callers
// needing chronological order should sort on sortTS/EventTS themselves).
func (l *Ledger) ReadDay(day time.Time) ([]Entry, error) {
	tbl := table.Open[Entry](l.pathForDay(day))
	rows, err := tbl.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ledger: read day: %w", err)
	}
	return rows, nil
}

// HasTag reports whether any entry for tag already exists in the given
// day's ledger — used by execd's idempotency re-check across restarts
// after it reserves an intent and before it processes it a second time.
func (l *Ledger) HasTag(day time.Time, tag string) (bool, error) {
	rows, err := l.ReadDay(day)
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if r.Tag == tag {
			return true, nil
		}
	}
	return false, nil
}
