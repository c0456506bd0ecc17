// Package ops implements the small operational side-channels every daemon
// shares: a per-service heartbeat file and the kill-switch sentinel the
// risk gate checks.
package ops

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/chidi150c/tradingstack/internal/table"
)

type heartbeat struct {
	TS time.Time `json:"ts"`
}

// Beat writes root/{service}.json with the current UTC timestamp. Called
// from every daemon's main loop.
func Beat(root, service string) error {
	data, err := json.Marshal(heartbeat{TS: time.Now().UTC()})
	if err != nil {
		return err
	}
	return table.AtomicWriteFile(filepath.Join(root, service+".json"), data, 0o644)
}

// KillSwitchPath is the sentinel file path under root that, when present,
// trips the risk gate's first check: root/RUN/HALT.
func KillSwitchPath(root string) string {
	return filepath.Join(root, "RUN", "HALT")
}

// KillSwitchActive reports whether the sentinel file exists.
func KillSwitchActive(root string) bool {
	_, err := os.Stat(KillSwitchPath(root))
	return err == nil
}
