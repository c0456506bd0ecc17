// Package params implements the runtime parameter file: the controller's
// sole write target and engined's hot-reloaded read input.
package params

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chidi150c/tradingstack/internal/table"
)

// RuntimeParams is the JSON shape persisted to runtime_{symbol}.json.
type RuntimeParams struct {
	Symbol             string    `json:"symbol"`
	SignalThresholdBps float64   `json:"signal_threshold_bps"`
	RiskMultiplier     float64   `json:"risk_multiplier"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Load reads path, creating it with default values (threshold 0.5,
// multiplier 1.0) if it does not yet exist.
func Load(path, symbol string) (RuntimeParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			rp := RuntimeParams{Symbol: symbol, SignalThresholdBps: 0.5, RiskMultiplier: 1.0, UpdatedAt: time.Now().UTC()}
			if saveErr := rp.Save(path); saveErr != nil {
				return RuntimeParams{}, saveErr
			}
			return rp, nil
		}
		return RuntimeParams{}, fmt.Errorf("params: read: %w", err)
	}
	var rp RuntimeParams
	if err := json.Unmarshal(data, &rp); err != nil {
		return RuntimeParams{}, fmt.Errorf("params: decode: %w", err)
	}
	return rp, nil
}

// LoadOrLastGood reads path and returns the previous value unchanged on
// any read/decode failure — "any read failure is treated as no change" per
// the specification's reader policy for the params file.
func LoadOrLastGood(path string, previous RuntimeParams) RuntimeParams {
	data, err := os.ReadFile(path)
	if err != nil {
		return previous
	}
	var rp RuntimeParams
	if err := json.Unmarshal(data, &rp); err != nil {
		return previous
	}
	return rp
}

// Save stamps UpdatedAt and atomically writes the file.
func (rp *RuntimeParams) Save(path string) error {
	rp.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(rp, "", "  ")
	if err != nil {
		return fmt.Errorf("params: encode: %w", err)
	}
	if err := table.AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("params: save: %w", err)
	}
	return nil
}
