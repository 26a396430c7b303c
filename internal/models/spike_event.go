package models

import "time"

// SpikeEvent is the result of one spike-detector evaluation. It is
// ephemeral: consumed by the notifier when IsSpike is true, otherwise
// discarded. Never persisted.
type SpikeEvent struct {
	EntityKey         string    `json:"entity_key"`
	CurrentPrice      float64   `json:"current_price"`
	HistoricalAverage float64   `json:"historical_average"`
	PercentChange     float64   `json:"percent_change"`
	IsSpike           bool      `json:"is_spike"`
	AsOf              time.Time `json:"as_of"`
}
