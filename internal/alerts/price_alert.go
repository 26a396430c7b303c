package alerts

import "log"

// Detector defaults, overridable via config.
const (
	DefaultThresholdPercent = 20.0
	DefaultMinHistory       = 7

	// Averages below this magnitude carry no signal and would blow up
	// the percent-change division.
	zeroAverageEpsilon = 1e-10
)

// SpikeDetector decides whether a current price constitutes a spike
// against a historical window. Pure over its inputs: no I/O, no
// mutation.
type SpikeDetector struct {
	ThresholdPercent float64
	MinHistory       int
}

func NewSpikeDetector(thresholdPercent float64, minHistory int) *SpikeDetector {
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultThresholdPercent
	}
	if minHistory <= 0 {
		minHistory = DefaultMinHistory
	}
	return &SpikeDetector{ThresholdPercent: thresholdPercent, MinHistory: minHistory}
}

// Detect returns (isSpike, percentChange). With fewer than MinHistory
// observations, or a near-zero historical average, it returns
// (false, 0): insufficient evidence, not an error. The percent change
// is returned even when no spike is detected and may be negative; only
// the boolean is threshold-gated.
func (d *SpikeDetector) Detect(currentPrice float64, historicalPrices []float64) (bool, float64) {
	if len(historicalPrices) < d.MinHistory {
		return false, 0
	}

	avg := mean(historicalPrices)
	if avg < zeroAverageEpsilon && avg > -zeroAverageEpsilon {
		return false, 0
	}

	percentChange := (currentPrice - avg) / avg * 100

	if percentChange > d.ThresholdPercent {
		log.Printf("[Alerts] Price spike detected: %.2f%% increase (current %.2f vs avg %.2f)",
			percentChange, currentPrice, avg)
		return true, percentChange
	}

	return false, percentChange
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
