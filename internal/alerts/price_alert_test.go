package alerts

import (
	"math"
	"testing"
)

func TestDetectSpikeAboveThreshold(t *testing.T) {
	d := NewSpikeDetector(20, 7)
	history := []float64{100, 105, 95, 110, 100, 98, 102}

	isSpike, pc := d.Detect(150, history)
	if !isSpike {
		t.Fatalf("expected spike for current=150 against avg ~101.43")
	}
	if pc < 40 {
		t.Fatalf("expected percent change above 40, got %.2f", pc)
	}
}

func TestDetectBelowThresholdStillReportsChange(t *testing.T) {
	d := NewSpikeDetector(20, 7)
	history := []float64{100, 105, 95, 110, 100, 98, 102}

	isSpike, pc := d.Detect(115, history)
	if isSpike {
		t.Fatalf("expected no spike for current=115, got spike with %.2f%%", pc)
	}
	if pc <= 10 || pc >= 20 {
		t.Fatalf("expected percent change between 10 and 20, got %.2f", pc)
	}
}

func TestDetectNegativeChange(t *testing.T) {
	d := NewSpikeDetector(20, 7)
	history := []float64{100, 100, 100, 100, 100, 100, 100}

	isSpike, pc := d.Detect(80, history)
	if isSpike {
		t.Fatalf("expected no spike on a price drop")
	}
	if math.Abs(pc+20) > 1e-9 {
		t.Fatalf("expected -20%% change, got %.4f", pc)
	}
}

func TestDetectInsufficientHistory(t *testing.T) {
	d := NewSpikeDetector(20, 7)

	isSpike, pc := d.Detect(500, []float64{100, 100, 100})
	if isSpike || pc != 0 {
		t.Fatalf("expected (false, 0) for short history, got (%v, %v)", isSpike, pc)
	}

	isSpike, pc = d.Detect(500, nil)
	if isSpike || pc != 0 {
		t.Fatalf("expected (false, 0) for empty history, got (%v, %v)", isSpike, pc)
	}
}

func TestDetectZeroAverage(t *testing.T) {
	d := NewSpikeDetector(20, 7)
	history := []float64{0, 0, 0, 0, 0, 0, 0}

	isSpike, pc := d.Detect(100, history)
	if isSpike || pc != 0 {
		t.Fatalf("expected (false, 0) for zero-average history, got (%v, %v)", isSpike, pc)
	}
}

func TestDetectExactThresholdIsNotSpike(t *testing.T) {
	d := NewSpikeDetector(20, 7)
	history := []float64{100, 100, 100, 100, 100, 100, 100}

	isSpike, pc := d.Detect(120, history)
	if isSpike {
		t.Fatalf("change equal to the threshold must not fire, got spike with %.4f%%", pc)
	}
}

func TestNewSpikeDetectorDefaults(t *testing.T) {
	d := NewSpikeDetector(0, 0)
	if d.ThresholdPercent != DefaultThresholdPercent {
		t.Fatalf("expected default threshold %v, got %v", DefaultThresholdPercent, d.ThresholdPercent)
	}
	if d.MinHistory != DefaultMinHistory {
		t.Fatalf("expected default min history %v, got %v", DefaultMinHistory, d.MinHistory)
	}
}
