package alerts

import (
	"log"
	"time"

	"food-price-tracker/internal/forecast"
	"food-price-tracker/internal/models"
)

// HistoryStore is the read side of the Price Store the checker sweeps.
type HistoryStore interface {
	DistinctEntities() ([]models.NaturalKey, error)
	LatestPrice(key models.NaturalKey) (*models.PriceRecord, error)
	RecentPrices(key models.NaturalKey, since, before time.Time) ([]float64, error)
}

// CheckResult summarizes one alert sweep.
type CheckResult struct {
	Checked int `json:"checked"`
	Spikes  int `json:"spikes"`
	Sent    int `json:"sent"`
	Errors  int `json:"errors"`
}

// Checker evaluates stored prices (and forecast series) against the
// spike detector and pushes alerts through the notifier.
type Checker struct {
	detector     *SpikeDetector
	store        HistoryStore
	notifier     Notifier
	recipient    string
	lookbackDays int
}

func NewChecker(detector *SpikeDetector, store HistoryStore, notifier Notifier, recipient string, lookbackDays int) *Checker {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &Checker{
		detector:     detector,
		store:        store,
		notifier:     notifier,
		recipient:    recipient,
		lookbackDays: lookbackDays,
	}
}

// Run sweeps every entity in the store: the newest observation is the
// current price, the preceding lookback window is the history. One
// failed entity never aborts the sweep.
func (c *Checker) Run() CheckResult {
	var result CheckResult

	entities, err := c.store.DistinctEntities()
	if err != nil {
		log.Printf("[Alerts] Failed to list entities: %v", err)
		result.Errors++
		return result
	}

	for _, key := range entities {
		latest, err := c.store.LatestPrice(key)
		if err != nil {
			log.Printf("[Alerts] Failed to load latest price for %s: %v", key, err)
			result.Errors++
			continue
		}

		since := latest.ObservedAt.AddDate(0, 0, -c.lookbackDays)
		history, err := c.store.RecentPrices(key, since, latest.ObservedAt)
		if err != nil {
			log.Printf("[Alerts] Failed to load history for %s: %v", key, err)
			result.Errors++
			continue
		}

		result.Checked++
		c.evaluate(key.String(), latest.Price, history, latest.ObservedAt, &result)
	}

	log.Printf("[Alerts] Sweep done: %d checked, %d spikes, %d sent, %d errors",
		result.Checked, result.Spikes, result.Sent, result.Errors)
	return result
}

// CheckForecast evaluates each forecast point of a series against the
// entity's stored history, mirroring the sweep over live prices.
func (c *Checker) CheckForecast(series *forecast.Series, history []float64) CheckResult {
	var result CheckResult

	for _, point := range series.Points {
		result.Checked++
		c.evaluate(series.Key(), point.Yhat, history, point.DS, &result)
	}
	return result
}

func (c *Checker) evaluate(entityKey string, current float64, history []float64, asOf time.Time, result *CheckResult) {
	isSpike, percentChange := c.detector.Detect(current, history)
	if !isSpike {
		return
	}
	result.Spikes++

	event := models.SpikeEvent{
		EntityKey:         entityKey,
		CurrentPrice:      current,
		HistoricalAverage: mean(history),
		PercentChange:     percentChange,
		IsSpike:           true,
		AsOf:              asOf,
	}

	if c.notifier == nil || c.recipient == "" {
		log.Printf("[Alerts] Spike on %s (+%.2f%%) but no notifier configured", entityKey, percentChange)
		return
	}

	subject, body := FormatSpikeAlert(event)
	if err := c.notifier.Send(c.recipient, subject, body); err != nil {
		log.Printf("[Alerts] Failed to deliver alert for %s: %v", entityKey, err)
		result.Errors++
		return
	}
	result.Sent++
}
