package forecast

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Point is one forecasted observation with uncertainty bounds, as
// produced by the external forecasting job.
type Point struct {
	DS        time.Time `json:"ds"`
	Yhat      float64   `json:"yhat"`
	YhatLower float64   `json:"yhat_lower"`
	YhatUpper float64   `json:"yhat_upper"`
}

// Series is the pre-computed forecast for one
// (admin area, market, commodity) group.
type Series struct {
	AdminID int     `json:"admin_id"`
	MktID   int     `json:"mkt_id"`
	CmID    int     `json:"cm_id"`
	Points  []Point `json:"forecast"`
}

// Key returns the composite lookup key for this series.
func (s *Series) Key() string {
	return seriesKey(s.AdminID, s.MktID, s.CmID)
}

// Tail returns the last n points (the requested horizon), clamped to
// the series length.
func (s *Series) Tail(n int) []Point {
	if n <= 0 || n > len(s.Points) {
		n = len(s.Points)
	}
	return s.Points[len(s.Points)-n:]
}

func seriesKey(adminID, mktID, cmID int) string {
	return fmt.Sprintf("%d_%d_%d", adminID, mktID, cmID)
}

// Registry holds every forecast series, loaded once at startup and
// then read-only. It is explicitly constructed and passed, never a
// package-level singleton.
type Registry struct {
	series map[string]*Series
}

// LoadRegistry scans dir for forecast_<admin>_<mkt>_<cm>.json files
// and loads each into the registry. Unreadable files are skipped with
// a logged reason; only a missing directory fails the load.
func LoadRegistry(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast dir %s: %w", dir, err)
	}

	reg := &Registry{series: make(map[string]*Series)}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var adminID, mktID, cmID int
		if n, _ := fmt.Sscanf(name, "forecast_%d_%d_%d.json", &adminID, &mktID, &cmID); n != 3 {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("[Forecast] Skipping unreadable %s: %v", name, err)
			continue
		}

		var s Series
		if err := json.Unmarshal(data, &s); err != nil {
			log.Printf("[Forecast] Skipping unparseable %s: %v", name, err)
			continue
		}
		s.AdminID, s.MktID, s.CmID = adminID, mktID, cmID

		reg.series[s.Key()] = &s
	}

	log.Printf("[Forecast] Loaded %d forecast series from %s", len(reg.series), dir)
	return reg, nil
}

// Lookup finds the series for a composite key, if one was loaded.
func (r *Registry) Lookup(adminID, mktID, cmID int) (*Series, bool) {
	s, ok := r.series[seriesKey(adminID, mktID, cmID)]
	return s, ok
}

// Len returns the number of loaded series.
func (r *Registry) Len() int {
	return len(r.series)
}

// Keys lists loaded composite keys, sorted for stable output.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
