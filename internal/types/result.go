package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Float is a float64 that serializes NaN and ±Inf as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}

	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler. null decodes to NaN.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())

		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*f = Float(v)

	return nil
}

// StatsPayload is the published form of PerformanceStats.
type StatsPayload struct {
	CAGR     Float `json:"cagr"`
	Sharpe   Float `json:"sharpe"`
	MaxDD    Float `json:"maxdd"`
	WinRate  Float `json:"winrate"`
	AvgHold  Float `json:"avg_hold"`
	Turnover Float `json:"turnover"`
}

// NewStatsPayload converts a stats record to its published form.
func NewStatsPayload(stats PerformanceStats) StatsPayload {
	return StatsPayload{
		CAGR:     Float(stats.CAGR),
		Sharpe:   Float(stats.Sharpe),
		MaxDD:    Float(stats.MaxDrawdown),
		WinRate:  Float(stats.WinRate),
		AvgHold:  Float(stats.AvgHoldingPeriod),
		Turnover: Float(stats.MonthlyTurnover),
	}
}

// Stats converts the payload back to a stats record.
func (p StatsPayload) Stats() PerformanceStats {
	return PerformanceStats{
		CAGR:             float64(p.CAGR),
		Sharpe:           float64(p.Sharpe),
		MaxDrawdown:      float64(p.MaxDD),
		WinRate:          float64(p.WinRate),
		AvgHoldingPeriod: float64(p.AvgHold),
		MonthlyTurnover:  float64(p.Turnover),
	}
}

// EquityPoint is one equity value, encoded as [epoch_millis, value].
type EquityPoint struct {
	Time  time.Time
	Value float64
}

// MarshalJSON implements json.Marshaler.
func (p EquityPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Time.UnixMilli(), Float(p.Value)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *EquityPoint) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw) != 2 {
		return fmt.Errorf("equity point must have 2 elements, got %d", len(raw))
	}

	var millis int64
	if err := json.Unmarshal(raw[0], &millis); err != nil {
		return fmt.Errorf("invalid equity timestamp: %w", err)
	}

	var value Float
	if err := json.Unmarshal(raw[1], &value); err != nil {
		return fmt.Errorf("invalid equity value: %w", err)
	}

	p.Time = time.UnixMilli(millis).UTC()
	p.Value = float64(value)

	return nil
}

// EquityCurve builds equity points for the given dates, skipping non-finite values.
func EquityCurve(dates []time.Time, equity []float64) []EquityPoint {
	points := make([]EquityPoint, 0, len(equity))

	for i := 0; i < len(dates) && i < len(equity); i++ {
		if math.IsNaN(equity[i]) || math.IsInf(equity[i], 0) {
			continue
		}

		points = append(points, EquityPoint{Time: dates[i], Value: equity[i]})
	}

	return points
}

// EquityCurveSince builds equity points dated on or after start.
func EquityCurveSince(dates []time.Time, equity []float64, start time.Time) []EquityPoint {
	first := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(start) })
	if first > len(equity) {
		first = len(equity)
	}

	return EquityCurve(dates[first:], equity[first:])
}

// HorizonResult is the published outcome of one (symbol, version, horizon) run.
type HorizonResult struct {
	Stats  StatsPayload  `json:"stats"`
	Equity []EquityPoint `json:"equity"`
}

// Results is the root of the published results document:
// symbols -> model version -> "<h>D" -> HorizonResult.
type Results struct {
	AsOf          time.Time                                      `json:"as_of"`
	EngineVersion string                                         `json:"engine_version,omitempty"`
	Symbols       map[string]map[string]map[string]HorizonResult `json:"symbols"`
}

// NewResults creates an empty document stamped with asOf, truncated to seconds.
func NewResults(asOf time.Time, engineVersion string) *Results {
	return &Results{
		AsOf:          asOf.UTC().Truncate(time.Second),
		EngineVersion: engineVersion,
		Symbols:       map[string]map[string]map[string]HorizonResult{},
	}
}

// HorizonKey formats a horizon as its published key, e.g. 21 -> "21D".
func HorizonKey(horizon int) string {
	return fmt.Sprintf("%dD", horizon)
}

// Put records a run, replacing any earlier entry for the same key.
func (r *Results) Put(symbol, modelVersion string, horizon int, result HorizonResult) {
	if r.Symbols == nil {
		r.Symbols = map[string]map[string]map[string]HorizonResult{}
	}

	versions, ok := r.Symbols[symbol]
	if !ok {
		versions = map[string]map[string]HorizonResult{}
		r.Symbols[symbol] = versions
	}

	horizons, ok := versions[modelVersion]
	if !ok {
		horizons = map[string]HorizonResult{}
		versions[modelVersion] = horizons
	}

	horizons[HorizonKey(horizon)] = result
}

// Get looks up a run.
func (r *Results) Get(symbol, modelVersion string, horizon int) (HorizonResult, bool) {
	result, ok := r.Symbols[symbol][modelVersion][HorizonKey(horizon)]

	return result, ok
}

// Merge copies every run of other into r. Entries of other win on conflict.
func (r *Results) Merge(other *Results) {
	for symbol, versions := range other.Symbols {
		for modelVersion, horizons := range versions {
			for key, result := range horizons {
				if r.Symbols == nil {
					r.Symbols = map[string]map[string]map[string]HorizonResult{}
				}

				if r.Symbols[symbol] == nil {
					r.Symbols[symbol] = map[string]map[string]HorizonResult{}
				}

				if r.Symbols[symbol][modelVersion] == nil {
					r.Symbols[symbol][modelVersion] = map[string]HorizonResult{}
				}

				r.Symbols[symbol][modelVersion][key] = result
			}
		}
	}

	if other.AsOf.After(r.AsOf) {
		r.AsOf = other.AsOf
	}
}

// SymbolNames returns the symbols present, sorted.
func (r *Results) SymbolNames() []string {
	names := make([]string, 0, len(r.Symbols))
	for symbol := range r.Symbols {
		names = append(names, symbol)
	}

	sort.Strings(names)

	return names
}
