// Package stats summarises the observation log per incubation day.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// DayStats holds the temperature and humidity summary for one day in cycle.
type DayStats struct {
	Day             int     `json:"day_in_cycle"`
	Samples         int     `json:"samples"`
	AvgTemperatureF float64 `json:"avg_temperature_f"`
	StdTemperatureF float64 `json:"std_temperature_f"`
	AvgHumidityPct  float64 `json:"avg_humidity_pct"`
	StdHumidityPct  float64 `json:"std_humidity_pct"`
}

// ByDay groups observations by day in cycle and returns the mean and
// population standard deviation of each, rounded to two places, newest day first.
func ByDay(obs []logic.Observation) []DayStats {
	temps := make(map[int][]float64)
	hums := make(map[int][]float64)
	for _, o := range obs {
		temps[o.DayInCycle] = append(temps[o.DayInCycle], o.TemperatureF)
		hums[o.DayInCycle] = append(hums[o.DayInCycle], o.HumidityPct)
	}

	out := make([]DayStats, 0, len(temps))
	for day, t := range temps {
		h := hums[day]
		tMean, tStd := meanPopStd(t)
		hMean, hStd := meanPopStd(h)
		out = append(out, DayStats{
			Day:             day,
			Samples:         len(t),
			AvgTemperatureF: round2(tMean),
			StdTemperatureF: round2(tStd),
			AvgHumidityPct:  round2(hMean),
			StdHumidityPct:  round2(hStd),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}

// meanPopStd returns the mean and population (not sample) standard deviation.
func meanPopStd(x []float64) (mean, std float64) {
	mean, variance := stat.PopMeanVariance(x, nil)
	return mean, math.Sqrt(variance)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
