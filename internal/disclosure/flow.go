package disclosure

import (
	"github.com/wonny/shorttracker/internal/contracts"
)

// FlowBounds derives a conservative bound on the day-over-day change of a
// reindexed series. The result is NOT the true flow:
//
//   - both days defined: the plain difference (exact)
//   - appearance at v >= threshold after an undefined day (or on the first
//     day): v - threshold, the least the position can have grown by
//   - disappearance after p >= threshold: -(p - threshold), the least it can
//     have fallen by
//   - anything else: 0
//
// Reindex alone never produces a disappearance, since it carries any value
// at or above threshold forward. The case arises from ReindexSnapshots, when a
// fund drops off the current sheet, and from series built by other means.
func FlowBounds(series []contracts.SeriesPoint, threshold float64) []contracts.FlowPoint {
	out := make([]contracts.FlowPoint, len(series))
	for i, p := range series {
		out[i].Date = p.Date

		var prev contracts.SeriesPoint
		if i > 0 {
			prev = series[i-1]
		}

		switch {
		case p.Value.Valid && prev.Value.Valid:
			out[i].Bound = p.Value.Float64 - prev.Value.Float64
		case p.Value.Valid && p.Value.Float64 >= threshold:
			out[i].Bound = p.Value.Float64 - threshold
		case !p.Value.Valid && prev.Value.Valid && prev.Value.Float64 >= threshold:
			out[i].Bound = -(prev.Value.Float64 - threshold)
		}
	}
	return out
}

// SumBounds adds up the bounds of a flow series
func SumBounds(flows []contracts.FlowPoint) float64 {
	total := 0.0
	for _, f := range flows {
		total += f.Bound
	}
	return total
}
