package metrics

import (
	"math"

	"github.com/guregu/null/v6"
)

// Arithmetic on nullable values: any null operand yields null

func sub(a, b null.Float) null.Float {
	if !a.Valid || !b.Valid {
		return null.Float{}
	}
	return null.FloatFrom(a.Float64 - b.Float64)
}

func mul(a, b null.Float) null.Float {
	if !a.Valid || !b.Valid {
		return null.Float{}
	}
	return null.FloatFrom(a.Float64 * b.Float64)
}

// div returns null on a zero divisor
func div(a, b null.Float) null.Float {
	if !a.Valid || !b.Valid || b.Float64 == 0 {
		return null.Float{}
	}
	return finite(a.Float64 / b.Float64)
}

func neg(a null.Float) null.Float {
	if !a.Valid {
		return a
	}
	return null.FloatFrom(-a.Float64)
}

func scale(a null.Float, factor float64) null.Float {
	if !a.Valid {
		return a
	}
	return null.FloatFrom(a.Float64 * factor)
}

func finite(v float64) null.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// pctChange is the simple return against the previous element
func pctChange(values []null.Float) []null.Float {
	out := make([]null.Float, len(values))
	for i := 1; i < len(values); i++ {
		out[i] = sub(div(values[i], values[i-1]), null.FloatFrom(1))
	}
	return out
}

// rollingMean averages the defined values of a trailing window.
// At least one defined value is required for a result.
func rollingMean(values []null.Float, window int) []null.Float {
	out := make([]null.Float, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		sum, n := 0.0, 0
		for _, v := range values[start : i+1] {
			if v.Valid {
				sum += v.Float64
				n++
			}
		}
		if n > 0 {
			out[i] = null.FloatFrom(sum / float64(n))
		}
	}
	return out
}

// Window aggregates

func last(values []null.Float) null.Float {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i].Valid {
			return values[i]
		}
	}
	return null.Float{}
}

func first(values []null.Float) null.Float {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return null.Float{}
}

func sum(values []null.Float) null.Float {
	total, n := 0.0, 0
	for _, v := range values {
		if v.Valid {
			total += v.Float64
			n++
		}
	}
	if n == 0 {
		return null.Float{}
	}
	return null.FloatFrom(total)
}

// compound returns prod(1+r) - 1 over the defined returns
func compound(returns []null.Float) null.Float {
	growth, n := 1.0, 0
	for _, r := range returns {
		if r.Valid {
			growth *= 1 + r.Float64
			n++
		}
	}
	if n == 0 {
		return null.Float{}
	}
	return null.FloatFrom(growth - 1)
}

// change is the most recent defined value minus the oldest one
func change(values []null.Float) null.Float {
	return sub(last(values), first(values))
}
