// Package label computes the per-video trend labels and performance buckets.
package label

import (
	"math"
	"slices"
)

// Quantile returns the q-quantile of values using linear interpolation between
// the two closest ranks. values need not be sorted. An empty input returns NaN.
// View counts are converted to float64 by the caller, exact up to 2^53.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return quantileSorted(sorted, q)
}

// Quantiles returns one quantile per q over the same values.
func Quantiles(values []float64, qs []float64) []float64 {
	out := make([]float64, len(qs))
	if len(values) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	for i, q := range qs {
		out[i] = quantileSorted(sorted, q)
	}
	return out
}

func quantileSorted(sorted []float64, q float64) float64 {
	q = math.Min(math.Max(q, 0), 1)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// Bucketer maps a value to the label of the interval containing it. The first
// interval is closed on both ends, the others are (lo, hi].
type Bucketer struct {
	edges  []float64
	labels []string
}

// NewBucketer creates a Bucketer over len(labels)+1 ascending edges.
// Tied edges leave the buckets between them empty, so a value on a tied edge goes
// to the lowest label ending there.
func NewBucketer(edges []float64, labels []string) Bucketer {
	return Bucketer{edges: edges, labels: labels}
}

// Collapsed reports whether any two adjacent edges are equal.
func (b Bucketer) Collapsed() bool {
	for i := 1; i < len(b.edges); i++ {
		if b.edges[i] == b.edges[i-1] {
			return true
		}
	}
	return false
}

// Bucket returns the label for v, or "" when v is outside every interval.
func (b Bucketer) Bucket(v float64) string {
	if len(b.edges) < 2 || math.IsNaN(v) || v < b.edges[0] {
		return ""
	}
	for i, label := range b.labels {
		if v <= b.edges[i+1] {
			return label
		}
	}
	return ""
}
