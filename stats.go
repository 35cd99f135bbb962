package adcd

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// percentileWidth reports the spread between the p-th and (100-p)-th
// percentile values of data, giving an idea of the concentration of a
// reading set. Valid percentiles are 10 through 90; anything else, or an
// empty input, yields 0. The data slice is sorted in place.
//
// Both indices are computed from the bottom of the sorted data and clamped
// to the last element without swapping, so p and 100-p address the same pair
// of elements in opposite order: percentileWidth(d, 60) is the negation of
// percentileWidth(d, 40). Callers use 30 and 60 to get two differently
// signed central-spread widths.
func percentileWidth(data []int, percentile int) int {
	if percentile < 10 || percentile > 90 {
		return 0
	}
	if len(data) == 0 {
		return 0
	}

	sort.Ints(data)

	n := len(data)
	percDecimal := float64(percentile) / 100.0

	lowerIndex := int(float64(n-1) * percDecimal)
	upperIndex := int(float64(n-1) * (1.0 - percDecimal))

	if lowerIndex > n-1 {
		lowerIndex = n - 1
	}
	if upperIndex > n-1 {
		upperIndex = n - 1
	}

	return data[upperIndex] - data[lowerIndex]
}

// SampleSummary condenses a capture's calibrated samples.
type SampleSummary struct {
	NSamples int
	MeanMV   float64
	StdMV    float64
	MedianMV float64
	MinMV    int
	MaxMV    int
}

// Summarize computes summary statistics over a calibrated sample vector. A
// nil or empty vector yields a zero summary.
func Summarize(voltages []int) SampleSummary {
	var s SampleSummary
	s.NSamples = len(voltages)
	if s.NSamples == 0 {
		return s
	}

	fv := make([]float64, len(voltages))
	s.MinMV = voltages[0]
	s.MaxMV = voltages[0]
	for i, v := range voltages {
		fv[i] = float64(v)
		if v < s.MinMV {
			s.MinMV = v
		}
		if v > s.MaxMV {
			s.MaxMV = v
		}
	}
	s.MeanMV = stat.Mean(fv, nil)
	if s.NSamples > 1 {
		s.StdMV = stat.StdDev(fv, nil)
	}
	sort.Float64s(fv)
	s.MedianMV = stat.Quantile(0.5, stat.Empirical, fv, nil)
	return s
}
