package utils

import (
	"math"
	"math/rand"
	"slices"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Float | constraints.Integer
}

func SumSlice[T Number](arr []T) (r T) {
	for i := range arr {
		r += arr[i]
	}
	return
}

func Average[T Number](s []T) (mean float64) {
	if len(s) == 0 {
		return 0
	}
	for i := range s {
		mean += float64(s[i])
	}
	mean /= float64(len(s))
	return
}

func MeanAndVariance[T Number](s []T, unbiased bool) (mean, variance float64) {
	mean = Average(s)
	if len(s) < 2 {
		return mean, 0
	}
	for i := range s {
		variance += (float64(s[i]) - mean) * (float64(s[i]) - mean)
	}
	if unbiased {
		variance /= float64(len(s) - 1)
	} else {
		variance /= float64(len(s))
	}

	return
}

func Variance[T Number](s []T, unbiased bool) float64 {
	_, v := MeanAndVariance(s, unbiased)
	return v
}

// StdError is the half-width of the 95% confidence interval of the mean of s.
func StdError[T Number](s []T, quantile float64) float64 {
	if len(s) < 2 {
		return 0
	}
	return quantile * math.Sqrt(Variance(s, true)/float64(len(s)))
}

// R samples an exponentially distributed optical depth.
func R(rng *rand.Rand) float64 {
	return -math.Log(1. - rng.Float64())
}

func UniformOnDisk(r float64, rng *rand.Rand) (a, b float64) {
	a, b = 2.*rng.Float64()-1., 2.*rng.Float64()-1.
	for a*a+b*b > 1. {
		a, b = 2.*rng.Float64()-1., 2.*rng.Float64()-1.
	}
	a *= r
	b *= r
	return
}

func Intersect(a, b []string) *string {
	for i := range a {
		if slices.Contains(b, a[i]) {
			return &a[i]
		}
	}
	return nil
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
