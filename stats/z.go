package stats

import "gonum.org/v1/gonum/stat/distuv"

// ZVal returns the two-tailed Z-value for a confidence interval given in
// percent, e.g. 95.
func ZVal(confidence float64) float64 {
	std := distuv.Normal{Mu: 0, Sigma: 1}
	return std.Quantile((1 + confidence/100) / 2)
}
