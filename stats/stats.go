package stats

import "math"

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Statistic accumulates a running mean and variance of benchmark samples
// (search times, node counts) without keeping the samples.
type Statistic struct {
	n    int
	last float64
	min  float64
	max  float64

	// Welford's algorithm:
	mean float64
	m2   float64
}

func (s *Statistic) Push(val float64) {
	s.last = val
	s.n++
	if s.n == 1 {
		s.mean = val
		s.m2 = 0
		s.min, s.max = val, val
		return
	}
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
	s.min = math.Min(s.min, val)
	s.max = math.Max(s.max, val)
}

// Merge folds o into s, as if every sample pushed to o had been pushed
// to s. Benchmark workers each keep their own Statistic.
func (s *Statistic) Merge(o *Statistic) {
	if o.n == 0 {
		return
	}
	if s.n == 0 {
		*s = *o
		return
	}
	n := s.n + o.n
	delta := o.mean - s.mean
	s.m2 += o.m2 + delta*delta*float64(s.n)*float64(o.n)/float64(n)
	s.mean += delta * float64(o.n) / float64(n)
	s.min = math.Min(s.min, o.min)
	s.max = math.Max(s.max, o.max)
	s.last = o.last
	s.n = n
}

func (s *Statistic) Mean() float64 {
	if s.n > 0 {
		return s.mean
	}
	return 0.0
}

func (s *Statistic) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

func (s *Statistic) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *Statistic) Last() float64 { return s.last }
func (s *Statistic) Min() float64  { return s.min }
func (s *Statistic) Max() float64  { return s.max }

// StandardError returns the standard error of the mean.
func (s *Statistic) StandardError() float64 {
	if s.n == 0 {
		return 0.0
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

func (s *Statistic) Iterations() int {
	return s.n
}

// Summary is a serializable snapshot of a Statistic.
type Summary struct {
	N      int     `yaml:"n" json:"n"`
	Mean   float64 `yaml:"mean" json:"mean"`
	Stdev  float64 `yaml:"stdev" json:"stdev"`
	Min    float64 `yaml:"min" json:"min"`
	Max    float64 `yaml:"max" json:"max"`
	CILow  float64 `yaml:"ci_low" json:"ci_low"`
	CIHigh float64 `yaml:"ci_high" json:"ci_high"`
}

// Summarize reports s with a confidence interval on the mean at the given
// percentage (e.g. 95).
func (s *Statistic) Summarize(confidence float64) Summary {
	half := ZVal(confidence) * s.StandardError()
	return Summary{
		N:      s.n,
		Mean:   s.Mean(),
		Stdev:  s.Stdev(),
		Min:    s.min,
		Max:    s.max,
		CILow:  s.Mean() - half,
		CIHigh: s.Mean() + half,
	}
}
