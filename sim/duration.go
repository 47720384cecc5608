package sim

import (
	"math"
	"math/rand"
)

// DurationSource yields durations in ticks: inter-arrival gaps or service times.
type DurationSource interface {
	// Next returns the next duration. Implementations never return a
	// negative value.
	Next() int64
}

// Distribution type names accepted by NewDurationSource.
const (
	DistUniform     = "uniform"
	DistExponential = "exponential"
	DistConstant    = "constant"
)

// DistSpec parameterizes a duration distribution.
type DistSpec struct {
	Type string  `yaml:"type" json:"type"`
	Min  int64   `yaml:"min,omitempty" json:"min,omitempty"`
	Max  int64   `yaml:"max,omitempty" json:"max,omitempty"`
	Mean float64 `yaml:"mean,omitempty" json:"mean,omitempty"`
}

// Validate checks the distribution for a source that must produce values >= floor.
// Gaps use floor 0; service times use floor 1.
func (d DistSpec) Validate(name string, floor int64) error {
	switch d.Type {
	case DistUniform, "":
		if d.Min < floor {
			return configError("%s: min must be >= %d, got %d", name, floor, d.Min)
		}
		if d.Max < d.Min {
			return configError("%s: max %d is below min %d", name, d.Max, d.Min)
		}
	case DistConstant:
		if d.Min < floor {
			return configError("%s: constant value must be >= %d, got %d", name, floor, d.Min)
		}
	case DistExponential:
		if math.IsNaN(d.Mean) || math.IsInf(d.Mean, 0) || d.Mean <= 0 {
			return configError("%s: mean must be a finite positive number, got %f", name, d.Mean)
		}
	default:
		return configError("%s: unknown distribution type %q; valid: uniform, exponential, constant", name, d.Type)
	}
	return nil
}

// NewDurationSource builds a source drawing from rng. d must already
// be valid. An empty type means uniform.
func NewDurationSource(d DistSpec, rng *rand.Rand) DurationSource {
	switch d.Type {
	case DistConstant:
		return ConstantDuration(d.Min)
	case DistExponential:
		return &ExponentialDuration{Mean: d.Mean, rng: rng}
	default:
		return &UniformDuration{Min: d.Min, Max: d.Max, rng: rng}
	}
}

// UniformDuration draws integers uniformly from [Min, Max], both inclusive.
type UniformDuration struct {
	Min, Max int64
	rng      *rand.Rand
}

// NewUniformDuration returns a uniform source over [lo, hi].
func NewUniformDuration(lo, hi int64, rng *rand.Rand) *UniformDuration {
	return &UniformDuration{Min: lo, Max: hi, rng: rng}
}

func (u *UniformDuration) Next() int64 {
	if u.Min == u.Max {
		return u.Min
	}
	return u.Min + u.rng.Int63n(u.Max-u.Min+1)
}

// ExponentialDuration draws exponentially-distributed durations with the
// given mean, rounded to whole ticks and floored at 1.
type ExponentialDuration struct {
	Mean float64
	rng  *rand.Rand
}

func (e *ExponentialDuration) Next() int64 {
	d := int64(math.Round(e.rng.ExpFloat64() * e.Mean))
	if d < 1 {
		return 1
	}
	return d
}

// ConstantDuration always returns the same duration.
type ConstantDuration int64

func (c ConstantDuration) Next() int64 {
	return int64(c)
}
