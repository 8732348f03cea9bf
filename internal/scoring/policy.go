// Package scoring holds the reward policy applied after each first correct
// solve. Policies are pure: no I/O, deterministic, non-increasing output.
package scoring

import "math"

// Policy computes the next point value of a question after a correct solve.
type Policy interface {
	Decay(points int) int
}

// Multiplicative reduces points to floor(points * Factor), optionally
// clamped at Floor. Factor 0.95 with no floor is the competition default.
type Multiplicative struct {
	Factor float64
	Floor  int
}

// NewMultiplicative builds the policy, falling back to the default factor
// when the config leaves it zero.
func NewMultiplicative(factor float64, floor int) Multiplicative {
	if factor <= 0 {
		factor = DefaultFactor
	}
	return Multiplicative{Factor: factor, Floor: floor}
}

// DefaultFactor matches the 5% decay per solve the platform launched with.
const DefaultFactor = 0.95

func (m Multiplicative) Decay(points int) int {
	next := int(math.Floor(float64(points) * m.Factor))
	if next < m.Floor {
		next = m.Floor
	}
	// A misconfigured factor above 1.0 must not inflate points.
	if next > points {
		next = points
	}
	return next
}
