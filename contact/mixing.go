package contact

import "math"

// MixFriction is the geometric mean: a frictionless surface slides on anything
func MixFriction(frictionA, frictionB float64) float64 {
	return math.Sqrt(frictionA * frictionB)
}

// MixRestitution keeps the bouncier of the two materials
func MixRestitution(restitutionA, restitutionB float64) float64 {
	return math.Max(restitutionA, restitutionB)
}
