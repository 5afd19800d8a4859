// Package physics defines the forward-operator contracts shared by all
// measurement models, together with generic diagnostics: power-iteration
// spectral norm estimation, adjointness probes and numeric adjoint
// construction.
package physics

import "github.com/jvlmdr/go-cv/rimg64"

// Operator maps an image-space signal to a measurement vector.
// Operators are constructed once and are read-only afterwards, so they
// are safe for concurrent use.
type Operator interface {
	// Forward applies the measurement map A.
	Forward(x *rimg64.Multi) []float64
	// ImageShape reports the signal dimensions.
	// A zero width or height means the shape has not been resolved yet.
	ImageShape() (width, height, channels int)
}

// LinearOperator is an Operator with an exact adjoint, satisfying
// <v, A u> == <A* v, u> for all u, v.
type LinearOperator interface {
	Operator
	// Adjoint applies A*.
	Adjoint(y []float64) (*rimg64.Multi, error)
}

// PseudoInverter is implemented by operators which know a better
// pseudo-inverse than their adjoint.
type PseudoInverter interface {
	// PseudoInv applies A†.
	PseudoInv(y []float64) (*rimg64.Multi, error)
}

// PseudoInv applies the pseudo-inverse of op to y.
// Operators without an explicit pseudo-inverse fall back to the adjoint.
func PseudoInv(op LinearOperator, y []float64) (*rimg64.Multi, error) {
	if p, ok := op.(PseudoInverter); ok {
		return p.PseudoInv(y)
	}
	return op.Adjoint(y)
}
