// Package aggregation implements the commutative, associative accumulator
// the Update phase uses to combine masked contributions componentwise,
// modulo nothing until the final unmasking step so that order of arrival
// never affects the result.
package aggregation

import (
	"errors"
	"math/big"

	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

var (
	// ErrConfigMismatch is returned when a contribution's config does not
	// match the aggregation's config.
	ErrConfigMismatch = errors.New("aggregation: config mismatch")
	// ErrSizeMismatch is returned when a contribution's length does not
	// match the aggregation's configured size.
	ErrSizeMismatch = errors.New("aggregation: size mismatch")
)

// Aggregation accumulates masked vectors of a fixed size and config. It
// validates every contribution before mutating its running sum, so a
// rejected contribution never partially applies.
type Aggregation struct {
	Config  mask.Config
	Size    int
	Partial []*big.Int
	Count   int
}

// New returns an empty accumulator for vectors of length size under config.
func New(config mask.Config, size int) *Aggregation {
	partial := make([]*big.Int, size)
	for i := range partial {
		partial[i] = big.NewInt(0)
	}
	return &Aggregation{Config: config, Size: size, Partial: partial}
}

// ValidateAggregation reports whether m can be folded into this
// accumulator without mutating any state. Callers validate a contribution
// (and run any other checks on its message) before aggregating it, so a
// rejected message never leaves the running sum partially updated.
func (a *Aggregation) ValidateAggregation(m mask.Many) error {
	if m.Config != a.Config {
		return ErrConfigMismatch
	}
	if len(m.Data) != a.Size {
		return ErrSizeMismatch
	}
	return nil
}

// Aggregate folds m into the running sum. Callers must have already called
// ValidateAggregation successfully for m; Aggregate itself performs no
// checks.
func (a *Aggregation) Aggregate(m mask.Many) {
	for i, v := range m.Data {
		a.Partial[i].Add(a.Partial[i], v)
	}
	a.Count++
}

// IntoMaskObject exposes the running sum as a Many sharing this
// accumulator's config. The values are not reduced modulo the config's
// order; the unmask phase performs that reduction once, when subtracting
// the combined mask.
func (a *Aggregation) IntoMaskObject() mask.Many {
	data := make([]*big.Int, len(a.Partial))
	for i, v := range a.Partial {
		data[i] = new(big.Int).Set(v)
	}
	return mask.NewMany(a.Config, data)
}
