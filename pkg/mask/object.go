package mask

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidMaskObject is returned when a mask object's elements do not
// satisfy their config's invariant (every element in [0, order)).
var ErrInvalidMaskObject = errors.New("mask: object element out of range for its config")

// Many is a masked vector, typically a masked model.
type Many struct {
	Config Config
	Data   []*big.Int
}

// NewMany builds a Many without checking the data against the config. Use
// NewManyChecked when the data originates outside this process.
func NewMany(config Config, data []*big.Int) Many {
	return Many{Config: config, Data: data}
}

// NewManyChecked builds a Many and validates every element is in [0, order).
func NewManyChecked(config Config, data []*big.Int) (Many, error) {
	m := NewMany(config, data)
	if !m.IsValid() {
		return Many{}, ErrInvalidMaskObject
	}
	return m, nil
}

// EmptyMany returns a zero vector of the given size under config.
func EmptyMany(config Config, size int) Many {
	data := make([]*big.Int, size)
	for i := range data {
		data[i] = big.NewInt(0)
	}
	return Many{Config: config, Data: data}
}

// IsValid reports whether every element is within [0, order) for its config.
func (m Many) IsValid() bool {
	order := m.Config.Order()
	for _, v := range m.Data {
		if v == nil || v.Sign() < 0 || v.Cmp(order) >= 0 {
			return false
		}
	}
	return true
}

// Key returns a canonical string uniquely identifying this vector's config
// and contents, suitable for use as a map key.
func (m Many) Key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:%d:%d:%d|", m.Config.Group, m.Config.Data, m.Config.Bound, len(m.Data))
	for _, v := range m.Data {
		sb.WriteString(v.Text(16))
		sb.WriteByte(',')
	}
	return sb.String()
}

// One is a masked scalar, typically a masked scale factor.
type One struct {
	Config Config
	Data   *big.Int
}

// NewOne builds a One without checking data against config.
func NewOne(config Config, data *big.Int) One {
	return One{Config: config, Data: data}
}

// NewOneChecked builds a One and validates data is in [0, order).
func NewOneChecked(config Config, data *big.Int) (One, error) {
	o := NewOne(config, data)
	if !o.IsValid() {
		return One{}, ErrInvalidMaskObject
	}
	return o, nil
}

// EmptyOne returns the scalar 1 under config; 0 would trivially mask nothing
// multiplicatively, so the neutral placeholder used throughout is 1.
func EmptyOne(config Config) One {
	return One{Config: config, Data: big.NewInt(1)}
}

// IsValid reports whether the scalar is within [0, order).
func (o One) IsValid() bool {
	if o.Data == nil {
		return false
	}
	order := o.Config.Order()
	return o.Data.Sign() >= 0 && o.Data.Cmp(order) < 0
}

// ManyFromOne lifts a scalar into a length-1 vector sharing its config, so
// scalar masks can be pushed through the same aggregation machinery used
// for vectors.
func ManyFromOne(o One) Many {
	return Many{Config: o.Config, Data: []*big.Int{o.Data}}
}

// Object pairs a masked model with the masked scale factor used to produce
// it. Sum2 participants submit one Object; the coordinator keys its mask
// dictionary on Object equality (same config, same vector, same scalar).
type Object struct {
	Vector Many
	Scalar One
}

// NewObject builds an Object without checking its parts.
func NewObject(vector Many, scalar One) Object {
	return Object{Vector: vector, Scalar: scalar}
}

// NewObjectChecked builds an Object, validating both parts.
func NewObjectChecked(vectorConfig Config, vectorData []*big.Int, scalarConfig Config, scalarData *big.Int) (Object, error) {
	v, err := NewManyChecked(vectorConfig, vectorData)
	if err != nil {
		return Object{}, err
	}
	s, err := NewOneChecked(scalarConfig, scalarData)
	if err != nil {
		return Object{}, err
	}
	return Object{Vector: v, Scalar: s}, nil
}

// EmptyObject returns the neutral Object for the given configs and vector size.
func EmptyObject(vectorConfig, scalarConfig Config, size int) Object {
	return Object{Vector: EmptyMany(vectorConfig, size), Scalar: EmptyOne(scalarConfig)}
}

// IsValid reports whether both the vector and the scalar satisfy their
// respective config invariants.
func (o Object) IsValid() bool {
	return o.Vector.IsValid() && o.Scalar.IsValid()
}

// Key returns a canonical string identifying this Object's config and
// contents, used as the multiset key in a mask dictionary.
func (o Object) Key() string {
	sc := o.Scalar.Config
	return fmt.Sprintf("%s|%d:%d:%d|%s", o.Vector.Key(), sc.Group, sc.Data, sc.Bound, o.Scalar.Data.Text(16))
}

// Equal reports structural equality: identical configs and identical data.
func (o Object) Equal(other Object) bool {
	return o.Key() == other.Key()
}
