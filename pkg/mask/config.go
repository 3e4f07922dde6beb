// Package mask implements the bounded-integer mask objects used to hide
// participant model updates from the coordinator during aggregation, along
// with the arithmetic needed to combine and later remove them.
package mask

import "math/big"

// GroupType selects the algebraic group masked values are drawn from.
type GroupType uint8

const (
	// GroupInteger draws masks from Z/orderZ for an order that is a power
	// of two times a power of ten.
	GroupInteger GroupType = iota
	// GroupPrime draws masks from Z/orderZ for the smallest prime order
	// at least as large as the integer-group order. Masking into a prime
	// field keeps the componentwise sum uniform even after repeated
	// addition, at the cost of a prime search each time Order is computed
	// (the result is not cached).
	GroupPrime
)

func (g GroupType) String() string {
	switch g {
	case GroupInteger:
		return "integer"
	case GroupPrime:
		return "prime"
	default:
		return "unknown"
	}
}

// DataType is the numeric precision of the model values being masked,
// before bounding. It determines how many bits are reserved to represent a
// single scaled value.
type DataType uint8

const (
	DataF32 DataType = iota
	DataF64
	DataI32
	DataI64
)

// bitLength returns the number of bits reserved for one masked element's
// fractional/integer precision, independent of how many participants'
// contributions it must absorb.
func (d DataType) bitLength() uint {
	switch d {
	case DataF32, DataI32:
		return 32
	case DataF64, DataI64:
		return 64
	default:
		return 64
	}
}

func (d DataType) String() string {
	switch d {
	case DataF32:
		return "f32"
	case DataF64:
		return "f64"
	case DataI32:
		return "i32"
	case DataI64:
		return "i64"
	default:
		return "unknown"
	}
}

// BoundType caps the number of participant contributions a single masked
// element can absorb before the group order would need to grow further. It
// is expressed as a power of ten, matching the participant-count budgets an
// operator is expected to reason about (at most 10^exponent contributors).
type BoundType uint8

const (
	Bound0 BoundType = iota // at most 1 contributor
	Bound2                  // at most 100 contributors
	Bound4                  // at most 10,000 contributors
	Bound6                  // at most 1,000,000 contributors
)

func (b BoundType) exponent() int64 {
	switch b {
	case Bound0:
		return 0
	case Bound2:
		return 2
	case Bound4:
		return 4
	case Bound6:
		return 6
	default:
		return 0
	}
}

func (b BoundType) String() string {
	switch b {
	case Bound0:
		return "b0"
	case Bound2:
		return "b2"
	case Bound4:
		return "b4"
	case Bound6:
		return "b6"
	default:
		return "unknown"
	}
}

// Config fully determines the group a mask object's elements live in. Two
// mask objects can only be combined (aggregated, compared, or exchanged)
// when their configs are identical.
type Config struct {
	Group GroupType
	Data  DataType
	Bound BoundType
}

// NewConfig builds a Config from its three dimensions.
func NewConfig(group GroupType, data DataType, bound BoundType) Config {
	return Config{Group: group, Data: data, Bound: bound}
}

// Order returns the modulus every element of a mask object built from this
// config must stay below. For GroupInteger it is 2^bits * 10^exponent; for
// GroupPrime it is the smallest prime at or above that value.
func (c Config) Order() *big.Int {
	base := new(big.Int).Lsh(big.NewInt(1), c.Data.bitLength())
	if exp := c.Bound.exponent(); exp > 0 {
		base.Mul(base, new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil))
	}

	if c.Group == GroupInteger {
		return base
	}

	return nextPrime(base)
}

// nextPrime returns the smallest prime p >= n. n is expected to be even, so
// the search starts at n+1 and only visits odd candidates.
func nextPrime(n *big.Int) *big.Int {
	candidate := new(big.Int).Set(n)
	if candidate.Bit(0) == 0 {
		candidate.Add(candidate, big.NewInt(1))
	}
	for !candidate.ProbablyPrime(20) {
		candidate.Add(candidate, big.NewInt(2))
	}
	return candidate
}

// ElementBytes returns the fixed width, in bytes, used to serialize a single
// element bound by this config (enough bytes to hold Order()-1).
func (c Config) ElementBytes() int {
	bits := c.Order().BitLen()
	return (bits + 7) / 8
}

// ConfigByte packs the three config dimensions into a single wire byte:
// bits [0:2) group, [2:5) data, [5:8) bound.
func ConfigByte(c Config) byte {
	return byte(c.Group) | byte(c.Data)<<2 | byte(c.Bound)<<5
}

// ConfigFromByte is the inverse of ConfigByte.
func ConfigFromByte(b byte) Config {
	return Config{
		Group: GroupType(b & 0x3),
		Data:  DataType((b >> 2) & 0x7),
		Bound: BoundType((b >> 5) & 0x7),
	}
}
