// Package serialization encodes and decodes mask objects to and from the
// coordinator's wire format. Every encoding starts with a small,
// fixed-size header from which the total length of the encoded value can
// be computed without touching the element payload, mirroring the
// self-describing buffer layout xaynet-core uses for its mask and Sum2
// payloads.
package serialization

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

// Decode error taxonomy. Callers should use errors.Is against these
// sentinels rather than matching on message text.
var (
	// ErrBufferTooShort means fewer bytes were supplied than the header
	// (or the header-declared length) requires.
	ErrBufferTooShort = errors.New("serialization: buffer too short")
	// ErrElementExceedsModulus means a decoded element is not in [0, order)
	// for its config.
	ErrElementExceedsModulus = errors.New("serialization: element exceeds modulus")
	// ErrConfigMismatch means the config embedded in the wire bytes does
	// not match the config the caller expected to find there.
	ErrConfigMismatch = errors.New("serialization: config mismatch")
)

const (
	manyHeaderLen = 1 + 4 // config byte + u32 element count
	oneHeaderLen  = 1     // config byte
)

// ProbeManyLength reads just the header of a Many encoding and returns the
// total number of bytes it occupies, without decoding any elements. It lets
// a message parser discover where the next field starts.
func ProbeManyLength(buf []byte) (int, error) {
	if len(buf) < manyHeaderLen {
		return 0, ErrBufferTooShort
	}
	cfg := mask.ConfigFromByte(buf[0])
	count := binary.BigEndian.Uint32(buf[1:5])
	total := manyHeaderLen + int(count)*cfg.ElementBytes()
	if len(buf) < total {
		return 0, ErrBufferTooShort
	}
	return total, nil
}

// ProbeOneLength reads just the header of a One encoding and returns the
// total number of bytes it occupies.
func ProbeOneLength(buf []byte) (int, error) {
	if len(buf) < oneHeaderLen {
		return 0, ErrBufferTooShort
	}
	cfg := mask.ConfigFromByte(buf[0])
	total := oneHeaderLen + cfg.ElementBytes()
	if len(buf) < total {
		return 0, ErrBufferTooShort
	}
	return total, nil
}

func putElement(dst []byte, v *big.Int) {
	b := v.Bytes()
	if len(b) > len(dst) {
		// Cannot happen for valid elements (IsValid bounds them below
		// order, which ElementBytes was sized to hold). Should it happen,
		// only the low-order bytes are kept, silently truncating the value,
		// rather than panicking on a slice bound.
		copy(dst, b[len(b)-len(dst):])
		return
	}
	copy(dst[len(dst)-len(b):], b)
}

func getElement(src []byte) *big.Int {
	return new(big.Int).SetBytes(src)
}

// EncodeMany serializes m as [config byte][u32 length][elements...].
func EncodeMany(m mask.Many) []byte {
	elemBytes := m.Config.ElementBytes()
	out := make([]byte, manyHeaderLen+len(m.Data)*elemBytes)
	out[0] = mask.ConfigByte(m.Config)
	binary.BigEndian.PutUint32(out[1:5], uint32(len(m.Data)))
	for i, v := range m.Data {
		putElement(out[manyHeaderLen+i*elemBytes:manyHeaderLen+(i+1)*elemBytes], v)
	}
	return out
}

// DecodeMany parses a Many from buf, checking the embedded config matches
// expected, and returns the value plus the number of bytes consumed.
func DecodeMany(buf []byte, expected mask.Config) (mask.Many, int, error) {
	total, err := ProbeManyLength(buf)
	if err != nil {
		return mask.Many{}, 0, err
	}
	cfg := mask.ConfigFromByte(buf[0])
	if cfg != expected {
		return mask.Many{}, 0, ErrConfigMismatch
	}

	count := binary.BigEndian.Uint32(buf[1:5])
	elemBytes := cfg.ElementBytes()
	order := cfg.Order()
	data := make([]*big.Int, count)
	for i := range data {
		start := manyHeaderLen + int(i)*elemBytes
		v := getElement(buf[start : start+elemBytes])
		if v.Cmp(order) >= 0 {
			return mask.Many{}, 0, ErrElementExceedsModulus
		}
		data[i] = v
	}

	return mask.NewMany(cfg, data), total, nil
}

// EncodeOne serializes o as [config byte][element].
func EncodeOne(o mask.One) []byte {
	elemBytes := o.Config.ElementBytes()
	out := make([]byte, oneHeaderLen+elemBytes)
	out[0] = mask.ConfigByte(o.Config)
	putElement(out[oneHeaderLen:], o.Data)
	return out
}

// DecodeOne parses a One from buf, checking the embedded config matches
// expected, and returns the value plus the number of bytes consumed.
func DecodeOne(buf []byte, expected mask.Config) (mask.One, int, error) {
	total, err := ProbeOneLength(buf)
	if err != nil {
		return mask.One{}, 0, err
	}
	cfg := mask.ConfigFromByte(buf[0])
	if cfg != expected {
		return mask.One{}, 0, ErrConfigMismatch
	}

	order := cfg.Order()
	v := getElement(buf[oneHeaderLen:total])
	if v.Cmp(order) >= 0 {
		return mask.One{}, 0, ErrElementExceedsModulus
	}

	return mask.NewOne(cfg, v), total, nil
}

// EncodeObject serializes an Object as its vector followed by its scalar.
func EncodeObject(o mask.Object) []byte {
	return append(EncodeMany(o.Vector), EncodeOne(o.Scalar)...)
}

// DecodeObject parses an Object from buf, checking the vector and scalar
// configs against the expected configs, and returns the value plus the
// number of bytes consumed.
func DecodeObject(buf []byte, vectorConfig, scalarConfig mask.Config) (mask.Object, int, error) {
	vector, n, err := DecodeMany(buf, vectorConfig)
	if err != nil {
		return mask.Object{}, 0, err
	}
	scalar, m, err := DecodeOne(buf[n:], scalarConfig)
	if err != nil {
		return mask.Object{}, 0, err
	}
	return mask.NewObject(vector, scalar), n + m, nil
}
