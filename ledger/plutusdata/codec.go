package plutusdata

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate"
)

// CBOR tags of the Plutus data encoding
const (
	tagBignumPositive = 2
	tagBignumNegative = 3
	tagConstrGeneral  = 102
	tagConstrSmall    = 121  // alternatives 0..6
	tagConstrMedium   = 1280 // alternatives 7..127

	maxAltSmall  = 6
	maxAltMedium = 127
)

const (
	// MaxNestingDepth is the maximum nesting of constructors and lists accepted by Decode
	MaxNestingDepth = 32
	// MaxListLen is the maximum number of elements in a list or in constructor fields
	MaxListLen = 4096
)

var ErrDecode = errors.New("plutusdata: decode failed")

// DecodeError is returned by all decoding functions. It matches ErrDecode with errors.Is
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plutusdata: %s: %v", e.Reason, e.Err)
	}
	return "plutusdata: " + e.Reason
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErrorf(err error, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...), Err: err}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		BigIntConvert: cbor.BigIntConvertShortest,
	}.EncMode()
	easyfl.AssertNoError(err)

	decMode, err = cbor.DecOptions{
		MaxNestedLevels:  2*MaxNestingDepth + 2,
		MaxArrayElements: MaxListLen,
		MaxMapPairs:      MaxListLen,
		IndefLength:      cbor.IndefLengthAllowed,
		TagsMd:           cbor.TagsAllowed,
	}.DecMode()
	easyfl.AssertNoError(err)
}

// Encode serializes data. Integers are encoded as CBOR integers when they fit 64 bits, as bignums otherwise
func Encode(d Data) ([]byte, error) {
	v, err := toCBOR(d)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(v)
}

func MustEncode(d Data) []byte {
	ret, err := Encode(d)
	easyfl.AssertNoError(err)
	return ret
}

func toCBOR(d Data) (interface{}, error) {
	switch v := d.(type) {
	case *Constr:
		if v == nil {
			return nil, errors.New("plutusdata: nil constructor")
		}
		fields, err := listToCBOR(v.Fields)
		if err != nil {
			return nil, err
		}
		switch {
		case v.Tag <= maxAltSmall:
			return cbor.Tag{Number: tagConstrSmall + v.Tag, Content: fields}, nil
		case v.Tag <= maxAltMedium:
			return cbor.Tag{Number: tagConstrMedium + v.Tag - (maxAltSmall + 1), Content: fields}, nil
		default:
			return cbor.Tag{Number: tagConstrGeneral, Content: []interface{}{v.Tag, fields}}, nil
		}
	case Integer:
		if v.Value == nil {
			return nil, errors.New("plutusdata: nil integer")
		}
		return v.Value, nil
	case Bytes:
		if v == nil {
			return []byte{}, nil
		}
		return []byte(v), nil
	case List:
		return listToCBOR(v)
	}
	return nil, fmt.Errorf("plutusdata: unsupported data type %T", d)
}

// listToCBOR never returns nil slice: nil would be encoded as CBOR null
func listToCBOR(items []Data) ([]interface{}, error) {
	ret := make([]interface{}, 0, len(items))
	for _, it := range items {
		v, err := toCBOR(it)
		if err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}
	return ret, nil
}

// Decode parses data. It never panics on malformed input, all failures are *DecodeError
func Decode(data []byte) (Data, error) {
	var ret Data
	err := easystate.CatchPanicOrError(func() error {
		var err error
		ret, err = decode(data, 0)
		return err
	})
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, decodeErrorf(err, "malformed data")
	}
	return ret, nil
}

// DecodeConstr parses data which must be a constructor
func DecodeConstr(data []byte) (*Constr, error) {
	d, err := Decode(data)
	if err != nil {
		return nil, err
	}
	ret, ok := d.(*Constr)
	if !ok {
		return nil, decodeErrorf(nil, "expected constructor, got %s", d.String())
	}
	return ret, nil
}

func decode(raw []byte, depth int) (Data, error) {
	if depth > MaxNestingDepth {
		return nil, decodeErrorf(nil, "nesting deeper than %d", MaxNestingDepth)
	}
	if len(raw) == 0 {
		return nil, decodeErrorf(nil, "empty input")
	}
	switch majorType := raw[0] >> 5; majorType {
	case 0, 1:
		return decodeInteger(raw)
	case 2:
		var b []byte
		if err := decMode.Unmarshal(raw, &b); err != nil {
			return nil, decodeErrorf(err, "wrong byte string")
		}
		if b == nil {
			b = []byte{}
		}
		return Bytes(b), nil
	case 4:
		items, err := decodeList(raw, depth)
		if err != nil {
			return nil, err
		}
		return List(items), nil
	case 5:
		return nil, decodeErrorf(nil, "maps are not supported")
	case 6:
		return decodeTagged(raw, depth)
	default:
		return nil, decodeErrorf(nil, "unsupported CBOR major type %d", majorType)
	}
}

func decodeInteger(raw []byte) (Data, error) {
	v := new(big.Int)
	if err := decMode.Unmarshal(raw, v); err != nil {
		return nil, decodeErrorf(err, "wrong integer")
	}
	return Integer{Value: v}, nil
}

func decodeList(raw []byte, depth int) ([]Data, error) {
	if len(raw) == 0 || raw[0]>>5 != 4 {
		return nil, decodeErrorf(nil, "expected array")
	}
	var items []cbor.RawMessage
	if err := decMode.Unmarshal(raw, &items); err != nil {
		return nil, decodeErrorf(err, "wrong array")
	}
	ret := make([]Data, 0, len(items))
	for i, it := range items {
		d, err := decode(it, depth+1)
		if err != nil {
			return nil, decodeErrorf(err, "element #%d", i)
		}
		ret = append(ret, d)
	}
	return ret, nil
}

func decodeTagged(raw []byte, depth int) (Data, error) {
	var tag cbor.RawTag
	if err := decMode.Unmarshal(raw, &tag); err != nil {
		return nil, decodeErrorf(err, "wrong tag")
	}
	var alt uint64
	var content []byte
	switch n := tag.Number; {
	case n == tagBignumPositive || n == tagBignumNegative:
		return decodeInteger(raw)
	case n >= tagConstrSmall && n <= tagConstrSmall+maxAltSmall:
		alt, content = n-tagConstrSmall, tag.Content
	case n >= tagConstrMedium && n <= tagConstrMedium+maxAltMedium-(maxAltSmall+1):
		alt, content = n-tagConstrMedium+maxAltSmall+1, tag.Content
	case n == tagConstrGeneral:
		var pair []cbor.RawMessage
		if err := decMode.Unmarshal(tag.Content, &pair); err != nil {
			return nil, decodeErrorf(err, "wrong general constructor")
		}
		if len(pair) != 2 {
			return nil, decodeErrorf(nil, "general constructor must be a pair, got %d elements", len(pair))
		}
		if err := decMode.Unmarshal(pair[0], &alt); err != nil {
			return nil, decodeErrorf(err, "wrong constructor alternative")
		}
		content = pair[1]
	default:
		return nil, decodeErrorf(nil, "unsupported CBOR tag %d", n)
	}
	fields, err := decodeList(content, depth)
	if err != nil {
		return nil, decodeErrorf(err, "constructor %d fields", alt)
	}
	return &Constr{Tag: alt, Fields: fields}, nil
}
