// Package plutusdata encodes and decodes structured on-chain data (datums and redeemers)
// in the CBOR representation used by Cardano Plutus scripts.
package plutusdata

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/lunfardo314/easyfl"
)

type (
	// Data is one of *Constr, Integer, Bytes or List
	Data interface {
		String() string
		isData()
	}

	// Constr is a tagged product: constructor alternative and ordered fields
	Constr struct {
		Tag    uint64
		Fields []Data
	}

	// Integer is an arbitrary precision signed integer
	Integer struct {
		Value *big.Int
	}

	Bytes []byte

	List []Data
)

func NewConstr(tag uint64, fields ...Data) *Constr {
	if fields == nil {
		fields = make([]Data, 0)
	}
	return &Constr{Tag: tag, Fields: fields}
}

func NewInteger(v *big.Int) Integer {
	easyfl.Assert(v != nil, "NewInteger: nil value")
	return Integer{Value: new(big.Int).Set(v)}
}

func NewInt64(v int64) Integer {
	return Integer{Value: big.NewInt(v)}
}

func (*Constr) isData() {}
func (Integer) isData() {}
func (Bytes) isData()   {}
func (List) isData()    {}

func (c *Constr) String() string {
	fields := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		fields[i] = f.String()
	}
	return fmt.Sprintf("Constr(%d, [%s])", c.Tag, strings.Join(fields, ", "))
}

func (i Integer) String() string {
	return i.Value.String()
}

func (b Bytes) String() string {
	return fmt.Sprintf("h'%x'", []byte(b))
}

func (l List) String() string {
	items := make([]string, len(l))
	for i, d := range l {
		items[i] = d.String()
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// Equal compares two data values structurally
func Equal(d1, d2 Data) bool {
	switch v1 := d1.(type) {
	case *Constr:
		v2, ok := d2.(*Constr)
		if !ok || v1.Tag != v2.Tag || len(v1.Fields) != len(v2.Fields) {
			return false
		}
		for i := range v1.Fields {
			if !Equal(v1.Fields[i], v2.Fields[i]) {
				return false
			}
		}
		return true
	case Integer:
		v2, ok := d2.(Integer)
		return ok && v1.Value.Cmp(v2.Value) == 0
	case Bytes:
		v2, ok := d2.(Bytes)
		return ok && bytes.Equal(v1, v2)
	case List:
		v2, ok := d2.(List)
		if !ok || len(v1) != len(v2) {
			return false
		}
		for i := range v1 {
			if !Equal(v1[i], v2[i]) {
				return false
			}
		}
		return true
	}
	return false
}
