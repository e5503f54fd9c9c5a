package record

import (
	"fmt"
	"math/big"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate/ledger/plutusdata"
)

type (
	// Action is the redeemer attached to the consumption of the state output
	Action interface {
		Data() *plutusdata.Constr
		String() string
		isAction()
	}

	// Replace requests the literal new value: Constr 1 [value]
	Replace struct {
		Value *big.Int
	}

	// Carry re-asserts ownership keeping the previous value: Constr 0 []
	Carry struct{}
)

func NewReplace(v *big.Int) *Replace {
	easyfl.Assert(v != nil, "NewReplace: nil value")
	return &Replace{Value: new(big.Int).Set(v)}
}

func (*Replace) isAction() {}
func (Carry) isAction()    {}

func (r *Replace) Data() *plutusdata.Constr {
	return plutusdata.NewConstr(ReplaceTag, plutusdata.NewInteger(r.Value))
}

func (r *Replace) String() string {
	return fmt.Sprintf("Replace(%s)", r.Value.String())
}

func (Carry) Data() *plutusdata.Constr {
	return plutusdata.NewConstr(CarryTag)
}

func (Carry) String() string {
	return "Carry"
}

func ActionBytes(a Action) []byte {
	return plutusdata.MustEncode(a.Data())
}

// ActionFromBytes decodes redeemer into one of the action variants
func ActionFromBytes(data []byte) (Action, error) {
	c, err := plutusdata.DecodeConstr(data)
	if err != nil {
		return nil, err
	}
	switch {
	case c.Tag == CarryTag && len(c.Fields) == 0:
		return Carry{}, nil
	case c.Tag == ReplaceTag && len(c.Fields) == 1:
		v, ok := c.Fields[0].(plutusdata.Integer)
		if !ok || v.Value == nil {
			return nil, &plutusdata.DecodeError{Reason: fmt.Sprintf("action: replace value must be integer, got %s", c.Fields[0].String())}
		}
		return NewReplace(v.Value), nil
	}
	return nil, &plutusdata.DecodeError{Reason: fmt.Sprintf("action: unknown shape %s", c.String())}
}
