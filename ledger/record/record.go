// Package record defines the owner state datum and the action redeemer carried by state transitions
package record

import (
	"fmt"
	"math/big"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/plutusdata"
)

const (
	StateTag       = 0
	stateNumFields = 2

	CarryTag   = 0
	ReplaceTag = 1
)

// State is the owner's persisted value: Constr 0 [owner credential, value]
type State struct {
	Owner ledger.Credential
	Value *big.Int
}

func NewState(owner ledger.Credential, value *big.Int) *State {
	easyfl.Assert(len(owner) > 0, "NewState: empty owner")
	easyfl.Assert(value != nil, "NewState: nil value")
	return &State{
		Owner: owner,
		Value: new(big.Int).Set(value),
	}
}

func (s *State) Data() *plutusdata.Constr {
	return plutusdata.NewConstr(StateTag, plutusdata.Bytes(s.Owner), plutusdata.NewInteger(s.Value))
}

func (s *State) Bytes() []byte {
	return plutusdata.MustEncode(s.Data())
}

func (s *State) Equal(s1 *State) bool {
	return s.Owner.Equal(s1.Owner) && s.Value.Cmp(s1.Value) == 0
}

func (s *State) String() string {
	return fmt.Sprintf("State(%s, %s)", s.Owner.String(), s.Value.String())
}

// StateFromBytes decodes datum. Anything but the exact State shape is a decode error
func StateFromBytes(data []byte) (*State, error) {
	d, err := plutusdata.Decode(data)
	if err != nil {
		return nil, err
	}
	return StateFromData(d)
}

func StateFromData(d plutusdata.Data) (*State, error) {
	c, ok := d.(*plutusdata.Constr)
	if !ok {
		return nil, &plutusdata.DecodeError{Reason: fmt.Sprintf("state: expected constructor, got %s", d.String())}
	}
	if c.Tag != StateTag {
		return nil, &plutusdata.DecodeError{Reason: fmt.Sprintf("state: wrong constructor tag %d", c.Tag)}
	}
	if len(c.Fields) != stateNumFields {
		return nil, &plutusdata.DecodeError{Reason: fmt.Sprintf("state: expected %d fields, got %d", stateNumFields, len(c.Fields))}
	}
	owner, ok := c.Fields[0].(plutusdata.Bytes)
	if !ok || len(owner) == 0 {
		return nil, &plutusdata.DecodeError{Reason: fmt.Sprintf("state: owner must be non-empty bytes, got %s", c.Fields[0].String())}
	}
	value, ok := c.Fields[1].(plutusdata.Integer)
	if !ok || value.Value == nil {
		return nil, &plutusdata.DecodeError{Reason: fmt.Sprintf("state: value must be integer, got %s", c.Fields[1].String())}
	}
	return NewState(ledger.Credential(owner), value.Value), nil
}
