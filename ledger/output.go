package ledger

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate"
	"github.com/lunfardo314/easystate/lazyslice"
)

// Output is serialized as lazyslice array:
// - at index 0 the address
// - at index 1 the amount, 8 bytes big-endian
// - at index 2 the inline datum. The element is absent when output has no datum

const (
	OutputBlockAddress = byte(iota)
	OutputBlockAmount
	OutputBlockDatum
	OutputNumMandatoryBlocks = OutputBlockDatum
)

type (
	Output struct {
		Address Address
		Amount  uint64
		// Datum is nil if output carries no datum
		Datum []byte
	}

	OutputWithID struct {
		ID     OutputID
		Output *Output
	}
)

func NewOutput(addr Address, amount uint64, datum ...[]byte) *Output {
	ret := &Output{
		Address: addr,
		Amount:  amount,
	}
	if len(datum) > 0 && datum[0] != nil {
		ret.Datum = datum[0]
	}
	return ret
}

func OutputFromBytes(data []byte) (*Output, error) {
	arr, err := lazyslice.ParseArray(data, int(OutputBlockDatum)+1)
	if err != nil {
		return nil, fmt.Errorf("OutputFromBytes: %v", err)
	}
	if arr.NumElements() < int(OutputNumMandatoryBlocks) {
		return nil, fmt.Errorf("OutputFromBytes: at least %d elements expected", OutputNumMandatoryBlocks)
	}
	addr, err := AddressFromBytes(arr.At(int(OutputBlockAddress)))
	if err != nil {
		return nil, err
	}
	amountBin := arr.At(int(OutputBlockAmount))
	if len(amountBin) != 8 {
		return nil, errors.New("OutputFromBytes: wrong amount data")
	}
	ret := &Output{
		Address: addr,
		Amount:  easystate.DecodeInteger[uint64](amountBin),
	}
	if arr.NumElements() > int(OutputBlockDatum) {
		ret.Datum = bytes.Clone(arr.At(int(OutputBlockDatum)))
		if ret.Datum == nil {
			ret.Datum = []byte{}
		}
	}
	return ret, nil
}

func (o *Output) HasDatum() bool {
	return o.Datum != nil
}

func (o *Output) AsArray() *lazyslice.Array {
	ret := lazyslice.EmptyArray(int(OutputBlockDatum) + 1)
	ret.Push(o.Address.Bytes())
	ret.Push(easystate.EncodeInteger(o.Amount))
	if o.HasDatum() {
		ret.Push(o.Datum)
	}
	return ret
}

func (o *Output) Bytes() []byte {
	return o.AsArray().Bytes()
}

func (o *Output) Clone() *Output {
	ret, err := OutputFromBytes(o.Bytes())
	easyfl.AssertNoError(err)
	return ret
}

func (o *Output) String() string {
	if o.HasDatum() {
		return fmt.Sprintf("%s amount: %d, datum: %x", o.Address.String(), o.Amount, o.Datum)
	}
	return fmt.Sprintf("%s amount: %d, no datum", o.Address.String(), o.Amount)
}

func (o *OutputWithID) String() string {
	return fmt.Sprintf("%s %s", o.ID.String(), o.Output.String())
}

// TotalAmount sums amounts of outputs
func TotalAmount(outs []*OutputWithID) uint64 {
	ret := uint64(0)
	for _, o := range outs {
		ret += o.Output.Amount
	}
	return ret
}
