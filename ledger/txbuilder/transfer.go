package txbuilder

import (
	"fmt"

	"github.com/lunfardo314/easystate/ledger"
)

// TransferParams describe plain payment from the key address
type TransferParams struct {
	SenderAddress ledger.Address
	Outputs       []*ledger.OutputWithID
	Target        ledger.Address
	Amount        uint64
	Datum         []byte
}

func NewTransferParams(sender ledger.Address) *TransferParams {
	return &TransferParams{
		SenderAddress: sender,
	}
}

func (t *TransferParams) WithOutputs(outs []*ledger.OutputWithID) *TransferParams {
	t.Outputs = outs
	return t
}

func (t *TransferParams) WithTarget(addr ledger.Address) *TransferParams {
	t.Target = addr
	return t
}

func (t *TransferParams) WithAmount(amount uint64) *TransferParams {
	t.Amount = amount
	return t
}

// WithDatum attaches datum to the target output
func (t *TransferParams) WithDatum(datum []byte) *TransferParams {
	t.Datum = datum
	return t
}

// MakeTransferTransaction consumes sender's outputs in the given order until amount is covered.
// The remainder goes back to the sender
func MakeTransferTransaction(par *TransferParams) (*ledger.Transaction, error) {
	if len(par.Target) == 0 {
		return nil, fmt.Errorf("MakeTransferTransaction: target address not specified")
	}
	b := NewTransactionBuilder()
	for _, o := range par.Outputs {
		if b.TotalInput() >= par.Amount && b.NumInputs() > 0 {
			break
		}
		if o.Output.Address != par.SenderAddress {
			return nil, fmt.Errorf("output %s is not owned by %s: %w", o.ID.String(), par.SenderAddress.String(), ledger.ErrPrecondition)
		}
		if _, err := b.ConsumeOutput(o); err != nil {
			return nil, err
		}
	}
	if b.TotalInput() < par.Amount {
		return nil, fmt.Errorf("not enough tokens in address %s: needed %d, got %d: %w",
			par.SenderAddress.String(), par.Amount, b.TotalInput(), ledger.ErrInsufficientFunds)
	}
	if err := b.produceWithRemainder(ledger.NewOutput(par.Target, par.Amount, par.Datum), par.SenderAddress); err != nil {
		return nil, err
	}
	return b.Transaction, nil
}
