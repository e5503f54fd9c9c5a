package txbuilder

import (
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate/ledger"
)

// MinimumAmountDefault is the amount locked with each state output
const MinimumAmountDefault = uint64(2_000_000)

type TransactionBuilder struct {
	Transaction *ledger.Transaction
}

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		Transaction: &ledger.Transaction{
			Inputs:          make([]*ledger.Input, 0),
			Outputs:         make([]*ledger.Output, 0),
			RequiredSigners: make([]ledger.Credential, 0),
		},
	}
}

func (b *TransactionBuilder) NumInputs() int {
	return len(b.Transaction.Inputs)
}

func (b *TransactionBuilder) NumOutputs() int {
	return len(b.Transaction.Outputs)
}

// ConsumeOutput adds input unlocked by the key signature
func (b *TransactionBuilder) ConsumeOutput(o *ledger.OutputWithID) (byte, error) {
	return b.consume(o, nil)
}

// ConsumeScriptOutput adds input unlocked by the validator with the redeemer
func (b *TransactionBuilder) ConsumeScriptOutput(o *ledger.OutputWithID, redeemer []byte) (byte, error) {
	easyfl.Assert(redeemer != nil, "ConsumeScriptOutput: redeemer must not be nil")
	return b.consume(o, redeemer)
}

func (b *TransactionBuilder) consume(o *ledger.OutputWithID, redeemer []byte) (byte, error) {
	if b.NumInputs() >= ledger.MaxInputs {
		return 0, fmt.Errorf("exceeded max number of consumed outputs %d", ledger.MaxInputs)
	}
	if _, already := b.Transaction.ConsumesOutput(o.ID); already {
		return 0, fmt.Errorf("output %s is already consumed", o.ID.String())
	}
	b.Transaction.Inputs = append(b.Transaction.Inputs, &ledger.Input{
		Output:   o,
		Redeemer: redeemer,
	})
	return byte(b.NumInputs() - 1), nil
}

func (b *TransactionBuilder) ProduceOutput(out *ledger.Output) (byte, error) {
	if b.NumOutputs() >= ledger.MaxOutputs {
		return 0, fmt.Errorf("exceeded max number of produced outputs %d", ledger.MaxOutputs)
	}
	b.Transaction.Outputs = append(b.Transaction.Outputs, out)
	return byte(b.NumOutputs() - 1), nil
}

func (b *TransactionBuilder) AttachValidator(v *ledger.Validator) {
	b.Transaction.Validator = v
}

func (b *TransactionBuilder) AddRequiredSigner(c ledger.Credential) {
	if !b.Transaction.RequiresSigner(c) {
		b.Transaction.RequiredSigners = append(b.Transaction.RequiredSigners, c)
	}
}

func (b *TransactionBuilder) TotalInput() uint64 {
	return b.Transaction.TotalInput()
}

// produceWithRemainder produces target output and sends the rest of the inputs back to the sender
func (b *TransactionBuilder) produceWithRemainder(out *ledger.Output, remainderAddr ledger.Address) error {
	available := b.TotalInput()
	if available < out.Amount {
		return fmt.Errorf("needed %d, got %d: %w", out.Amount, available, ledger.ErrInsufficientFunds)
	}
	if _, err := b.ProduceOutput(out); err != nil {
		return err
	}
	if available > out.Amount {
		if _, err := b.ProduceOutput(ledger.NewOutput(remainderAddr, available-out.Amount)); err != nil {
			return err
		}
	}
	return nil
}
