package state

import (
	"fmt"
	"math"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate"
	"github.com/lunfardo314/easystate/ledger"
)

type (
	// ScriptContext is what the script sees when it is invoked to unlock one consumed output
	ScriptContext struct {
		Tx       *ledger.SignedTransaction
		Input    *ledger.Input
		Consumed *ledger.Output
	}

	// ScriptPolicy is the ledger side of the validator: it decides if the output at the script address can be consumed
	ScriptPolicy func(ctx *ScriptContext) error

	// ScriptRegistry knows policies of the deployed validators by their addresses
	ScriptRegistry interface {
		ScriptPolicy(addr ledger.Address) (ScriptPolicy, bool)
	}

	ValidationContext struct {
		tx       *ledger.SignedTransaction
		txid     ledger.TransactionID
		consumed []*ledger.Output
		scripts  ScriptRegistry
	}
)

// NewValidationContext resolves consumed outputs in the ledger state.
// The ledger copy is authoritative, whatever the transaction carries along with the input
func NewValidationContext(stx *ledger.SignedTransaction, state *Readable, scripts ScriptRegistry) (*ValidationContext, error) {
	if stx == nil || stx.Transaction == nil {
		return nil, fmt.Errorf("transaction not specified")
	}
	tx := stx.Transaction
	if tx.NumInputs() == 0 {
		return nil, fmt.Errorf("transaction has no inputs")
	}
	if tx.NumInputs() > ledger.MaxInputs || tx.NumOutputs() > ledger.MaxOutputs {
		return nil, fmt.Errorf("too many inputs or outputs")
	}
	ret := &ValidationContext{
		tx:       stx,
		txid:     tx.ID(),
		consumed: make([]*ledger.Output, tx.NumInputs()),
		scripts:  scripts,
	}
	seen := make(map[ledger.OutputID]struct{})
	for i, in := range tx.Inputs {
		if in == nil || in.Output == nil {
			return nil, fmt.Errorf("input %d not specified", i)
		}
		oid := in.Output.ID
		if _, already := seen[oid]; already {
			return nil, fmt.Errorf("output %s is consumed twice", oid.String())
		}
		seen[oid] = struct{}{}
		o, found, err := state.GetOutput(&oid)
		if err != nil {
			return nil, fmt.Errorf("input %d: %v", i, err)
		}
		if !found {
			return nil, fmt.Errorf("output %s does not exist or is already spent: %w", oid.String(), ledger.ErrConflict)
		}
		ret.consumed[i] = o
	}
	return ret, nil
}

func (v *ValidationContext) TransactionID() ledger.TransactionID {
	return v.txid
}

func (v *ValidationContext) Validate() error {
	return easystate.CatchPanicOrError(func() error {
		inSum, err := v.validateConsumedOutputs()
		if err != nil {
			return err
		}
		outSum, err := v.validateProducedOutputs()
		if err != nil {
			return err
		}
		if inSum != outSum {
			return fmt.Errorf("unbalanced amount between inputs and outputs: inputs %d, outputs %d", inSum, outSum)
		}
		if err = v.validateWitnesses(); err != nil {
			return err
		}
		return nil
	})
}

func (v *ValidationContext) validateConsumedOutputs() (uint64, error) {
	var sum uint64
	for i, in := range v.tx.Transaction.Inputs {
		o := v.consumed[i]
		if sum > math.MaxUint64-o.Amount {
			return 0, fmt.Errorf("input amount overflow")
		}
		sum += o.Amount
		if !o.Address.IsScript() {
			if in.IsScriptInput() {
				return 0, fmt.Errorf("input %d: redeemer for the key address %s", i, o.Address.String())
			}
			if !v.tx.SignedBy(o.Address.Hash()) {
				return 0, fmt.Errorf("input %d: missing signature of %s", i, o.Address.String())
			}
			continue
		}
		if err := v.runScript(i, in, o); err != nil {
			return 0, err
		}
	}
	return sum, nil
}

func (v *ValidationContext) runScript(i int, in *ledger.Input, o *ledger.Output) error {
	if !in.IsScriptInput() {
		return fmt.Errorf("input %d: redeemer is required to consume output at %s", i, o.Address.String())
	}
	validator := v.tx.Transaction.Validator
	if validator == nil || validator.Address() != o.Address {
		return fmt.Errorf("input %d: validator of %s is not attached", i, o.Address.String())
	}
	if v.scripts == nil {
		return fmt.Errorf("input %d: unknown validator %s", i, o.Address.String())
	}
	policy, ok := v.scripts.ScriptPolicy(o.Address)
	if !ok {
		return fmt.Errorf("input %d: unknown validator %s", i, o.Address.String())
	}
	if err := policy(&ScriptContext{Tx: v.tx, Input: in, Consumed: o}); err != nil {
		return fmt.Errorf("input %d: validator %s failed: %v", i, o.Address.String(), err)
	}
	return nil
}

func (v *ValidationContext) validateProducedOutputs() (uint64, error) {
	var sum uint64
	for i, o := range v.tx.Transaction.Outputs {
		if o == nil || len(o.Address) == 0 {
			return 0, fmt.Errorf("output %d: address not specified", i)
		}
		if o.Amount == 0 {
			return 0, fmt.Errorf("output %d: zero amount", i)
		}
		if sum > math.MaxUint64-o.Amount {
			return 0, fmt.Errorf("output amount overflow")
		}
		sum += o.Amount
	}
	return sum, nil
}

func (v *ValidationContext) validateWitnesses() error {
	for i, w := range v.tx.Witnesses {
		if !w.Valid(v.txid) {
			return fmt.Errorf("witness %d: invalid signature", i)
		}
	}
	for _, c := range v.tx.Transaction.RequiredSigners {
		if !v.tx.SignedBy(c) {
			return fmt.Errorf("missing signature of the required signer %s", c.String())
		}
	}
	return nil
}

func (v *ValidationContext) String() string {
	ret := fmt.Sprintf("TransactionID: %s\n", v.txid.String())
	ret += "inputs: \n"
	for i, in := range v.tx.Transaction.Inputs {
		ret += fmt.Sprintf("  #%d: %s\n", i, in.Output.ID.String())
		ret += fmt.Sprintf("     %s\n", v.consumed[i].String())
		if in.IsScriptInput() {
			ret += fmt.Sprintf("     Redeemer: %s\n", easyfl.Fmt(in.Redeemer))
		}
	}
	ret += "outputs: \n"
	for i, o := range v.tx.Transaction.Outputs {
		ret += fmt.Sprintf("  #%d: %s\n", i, o.String())
	}
	ret += fmt.Sprintf("witnesses: %d\n", len(v.tx.Witnesses))
	return ret
}
