package txbuilder

import (
	"fmt"

	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/record"
)

// CheckStateCreation checks the transaction produces exactly one state output of the owner and consumes none
func CheckStateCreation(tx *ledger.Transaction, validatorAddr ledger.Address, owner ledger.Credential) error {
	if n := len(tx.InputsAt(validatorAddr)); n != 0 {
		return fmt.Errorf("state creation consumes %d validator outputs: %w", n, ledger.ErrInvariantViolation)
	}
	st, err := singleStateOutput(tx, validatorAddr)
	if err != nil {
		return err
	}
	if !st.Owner.Equal(owner) {
		return fmt.Errorf("created state belongs to %s, expected %s: %w", st.Owner.String(), owner.String(), ledger.ErrInvariantViolation)
	}
	return nil
}

// CheckStateContinuation checks the one-in-one-out shape of the state transition: the current output is
// the only consumed validator output, exactly one validator output is produced and it keeps the owner,
// the owner is the required signer
func CheckStateContinuation(tx *ledger.Transaction, validatorAddr ledger.Address, current ledger.OutputID) error {
	in, found := tx.ConsumesOutput(current)
	if !found {
		return fmt.Errorf("current state output %s is not consumed: %w", current.String(), ledger.ErrInvariantViolation)
	}
	if !in.IsScriptInput() {
		return fmt.Errorf("current state output %s is consumed without redeemer: %w", current.String(), ledger.ErrInvariantViolation)
	}
	if n := len(tx.InputsAt(validatorAddr)); n != 1 {
		return fmt.Errorf("transition consumes %d validator outputs: %w", n, ledger.ErrInvariantViolation)
	}
	if tx.Validator == nil || tx.Validator.Address() != validatorAddr {
		return fmt.Errorf("validator is not attached: %w", ledger.ErrInvariantViolation)
	}
	consumed, err := record.StateFromBytes(in.Output.Output.Datum)
	if err != nil {
		return fmt.Errorf("consumed output: %v: %w", err, ledger.ErrInvariantViolation)
	}
	successor, err := singleStateOutput(tx, validatorAddr)
	if err != nil {
		return err
	}
	if !successor.Owner.Equal(consumed.Owner) {
		return fmt.Errorf("successor belongs to %s, consumed state to %s: %w",
			successor.Owner.String(), consumed.Owner.String(), ledger.ErrInvariantViolation)
	}
	if !tx.RequiresSigner(consumed.Owner) {
		return fmt.Errorf("owner %s is not a required signer: %w", consumed.Owner.String(), ledger.ErrInvariantViolation)
	}
	return nil
}

func singleStateOutput(tx *ledger.Transaction, validatorAddr ledger.Address) (*record.State, error) {
	idx := tx.OutputsAt(validatorAddr)
	if len(idx) != 1 {
		return nil, fmt.Errorf("expected exactly one validator output, got %d: %w", len(idx), ledger.ErrInvariantViolation)
	}
	st, err := record.StateFromBytes(tx.Outputs[idx[0]].Datum)
	if err != nil {
		return nil, fmt.Errorf("validator output: %v: %w", err, ledger.ErrInvariantViolation)
	}
	return st, nil
}
