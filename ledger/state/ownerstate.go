package state

import (
	"fmt"
	"math/big"

	"github.com/lunfardo314/easystate/ledger/record"
)

// OwnerStatePolicy is the single-owner mutable state validator.
// The consumed state can be spent only by its owner and only when exactly one successor of the same owner
// is produced at the validator address, with the value the redeemer asks for.
// valuePolicy, if not nil, restricts the successor value
func OwnerStatePolicy(valuePolicy func(v *big.Int) error) ScriptPolicy {
	return func(ctx *ScriptContext) error {
		current, err := record.StateFromBytes(ctx.Consumed.Datum)
		if err != nil {
			return fmt.Errorf("consumed output: %v", err)
		}
		action, err := record.ActionFromBytes(ctx.Input.Redeemer)
		if err != nil {
			return fmt.Errorf("redeemer: %v", err)
		}
		if !ctx.Tx.SignedBy(current.Owner) {
			return fmt.Errorf("not signed by the owner %s", current.Owner.String())
		}
		var successor *record.State
		count := 0
		for _, o := range ctx.Tx.Transaction.Outputs {
			if o.Address != ctx.Consumed.Address {
				continue
			}
			st, err := record.StateFromBytes(o.Datum)
			if err != nil || !st.Owner.Equal(current.Owner) {
				continue
			}
			successor = st
			count++
		}
		if count != 1 {
			return fmt.Errorf("expected exactly one successor of %s, got %d", current.Owner.String(), count)
		}
		var expected *big.Int
		switch a := action.(type) {
		case record.Carry:
			expected = current.Value
		case *record.Replace:
			expected = a.Value
		default:
			return fmt.Errorf("unknown action %s", action.String())
		}
		if successor.Value.Cmp(expected) != 0 {
			return fmt.Errorf("%s: successor value %s, expected %s", action.String(), successor.Value.String(), expected.String())
		}
		if valuePolicy != nil {
			return valuePolicy(successor.Value)
		}
		return nil
	}
}
