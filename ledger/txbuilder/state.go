package txbuilder

import (
	"fmt"
	"math/big"

	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/record"
)

type (
	// Action derives the successor value and the redeemer from the current state
	Action interface {
		Successor(current *record.State) (*big.Int, record.Action, error)
		String() string
	}

	// Compare replaces the value with the caller supplied one
	Compare struct {
		Value *big.Int
	}

	// Reassert carries the current value forward unchanged
	Reassert struct{}

	// ValuePolicy rejects values outside the validator's domain. The rules belong to the validator,
	// the builder only applies what the caller supplies
	ValuePolicy func(v *big.Int) error

	// Params are common to creation and transition of the state output
	Params struct {
		Owner        ledger.Credential
		OwnerAddress ledger.Address
		Validator    *ledger.Validator
		Amount       uint64
		Spendable    []*ledger.OutputWithID
		Policy       ValuePolicy
	}
)

func (c Compare) Successor(_ *record.State) (*big.Int, record.Action, error) {
	if c.Value == nil {
		return nil, nil, fmt.Errorf("compare: value not specified: %w", ledger.ErrInvalidAction)
	}
	return new(big.Int).Set(c.Value), record.NewReplace(c.Value), nil
}

func (c Compare) String() string {
	if c.Value == nil {
		return "Compare(nil)"
	}
	return fmt.Sprintf("Compare(%s)", c.Value.String())
}

func (Reassert) Successor(current *record.State) (*big.Int, record.Action, error) {
	return new(big.Int).Set(current.Value), record.Carry{}, nil
}

func (Reassert) String() string {
	return "Reassert"
}

// NonNegative is the policy of validators which accept only values >= 0
func NonNegative(v *big.Int) error {
	if v.Sign() < 0 {
		return fmt.Errorf("negative value %s: %w", v.String(), ledger.ErrInvalidAction)
	}
	return nil
}

func NewParams(owner ledger.Credential, validator *ledger.Validator) *Params {
	return &Params{
		Owner:        owner,
		OwnerAddress: ledger.KeyAddress(owner),
		Validator:    validator,
		Amount:       MinimumAmountDefault,
	}
}

func (par *Params) WithOwnerAddress(addr ledger.Address) *Params {
	par.OwnerAddress = addr
	return par
}

func (par *Params) WithAmount(amount uint64) *Params {
	par.Amount = amount
	return par
}

func (par *Params) WithSpendable(outs []*ledger.OutputWithID) *Params {
	par.Spendable = outs
	return par
}

func (par *Params) WithPolicy(policy ValuePolicy) *Params {
	par.Policy = policy
	return par
}

func (par *Params) validate() error {
	if len(par.Owner) == 0 {
		return fmt.Errorf("owner credential not specified: %w", ledger.ErrPrecondition)
	}
	if par.Validator == nil {
		return fmt.Errorf("validator not specified: %w", ledger.ErrPrecondition)
	}
	if len(par.OwnerAddress) == 0 || par.OwnerAddress.IsScript() {
		return fmt.Errorf("owner address must be a key address: %w", ledger.ErrPrecondition)
	}
	if par.Amount == 0 {
		return fmt.Errorf("state output amount must be positive: %w", ledger.ErrPrecondition)
	}
	return nil
}

func (par *Params) checkValue(v *big.Int) error {
	if v == nil {
		return fmt.Errorf("value not specified: %w", ledger.ErrInvalidAction)
	}
	if par.Policy != nil {
		return par.Policy(v)
	}
	return nil
}

func (par *Params) consumeSpendable(b *TransactionBuilder) error {
	for _, o := range par.Spendable {
		if o.Output.Address != par.OwnerAddress {
			return fmt.Errorf("spendable output %s is not owned by %s: %w", o.ID.String(), par.OwnerAddress.String(), ledger.ErrPrecondition)
		}
		if _, err := b.ConsumeOutput(o); err != nil {
			return err
		}
	}
	return nil
}

// MakeInitializeTransaction pays to the validator the output with the initial state of the owner.
// It is a plain payment: no validator and no redeemer. Whether the owner already has a state output is not checked here
func MakeInitializeTransaction(par *Params, value *big.Int) (*ledger.Transaction, error) {
	if err := par.validate(); err != nil {
		return nil, err
	}
	if err := par.checkValue(value); err != nil {
		return nil, err
	}
	b := NewTransactionBuilder()
	if err := par.consumeSpendable(b); err != nil {
		return nil, err
	}
	st := record.NewState(par.Owner, value)
	out := ledger.NewOutput(par.Validator.Address(), par.Amount, st.Bytes())
	if err := b.produceWithRemainder(out, par.OwnerAddress); err != nil {
		return nil, err
	}
	if err := CheckStateCreation(b.Transaction, par.Validator.Address(), par.Owner); err != nil {
		return nil, err
	}
	return b.Transaction, nil
}

// MakeTransitionTransaction replaces current state output with the successor derived by the action.
// The current output is consumed with the action redeemer, the validator is attached and the owner
// is the required signer
func MakeTransitionTransaction(par *Params, current *ledger.OutputWithID, currentState *record.State, action Action) (*ledger.Transaction, error) {
	if err := par.validate(); err != nil {
		return nil, err
	}
	if err := checkCurrent(par, current, currentState); err != nil {
		return nil, err
	}
	if action == nil {
		return nil, fmt.Errorf("action not specified: %w", ledger.ErrInvalidAction)
	}
	value, redeemer, err := action.Successor(currentState)
	if err != nil {
		return nil, err
	}
	if err = par.checkValue(value); err != nil {
		return nil, err
	}
	b := NewTransactionBuilder()
	if err = par.consumeSpendable(b); err != nil {
		return nil, err
	}
	if _, err = b.ConsumeScriptOutput(current, record.ActionBytes(redeemer)); err != nil {
		return nil, err
	}
	b.AttachValidator(par.Validator)
	b.AddRequiredSigner(par.Owner)

	successor := record.NewState(currentState.Owner, value)
	out := ledger.NewOutput(par.Validator.Address(), par.Amount, successor.Bytes())
	if err = b.produceWithRemainder(out, par.OwnerAddress); err != nil {
		return nil, err
	}
	if err = CheckStateContinuation(b.Transaction, par.Validator.Address(), current.ID); err != nil {
		return nil, err
	}
	return b.Transaction, nil
}

func checkCurrent(par *Params, current *ledger.OutputWithID, currentState *record.State) error {
	if current == nil || current.Output == nil || currentState == nil {
		return fmt.Errorf("current state output not specified: %w", ledger.ErrPrecondition)
	}
	if !currentState.Owner.Equal(par.Owner) {
		return fmt.Errorf("current state belongs to %s, not to %s: %w",
			currentState.Owner.String(), par.Owner.String(), ledger.ErrPrecondition)
	}
	if current.Output.Address != par.Validator.Address() {
		return fmt.Errorf("current output %s is not locked by the validator: %w", current.ID.String(), ledger.ErrPrecondition)
	}
	onChain, err := record.StateFromBytes(current.Output.Datum)
	if err != nil {
		return fmt.Errorf("current output %s: %v: %w", current.ID.String(), err, ledger.ErrPrecondition)
	}
	if !onChain.Equal(currentState) {
		return fmt.Errorf("current output %s carries %s, expected %s: %w",
			current.ID.String(), onChain.String(), currentState.String(), ledger.ErrPrecondition)
	}
	return nil
}
