package ledger

import (
	"crypto/ed25519"
	"fmt"

	"github.com/lunfardo314/easystate/lazyslice"
	"golang.org/x/crypto/blake2b"
)

const (
	MaxInputs  = 256
	MaxOutputs = 256
)

// indices of the transaction essence elements
const (
	TxInputs = byte(iota)
	TxOutputs
	TxValidator
	TxRequiredSigners
	TxTreeIndexMax
)

type (
	// Input is a consumed output. Redeemer is nil for outputs unlocked by key signature
	Input struct {
		Output   *OutputWithID
		Redeemer []byte
	}

	// Transaction is the transaction intent: what to consume, what to produce and who must sign
	Transaction struct {
		Inputs          []*Input
		Outputs         []*Output
		Validator       *Validator
		RequiredSigners []Credential
	}

	Witness struct {
		PublicKey ed25519.PublicKey
		Signature []byte
	}

	SignedTransaction struct {
		Transaction *Transaction
		Witnesses   []*Witness
	}
)

func (in *Input) IsScriptInput() bool {
	return in.Redeemer != nil
}

func (in *Input) bytes() []byte {
	if in.IsScriptInput() {
		return lazyslice.MakeArray(in.Output.ID[:], in.Redeemer).Bytes()
	}
	return lazyslice.MakeArray(in.Output.ID[:]).Bytes()
}

func (tx *Transaction) ToArray() *lazyslice.Array {
	inputs := lazyslice.EmptyArray(MaxInputs)
	outputs := lazyslice.EmptyArray(MaxOutputs)
	signers := lazyslice.EmptyArray(MaxInputs)

	for _, in := range tx.Inputs {
		inputs.Push(in.bytes())
	}
	for _, o := range tx.Outputs {
		outputs.Push(o.Bytes())
	}
	for _, c := range tx.RequiredSigners {
		signers.Push(c.Bytes())
	}
	elems := make([]interface{}, TxTreeIndexMax)
	elems[TxInputs] = inputs
	elems[TxOutputs] = outputs
	if tx.Validator != nil {
		elems[TxValidator] = tx.Validator.Script
	}
	elems[TxRequiredSigners] = signers
	return lazyslice.MakeArray(elems...)
}

// EssenceBytes is the data committed by the transaction ID and signed by witnesses
func (tx *Transaction) EssenceBytes() []byte {
	return tx.ToArray().Bytes()
}

func (tx *Transaction) ID() TransactionID {
	return blake2b.Sum256(tx.EssenceBytes())
}

func (tx *Transaction) NumInputs() int {
	return len(tx.Inputs)
}

func (tx *Transaction) NumOutputs() int {
	return len(tx.Outputs)
}

// ConsumesOutput returns the input with the output ID, if any
func (tx *Transaction) ConsumesOutput(oid OutputID) (*Input, bool) {
	for _, in := range tx.Inputs {
		if in.Output.ID == oid {
			return in, true
		}
	}
	return nil, false
}

// InputsAt returns inputs which spend outputs locked at the address
func (tx *Transaction) InputsAt(addr Address) []*Input {
	ret := make([]*Input, 0)
	for _, in := range tx.Inputs {
		if in.Output.Output.Address == addr {
			ret = append(ret, in)
		}
	}
	return ret
}

// OutputsAt returns indices of produced outputs locked at the address
func (tx *Transaction) OutputsAt(addr Address) []byte {
	ret := make([]byte, 0)
	for i, o := range tx.Outputs {
		if o.Address == addr {
			ret = append(ret, byte(i))
		}
	}
	return ret
}

func (tx *Transaction) TotalInput() uint64 {
	ret := uint64(0)
	for _, in := range tx.Inputs {
		ret += in.Output.Output.Amount
	}
	return ret
}

func (tx *Transaction) TotalOutput() uint64 {
	ret := uint64(0)
	for _, o := range tx.Outputs {
		ret += o.Amount
	}
	return ret
}

func (tx *Transaction) RequiresSigner(c Credential) bool {
	for _, s := range tx.RequiredSigners {
		if s.Equal(c) {
			return true
		}
	}
	return false
}

func (tx *Transaction) String() string {
	txid := tx.ID()
	ret := fmt.Sprintf("TransactionID: %s\n", txid.String())
	ret += "inputs:\n"
	for i, in := range tx.Inputs {
		ret += fmt.Sprintf("  #%d: %s\n", i, in.Output.String())
		if in.IsScriptInput() {
			ret += fmt.Sprintf("     redeemer: %x\n", in.Redeemer)
		}
	}
	ret += "outputs:\n"
	for i, o := range tx.Outputs {
		ret += fmt.Sprintf("  #%d: %s\n", i, o.String())
	}
	if tx.Validator != nil {
		ret += fmt.Sprintf("validator: %s\n", tx.Validator.Address().String())
	}
	for _, c := range tx.RequiredSigners {
		ret += fmt.Sprintf("required signer: %s\n", c.String())
	}
	return ret
}

func NewWitness(privKey ed25519.PrivateKey, txid TransactionID) *Witness {
	return &Witness{
		PublicKey: privKey.Public().(ed25519.PublicKey),
		Signature: ed25519.Sign(privKey, txid[:]),
	}
}

func (w *Witness) Credential() Credential {
	return CredentialFromPublicKey(w.PublicKey)
}

func (w *Witness) Valid(txid TransactionID) bool {
	return len(w.PublicKey) == ed25519.PublicKeySize && ed25519.Verify(w.PublicKey, txid[:], w.Signature)
}

// SignedBy checks if there is a valid signature of the credential's key
func (stx *SignedTransaction) SignedBy(c Credential) bool {
	txid := stx.Transaction.ID()
	for _, w := range stx.Witnesses {
		if w.Credential().Equal(c) && w.Valid(txid) {
			return true
		}
	}
	return false
}
