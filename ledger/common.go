package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/unitrie/common"
)

const (
	TransactionIDLength = 32
	OutputIDLength      = TransactionIDLength + 1
)

type (
	TransactionID [TransactionIDLength]byte
	OutputID      [OutputIDLength]byte

	// QueryAccess is the read side of the ledger provider
	QueryAccess interface {
		// SpendableOutputs returns outputs the owner of the key address can spend without a script
		SpendableOutputs(ctx context.Context, addr Address) ([]*OutputWithID, error)
		// OutputsAt returns all outputs locked at the address, in the order known to the provider
		OutputsAt(ctx context.Context, addr Address) ([]*OutputWithID, error)
	}

	// Signer signs transactions on behalf of one credential. Signing may block awaiting user approval
	Signer interface {
		Credential() Credential
		Address() Address
		Sign(ctx context.Context, tx *Transaction) (*SignedTransaction, error)
	}

	// Submitter finalizes signed transaction on the ledger
	Submitter interface {
		Submit(ctx context.Context, tx *SignedTransaction) (TransactionID, error)
	}

	StateStore interface {
		common.KVReader
		common.BatchedUpdatable
	}

	IndexerStore interface {
		common.BatchedUpdatable
		common.Traversable
		common.KVReader
	}
)

func TransactionIDFromBytes(data []byte) (ret TransactionID, err error) {
	if len(data) != TransactionIDLength {
		err = errors.New("TransactionIDFromBytes: wrong data length")
		return
	}
	copy(ret[:], data)
	return
}

func (txid *TransactionID) Bytes() []byte {
	return txid[:]
}

func (txid *TransactionID) String() string {
	return easyfl.Fmt(txid[:])
}

// Hex is the form used by explorers
func (txid *TransactionID) Hex() string {
	return fmt.Sprintf("%x", txid[:])
}

func NewOutputID(id TransactionID, idx byte) (ret OutputID) {
	copy(ret[:TransactionIDLength], id[:])
	ret[TransactionIDLength] = idx
	return
}

func OutputIDFromBytes(data []byte) (ret OutputID, err error) {
	if len(data) != OutputIDLength {
		err = errors.New("OutputIDFromBytes: wrong data length")
		return
	}
	copy(ret[:], data)
	return
}

func (oid *OutputID) String() string {
	txid := oid.TransactionID()
	return fmt.Sprintf("[%d]%s", oid.Index(), txid.String())
}

func (oid *OutputID) TransactionID() (ret TransactionID) {
	copy(ret[:], oid[:TransactionIDLength])
	return
}

func (oid *OutputID) Index() byte {
	return oid[TransactionIDLength]
}

func (oid *OutputID) Bytes() []byte {
	return oid[:]
}
