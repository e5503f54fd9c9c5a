package state

import (
	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/indexer"
	"github.com/lunfardo314/unitrie/common"
	"github.com/lunfardo314/unitrie/immutable"
	"github.com/lunfardo314/unitrie/models/trie_blake2b"
)

type (
	// Updatable is an updatable ledger state, with the particular root
	// Suitable for chained updates
	Updatable struct {
		store ledger.StateStore
		root  common.VCommitment
	}

	// Readable is a read-only ledger state, with the particular root
	Readable struct {
		trie *immutable.TrieReader
	}
)

// commitment model singleton

var commitmentModel = trie_blake2b.New(common.PathArity16, trie_blake2b.HashSize256)

// GenesisOutputID is all-0
var GenesisOutputID = ledger.OutputID{}

// MustInitLedgerState initializes origin ledger state in the empty store.
// The whole initial supply is in the genesis output at the genesis address
func MustInitLedgerState(store common.KVWriter, identity []byte, genesisAddr ledger.Address, initialSupply uint64) common.VCommitment {
	easyfl.Assert(initialSupply > 0, "initialSupply > 0")
	storeTmp := common.NewInMemoryKVStore()
	emptyRoot := immutable.MustInitRoot(storeTmp, commitmentModel, identity)
	trie, err := immutable.NewTrieChained(commitmentModel, storeTmp, emptyRoot)
	easyfl.AssertNoError(err)

	trie.Update(GenesisOutputID[:], ledger.NewOutput(genesisAddr, initialSupply).Bytes())
	trie = trie.CommitChained()
	common.CopyAll(store, storeTmp)
	return trie.Root()
}

// NewReadable creates read-only ledger state with the given root
func NewReadable(store common.KVReader, root common.VCommitment) (*Readable, error) {
	trie, err := immutable.NewTrieReader(commitmentModel, store, root)
	if err != nil {
		return nil, err
	}
	return &Readable{trie}, nil
}

// NewUpdatable creates updatable state with the given root. After updated, the root changes.
func NewUpdatable(store ledger.StateStore, root common.VCommitment) (*Updatable, error) {
	_, err := immutable.NewTrieReader(commitmentModel, store, root)
	if err != nil {
		return nil, err
	}
	return &Updatable{
		root:  root.Clone(),
		store: store,
	}, nil
}

func (u *Updatable) Readable() *Readable {
	trie, err := immutable.NewTrieReader(commitmentModel, u.store, u.root)
	easyfl.AssertNoError(err)
	return &Readable{
		trie: trie,
	}
}

// Root return the current root
func (u *Updatable) Root() common.VCommitment {
	return u.root
}

func (r *Readable) GetUTXO(oid *ledger.OutputID) ([]byte, bool) {
	ret := r.trie.Get(oid.Bytes())
	if len(ret) == 0 {
		return nil, false
	}
	return ret, true
}

// GetOutput returns parsed unspent output
func (r *Readable) GetOutput(oid *ledger.OutputID) (*ledger.Output, bool, error) {
	data, found := r.GetUTXO(oid)
	if !found {
		return nil, false, nil
	}
	ret, err := ledger.OutputFromBytes(data)
	if err != nil {
		return nil, true, err
	}
	return ret, true, nil
}

// HasTransaction is true if at least one output of the transaction is unspent
func (r *Readable) HasTransaction(txid *ledger.TransactionID) bool {
	ret := false
	r.trie.Iterator(txid.Bytes()).IterateKeys(func(_ []byte) bool {
		ret = true
		return false
	})
	return ret
}

// Update validates the transaction against the current state and mutates the state.
// Returns commands to keep the address index in sync
func (u *Updatable) Update(stx *ledger.SignedTransaction, scripts ScriptRegistry) ([]*indexer.Command, error) {
	ctx, err := NewValidationContext(stx, u.Readable(), scripts)
	if err != nil {
		return nil, err
	}
	if err = ctx.Validate(); err != nil {
		return nil, err
	}
	trie, err := immutable.NewTrieUpdatable(commitmentModel, u.store, u.root)
	if err != nil {
		return nil, err
	}
	indexerUpdate := make([]*indexer.Command, 0, stx.Transaction.NumInputs()+stx.Transaction.NumOutputs())

	// delete consumed outputs from the ledger and from addresses
	for i, in := range stx.Transaction.Inputs {
		oid := in.Output.ID
		trie.Update(oid[:], nil)
		indexerUpdate = append(indexerUpdate, &indexer.Command{
			Address:  ctx.consumed[i].Address,
			OutputID: oid,
			Delete:   true,
		})
	}
	// add new outputs to the ledger and to addresses
	txid := ctx.txid
	for i, o := range stx.Transaction.Outputs {
		oid := ledger.NewOutputID(txid, byte(i))
		trie.Update(oid[:], o.Bytes())
		indexerUpdate = append(indexerUpdate, &indexer.Command{
			Address:  o.Address,
			OutputID: oid,
		})
	}
	batch := u.store.BatchedWriter()
	u.root = trie.Commit(batch)
	return indexerUpdate, batch.Commit()
}
