package utxodb

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate"
	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/indexer"
	"github.com/lunfardo314/easystate/ledger/state"
	"github.com/lunfardo314/easystate/ledger/txbuilder"
	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// validatorRegistry is accessed with the UTXODB lock held
type validatorRegistry map[ledger.Address]state.ScriptPolicy

func (r validatorRegistry) ScriptPolicy(addr ledger.Address) (state.ScriptPolicy, bool) {
	ret, ok := r[addr]
	return ret, ok
}

// UTXODB is an in-memory ledger with faucet. It implements ledger.QueryAccess and ledger.Submitter
type UTXODB struct {
	mutex             sync.RWMutex
	store             ledger.StateStore
	state             *state.Updatable
	indexer           *indexer.Indexer
	supply            uint64
	genesisPrivateKey ed25519.PrivateKey
	genesisPublicKey  ed25519.PublicKey
	genesisAddress    ledger.Address
	validators        validatorRegistry
	offline           bool
	log               *zap.SugaredLogger
}

const (
	// for determinism
	originPrivateKey        = "8ec47313c15c3a4443c41619735109b56bc818f4a6b71d6a1f186ec96d15f28f14117899305d99fb4775de9223ce9886cfaa3195da1e40c5db47c61266f04dd2"
	deterministicSeed       = "1234567890987654321"
	ledgerIdentity          = "utxodb"
	supplyForTesting        = uint64(1_000_000_000_000)
	TokensFromFaucetDefault = uint64(10_000_000)
)

// NewUTXODB creates ledger with the whole supply in the genesis output. With trace, ledger operations are logged
func NewUTXODB(trace ...bool) *UTXODB {
	log := zap.NewNop().Sugar()
	if len(trace) > 0 && trace[0] {
		l, err := zap.NewDevelopment()
		easyfl.AssertNoError(err)
		log = l.Sugar()
	}
	return NewUTXODBWithLogger(log)
}

func NewUTXODBWithLogger(log *zap.SugaredLogger) *UTXODB {
	originSeed, err := hex.DecodeString(originPrivateKey)
	easyfl.AssertNoError(err)
	originPrivKey := ed25519.NewKeyFromSeed(originSeed[:ed25519.SeedSize])
	originPubKey := originPrivKey.Public().(ed25519.PublicKey)
	originAddr := ledger.KeyAddress(ledger.CredentialFromPublicKey(originPubKey))

	store := common.NewInMemoryKVStore()
	root := state.MustInitLedgerState(store, []byte(ledgerIdentity), originAddr, supplyForTesting)
	st, err := state.NewUpdatable(store, root)
	easyfl.AssertNoError(err)

	ret := &UTXODB{
		store:             store,
		state:             st,
		indexer:           indexer.NewInMemory(),
		supply:            supplyForTesting,
		genesisPrivateKey: originPrivKey,
		genesisPublicKey:  originPubKey,
		genesisAddress:    originAddr,
		validators:        make(validatorRegistry),
		log:               log.Named("utxodb"),
	}
	err = ret.indexer.Update([]*indexer.Command{{Address: originAddr, OutputID: state.GenesisOutputID}})
	easyfl.AssertNoError(err)
	ret.log.Debugf("genesis: supply %d at %s, root %s", supplyForTesting, originAddr.String(), root.String())
	return ret
}

func (u *UTXODB) Supply() uint64 {
	return u.supply
}

func (u *UTXODB) GenesisKeys() (ed25519.PrivateKey, ed25519.PublicKey) {
	return u.genesisPrivateKey, u.genesisPublicKey
}

func (u *UTXODB) GenesisAddress() ledger.Address {
	return u.genesisAddress
}

// Root is the commitment to the current ledger state
func (u *UTXODB) Root() common.VCommitment {
	u.mutex.RLock()
	defer u.mutex.RUnlock()

	return u.state.Root()
}

// DeployValidator makes outputs at the validator address consumable under the policy
func (u *UTXODB) DeployValidator(v *ledger.Validator, policy state.ScriptPolicy) {
	easyfl.Assert(v != nil && policy != nil, "DeployValidator: validator and policy must be specified")
	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.validators[v.Address()] = policy
	u.log.Debugf("validator deployed at %s", v.Address().String())
}

// SetOffline makes all ledger access fail with ledger.ErrConnectivity, as a provider outage would
func (u *UTXODB) SetOffline(offline bool) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.offline = offline
}

func (u *UTXODB) checkAccess(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.offline {
		return fmt.Errorf("utxodb is offline: %w", ledger.ErrConnectivity)
	}
	return nil
}

func (u *UTXODB) outputsAt(addr ledger.Address) ([]*ledger.OutputWithID, error) {
	ids, err := u.indexer.OutputIDsAt(addr)
	if err != nil {
		return nil, err
	}
	rdr := u.state.Readable()
	ret := make([]*ledger.OutputWithID, 0, len(ids))
	for i := range ids {
		o, found, err := rdr.GetOutput(&ids[i])
		if err != nil {
			return nil, err
		}
		if !found {
			// index may be behind the state
			continue
		}
		ret = append(ret, &ledger.OutputWithID{ID: ids[i], Output: o})
	}
	return ret, nil
}

// OutputsAt returns unspent outputs at the address in the order they were produced
func (u *UTXODB) OutputsAt(ctx context.Context, addr ledger.Address) ([]*ledger.OutputWithID, error) {
	u.mutex.RLock()
	defer u.mutex.RUnlock()

	if err := u.checkAccess(ctx); err != nil {
		return nil, err
	}
	return u.outputsAt(addr)
}

// SpendableOutputs returns unspent outputs at the key address
func (u *UTXODB) SpendableOutputs(ctx context.Context, addr ledger.Address) ([]*ledger.OutputWithID, error) {
	if addr.IsScript() {
		return nil, fmt.Errorf("SpendableOutputs: %s is not a key address: %w", addr.String(), ledger.ErrPrecondition)
	}
	return u.OutputsAt(ctx, addr)
}

// Submit validates transaction and updates ledger state and indexer
// Ledger state and indexer are on different transactions, so ledger state can
// succeed while indexer fails. In that case indexer can be updated from ledger state
func (u *UTXODB) Submit(ctx context.Context, stx *ledger.SignedTransaction) (ledger.TransactionID, error) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if err := u.checkAccess(ctx); err != nil {
		return ledger.TransactionID{}, err
	}
	indexerUpdate, err := u.state.Update(stx, u.validators)
	if err != nil {
		u.log.Debugf("transaction rejected: %v", err)
		return ledger.TransactionID{}, err
	}
	txid := stx.Transaction.ID()
	if err = u.indexer.Update(indexerUpdate); err != nil {
		return txid, fmt.Errorf("ledger state was updated but indexer update failed with '%v'", err)
	}
	u.log.Debugf("transaction %s confirmed: %d inputs, %d outputs",
		txid.String(), stx.Transaction.NumInputs(), stx.Transaction.NumOutputs())
	return txid, nil
}

// IsUnspent is true if the output exists in the ledger state
func (u *UTXODB) IsUnspent(oid ledger.OutputID) bool {
	u.mutex.RLock()
	defer u.mutex.RUnlock()

	_, found := u.state.Readable().GetUTXO(&oid)
	return found
}

func (u *UTXODB) HasTransaction(txid ledger.TransactionID) bool {
	u.mutex.RLock()
	defer u.mutex.RUnlock()

	return u.state.Readable().HasTransaction(&txid)
}

// GenerateKeys deterministically generates n-th key pair and its credential
func (u *UTXODB) GenerateKeys(n uint16) (ed25519.PrivateKey, ed25519.PublicKey, ledger.Credential) {
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], n)
	seed := blake2b.Sum256(easystate.Concat([]byte(deterministicSeed), u16[:]))
	priv := ed25519.NewKeyFromSeed(seed[:])
	pub := priv.Public().(ed25519.PublicKey)
	return priv, pub, ledger.CredentialFromPublicKey(pub)
}

// TransferTokens makes, signs and submits plain transfer from the key address of the private key
func (u *UTXODB) TransferTokens(privKey ed25519.PrivateKey, target ledger.Address, amount uint64) (ledger.TransactionID, error) {
	sender := ledger.KeyAddress(ledger.CredentialFromPublicKey(privKey.Public().(ed25519.PublicKey)))
	outs, err := u.OutputsAt(context.Background(), sender)
	if err != nil {
		return ledger.TransactionID{}, err
	}
	par := txbuilder.NewTransferParams(sender).
		WithOutputs(outs).
		WithTarget(target).
		WithAmount(amount)
	tx, err := txbuilder.MakeTransferTransaction(par)
	if err != nil {
		return ledger.TransactionID{}, err
	}
	stx := &ledger.SignedTransaction{
		Transaction: tx,
		Witnesses:   []*ledger.Witness{ledger.NewWitness(privKey, tx.ID())},
	}
	return u.Submit(context.Background(), stx)
}

func (u *UTXODB) TokensFromFaucet(addr ledger.Address, howMany ...uint64) error {
	amount := TokensFromFaucetDefault
	if len(howMany) > 0 && howMany[0] > 0 {
		amount = howMany[0]
	}
	if _, err := u.TransferTokens(u.genesisPrivateKey, addr, amount); err != nil {
		return fmt.Errorf("UTXODB faucet: %w", err)
	}
	return nil
}

func (u *UTXODB) account(addr ledger.Address) (uint64, int) {
	u.mutex.RLock()
	defer u.mutex.RUnlock()

	outs, err := u.outputsAt(addr)
	easyfl.AssertNoError(err)
	return ledger.TotalAmount(outs), len(outs)
}

func (u *UTXODB) Balance(addr ledger.Address) uint64 {
	ret, _ := u.account(addr)
	return ret
}

func (u *UTXODB) NumUTXOs(addr ledger.Address) int {
	_, ret := u.account(addr)
	return ret
}
