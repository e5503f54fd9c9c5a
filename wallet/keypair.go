package wallet

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate/ledger"
	"go.uber.org/zap"
)

type (
	// Approver decides if the transaction may be signed. It may block, for example awaiting the user
	Approver func(ctx context.Context, tx *ledger.Transaction) error

	// KeyPair is the ledger.Signer of one ed25519 key
	KeyPair struct {
		privateKey ed25519.PrivateKey
		publicKey  ed25519.PublicKey
		credential ledger.Credential
		approver   Approver
		log        *zap.SugaredLogger
	}
)

func NewKeyPair(privateKey ed25519.PrivateKey) *KeyPair {
	easyfl.Assert(len(privateKey) == ed25519.PrivateKeySize, "NewKeyPair: wrong private key length")
	pub := privateKey.Public().(ed25519.PublicKey)
	return &KeyPair{
		privateKey: privateKey,
		publicKey:  pub,
		credential: ledger.CredentialFromPublicKey(pub),
		log:        zap.NewNop().Sugar(),
	}
}

func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("KeyPairFromSeed: seed must be %d bytes long", ed25519.SeedSize)
	}
	return NewKeyPair(ed25519.NewKeyFromSeed(seed)), nil
}

// WithApprover makes signing wait for the approval
func (k *KeyPair) WithApprover(a Approver) *KeyPair {
	k.approver = a
	return k
}

func (k *KeyPair) WithLogger(log *zap.SugaredLogger) *KeyPair {
	if log != nil {
		k.log = log
	}
	return k
}

func (k *KeyPair) PublicKey() ed25519.PublicKey {
	return k.publicKey
}

func (k *KeyPair) Credential() ledger.Credential {
	return k.credential
}

func (k *KeyPair) Address() ledger.Address {
	return ledger.KeyAddress(k.credential)
}

// Sign adds the witness of the key. Rejection by the approver or cancelled context returns ledger.ErrUserRejected
func (k *KeyPair) Sign(ctx context.Context, tx *ledger.Transaction) (*ledger.SignedTransaction, error) {
	txid := tx.ID()
	if err := k.approve(ctx, tx); err != nil {
		k.log.Debugf("signing of %s rejected: %v", txid.String(), err)
		return nil, fmt.Errorf("signing of %s: %w: %w", txid.String(), ledger.ErrUserRejected, err)
	}
	k.log.Debugf("signed %s by %s", txid.String(), k.credential.String())
	return &ledger.SignedTransaction{
		Transaction: tx,
		Witnesses:   []*ledger.Witness{ledger.NewWitness(k.privateKey, txid)},
	}, nil
}

func (k *KeyPair) approve(ctx context.Context, tx *ledger.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if k.approver == nil {
		return nil
	}
	result := make(chan error, 1)
	go func() {
		result <- k.approver(ctx, tx)
	}()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
