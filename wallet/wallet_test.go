package wallet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/txbuilder"
	"github.com/lunfardo314/easystate/util/testutil"
	"github.com/lunfardo314/easystate/wallet"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func keyPair(t *testing.T, n byte) *wallet.KeyPair {
	seed := blake2b.Sum256([]byte{n})
	ret, err := wallet.KeyPairFromSeed(seed[:])
	require.NoError(t, err)
	return ret.WithLogger(testutil.NewSimpleLogger(false))
}

func sampleTx(k *wallet.KeyPair) *ledger.Transaction {
	b := txbuilder.NewTransactionBuilder()
	var txid ledger.TransactionID
	_, err := b.ConsumeOutput(&ledger.OutputWithID{
		ID:     ledger.NewOutputID(txid, 0),
		Output: ledger.NewOutput(k.Address(), 100),
	})
	easyfl.AssertNoError(err)
	_, err = b.ProduceOutput(ledger.NewOutput(k.Address(), 100))
	easyfl.AssertNoError(err)
	return b.Transaction
}

func TestKeyPair(t *testing.T) {
	t.Run("sign", func(t *testing.T) {
		k := keyPair(t, 1)
		tx := sampleTx(k)
		stx, err := k.Sign(context.Background(), tx)
		require.NoError(t, err)
		require.True(t, stx.SignedBy(k.Credential()))
		require.False(t, stx.SignedBy(keyPair(t, 2).Credential()))
		require.EqualValues(t, ledger.KeyAddress(k.Credential()), k.Address())
		require.EqualValues(t, ledger.CredentialLength, len(k.Credential()))
	})
	t.Run("wrong seed", func(t *testing.T) {
		_, err := wallet.KeyPairFromSeed([]byte{1, 2, 3})
		require.Error(t, err)
	})
	t.Run("approved", func(t *testing.T) {
		k := keyPair(t, 1).WithApprover(func(_ context.Context, _ *ledger.Transaction) error {
			return nil
		})
		_, err := k.Sign(context.Background(), sampleTx(k))
		require.NoError(t, err)
	})
	t.Run("rejected", func(t *testing.T) {
		k := keyPair(t, 1).WithApprover(func(_ context.Context, _ *ledger.Transaction) error {
			return errors.New("user declined")
		})
		_, err := k.Sign(context.Background(), sampleTx(k))
		require.ErrorIs(t, err, ledger.ErrUserRejected)
		easyfl.RequireErrorWith(t, err, "user declined")
		require.True(t, ledger.IsActionable(err))
	})
	t.Run("abandoned", func(t *testing.T) {
		k := keyPair(t, 1).WithApprover(func(ctx context.Context, _ *ledger.Transaction) error {
			// never answers
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return nil
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := k.Sign(ctx, sampleTx(k))
		require.ErrorIs(t, err, ledger.ErrUserRejected)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
	t.Run("cancelled before", func(t *testing.T) {
		k := keyPair(t, 1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := k.Sign(ctx, sampleTx(k))
		require.ErrorIs(t, err, ledger.ErrUserRejected)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestApprovalQueue(t *testing.T) {
	t.Run("decisions in order", func(t *testing.T) {
		q := wallet.NewApprovalQueue(0)
		k := keyPair(t, 1).WithApprover(q.Approver())
		go q.Consume(func(req *wallet.ApprovalRequest) {
			if req.Tx.Outputs[0].Amount == 100 {
				req.Approve()
				return
			}
			req.Reject("too much")
		})
		defer q.Close()

		_, err := k.Sign(context.Background(), sampleTx(k))
		require.NoError(t, err)

		tx := sampleTx(k)
		tx.Outputs[0].Amount = 1000
		_, err = k.Sign(context.Background(), tx)
		require.ErrorIs(t, err, ledger.ErrUserRejected)
		easyfl.RequireErrorWith(t, err, "too much")
	})
	t.Run("expired", func(t *testing.T) {
		q := wallet.NewApprovalQueue(30 * time.Millisecond)
		defer q.Close()
		k := keyPair(t, 1).WithApprover(q.Approver())

		_, err := k.Sign(context.Background(), sampleTx(k))
		require.ErrorIs(t, err, ledger.ErrUserRejected)
		require.ErrorIs(t, err, wallet.ErrApprovalExpired)
		require.EqualValues(t, 1, q.Pending())
	})
	t.Run("closed", func(t *testing.T) {
		q := wallet.NewApprovalQueue(0)
		q.Close()
		k := keyPair(t, 1).WithApprover(q.Approver())
		_, err := k.Sign(context.Background(), sampleTx(k))
		require.ErrorIs(t, err, wallet.ErrQueueClosed)
	})
	t.Run("late decision is ignored", func(t *testing.T) {
		q := wallet.NewApprovalQueue(0)
		defer q.Close()
		k := keyPair(t, 1).WithApprover(q.Approver())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := k.Sign(ctx, sampleTx(k))
		require.ErrorIs(t, err, ledger.ErrUserRejected)

		done := make(chan struct{})
		go q.Consume(func(req *wallet.ApprovalRequest) {
			req.Approve()
			close(done)
		})
		<-done
	})
}
