package utxodb_test

import (
	"context"
	"crypto/ed25519"
	"math/big"
	"testing"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/record"
	"github.com/lunfardo314/easystate/ledger/state"
	"github.com/lunfardo314/easystate/ledger/txbuilder"
	"github.com/lunfardo314/easystate/ledger/utxodb"
	"github.com/stretchr/testify/require"
)

func sign(tx *ledger.Transaction, keys ...ed25519.PrivateKey) *ledger.SignedTransaction {
	ret := &ledger.SignedTransaction{Transaction: tx}
	for _, k := range keys {
		ret.Witnesses = append(ret.Witnesses, ledger.NewWitness(k, tx.ID()))
	}
	return ret
}

func TestBasics(t *testing.T) {
	t.Run("utxodb 1", func(t *testing.T) {
		u := utxodb.NewUTXODB(true)
		priv, pub := u.GenesisKeys()
		t.Logf("orig priv key: %s", easyfl.Fmt(priv))
		t.Logf("orig pub key: %s", easyfl.Fmt(pub))
		t.Logf("origin address: %s", u.GenesisAddress().String())
		require.EqualValues(t, u.Supply(), u.Balance(u.GenesisAddress()))

		_, _, cred := u.GenerateKeys(0)
		addr := ledger.KeyAddress(cred)
		err := u.TokensFromFaucet(addr, 100)
		require.NoError(t, err)
		require.EqualValues(t, 1, u.NumUTXOs(u.GenesisAddress()))
		require.EqualValues(t, u.Supply()-100, u.Balance(u.GenesisAddress()))
		require.EqualValues(t, 100, u.Balance(addr))
		require.EqualValues(t, 1, u.NumUTXOs(addr))
	})
	t.Run("utxodb 2", func(t *testing.T) {
		u := utxodb.NewUTXODB()
		privKey, _, cred := u.GenerateKeys(0)
		addr := ledger.KeyAddress(cred)
		err := u.TokensFromFaucet(addr, 100)
		require.NoError(t, err)
		err = u.TokensFromFaucet(addr)
		require.NoError(t, err)
		require.EqualValues(t, 1, u.NumUTXOs(u.GenesisAddress()))
		require.EqualValues(t, u.Supply()-100-utxodb.TokensFromFaucetDefault, u.Balance(u.GenesisAddress()))
		require.EqualValues(t, 100+utxodb.TokensFromFaucetDefault, u.Balance(addr))
		require.EqualValues(t, 2, u.NumUTXOs(addr))

		_, err = u.TransferTokens(privKey, addr, u.Balance(addr))
		require.NoError(t, err)
		require.EqualValues(t, 1, u.NumUTXOs(u.GenesisAddress()))
		require.EqualValues(t, u.Supply()-100-utxodb.TokensFromFaucetDefault, u.Balance(u.GenesisAddress()))
		require.EqualValues(t, 100+utxodb.TokensFromFaucetDefault, u.Balance(addr))
		require.EqualValues(t, 1, u.NumUTXOs(addr))
	})
	t.Run("utxodb 3 compress outputs", func(t *testing.T) {
		u := utxodb.NewUTXODB()
		privKey, _, cred := u.GenerateKeys(0)
		addr := ledger.KeyAddress(cred)
		const howMany = 100
		for i := 0; i < howMany; i++ {
			err := u.TokensFromFaucet(addr, 10)
			require.NoError(t, err)
		}
		require.EqualValues(t, howMany*10, u.Balance(addr))
		require.EqualValues(t, howMany, u.NumUTXOs(addr))

		_, err := u.TransferTokens(privKey, addr, howMany*10)
		require.NoError(t, err)
		require.EqualValues(t, howMany*10, u.Balance(addr))
		require.EqualValues(t, 1, u.NumUTXOs(addr))
	})
	t.Run("transfer between addresses", func(t *testing.T) {
		u := utxodb.NewUTXODB()
		privKey0, _, cred0 := u.GenerateKeys(0)
		_, _, cred1 := u.GenerateKeys(1)
		require.False(t, cred0.Equal(cred1))
		addr0, addr1 := ledger.KeyAddress(cred0), ledger.KeyAddress(cred1)

		require.NoError(t, u.TokensFromFaucet(addr0, 1000))
		txid, err := u.TransferTokens(privKey0, addr1, 400)
		require.NoError(t, err)
		require.True(t, u.HasTransaction(txid))
		require.EqualValues(t, 600, u.Balance(addr0))
		require.EqualValues(t, 400, u.Balance(addr1))

		_, err = u.TransferTokens(privKey0, addr1, 601)
		require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	})
	t.Run("outputs in order of production", func(t *testing.T) {
		u := utxodb.NewUTXODB()
		_, _, cred := u.GenerateKeys(0)
		addr := ledger.KeyAddress(cred)
		for _, amount := range []uint64{5, 3, 9, 1} {
			require.NoError(t, u.TokensFromFaucet(addr, amount))
		}
		outs, err := u.OutputsAt(context.Background(), addr)
		require.NoError(t, err)
		amounts := make([]uint64, len(outs))
		for i, o := range outs {
			amounts[i] = o.Output.Amount
		}
		require.EqualValues(t, []uint64{5, 3, 9, 1}, amounts)
	})
}

func TestSubmit(t *testing.T) {
	u := utxodb.NewUTXODB()
	privKey0, _, cred0 := u.GenerateKeys(0)
	privKey1, _, _ := u.GenerateKeys(1)
	addr0 := ledger.KeyAddress(cred0)
	require.NoError(t, u.TokensFromFaucet(addr0, 1000))

	transfer := func(amount uint64) *ledger.Transaction {
		outs, err := u.OutputsAt(context.Background(), addr0)
		require.NoError(t, err)
		tx, err := txbuilder.MakeTransferTransaction(txbuilder.NewTransferParams(addr0).
			WithOutputs(outs).WithTarget(addr0).WithAmount(amount))
		require.NoError(t, err)
		return tx
	}
	ctx := context.Background()

	t.Run("missing signature", func(t *testing.T) {
		_, err := u.Submit(ctx, sign(transfer(10), privKey1))
		easyfl.RequireErrorWith(t, err, "missing signature")
		_, err = u.Submit(ctx, sign(transfer(10)))
		easyfl.RequireErrorWith(t, err, "missing signature")
	})
	t.Run("invalid witness", func(t *testing.T) {
		stx := sign(transfer(10), privKey0)
		stx.Witnesses[0].Signature[0] ^= 0xff
		_, err := u.Submit(ctx, stx)
		require.Error(t, err)
	})
	t.Run("unbalanced", func(t *testing.T) {
		tx := transfer(10)
		tx.Outputs[0].Amount++
		_, err := u.Submit(ctx, sign(tx, privKey0))
		easyfl.RequireErrorWith(t, err, "unbalanced amount")
	})
	t.Run("double spend", func(t *testing.T) {
		tx1 := transfer(10)
		tx2 := transfer(20)
		_, err := u.Submit(ctx, sign(tx1, privKey0))
		require.NoError(t, err)
		_, err = u.Submit(ctx, sign(tx1, privKey0))
		require.ErrorIs(t, err, ledger.ErrConflict)
		_, err = u.Submit(ctx, sign(tx2, privKey0))
		require.ErrorIs(t, err, ledger.ErrConflict)
		require.EqualValues(t, 1000, u.Balance(addr0))
	})
	t.Run("no inputs", func(t *testing.T) {
		_, err := u.Submit(ctx, sign(txbuilder.NewTransactionBuilder().Transaction))
		easyfl.RequireErrorWith(t, err, "no inputs")
	})
	t.Run("offline", func(t *testing.T) {
		stx := sign(transfer(10), privKey0)
		u.SetOffline(true)
		defer u.SetOffline(false)

		_, err := u.OutputsAt(ctx, addr0)
		require.ErrorIs(t, err, ledger.ErrConnectivity)
		_, err = u.SpendableOutputs(ctx, addr0)
		require.ErrorIs(t, err, ledger.ErrConnectivity)
		_, err = u.Submit(ctx, stx)
		require.ErrorIs(t, err, ledger.ErrConnectivity)
	})
	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := u.OutputsAt(cctx, addr0)
		require.ErrorIs(t, err, context.Canceled)
	})
	t.Run("spendable only at key address", func(t *testing.T) {
		_, err := u.SpendableOutputs(ctx, ledger.NewValidator([]byte("v")).Address())
		require.ErrorIs(t, err, ledger.ErrPrecondition)
	})
}

func TestOwnerState(t *testing.T) {
	u := utxodb.NewUTXODB()
	validator := ledger.NewValidator([]byte("owner state"))
	u.DeployValidator(validator, state.OwnerStatePolicy(txbuilder.NonNegative))

	privKey, _, owner := u.GenerateKeys(0)
	ownerAddr := ledger.KeyAddress(owner)
	require.NoError(t, u.TokensFromFaucet(ownerAddr))
	ctx := context.Background()

	params := func() *txbuilder.Params {
		spendable, err := u.SpendableOutputs(ctx, ownerAddr)
		require.NoError(t, err)
		return txbuilder.NewParams(owner, validator).WithSpendable(spendable)
	}
	current := func() (*ledger.OutputWithID, *record.State) {
		outs, err := u.OutputsAt(ctx, validator.Address())
		require.NoError(t, err)
		require.EqualValues(t, 1, len(outs))
		st, err := record.StateFromBytes(outs[0].Output.Datum)
		require.NoError(t, err)
		return outs[0], st
	}

	tx, err := txbuilder.MakeInitializeTransaction(params(), big.NewInt(5))
	require.NoError(t, err)
	_, err = u.Submit(ctx, sign(tx, privKey))
	require.NoError(t, err)
	_, st := current()
	require.EqualValues(t, 5, st.Value.Int64())
	require.EqualValues(t, utxodb.TokensFromFaucetDefault, u.Balance(ownerAddr)+u.Balance(validator.Address()))

	t.Run("replace", func(t *testing.T) {
		out, st := current()
		tx, err := txbuilder.MakeTransitionTransaction(params(), out, st, txbuilder.Compare{Value: big.NewInt(42)})
		require.NoError(t, err)
		_, err = u.Submit(ctx, sign(tx, privKey))
		require.NoError(t, err)
		require.False(t, u.IsUnspent(out.ID))
		_, st = current()
		require.EqualValues(t, 42, st.Value.Int64())
	})
	t.Run("carry", func(t *testing.T) {
		out, st := current()
		tx, err := txbuilder.MakeTransitionTransaction(params(), out, st, txbuilder.Reassert{})
		require.NoError(t, err)
		_, err = u.Submit(ctx, sign(tx, privKey))
		require.NoError(t, err)
		_, st = current()
		require.EqualValues(t, 42, st.Value.Int64())
	})
	t.Run("successor value differs from redeemer", func(t *testing.T) {
		out, st := current()
		tx, err := txbuilder.MakeTransitionTransaction(params(), out, st, txbuilder.Reassert{})
		require.NoError(t, err)
		idx := tx.OutputsAt(validator.Address())
		tx.Outputs[idx[0]].Datum = record.NewState(owner, big.NewInt(43)).Bytes()
		_, err = u.Submit(ctx, sign(tx, privKey))
		easyfl.RequireErrorWith(t, err, "expected 42")
	})
	t.Run("value policy", func(t *testing.T) {
		out, st := current()
		tx, err := txbuilder.MakeTransitionTransaction(params(), out, st, txbuilder.Compare{Value: big.NewInt(-1)})
		require.NoError(t, err)
		_, err = u.Submit(ctx, sign(tx, privKey))
		easyfl.RequireErrorWith(t, err, "negative value")
	})
	t.Run("not signed by owner", func(t *testing.T) {
		otherKey, _, _ := u.GenerateKeys(7)
		out, st := current()
		tx, err := txbuilder.MakeTransitionTransaction(txbuilder.NewParams(owner, validator), out, st, txbuilder.Reassert{})
		require.NoError(t, err)
		_, err = u.Submit(ctx, sign(tx, otherKey))
		easyfl.RequireErrorWith(t, err, "not signed by the owner")
	})
	t.Run("two successors", func(t *testing.T) {
		out, st := current()
		tx, err := txbuilder.MakeTransitionTransaction(params(), out, st, txbuilder.Reassert{})
		require.NoError(t, err)
		for i, o := range tx.Outputs {
			if o.Address == ownerAddr {
				tx.Outputs[i] = ledger.NewOutput(validator.Address(), o.Amount, st.Bytes())
			}
		}
		_, err = u.Submit(ctx, sign(tx, privKey))
		easyfl.RequireErrorWith(t, err, "expected exactly one successor")
	})
	t.Run("validator not deployed", func(t *testing.T) {
		other := ledger.NewValidator([]byte("other"))
		tx, err := txbuilder.MakeInitializeTransaction(txbuilder.NewParams(owner, other).WithSpendable(mustSpendable(t, u, ownerAddr)), big.NewInt(1))
		require.NoError(t, err)
		_, err = u.Submit(ctx, sign(tx, privKey))
		require.NoError(t, err)

		outs, err := u.OutputsAt(ctx, other.Address())
		require.NoError(t, err)
		st, err := record.StateFromBytes(outs[0].Output.Datum)
		require.NoError(t, err)
		tx, err = txbuilder.MakeTransitionTransaction(txbuilder.NewParams(owner, other), outs[0], st, txbuilder.Reassert{})
		require.NoError(t, err)
		_, err = u.Submit(ctx, sign(tx, privKey))
		easyfl.RequireErrorWith(t, err, "unknown validator")
	})
	t.Run("value is preserved", func(t *testing.T) {
		_, st := current()
		require.EqualValues(t, 42, st.Value.Int64())
	})
}

func mustSpendable(t *testing.T, u *utxodb.UTXODB, addr ledger.Address) []*ledger.OutputWithID {
	ret, err := u.SpendableOutputs(context.Background(), addr)
	require.NoError(t, err)
	return ret
}
