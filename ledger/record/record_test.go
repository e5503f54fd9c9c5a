package record

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/plutusdata"
	"github.com/stretchr/testify/require"
)

var owner = ledger.Credential{0xab, 0x12}

func TestState(t *testing.T) {
	t.Run("encode", func(t *testing.T) {
		st := NewState(owner, big.NewInt(5))
		require.EqualValues(t, "d8798242ab1205", hex.EncodeToString(st.Bytes()))
		back, err := StateFromBytes(st.Bytes())
		require.NoError(t, err)
		require.True(t, st.Equal(back))
		require.EqualValues(t, "State(ab12, 5)", back.String())
	})
	t.Run("big and negative", func(t *testing.T) {
		v := new(big.Int).Lsh(big.NewInt(-3), 200)
		st := NewState(owner, v)
		back, err := StateFromBytes(st.Bytes())
		require.NoError(t, err)
		require.EqualValues(t, 0, v.Cmp(back.Value))
	})
	t.Run("value is copied", func(t *testing.T) {
		v := big.NewInt(5)
		st := NewState(owner, v)
		v.SetInt64(6)
		require.EqualValues(t, 5, st.Value.Int64())
	})
	t.Run("rejected shapes", func(t *testing.T) {
		cases := []plutusdata.Data{
			plutusdata.NewConstr(1, plutusdata.Bytes(owner), plutusdata.NewInt64(5)),
			plutusdata.NewConstr(0, plutusdata.Bytes(owner)),
			plutusdata.NewConstr(0, plutusdata.Bytes(owner), plutusdata.NewInt64(5), plutusdata.NewInt64(6)),
			plutusdata.NewConstr(0, plutusdata.NewInt64(5), plutusdata.Bytes(owner)),
			plutusdata.NewConstr(0, plutusdata.Bytes{}, plutusdata.NewInt64(5)),
			plutusdata.NewConstr(0, plutusdata.Bytes(owner), plutusdata.Bytes{5}),
			plutusdata.List{plutusdata.Bytes(owner), plutusdata.NewInt64(5)},
			plutusdata.NewInt64(5),
		}
		for _, d := range cases {
			st, err := StateFromBytes(plutusdata.MustEncode(d))
			require.ErrorIs(t, err, plutusdata.ErrDecode, d.String())
			require.Nil(t, st)
		}
	})
	t.Run("malformed bytes", func(t *testing.T) {
		st, err := StateFromBytes([]byte{0xd8, 0x79})
		require.ErrorIs(t, err, plutusdata.ErrDecode)
		require.Nil(t, st)
	})
}

func TestAction(t *testing.T) {
	t.Run("replace", func(t *testing.T) {
		bin := ActionBytes(NewReplace(big.NewInt(42)))
		require.EqualValues(t, "d87a81182a", hex.EncodeToString(bin))
		a, err := ActionFromBytes(bin)
		require.NoError(t, err)
		r, ok := a.(*Replace)
		require.True(t, ok)
		require.EqualValues(t, 42, r.Value.Int64())
	})
	t.Run("carry", func(t *testing.T) {
		bin := ActionBytes(Carry{})
		require.EqualValues(t, "d87980", hex.EncodeToString(bin))
		a, err := ActionFromBytes(bin)
		require.NoError(t, err)
		require.Equal(t, Carry{}, a)
	})
	t.Run("unknown", func(t *testing.T) {
		cases := []plutusdata.Data{
			plutusdata.NewConstr(2),
			plutusdata.NewConstr(0, plutusdata.NewInt64(1)),
			plutusdata.NewConstr(1),
			plutusdata.NewConstr(1, plutusdata.Bytes{1}),
			plutusdata.NewInt64(1),
		}
		for _, d := range cases {
			_, err := ActionFromBytes(plutusdata.MustEncode(d))
			require.ErrorIs(t, err, plutusdata.ErrDecode, d.String())
		}
	})
}
