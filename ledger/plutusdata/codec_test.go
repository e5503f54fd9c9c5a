package plutusdata

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	ret, err := hex.DecodeString(s)
	require.NoError(t, err)
	return ret
}

func TestEncode(t *testing.T) {
	t.Run("empty constructor", func(t *testing.T) {
		require.EqualValues(t, "d87980", hex.EncodeToString(MustEncode(NewConstr(0))))
	})
	t.Run("replace 42", func(t *testing.T) {
		require.EqualValues(t, "d87a81182a", hex.EncodeToString(MustEncode(NewConstr(1, NewInt64(42)))))
	})
	t.Run("state record", func(t *testing.T) {
		d := NewConstr(0, Bytes{0xab, 0x12}, NewInt64(5))
		require.EqualValues(t, "d8798242ab1205", hex.EncodeToString(MustEncode(d)))
	})
	t.Run("medium alternative", func(t *testing.T) {
		require.EqualValues(t, "d9050080", hex.EncodeToString(MustEncode(NewConstr(7))))
	})
	t.Run("general alternative", func(t *testing.T) {
		require.EqualValues(t, "d8668218c88101", hex.EncodeToString(MustEncode(NewConstr(200, NewInt64(1)))))
	})
	t.Run("negative", func(t *testing.T) {
		require.EqualValues(t, "20", hex.EncodeToString(MustEncode(NewInt64(-1))))
	})
	t.Run("bignum", func(t *testing.T) {
		v := new(big.Int).Lsh(big.NewInt(1), 64)
		require.EqualValues(t, "c249010000000000000000", hex.EncodeToString(MustEncode(NewInteger(v))))
	})
	t.Run("nil bytes and list", func(t *testing.T) {
		require.EqualValues(t, "40", hex.EncodeToString(MustEncode(Bytes(nil))))
		require.EqualValues(t, "80", hex.EncodeToString(MustEncode(List(nil))))
		require.EqualValues(t, "d87980", hex.EncodeToString(MustEncode(&Constr{Tag: 0})))
	})
	t.Run("nil integer", func(t *testing.T) {
		_, err := Encode(NewConstr(0, Integer{}))
		require.Error(t, err)
	})
}

func TestDecode(t *testing.T) {
	t.Run("definite state record", func(t *testing.T) {
		c, err := DecodeConstr(mustHex(t, "d8798242ab1205"))
		require.NoError(t, err)
		require.True(t, Equal(NewConstr(0, Bytes{0xab, 0x12}, NewInt64(5)), c))
	})
	t.Run("indefinite state record", func(t *testing.T) {
		c, err := DecodeConstr(mustHex(t, "d8799f42ab1205ff"))
		require.NoError(t, err)
		require.EqualValues(t, 0, c.Tag)
		require.EqualValues(t, 2, len(c.Fields))
		require.EqualValues(t, Bytes{0xab, 0x12}, c.Fields[0])
		require.EqualValues(t, 0, c.Fields[1].(Integer).Value.Cmp(big.NewInt(5)))
	})
	t.Run("round trip", func(t *testing.T) {
		big1 := new(big.Int).Lsh(big.NewInt(1), 100)
		big2 := new(big.Int).Neg(big1)
		cases := []Data{
			NewConstr(0),
			NewConstr(6, NewInt64(-7)),
			NewConstr(7, Bytes("abc")),
			NewConstr(127, List{NewInt64(1), NewInt64(2)}),
			NewConstr(128),
			NewConstr(1000, NewConstr(3)),
			NewInteger(big1),
			NewInteger(big2),
			List{},
			Bytes{},
		}
		for _, d := range cases {
			back, err := Decode(MustEncode(d))
			require.NoError(t, err, d.String())
			require.True(t, Equal(d, back), "%s != %s", d.String(), back.String())
		}
	})
	t.Run("malformed", func(t *testing.T) {
		cases := []string{
			"",
			"d8",
			"d87982",
			"d8798242ab12",
			"d8798242ab120500", // trailing bytes
			"a10102",           // map
			"f6",               // null
			"c0781a",           // unsupported tag
			"d87901",           // fields not an array
			"d866820081",       // general constructor with truncated fields
			"d8668100",         // general constructor not a pair
			"ff",
		}
		for _, s := range cases {
			require.NotPanics(t, func() {
				_, err := Decode(mustHex(t, s))
				require.ErrorIs(t, err, ErrDecode, s)
				var de *DecodeError
				require.ErrorAs(t, err, &de)
			})
		}
	})
	t.Run("not constructor", func(t *testing.T) {
		_, err := DecodeConstr(mustHex(t, "05"))
		require.ErrorIs(t, err, ErrDecode)
	})
	t.Run("too deep", func(t *testing.T) {
		enc := strings.Repeat("81", MaxNestingDepth+2) + "00"
		_, err := Decode(mustHex(t, enc))
		require.ErrorIs(t, err, ErrDecode)

		enc = strings.Repeat("81", MaxNestingDepth-1) + "00"
		_, err = Decode(mustHex(t, enc))
		require.NoError(t, err)
	})
}
