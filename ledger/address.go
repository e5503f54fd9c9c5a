package ledger

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"golang.org/x/crypto/blake2b"
)

// CredentialLength is the length of the public key hash. Credentials of other length
// are accepted as opaque identifiers
const CredentialLength = 28

type (
	// Credential identifies the owner: normally the blake2b-224 hash of the ed25519 public key
	Credential []byte

	// Address is a kind byte followed by the key or script hash. It is comparable, so it can be used as a map key
	Address string

	AddressKind byte

	// Validator is the opaque pre-deployed script which locks state outputs
	Validator struct {
		Script []byte
	}
)

const (
	AddressKindKey = AddressKind(iota)
	AddressKindScript
)

func hash224(data []byte) []byte {
	h, err := blake2b.New(CredentialLength, nil)
	easyfl.AssertNoError(err)
	h.Write(data)
	return h.Sum(nil)
}

func CredentialFromPublicKey(pubKey ed25519.PublicKey) Credential {
	return hash224(pubKey)
}

func CredentialFromHex(s string) (Credential, error) {
	ret, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("CredentialFromHex: %v", err)
	}
	if len(ret) == 0 {
		return nil, errors.New("CredentialFromHex: empty credential")
	}
	return ret, nil
}

func (c Credential) Bytes() []byte {
	return c
}

func (c Credential) Equal(c1 Credential) bool {
	return bytes.Equal(c, c1)
}

func (c Credential) String() string {
	return hex.EncodeToString(c)
}

func KeyAddress(c Credential) Address {
	return Address(append([]byte{byte(AddressKindKey)}, c...))
}

func ScriptAddress(scriptHash []byte) Address {
	return Address(append([]byte{byte(AddressKindScript)}, scriptHash...))
}

func AddressFromBytes(data []byte) (Address, error) {
	if len(data) < 2 {
		return "", errors.New("AddressFromBytes: too short")
	}
	switch AddressKind(data[0]) {
	case AddressKindKey, AddressKindScript:
	default:
		return "", fmt.Errorf("AddressFromBytes: unknown address kind %d", data[0])
	}
	return Address(data), nil
}

func (a Address) Bytes() []byte {
	return []byte(a)
}

func (a Address) Kind() AddressKind {
	easyfl.Assert(len(a) > 0, "empty address")
	return AddressKind(a[0])
}

// Hash is the credential for key addresses and the script hash for script addresses
func (a Address) Hash() []byte {
	easyfl.Assert(len(a) > 0, "empty address")
	return []byte(a[1:])
}

func (a Address) IsScript() bool {
	return len(a) > 0 && a.Kind() == AddressKindScript
}

func (a Address) String() string {
	if len(a) == 0 {
		return "addr(nil)"
	}
	if a.IsScript() {
		return "script_" + hex.EncodeToString(a.Hash())
	}
	return "key_" + hex.EncodeToString(a.Hash())
}

func NewValidator(script []byte) *Validator {
	return &Validator{Script: script}
}

func (v *Validator) Hash() []byte {
	return hash224(v.Script)
}

func (v *Validator) Address() Address {
	return ScriptAddress(v.Hash())
}
