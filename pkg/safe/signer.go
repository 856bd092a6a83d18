package safe

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignMode selects how an owner signs a Safe hash.
type SignMode int

const (
	// DigestMode signs the hash directly, v is 27 or 28.
	DigestMode SignMode = iota
	// EthSignMode signs the eth_sign prefixed hash, v is 31 or 32.
	EthSignMode
)

// Signer produces an owner signature over a 32 byte digest.
type Signer interface {
	Address() common.Address
	SignHash(hash common.Hash, mode SignMode) (Signature, error)
}

// PrivateKeySigner signs with a local secp256k1 key.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewPrivateKeySigner(key *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// SignHash uses RFC6979 deterministic ECDSA, so signing the same hash twice yields the same bytes.
func (s *PrivateKeySigner) SignHash(hash common.Hash, mode SignMode) (Signature, error) {
	digest := hash.Bytes()
	offset := byte(27)
	switch mode {
	case DigestMode:
	case EthSignMode:
		digest = accounts.TextHash(digest)
		offset = 31
	default:
		return Signature{}, fmt.Errorf("unknown sign mode %d", mode)
	}
	raw, err := crypto.Sign(digest, s.key)
	if err != nil {
		return Signature{}, err
	}
	sig, err := ParseSignature(raw)
	if err != nil {
		return Signature{}, err
	}
	sig.V += offset
	sig.Owner = s.address
	return sig, nil
}
