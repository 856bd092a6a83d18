package safe

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SignatureLength is the size of one r ‖ s ‖ v entry in a Safe signature blob.
const SignatureLength = 65

var ErrSignatureLength = errors.New("signature blob length is not a multiple of 65")

// Signature is one owner's entry of a Safe signature blob.
// Owner is not part of the encoding, it is the key used for ordering.
type Signature struct {
	Owner common.Address
	R     common.Hash
	S     common.Hash
	V     uint8
}

// Bytes encodes the signature as r ‖ s ‖ v.
func (s Signature) Bytes() []byte {
	out := make([]byte, 0, SignatureLength)
	out = append(out, s.R[:]...)
	out = append(out, s.S[:]...)
	return append(out, s.V)
}

func (s Signature) String() string {
	return hexutil.Encode(s.Bytes())
}

// Kind tells how Safe.checkNSignatures interprets the entry.
func (s Signature) Kind() SignatureKind {
	switch {
	case s.V == 0:
		return ContractSignature
	case s.V == 1:
		return ApprovedHash
	case s.V > 30:
		return EthSignSignature
	default:
		return ECDSASignature
	}
}

type SignatureKind int

const (
	ECDSASignature SignatureKind = iota
	EthSignSignature
	ApprovedHash
	ContractSignature
)

func (k SignatureKind) String() string {
	switch k {
	case ECDSASignature:
		return "ecdsa"
	case EthSignSignature:
		return "eth_sign"
	case ApprovedHash:
		return "approved_hash"
	case ContractSignature:
		return "contract"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseSignature decodes a single 65 byte entry. Owner stays empty.
func ParseSignature(b []byte) (Signature, error) {
	if len(b) != SignatureLength {
		return Signature{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(b))
	}
	var s Signature
	copy(s.R[:], b[:32])
	copy(s.S[:], b[32:64])
	s.V = b[64]
	return s, nil
}

// SplitSignatures cuts a blob into its 65 byte entries.
func SplitSignatures(blob []byte) ([]Signature, error) {
	if len(blob)%SignatureLength != 0 {
		return nil, ErrSignatureLength
	}
	sigs := make([]Signature, 0, len(blob)/SignatureLength)
	for offset := 0; offset < len(blob); offset += SignatureLength {
		s, err := ParseSignature(blob[offset : offset+SignatureLength])
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, s)
	}
	return sigs, nil
}

// ApprovedHashSignature builds the v=1 entry accepted for owners that called approveHash
// or that submit execTransaction themselves.
func ApprovedHashSignature(owner common.Address) Signature {
	return Signature{
		Owner: owner,
		R:     common.BytesToHash(owner.Bytes()),
		V:     1,
	}
}

func compareOwners(a, b Signature) int {
	return bytes.Compare(a.Owner[:], b.Owner[:])
}
