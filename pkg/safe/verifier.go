package safe

import (
	"bytes"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// sentinelOwners is the head of the Safe owners linked list, never a valid owner.
var sentinelOwners = common.HexToAddress("0x0000000000000000000000000000000000000001")

// Verifier mirrors Safe v1.3.0 checkSignatures / checkNSignatures.
type Verifier struct {
	owners    map[common.Address]struct{}
	threshold uint64
	sender    common.Address
	approved  func(owner common.Address, hash common.Hash) bool
}

type VerifierOption func(v *Verifier)

// WithSender sets msg.sender, which may use an approved-hash entry without a prior approveHash.
func WithSender(sender common.Address) VerifierOption {
	return func(v *Verifier) {
		v.sender = sender
	}
}

// WithApprovals plugs in the approvedHashes lookup.
func WithApprovals(approved func(owner common.Address, hash common.Hash) bool) VerifierOption {
	return func(v *Verifier) {
		v.approved = approved
	}
}

func NewVerifier(owners []common.Address, threshold uint64, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		owners:    make(map[common.Address]struct{}, len(owners)),
		threshold: threshold,
	}
	for _, o := range owners {
		v.owners[o] = struct{}{}
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// CheckSignatures validates threshold signatures over hash.
// Errors are *core.RevertError values carrying the Safe revert code.
func (v *Verifier) CheckSignatures(hash common.Hash, signatures []byte) error {
	if v.threshold == 0 {
		return revert(CodeThresholdNotDefined)
	}
	return v.CheckNSignatures(hash, signatures, v.threshold)
}

// CheckNSignatures validates the first required entries of the blob. Extra trailing bytes are ignored,
// as the contract does.
func (v *Verifier) CheckNSignatures(hash common.Hash, signatures []byte, required uint64) error {
	if uint64(len(signatures)) < required*SignatureLength {
		return revert(CodeSignaturesTooShort)
	}
	var last common.Address
	for i := uint64(0); i < required; i++ {
		sig, err := ParseSignature(signatures[i*SignatureLength : (i+1)*SignatureLength])
		if err != nil {
			return revert(CodeSignaturesTooShort)
		}
		var owner common.Address
		switch sig.Kind() {
		case ContractSignature:
			return revert(CodeInvalidContractSig)
		case ApprovedHash:
			owner = common.BytesToAddress(sig.R[:])
			if owner != v.sender && (v.approved == nil || !v.approved(owner, hash)) {
				return revert(CodeHashNotApproved)
			}
		case EthSignSignature:
			owner = ecrecover(common.BytesToHash(accounts.TextHash(hash[:])), sig.V-4, sig.R, sig.S)
		default:
			owner = ecrecover(hash, sig.V, sig.R, sig.S)
		}
		if bytes.Compare(owner[:], last[:]) <= 0 || owner == sentinelOwners {
			return revert(CodeInvalidOwner)
		}
		if _, ok := v.owners[owner]; !ok {
			return revert(CodeInvalidOwner)
		}
		last = owner
	}
	return nil
}

// ecrecover behaves like the EVM precompile: any malformed input yields the zero address.
func ecrecover(hash common.Hash, v uint8, r, s common.Hash) common.Address {
	if v != 27 && v != 28 {
		return common.Address{}
	}
	sig := make([]byte, 0, SignatureLength)
	sig = append(sig, r[:]...)
	sig = append(sig, s[:]...)
	sig = append(sig, v-27)
	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(*pub)
}

// RecoverOwners returns the address behind each ECDSA or eth_sign entry of a blob, in blob order.
// Approved-hash entries yield the address encoded in r, contract signatures the zero address.
func RecoverOwners(hash common.Hash, signatures []byte) ([]common.Address, error) {
	sigs, err := SplitSignatures(signatures)
	if err != nil {
		return nil, err
	}
	owners := make([]common.Address, len(sigs))
	for i, s := range sigs {
		switch s.Kind() {
		case ECDSASignature:
			owners[i] = ecrecover(hash, s.V, s.R, s.S)
		case EthSignSignature:
			owners[i] = ecrecover(common.BytesToHash(accounts.TextHash(hash[:])), s.V-4, s.R, s.S)
		case ApprovedHash:
			owners[i] = common.BytesToAddress(s.R[:])
		}
	}
	return owners, nil
}
