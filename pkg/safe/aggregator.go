package safe

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/exp/slices"
)

var (
	ErrNoSigners       = errors.New("at least one signer is required")
	ErrDuplicateSigner = errors.New("duplicate signer")
)

// Aggregator turns owner signatures into the blob expected by Safe.checkSignatures.
type Aggregator struct {
	mode SignMode
}

type AggregatorOption func(a *Aggregator)

func WithSignMode(mode SignMode) AggregatorOption {
	return func(a *Aggregator) {
		a.mode = mode
	}
}

func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{mode: DigestMode}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Sign collects one signature per signer over hash and returns them sorted by owner address.
func (a *Aggregator) Sign(hash common.Hash, signers ...Signer) ([]Signature, error) {
	if len(signers) == 0 {
		return nil, ErrNoSigners
	}
	seen := make(map[common.Address]struct{}, len(signers))
	for _, s := range signers {
		if _, ok := seen[s.Address()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSigner, s.Address())
		}
		seen[s.Address()] = struct{}{}
	}
	sigs, err := iter.MapErr(signers, func(s *Signer) (Signature, error) {
		return (*s).SignHash(hash, a.mode)
	})
	if err != nil {
		return nil, err
	}
	SortSignatures(sigs)
	return sigs, nil
}

// SignBlob is Sign followed by Encode.
func (a *Aggregator) SignBlob(hash common.Hash, signers ...Signer) ([]byte, error) {
	sigs, err := a.Sign(hash, signers...)
	if err != nil {
		return nil, err
	}
	return Encode(sigs), nil
}

// SortSignatures orders signatures by ascending owner address, in place.
func SortSignatures(sigs []Signature) {
	slices.SortFunc(sigs, compareOwners)
}

// Encode concatenates the signatures in the given order.
// Callers that did not get sigs from Sign must call SortSignatures first.
func Encode(sigs []Signature) []byte {
	out := make([]byte, 0, len(sigs)*SignatureLength)
	for _, s := range sigs {
		out = append(out, s.Bytes()...)
	}
	return out
}

// Aggregate sorts a copy of sigs and encodes it.
func Aggregate(sigs ...Signature) []byte {
	sorted := slices.Clone(sigs)
	SortSignatures(sorted)
	return Encode(sorted)
}
