package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Multisig is a snapshot of a Safe proxy as seen through its view functions.
type Multisig struct {
	Address   common.Address
	Nonce     *big.Int
	Threshold uint64
	Owners    []common.Address
	Modules   []common.Address
}

// IsOwner reports whether addr is one of the multisig owners.
func (m Multisig) IsOwner(addr common.Address) bool {
	for _, o := range m.Owners {
		if o == addr {
			return true
		}
	}
	return false
}

// GiftModule mirrors the public state of a SafeGiftModule instance.
type GiftModule struct {
	Address common.Address
	Safe    common.Address
	Token   common.Address
	Expiry  uint64
}
