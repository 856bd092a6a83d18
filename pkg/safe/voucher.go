package safe

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// GiftTypeHash is keccak256 of the Gift EIP-712 struct type.
var GiftTypeHash = crypto.Keccak256Hash([]byte("Gift(address module,address token,uint256 amount)"))

var giftArgs = abi.Arguments{
	{Type: bytes32Type},
	{Type: addressType},
	{Type: addressType},
	{Type: uint256Type},
}

// GiftVoucher is what the Safe owners sign to let a gift module hand out Amount tokens per recipient.
// The recipient is not part of the voucher.
type GiftVoucher struct {
	Module common.Address
	Token  common.Address
	Amount *big.Int
}

func (g GiftVoucher) StructHash() common.Hash {
	amount := g.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	packed, err := giftArgs.Pack(GiftTypeHash, g.Module, g.Token, amount)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// Preimage is the data argument the module hands to Safe.checkSignatures.
func (g GiftVoucher) Preimage(d Domain) []byte {
	return d.TypedDataPreimage(g.StructHash())
}

// Hash is the digest the owners sign.
func (g GiftVoucher) Hash(d Domain) common.Hash {
	return crypto.Keccak256Hash(g.Preimage(d))
}
