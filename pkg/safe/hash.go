package safe

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arnac-io/safegift/pkg/core"
)

var (
	// SafeTxTypeHash is keccak256 of the SafeTx EIP-712 struct type.
	SafeTxTypeHash = crypto.Keccak256Hash([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
	// DomainTypeHash is used by Safe >= 1.3.0, the domain includes the chain id.
	DomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	// LegacyDomainTypeHash is used by Safe < 1.3.0.
	LegacyDomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(address verifyingContract)"))
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	uint8Type, _   = abi.NewType("uint8", "", nil)
	addressType, _ = abi.NewType("address", "", nil)

	domainArgs = abi.Arguments{
		{Type: bytes32Type},
		{Type: uint256Type},
		{Type: addressType},
	}
	legacyDomainArgs = abi.Arguments{
		{Type: bytes32Type},
		{Type: addressType},
	}
	safeTxArgs = abi.Arguments{
		{Type: bytes32Type}, // typehash
		{Type: addressType}, // to
		{Type: uint256Type}, // value
		{Type: bytes32Type}, // keccak256(data)
		{Type: uint8Type},   // operation
		{Type: uint256Type}, // safeTxGas
		{Type: uint256Type}, // baseGas
		{Type: uint256Type}, // gasPrice
		{Type: addressType}, // gasToken
		{Type: addressType}, // refundReceiver
		{Type: uint256Type}, // nonce
	}
)

// Domain identifies the Safe instance a hash is bound to.
// A nil ChainID selects the legacy (pre 1.3.0) domain layout.
type Domain struct {
	ChainID *big.Int
	Safe    common.Address
}

func NewDomain(chainID *big.Int, safe common.Address) Domain {
	return Domain{ChainID: chainID, Safe: safe}
}

// Separator returns the EIP-712 domain separator as computed by Safe.domainSeparator().
func (d Domain) Separator() common.Hash {
	var (
		packed []byte
		err    error
	)
	if d.ChainID == nil {
		packed, err = legacyDomainArgs.Pack(LegacyDomainTypeHash, d.Safe)
	} else {
		packed, err = domainArgs.Pack(DomainTypeHash, d.ChainID, d.Safe)
	}
	if err != nil {
		// all argument types are static and checked above
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// TypedDataPreimage builds 0x19 0x01 ‖ domainSeparator ‖ structHash.
func (d Domain) TypedDataPreimage(structHash common.Hash) []byte {
	separator := d.Separator()
	out := make([]byte, 0, 2+2*common.HashLength)
	out = append(out, 0x19, 0x01)
	out = append(out, separator[:]...)
	out = append(out, structHash[:]...)
	return out
}

// StructHash returns hashStruct(SafeTx).
func StructHash(tx core.SafeTransaction) common.Hash {
	packed, err := safeTxArgs.Pack(
		SafeTxTypeHash,
		tx.To,
		tx.ValueOrZero(),
		crypto.Keccak256Hash(tx.Data),
		uint8(tx.Operation),
		tx.SafeTxGasOrZero(),
		tx.BaseGasOrZero(),
		tx.GasPriceOrZero(),
		tx.GasToken,
		tx.RefundReceiver,
		tx.NonceOrZero(),
	)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// EncodeTransactionData mirrors Safe.encodeTransactionData.
func (d Domain) EncodeTransactionData(tx core.SafeTransaction) []byte {
	return d.TypedDataPreimage(StructHash(tx))
}

// TransactionHash mirrors Safe.getTransactionHash. This is the digest owners sign.
func (d Domain) TransactionHash(tx core.SafeTransaction) common.Hash {
	return crypto.Keccak256Hash(d.EncodeTransactionData(tx))
}
