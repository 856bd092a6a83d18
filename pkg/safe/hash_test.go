package safe

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/arnac-io/safegift/pkg/core"
)

func TestDomain_TransactionHash(t *testing.T) {
	tests := []struct {
		name   string
		domain Domain
		tx     core.SafeTransaction
		want   common.Hash
	}{
		{
			// confirmed by the Safe transaction service for a pre-1.3.0 Safe
			name:   "legacy domain",
			domain: NewDomain(nil, common.HexToAddress("0x25a6c4BBd32B2424A9c99aEB0584Ad12045382B3")),
			tx: core.SafeTransaction{
				To:        common.HexToAddress("0x9eE457023bB3De16D51A003a247BaEaD7fce313D"),
				Value:     big.NewInt(20000000000000000),
				SafeTxGas: big.NewInt(27845),
				Nonce:     big.NewInt(3),
			},
			want: common.HexToHash("0x28bae2bd58d894a1d9b69e5e9fde3570c4b98a6fc5499aefb54fb830137e831f"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.domain.TransactionHash(tt.tx))
		})
	}
}

func TestDomain_EncodeTransactionData(t *testing.T) {
	d := NewDomain(big.NewInt(1), common.HexToAddress("0x25a6c4BBd32B2424A9c99aEB0584Ad12045382B3"))
	tx := core.NewCall(d.Safe, []byte{0x61, 0x0b, 0x59, 0x25}, big.NewInt(0))

	data := d.EncodeTransactionData(tx)
	require.Len(t, data, 66)
	require.Equal(t, []byte{0x19, 0x01}, data[:2])
	separator := d.Separator()
	require.Equal(t, separator[:], data[2:34])
	structHash := StructHash(tx)
	require.Equal(t, structHash[:], data[34:])
	require.Equal(t, crypto.Keccak256Hash(data), d.TransactionHash(tx))
}

func TestDomain_Separator(t *testing.T) {
	safeAddr := common.HexToAddress("0x25a6c4BBd32B2424A9c99aEB0584Ad12045382B3")
	legacy := NewDomain(nil, safeAddr).Separator()
	mainnet := NewDomain(big.NewInt(1), safeAddr).Separator()
	local := NewDomain(big.NewInt(31337), safeAddr).Separator()
	require.NotEqual(t, legacy, mainnet)
	require.NotEqual(t, mainnet, local)

	want := crypto.Keccak256Hash(
		common.LeftPadBytes(DomainTypeHash[:], 32),
		common.LeftPadBytes(big.NewInt(1).Bytes(), 32),
		common.LeftPadBytes(safeAddr[:], 32),
	)
	require.Equal(t, want, mainnet)
}

func TestTransactionHash_FieldChangesInvalidate(t *testing.T) {
	d := NewDomain(big.NewInt(31337), common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
	base := core.SafeTransaction{
		To:    common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		Data:  []byte{0x61, 0x0b, 0x59, 0x25},
		Nonce: big.NewInt(0),
	}
	baseHash := d.TransactionHash(base)

	tests := []struct {
		name   string
		mutate func(tx *core.SafeTransaction)
	}{
		{name: "to", mutate: func(tx *core.SafeTransaction) { tx.To = common.HexToAddress("0x01") }},
		{name: "value", mutate: func(tx *core.SafeTransaction) { tx.Value = big.NewInt(1) }},
		{name: "data", mutate: func(tx *core.SafeTransaction) { tx.Data = []byte{0x00} }},
		{name: "operation", mutate: func(tx *core.SafeTransaction) { tx.Operation = core.DelegateCall }},
		{name: "safeTxGas", mutate: func(tx *core.SafeTransaction) { tx.SafeTxGas = big.NewInt(1) }},
		{name: "baseGas", mutate: func(tx *core.SafeTransaction) { tx.BaseGas = big.NewInt(1) }},
		{name: "gasPrice", mutate: func(tx *core.SafeTransaction) { tx.GasPrice = big.NewInt(1) }},
		{name: "gasToken", mutate: func(tx *core.SafeTransaction) { tx.GasToken = common.HexToAddress("0x02") }},
		{name: "refundReceiver", mutate: func(tx *core.SafeTransaction) { tx.RefundReceiver = common.HexToAddress("0x03") }},
		{name: "nonce", mutate: func(tx *core.SafeTransaction) { tx.Nonce = big.NewInt(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base
			tt.mutate(&tx)
			require.NotEqual(t, baseHash, d.TransactionHash(tx))
			// the original descriptor is untouched
			require.Equal(t, baseHash, d.TransactionHash(base))
		})
	}

	t.Run("nil and zero are equal", func(t *testing.T) {
		tx := base
		tx.Value = new(big.Int)
		tx.GasPrice = new(big.Int)
		require.Equal(t, baseHash, d.TransactionHash(tx))
	})
}

func TestGiftVoucher_Hash(t *testing.T) {
	d := NewDomain(big.NewInt(31337), common.HexToAddress("0xa16E02E87b7454126E5E10d957A927A7F5B5d2be"))
	v := GiftVoucher{
		Module: common.HexToAddress("0xB7A5bd0345EF1Cc5E66bf61BdeC17D2461fBd968"),
		Token:  common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		Amount: big.NewInt(100),
	}
	preimage := v.Preimage(d)
	require.Len(t, preimage, 66)
	require.Equal(t, crypto.Keccak256Hash(preimage), v.Hash(d))

	other := v
	other.Amount = big.NewInt(101)
	require.NotEqual(t, v.Hash(d), other.Hash(d))

	otherSafe := NewDomain(big.NewInt(31337), common.HexToAddress("0x01"))
	require.NotEqual(t, v.Hash(d), v.Hash(otherSafe))
}
