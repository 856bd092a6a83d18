package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Operation is the Enum.Operation of a Safe transaction.
type Operation uint8

const (
	Call         Operation = 0
	DelegateCall Operation = 1
)

func (o Operation) String() string {
	switch o {
	case Call:
		return "call"
	case DelegateCall:
		return "delegatecall"
	}
	return fmt.Sprintf("operation(%d)", uint8(o))
}

// SafeTransaction describes a transaction executed through Safe.execTransaction.
// Nil big integers are treated as zero.
type SafeTransaction struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      Operation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          *big.Int
}

// NewCall returns a plain call descriptor without gas refund settings.
func NewCall(to common.Address, data []byte, nonce *big.Int) SafeTransaction {
	return SafeTransaction{
		To:    to,
		Data:  data,
		Nonce: nonce,
	}
}

// WithNonce returns a copy of the descriptor bound to another nonce.
func (tx SafeTransaction) WithNonce(nonce *big.Int) SafeTransaction {
	tx.Nonce = new(big.Int).Set(nonce)
	return tx
}

func bigOrZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

func (tx SafeTransaction) ValueOrZero() *big.Int     { return bigOrZero(tx.Value) }
func (tx SafeTransaction) SafeTxGasOrZero() *big.Int { return bigOrZero(tx.SafeTxGas) }
func (tx SafeTransaction) BaseGasOrZero() *big.Int   { return bigOrZero(tx.BaseGas) }
func (tx SafeTransaction) GasPriceOrZero() *big.Int  { return bigOrZero(tx.GasPrice) }
func (tx SafeTransaction) NonceOrZero() *big.Int     { return bigOrZero(tx.Nonce) }
