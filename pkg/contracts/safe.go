package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/core"
)

// Safe is a binding to a GnosisSafe v1.3.0 proxy or singleton.
type Safe struct {
	*Contract
}

func NewSafe(address common.Address, backend chain.Backend) *Safe {
	return &Safe{NewContract(address, SafeABI, backend)}
}

// SetupData encodes setup(owners, threshold, 0x0, 0x, 0x0, 0x0, 0, 0x0), the initializer passed to createProxy.
func SetupData(owners []common.Address, threshold uint64) ([]byte, error) {
	return SafeABI.Pack("setup",
		owners,
		new(big.Int).SetUint64(threshold),
		common.Address{},
		[]byte{},
		common.Address{},
		common.Address{},
		new(big.Int),
		common.Address{},
	)
}

func EnableModuleData(module common.Address) ([]byte, error) {
	return SafeABI.Pack("enableModule", module)
}

// Sentinel heads the Safe's owner and module linked lists.
var Sentinel = common.HexToAddress("0x0000000000000000000000000000000000000001")

// DisableModuleData removes module, prevModule is its predecessor in the list or Sentinel.
func DisableModuleData(prevModule, module common.Address) ([]byte, error) {
	return SafeABI.Pack("disableModule", prevModule, module)
}

func (s *Safe) Version(ctx context.Context) (string, error) {
	v, err := single(s.Call(ctx, "VERSION"))
	if err != nil {
		return "", err
	}
	return as[string](v)
}

func (s *Safe) Nonce(ctx context.Context) (*big.Int, error) {
	v, err := single(s.Call(ctx, "nonce"))
	if err != nil {
		return nil, err
	}
	return asBig(v)
}

func (s *Safe) Threshold(ctx context.Context) (uint64, error) {
	v, err := single(s.Call(ctx, "getThreshold"))
	if err != nil {
		return 0, err
	}
	b, err := asBig(v)
	if err != nil {
		return 0, err
	}
	return b.Uint64(), nil
}

func (s *Safe) Owners(ctx context.Context) ([]common.Address, error) {
	v, err := single(s.Call(ctx, "getOwners"))
	if err != nil {
		return nil, err
	}
	return as[[]common.Address](v)
}

func (s *Safe) IsOwner(ctx context.Context, owner common.Address) (bool, error) {
	v, err := single(s.Call(ctx, "isOwner", owner))
	if err != nil {
		return false, err
	}
	return asBool(v)
}

func (s *Safe) IsModuleEnabled(ctx context.Context, module common.Address) (bool, error) {
	v, err := single(s.Call(ctx, "isModuleEnabled", module))
	if err != nil {
		return false, err
	}
	return asBool(v)
}

// Modules returns up to pageSize enabled modules, newest first.
func (s *Safe) Modules(ctx context.Context, pageSize int64) ([]common.Address, error) {
	out, err := s.Call(ctx, "getModulesPaginated", Sentinel, big.NewInt(pageSize))
	if err != nil {
		return nil, err
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("got %d outputs, want 2", len(out))
	}
	return as[[]common.Address](out[0])
}

func (s *Safe) DomainSeparator(ctx context.Context) (common.Hash, error) {
	v, err := single(s.Call(ctx, "domainSeparator"))
	if err != nil {
		return common.Hash{}, err
	}
	return asHash(v)
}

func (s *Safe) txArgs(tx core.SafeTransaction) []interface{} {
	return []interface{}{
		tx.To,
		tx.ValueOrZero(),
		nonNil(tx.Data),
		uint8(tx.Operation),
		tx.SafeTxGasOrZero(),
		tx.BaseGasOrZero(),
		tx.GasPriceOrZero(),
		tx.GasToken,
		tx.RefundReceiver,
	}
}

// EncodeTransactionData asks the contract for the EIP-712 pre-image of tx.
func (s *Safe) EncodeTransactionData(ctx context.Context, tx core.SafeTransaction) ([]byte, error) {
	v, err := single(s.Call(ctx, "encodeTransactionData", append(s.txArgs(tx), tx.NonceOrZero())...))
	if err != nil {
		return nil, err
	}
	return as[[]byte](v)
}

// GetTransactionHash asks the contract for the hash owners have to sign.
func (s *Safe) GetTransactionHash(ctx context.Context, tx core.SafeTransaction) (common.Hash, error) {
	v, err := single(s.Call(ctx, "getTransactionHash", append(s.txArgs(tx), tx.NonceOrZero())...))
	if err != nil {
		return common.Hash{}, err
	}
	return asHash(v)
}

// CheckSignatures runs the view with msg.sender set to from. A nil error means the signatures are accepted.
func (s *Safe) CheckSignatures(ctx context.Context, from common.Address, hash common.Hash, data, signatures []byte) error {
	_, err := s.CallFrom(ctx, from, "checkSignatures", hash, nonNil(data), nonNil(signatures))
	return err
}

// ExecTransaction executes tx with the aggregated signatures. The nonce of tx is not sent,
// the contract uses its current nonce.
func (s *Safe) ExecTransaction(ctx context.Context, from common.Address, tx core.SafeTransaction, signatures []byte) (*types.Receipt, error) {
	return s.Transact(ctx, from, "execTransaction", append(s.txArgs(tx), nonNil(signatures))...)
}

func (s *Safe) ApproveHash(ctx context.Context, from common.Address, hash common.Hash) (*types.Receipt, error) {
	return s.Transact(ctx, from, "approveHash", hash)
}

// State reads owners, threshold, nonce and the first page of modules.
func (s *Safe) State(ctx context.Context) (core.Multisig, error) {
	m := core.Multisig{Address: s.Address}
	var err error
	if m.Owners, err = s.Owners(ctx); err != nil {
		return m, err
	}
	if m.Threshold, err = s.Threshold(ctx); err != nil {
		return m, err
	}
	if m.Nonce, err = s.Nonce(ctx); err != nil {
		return m, err
	}
	if m.Modules, err = s.Modules(ctx, 10); err != nil {
		return m, err
	}
	return m, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
