package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/core"
)

type Factory struct {
	*Contract
}

func NewFactory(address common.Address, backend chain.Backend) *Factory {
	return &Factory{NewContract(address, FactoryABI, backend)}
}

// CreateProxy deploys a Safe proxy for singleton, calls it with initializer and returns the proxy address
// taken from the ProxyCreation event.
func (f *Factory) CreateProxy(ctx context.Context, from, singleton common.Address, initializer []byte) (common.Address, *types.Receipt, error) {
	receipt, err := f.Transact(ctx, from, "createProxy", singleton, nonNil(initializer))
	if err != nil {
		return common.Address{}, nil, err
	}
	proxy, err := f.ProxyFromReceipt(receipt)
	if err != nil {
		return common.Address{}, receipt, err
	}
	return proxy, receipt, nil
}

// ProxyFromReceipt finds the ProxyCreation event of this factory.
// The event is matched by id rather than position since setup emits its own logs first.
func (f *Factory) ProxyFromReceipt(receipt *types.Receipt) (common.Address, error) {
	events, err := f.Events(receipt, "ProxyCreation")
	if err != nil {
		return common.Address{}, err
	}
	if len(events) == 0 {
		return common.Address{}, fmt.Errorf("%w: ProxyCreation event in tx %s", core.ErrEntityNotFound, receipt.TxHash)
	}
	return asAddress(events[0]["proxy"])
}
