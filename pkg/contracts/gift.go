package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/core"
)

// Revert reasons of SafeGiftModule.
const (
	ReasonOnlyOwner       = "onlyOwner"
	ReasonExpired         = "deal is expired"
	ReasonAlreadyReceived = "already received the gift"
	ReasonTransferFailed  = "gift transfer failed"
)

// GiftModule is a binding to SafeGiftModule.
type GiftModule struct {
	*Contract
}

func NewGiftModule(address common.Address, backend chain.Backend) *GiftModule {
	return &GiftModule{NewContract(address, GiftModuleABI, backend)}
}

func (g *GiftModule) SetExpiry(ctx context.Context, from common.Address, timestamp uint64) (*types.Receipt, error) {
	return g.Transact(ctx, from, "setExpiry", new(big.Int).SetUint64(timestamp))
}

func (g *GiftModule) Expiry(ctx context.Context) (uint64, error) {
	v, err := single(g.Call(ctx, "expiry"))
	if err != nil {
		return 0, err
	}
	b, err := asBig(v)
	if err != nil {
		return 0, err
	}
	return b.Uint64(), nil
}

// TakeTheGift claims amount tokens for recipient with the owners' voucher signatures.
func (g *GiftModule) TakeTheGift(ctx context.Context, from common.Address, signatures []byte, recipient common.Address, amount *big.Int) (*types.Receipt, error) {
	return g.Transact(ctx, from, "takeTheGift", nonNil(signatures), recipient, amount)
}

func (g *GiftModule) HasReceived(ctx context.Context, recipient common.Address) (bool, error) {
	v, err := single(g.Call(ctx, "hasReceived", recipient))
	if err != nil {
		return false, err
	}
	return asBool(v)
}

func (g *GiftModule) Token(ctx context.Context) (common.Address, error) {
	v, err := single(g.Call(ctx, "token"))
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(v)
}

func (g *GiftModule) Safe(ctx context.Context) (common.Address, error) {
	v, err := single(g.Call(ctx, "safe"))
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(v)
}

func (g *GiftModule) State(ctx context.Context) (core.GiftModule, error) {
	m := core.GiftModule{Address: g.Address}
	var err error
	if m.Safe, err = g.Safe(ctx); err != nil {
		return m, err
	}
	if m.Token, err = g.Token(ctx); err != nil {
		return m, err
	}
	if m.Expiry, err = g.Expiry(ctx); err != nil {
		return m, err
	}
	return m, nil
}

// GiftTaken is a decoded GiftTaken event.
type GiftTaken struct {
	Recipient common.Address
	Amount    *big.Int
}

func (g *GiftModule) GiftsTaken(receipt *types.Receipt) ([]GiftTaken, error) {
	events, err := g.Events(receipt, "GiftTaken")
	if err != nil {
		return nil, err
	}
	out := make([]GiftTaken, 0, len(events))
	for _, e := range events {
		recipient, err := asAddress(e["recipient"])
		if err != nil {
			return nil, err
		}
		amount, err := asBig(e["amount"])
		if err != nil {
			return nil, err
		}
		out = append(out, GiftTaken{Recipient: recipient, Amount: amount})
	}
	return out, nil
}
