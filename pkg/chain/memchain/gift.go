package memchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/contracts"
	"github.com/arnac-io/safegift/pkg/core"
	"github.com/arnac-io/safegift/pkg/safe"
)

// giftModel hands out token gifts from a Safe to recipients holding the owners' voucher signatures.
type giftModel struct {
	token  common.Address
	safe   common.Address
	expiry *big.Int
	// claimed is the set of recipients that already received a gift
	claimed map[common.Address]struct{}
}

func newGiftModule(env *Env, args []interface{}) (Model, error) {
	if len(args) != 2 {
		return nil, &core.RevertError{}
	}
	return &giftModel{
		token:   args[0].(common.Address),
		safe:    args[1].(common.Address),
		expiry:  new(big.Int),
		claimed: map[common.Address]struct{}{},
	}, nil
}

func (g *giftModel) ABI() abi.ABI {
	return contracts.GiftModuleABI
}

func (g *giftModel) Clone() Model {
	c := *g
	c.expiry = new(big.Int).Set(g.expiry)
	c.claimed = make(map[common.Address]struct{}, len(g.claimed))
	for k := range g.claimed {
		c.claimed[k] = struct{}{}
	}
	return &c
}

func (g *giftModel) Restore(snapshot Model) {
	*g = *snapshot.(*giftModel)
}

func (g *giftModel) Invoke(env *Env, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "token":
		return []interface{}{g.token}, nil
	case "safe":
		return []interface{}{g.safe}, nil
	case "expiry":
		return []interface{}{new(big.Int).Set(g.expiry)}, nil
	case "hasReceived":
		_, ok := g.claimed[args[0].(common.Address)]
		return []interface{}{ok}, nil
	case "setExpiry":
		return nil, g.setExpiry(env, args[0].(*big.Int))
	case "takeTheGift":
		return nil, g.takeTheGift(env, args[0].([]byte), args[1].(common.Address), args[2].(*big.Int))
	}
	return nil, unknownMethod(method)
}

func (g *giftModel) setExpiry(env *Env, timestamp *big.Int) error {
	out, err := env.CallMethod(g.safe, contracts.SafeABI, "isOwner", env.Sender)
	if err != nil {
		return err
	}
	if isOwner, _ := out[0].(bool); !isOwner {
		return chain.NewRevert(contracts.ReasonOnlyOwner)
	}
	g.expiry = new(big.Int).Set(timestamp)
	return env.Emit(contracts.GiftModuleABI, "ExpirySet", new(big.Int).Set(timestamp))
}

func (g *giftModel) takeTheGift(env *Env, signatures []byte, recipient common.Address, amount *big.Int) error {
	if new(big.Int).SetUint64(env.Block.Time).Cmp(g.expiry) >= 0 {
		return chain.NewRevert(contracts.ReasonExpired)
	}
	if _, ok := g.claimed[recipient]; ok {
		return chain.NewRevert(contracts.ReasonAlreadyReceived)
	}
	voucher := safe.GiftVoucher{Module: env.Self, Token: g.token, Amount: amount}
	domain := safe.NewDomain(env.ChainID(), g.safe)
	if _, err := env.CallMethod(g.safe, contracts.SafeABI, "checkSignatures", voucher.Hash(domain), voucher.Preimage(domain), signatures); err != nil {
		return err
	}
	g.claimed[recipient] = struct{}{}

	data, err := contracts.TransferData(recipient, amount)
	if err != nil {
		return err
	}
	out, err := env.CallMethod(g.safe, contracts.SafeABI, "execTransactionFromModule", g.token, new(big.Int), data, uint8(core.Call))
	if err != nil {
		return chain.NewRevert(contracts.ReasonTransferFailed)
	}
	if ok, _ := out[0].(bool); !ok {
		return chain.NewRevert(contracts.ReasonTransferFailed)
	}
	return env.Emit(contracts.GiftModuleABI, "GiftTaken", recipient, new(big.Int).Set(amount))
}
