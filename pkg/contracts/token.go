package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/arnac-io/safegift/pkg/chain"
)

// Token is an ERC-20 binding.
type Token struct {
	*Contract
}

func NewToken(address common.Address, backend chain.Backend) *Token {
	return &Token{NewContract(address, TokenABI, backend)}
}

func TransferData(to common.Address, amount *big.Int) ([]byte, error) {
	return TokenABI.Pack("transfer", to, amount)
}

func (t *Token) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) (*types.Receipt, error) {
	return t.Transact(ctx, from, "transfer", to, amount)
}

func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	v, err := single(t.Call(ctx, "balanceOf", account))
	if err != nil {
		return nil, err
	}
	return asBig(v)
}

func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	v, err := single(t.Call(ctx, "totalSupply"))
	if err != nil {
		return nil, err
	}
	return asBig(v)
}

func (t *Token) Decimals(ctx context.Context) (int32, error) {
	v, err := single(t.Call(ctx, "decimals"))
	if err != nil {
		return 0, err
	}
	d, err := as[uint8](v)
	if err != nil {
		return 0, err
	}
	return int32(d), nil
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	v, err := single(t.Call(ctx, "symbol"))
	if err != nil {
		return "", err
	}
	return as[string](v)
}
