package memchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/contracts"
)

// TokenSupply is what TestToken mints to its deployer: one million tokens with 18 decimals.
var TokenSupply = new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// tokenModel is an OpenZeppelin style ERC-20.
type tokenModel struct {
	name        string
	symbol      string
	decimals    uint8
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
}

func newToken(env *Env, args []interface{}) (Model, error) {
	t := &tokenModel{
		name:        "Test Token",
		symbol:      "TST",
		decimals:    18,
		totalSupply: new(big.Int).Set(TokenSupply),
		balances:    map[common.Address]*big.Int{env.Sender: new(big.Int).Set(TokenSupply)},
		allowances:  map[common.Address]map[common.Address]*big.Int{},
	}
	if err := env.Emit(contracts.TokenABI, "Transfer", common.Address{}, env.Sender, new(big.Int).Set(TokenSupply)); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *tokenModel) ABI() abi.ABI {
	return contracts.TokenABI
}

func (t *tokenModel) Clone() Model {
	c := *t
	c.totalSupply = new(big.Int).Set(t.totalSupply)
	c.balances = make(map[common.Address]*big.Int, len(t.balances))
	for k, v := range t.balances {
		c.balances[k] = new(big.Int).Set(v)
	}
	c.allowances = make(map[common.Address]map[common.Address]*big.Int, len(t.allowances))
	for owner, spenders := range t.allowances {
		c.allowances[owner] = make(map[common.Address]*big.Int, len(spenders))
		for k, v := range spenders {
			c.allowances[owner][k] = new(big.Int).Set(v)
		}
	}
	return &c
}

func (t *tokenModel) Restore(snapshot Model) {
	*t = *snapshot.(*tokenModel)
}

func (t *tokenModel) balanceOf(addr common.Address) *big.Int {
	if b, ok := t.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *tokenModel) allowance(owner, spender common.Address) *big.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func (t *tokenModel) Invoke(env *Env, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "name":
		return []interface{}{t.name}, nil
	case "symbol":
		return []interface{}{t.symbol}, nil
	case "decimals":
		return []interface{}{t.decimals}, nil
	case "totalSupply":
		return []interface{}{new(big.Int).Set(t.totalSupply)}, nil
	case "balanceOf":
		return []interface{}{t.balanceOf(args[0].(common.Address))}, nil
	case "allowance":
		return []interface{}{t.allowance(args[0].(common.Address), args[1].(common.Address))}, nil
	case "transfer":
		if err := t.transfer(env, env.Sender, args[0].(common.Address), args[1].(*big.Int)); err != nil {
			return nil, err
		}
		return []interface{}{true}, nil
	case "approve":
		spender, amount := args[0].(common.Address), args[1].(*big.Int)
		if spender == (common.Address{}) {
			return nil, chain.NewRevert("ERC20: approve to the zero address")
		}
		t.setAllowance(env.Sender, spender, amount)
		return []interface{}{true}, env.Emit(contracts.TokenABI, "Approval", env.Sender, spender, amount)
	case "transferFrom":
		from, to, amount := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
		allowed := t.allowance(from, env.Sender)
		if allowed.Cmp(amount) < 0 {
			return nil, chain.NewRevert("ERC20: insufficient allowance")
		}
		t.setAllowance(from, env.Sender, allowed.Sub(allowed, amount))
		if err := t.transfer(env, from, to, amount); err != nil {
			return nil, err
		}
		return []interface{}{true}, nil
	}
	return nil, unknownMethod(method)
}

func (t *tokenModel) setAllowance(owner, spender common.Address, amount *big.Int) {
	if t.allowances[owner] == nil {
		t.allowances[owner] = map[common.Address]*big.Int{}
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (t *tokenModel) transfer(env *Env, from, to common.Address, amount *big.Int) error {
	if from == (common.Address{}) {
		return chain.NewRevert("ERC20: transfer from the zero address")
	}
	if to == (common.Address{}) {
		return chain.NewRevert("ERC20: transfer to the zero address")
	}
	fromBalance := t.balanceOf(from)
	if fromBalance.Cmp(amount) < 0 {
		return chain.NewRevert("ERC20: transfer amount exceeds balance")
	}
	t.balances[from] = fromBalance.Sub(fromBalance, amount)
	t.balances[to] = t.balanceOf(to).Add(t.balanceOf(to), amount)
	return env.Emit(contracts.TokenABI, "Transfer", from, to, new(big.Int).Set(amount))
}
