package memchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/core"
)

const maxCallDepth = 64

// Model is the Go state machine standing in for a deployed contract.
type Model interface {
	ABI() abi.ABI
	Invoke(env *Env, method string, args []interface{}) ([]interface{}, error)
	Clone() Model
	// Restore overwrites the model with a snapshot taken by Clone.
	Restore(snapshot Model)
}

// receiver is implemented by models that accept plain ether transfers.
type receiver interface {
	Receive(env *Env) error
}

// Block is the context a call executes in.
type Block struct {
	Number uint64
	Time   uint64
}

// Env is the execution frame of one call: msg.sender, address(this) and the block.
type Env struct {
	chain  *Chain
	Self   common.Address
	Sender common.Address
	Value  *big.Int
	Block  Block
	logs   *[]*types.Log
	depth  int
}

func (c *Chain) newEnv(sender, self common.Address, value *big.Int, block Block) *Env {
	logs := make([]*types.Log, 0)
	return &Env{
		chain:  c,
		Self:   self,
		Sender: sender,
		Value:  valueOrZero(value),
		Block:  block,
		logs:   &logs,
	}
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (e *Env) ChainID() *big.Int {
	return new(big.Int).Set(e.chain.options.ChainID)
}

func (e *Env) child(self common.Address, value *big.Int) *Env {
	return &Env{
		chain:  e.chain,
		Self:   self,
		Sender: e.Self,
		Value:  valueOrZero(value),
		Block:  e.Block,
		logs:   e.logs,
		depth:  e.depth + 1,
	}
}

// IsContract reports whether a model is deployed at addr.
func (e *Env) IsContract(addr common.Address) bool {
	_, ok := e.chain.state.contracts[addr]
	return ok
}

func (e *Env) model(addr common.Address) (Model, bool) {
	m, ok := e.chain.state.contracts[addr]
	return m, ok
}

// Call performs a message call from Self. State changes of a failed call are rolled back.
func (e *Env) Call(to common.Address, value *big.Int, data []byte) ([]byte, error) {
	if e.depth >= maxCallDepth {
		return nil, &core.RevertError{}
	}
	snapshot := e.chain.state.clone()
	logCount := len(*e.logs)
	out, err := e.child(to, value).execute(e.Self, to, value, data)
	if err != nil {
		e.chain.state.restore(snapshot)
		*e.logs = (*e.logs)[:logCount]
		return nil, err
	}
	return out, nil
}

// CallMethod packs a call with contractABI, performs it and unpacks the outputs.
func (e *Env) CallMethod(to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := e.Call(to, nil, data)
	if err != nil {
		return nil, err
	}
	return contractABI.Unpack(method, out)
}

// Create deploys model at the CREATE address of Self.
func (e *Env) Create(model Model) common.Address {
	nonce := e.chain.state.nonces[e.Self]
	// contract nonces start at 1 (EIP-161)
	if nonce == 0 {
		nonce = 1
	}
	addr := crypto.CreateAddress(e.Self, nonce)
	e.chain.state.nonces[e.Self] = nonce + 1
	e.chain.state.contracts[addr] = model
	return addr
}

// Emit appends a log of event from contractABI, args in declaration order.
func (e *Env) Emit(contractABI abi.ABI, name string, args ...interface{}) error {
	event, ok := contractABI.Events[name]
	if !ok {
		return fmt.Errorf("unknown event %s", name)
	}
	if len(args) != len(event.Inputs) {
		return fmt.Errorf("event %s: got %d args, want %d", name, len(args), len(event.Inputs))
	}
	topics := []common.Hash{event.ID}
	var data []interface{}
	for i, in := range event.Inputs {
		if !in.Indexed {
			data = append(data, args[i])
			continue
		}
		t, err := abi.MakeTopics([]interface{}{args[i]})
		if err != nil {
			return err
		}
		topics = append(topics, t[0][0])
	}
	packed, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return err
	}
	*e.logs = append(*e.logs, &types.Log{Address: e.Self, Topics: topics, Data: packed})
	return nil
}

// Balance is the ether balance of addr.
func (e *Env) Balance(addr common.Address) *big.Int {
	if b, ok := e.chain.state.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (e *Env) transfer(from, to common.Address, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return nil
	}
	balances := e.chain.state.balances
	fromBalance := e.Balance(from)
	if fromBalance.Cmp(value) < 0 {
		return &core.RevertError{}
	}
	balances[from] = fromBalance.Sub(fromBalance, value)
	balances[to] = e.Balance(to).Add(e.Balance(to), value)
	return nil
}

// execute runs data against the model at to with e as its frame.
func (e *Env) execute(from, to common.Address, value *big.Int, data []byte) ([]byte, error) {
	if err := e.transfer(from, to, value); err != nil {
		return nil, err
	}
	m, ok := e.model(to)
	if !ok {
		// calls to accounts without code succeed
		return nil, nil
	}
	if len(data) == 0 {
		if r, ok := m.(receiver); ok {
			return nil, normalize(r.Receive(e))
		}
		return nil, &core.RevertError{}
	}
	if len(data) < 4 {
		return nil, &core.RevertError{}
	}
	contractABI := m.ABI()
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, &core.RevertError{}
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, &core.RevertError{}
	}
	if !method.IsPayable() && e.Value.Sign() > 0 {
		return nil, &core.RevertError{}
	}
	out, err := m.Invoke(e, method.Name, args)
	if err != nil {
		return nil, normalize(err)
	}
	packed, err := method.Outputs.Pack(out...)
	if err != nil {
		return nil, fmt.Errorf("pack %s outputs: %w", method.Name, err)
	}
	return packed, nil
}

// normalize attaches the Error(string) payload to reverts that only carry a reason.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	revert, ok := err.(*core.RevertError)
	if !ok || revert.Reason == "" || len(revert.Data) > 0 {
		return err
	}
	return chain.NewRevert(revert.Reason)
}

func unknownMethod(name string) error {
	return fmt.Errorf("model has no method %s", name)
}
