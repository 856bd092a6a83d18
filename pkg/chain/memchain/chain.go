package memchain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/arnac-io/safegift/pkg/artifacts"
	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/contracts"
)

const (
	DefaultChainID = 31337
	// the default fork block, with its approximate mainnet timestamp
	DefaultGenesisNumber = 18127149
	DefaultGenesisTime   = 1694592683
)

var defaultBalance = new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1e18))

// Constructor builds a contract model. env.Self is the address being deployed.
type Constructor func(env *Env, args []interface{}) (Model, error)

// Chain is an in-memory chain executing Go models of the harness contracts.
// One transaction is one block, reverted transactions leave no trace.
type Chain struct {
	mu       sync.Mutex
	options  Options
	number   uint64
	time     uint64
	nextTime uint64
	state    *state
	registry map[string]Constructor
	logger   *zap.Logger
}

type state struct {
	nonces    map[common.Address]uint64
	balances  map[common.Address]*big.Int
	contracts map[common.Address]Model
}

func (s *state) clone() *state {
	out := &state{
		nonces:    make(map[common.Address]uint64, len(s.nonces)),
		balances:  make(map[common.Address]*big.Int, len(s.balances)),
		contracts: make(map[common.Address]Model, len(s.contracts)),
	}
	for k, v := range s.nonces {
		out.nonces[k] = v
	}
	for k, v := range s.balances {
		out.balances[k] = new(big.Int).Set(v)
	}
	for k, v := range s.contracts {
		out.contracts[k] = v.Clone()
	}
	return out
}

// restore rolls s back to snapshot in place, so models referenced by running calls stay live.
func (s *state) restore(snapshot *state) {
	for addr, m := range s.contracts {
		if old, ok := snapshot.contracts[addr]; ok {
			m.Restore(old)
			continue
		}
		delete(s.contracts, addr)
	}
	s.nonces = snapshot.nonces
	s.balances = snapshot.balances
}

type Options struct {
	ChainID       *big.Int
	GenesisNumber uint64
	GenesisTime   uint64
	Accounts      []common.Address
	Balance       *big.Int
	Logger        *zap.Logger
}

type Option func(o *Options)

func WithChainID(id int64) Option {
	return func(o *Options) {
		o.ChainID = big.NewInt(id)
	}
}

// WithGenesis sets the number and timestamp of the latest block after a reset.
func WithGenesis(number, time uint64) Option {
	return func(o *Options) {
		o.GenesisNumber = number
		o.GenesisTime = time
	}
}

// WithAccounts funds accounts with ether at genesis.
func WithAccounts(accounts ...common.Address) Option {
	return func(o *Options) {
		o.Accounts = accounts
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func New(opts ...Option) *Chain {
	options := Options{
		ChainID:       big.NewInt(DefaultChainID),
		GenesisNumber: DefaultGenesisNumber,
		GenesisTime:   DefaultGenesisTime,
		Balance:       defaultBalance,
		Logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(&options)
	}
	c := &Chain{
		options: options,
		logger:  options.Logger,
		registry: map[string]Constructor{
			contracts.SafeName:       NewSafeSingleton,
			contracts.FactoryName:    newFactory,
			contracts.GiftModuleName: newGiftModule,
			contracts.TokenName:      newToken,
		},
	}
	c.reset(options.GenesisNumber)
	return c
}

// Register adds or replaces the model deployed for a contract name.
func (c *Chain) Register(name string, ctor Constructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry[name] = ctor
}

func (c *Chain) reset(number uint64) {
	c.number = number
	c.time = c.options.GenesisTime
	c.nextTime = 0
	c.state = &state{
		nonces:    make(map[common.Address]uint64),
		balances:  make(map[common.Address]*big.Int),
		contracts: make(map[common.Address]Model),
	}
	for _, a := range c.options.Accounts {
		c.state.balances[a] = new(big.Int).Set(c.options.Balance)
	}
}

func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.options.ChainID), nil
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.number, nil
}

func (c *Chain) BlockTime(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time, nil
}

func (c *Chain) Close() {}

// Fork drops all state. The model chain cannot fetch remote state, so url is only logged.
func (c *Chain) Fork(ctx context.Context, url string, block uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	number := block
	if number == 0 {
		number = c.options.GenesisNumber
	}
	c.reset(number)
	c.logger.Info("model chain reset", zap.String("fork_url", url), zap.Uint64("block", number))
	return nil
}

func (c *Chain) SetNextBlockTimestamp(ctx context.Context, ts uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts <= c.time {
		return fmt.Errorf("timestamp %d is lower than or equal to previous block's timestamp %d", ts, c.time)
	}
	c.nextTime = ts
	return nil
}

func (c *Chain) Mine(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mineBlock()
	return nil
}

func (c *Chain) pendingBlock() Block {
	t := c.time + 1
	if c.nextTime != 0 {
		t = c.nextTime
	}
	return Block{Number: c.number + 1, Time: t}
}

func (c *Chain) mineBlock() Block {
	b := c.pendingBlock()
	c.number, c.time, c.nextTime = b.Number, b.Time, 0
	return b
}

func (c *Chain) Call(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.state.clone()
	defer c.state.restore(snapshot)

	env := c.newEnv(msg.From, msg.To, msg.Value, c.pendingBlock())
	return env.execute(msg.From, msg.To, msg.Value, msg.Data)
}

func (c *Chain) Transact(ctx context.Context, req chain.TxRequest) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.state.clone()

	env := c.newEnv(req.From, req.To, req.Value, c.pendingBlock())
	if _, err := env.execute(req.From, req.To, req.Value, req.Data); err != nil {
		c.state.restore(snapshot)
		c.logger.Debug("transaction reverted", zap.Stringer("from", req.From), zap.Stringer("to", req.To), zap.Error(err))
		return nil, err
	}
	return c.commit(req.From, req.Data, env, common.Address{}), nil
}

func (c *Chain) Deploy(ctx context.Context, from common.Address, artifact artifacts.Artifact, args []byte) (common.Address, *types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ctor, ok := c.registry[artifact.ContractName]
	if !ok {
		return common.Address{}, nil, fmt.Errorf("no model for contract %s", artifact.ContractName)
	}
	var values []interface{}
	if len(artifact.ABI.Constructor.Inputs) > 0 {
		var err error
		values, err = artifact.ABI.Constructor.Inputs.Unpack(args)
		if err != nil {
			return common.Address{}, nil, fmt.Errorf("unpack %s constructor args: %w", artifact.ContractName, err)
		}
	}
	snapshot := c.state.clone()
	addr := crypto.CreateAddress(from, c.state.nonces[from])
	env := c.newEnv(from, addr, nil, c.pendingBlock())
	model, err := ctor(env, values)
	if err != nil {
		c.state.restore(snapshot)
		return common.Address{}, nil, err
	}
	c.state.contracts[addr] = model
	receipt := c.commit(from, args, env, addr)
	c.logger.Debug("contract deployed", zap.String("contract", artifact.ContractName), zap.Stringer("address", addr))
	return addr, receipt, nil
}

func (c *Chain) commit(from common.Address, data []byte, env *Env, created common.Address) *types.Receipt {
	nonce := c.state.nonces[from]
	c.state.nonces[from] = nonce + 1
	block := c.mineBlock()

	txHash := crypto.Keccak256Hash(from.Bytes(), new(big.Int).SetUint64(nonce).Bytes(), data)
	blockHash := crypto.Keccak256Hash(new(big.Int).SetUint64(block.Number).Bytes())
	for i, l := range *env.logs {
		l.BlockNumber = block.Number
		l.BlockHash = blockHash
		l.TxHash = txHash
		l.Index = uint(i)
	}
	return &types.Receipt{
		Type:              types.DynamicFeeTxType,
		Status:            types.ReceiptStatusSuccessful,
		Logs:              *env.logs,
		TxHash:            txHash,
		ContractAddress:   created,
		BlockHash:         blockHash,
		BlockNumber:       new(big.Int).SetUint64(block.Number),
		TransactionIndex:  0,
		CumulativeGasUsed: 0,
	}
}
