package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Narasimha1997/ratelimiter"
	"github.com/avast/retry-go"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/go-faster/errors"
	"github.com/puzpuzpuz/xsync/v2"
	"go.uber.org/zap"

	"github.com/arnac-io/safegift/pkg/artifacts"
	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/core"
	"github.com/arnac-io/safegift/pkg/keys"
)

// Backend drives a JSON-RPC node. Transactions are signed locally with keys from the keyring.
type Backend struct {
	rpc        *rpc.Client
	client     *ethclient.Client
	keys       *keys.Keyring
	chainID    *big.Int
	nonces     *xsync.MapOf[common.Address, uint64]
	limiter    *ratelimiter.DefaultLimiter
	logger     *zap.Logger
	forkMethod string
	timeout    time.Duration
	attempts   uint
}

type Options struct {
	Logger     *zap.Logger
	RateLimit  uint64
	Timeout    time.Duration
	ForkMethod string
	Attempts   uint
}

type Option func(o *Options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithRateLimit caps requests per second, 0 disables the limit.
func WithRateLimit(perSecond uint64) Option {
	return func(o *Options) {
		o.RateLimit = perSecond
	}
}

// WithTimeout bounds every RPC round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithForkMethod sets the reset method, hardhat_reset or anvil_reset.
func WithForkMethod(method string) Option {
	return func(o *Options) {
		o.ForkMethod = method
	}
}

func WithAttempts(attempts uint) Option {
	return func(o *Options) {
		o.Attempts = attempts
	}
}

func NewBackend(ctx context.Context, url string, ring *keys.Keyring, opts ...Option) (*Backend, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	b, err := NewBackendWithClient(ctx, rpcClient, ring, opts...)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	b.logger.Info("connected to node", zap.String("url", url), zap.Stringer("chain_id", b.chainID))
	return b, nil
}

// NewBackendWithClient wraps an established RPC connection.
func NewBackendWithClient(ctx context.Context, rpcClient *rpc.Client, ring *keys.Keyring, opts ...Option) (*Backend, error) {
	options := Options{
		Logger:     zap.NewNop(),
		Timeout:    30 * time.Second,
		ForkMethod: "hardhat_reset",
		Attempts:   5,
	}
	for _, o := range opts {
		o(&options)
	}
	b := &Backend{
		rpc:        rpcClient,
		client:     ethclient.NewClient(rpcClient),
		keys:       ring,
		nonces:     xsync.NewTypedMapOf[common.Address, uint64](hashAddress),
		logger:     options.Logger,
		forkMethod: options.ForkMethod,
		timeout:    options.Timeout,
		attempts:   options.Attempts,
	}
	if options.RateLimit > 0 {
		b.limiter = ratelimiter.NewDefaultLimiter(options.RateLimit, time.Second)
	}
	err := b.read(ctx, "eth_chainId", func(ctx context.Context) error {
		id, err := b.client.ChainID(ctx)
		b.chainID = id
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "chain id")
	}
	return b, nil
}

func (b *Backend) Close() {
	if b.limiter != nil {
		if err := b.limiter.Kill(); err != nil {
			b.logger.Warn("stop rate limiter", zap.Error(err))
		}
	}
	b.client.Close()
}

// wait blocks until the rate limiter admits one more request.
func (b *Backend) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	for {
		allowed, err := b.limiter.ShouldAllow(1)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// do runs one rate limited, timed and measured round trip.
func (b *Backend) do(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	start := time.Now()
	err := chain.DecodeRevert(fn(ctx))
	observe(method, start, err)
	return err
}

// read is do with retries for transport errors. Reverts are final.
func (b *Backend) read(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	return retry.Do(func() error {
		return b.do(ctx, method, fn)
	},
		retry.Context(ctx),
		retry.Attempts(b.attempts),
		retry.Delay(10*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, core.ErrReverted)
		}),
	)
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) Call(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
	var out []byte
	to := msg.To
	err := b.read(ctx, "eth_call", func(ctx context.Context) error {
		var err error
		out, err = b.client.CallContract(ctx, ethereum.CallMsg{From: msg.From, To: &to, Value: msg.Value, Data: msg.Data}, nil)
		return err
	})
	return out, err
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := b.read(ctx, "eth_blockNumber", func(ctx context.Context) error {
		var err error
		n, err = b.client.BlockNumber(ctx)
		return err
	})
	return n, err
}

func (b *Backend) BlockTime(ctx context.Context) (uint64, error) {
	var ts uint64
	err := b.read(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		header, err := b.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		ts = header.Time
		return nil
	})
	return ts, err
}

func (b *Backend) Transact(ctx context.Context, req chain.TxRequest) (*types.Receipt, error) {
	to := req.To
	return b.send(ctx, req.From, &to, req.Value, req.Data)
}

func (b *Backend) Deploy(ctx context.Context, from common.Address, artifact artifacts.Artifact, args []byte) (common.Address, *types.Receipt, error) {
	if !artifact.HasBytecode() {
		return common.Address{}, nil, fmt.Errorf("artifact %s has no bytecode, compile the contracts first", artifact.ContractName)
	}
	data := append(append([]byte{}, artifact.Bytecode...), args...)
	receipt, err := b.send(ctx, from, nil, nil, data)
	if err != nil {
		return common.Address{}, nil, err
	}
	return receipt.ContractAddress, receipt, nil
}

func (b *Backend) nonce(ctx context.Context, from common.Address) (uint64, error) {
	if n, ok := b.nonces.Load(from); ok {
		return n, nil
	}
	var n uint64
	err := b.read(ctx, "eth_getTransactionCount", func(ctx context.Context) error {
		var err error
		n, err = b.client.PendingNonceAt(ctx, from)
		return err
	})
	return n, err
}

func (b *Backend) send(ctx context.Context, from common.Address, to *common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	key, err := b.keys.Key(from)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	msg := ethereum.CallMsg{From: from, To: to, Value: value, Data: data}
	var gas uint64
	// a revert shows up here, before the nonce is spent
	if err := b.do(ctx, "eth_estimateGas", func(ctx context.Context) error {
		gas, err = b.client.EstimateGas(ctx, msg)
		return err
	}); err != nil {
		return nil, err
	}
	var tip, baseFee *big.Int
	if err := b.read(ctx, "eth_maxPriorityFeePerGas", func(ctx context.Context) error {
		tip, err = b.client.SuggestGasTipCap(ctx)
		if err != nil {
			return err
		}
		header, err := b.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		baseFee = header.BaseFee
		return nil
	}); err != nil {
		return nil, err
	}
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	nonce, err := b.nonce(ctx, from)
	if err != nil {
		return nil, err
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2))),
		Gas:       gas,
		To:        to,
		Value:     value,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(b.chainID), key)
	if err != nil {
		return nil, errors.Wrap(err, "sign tx")
	}
	if err := b.do(ctx, "eth_sendRawTransaction", func(ctx context.Context) error {
		return b.client.SendTransaction(ctx, signed)
	}); err != nil {
		b.nonces.Delete(from)
		return nil, err
	}
	b.nonces.Store(from, nonce+1)
	b.logger.Debug("transaction sent", zap.Stringer("hash", signed.Hash()), zap.Stringer("from", from), zap.Uint64("nonce", nonce))

	receipt, err := bind.WaitMined(ctx, b.client, signed)
	if err != nil {
		return nil, errors.Wrapf(err, "wait for %s", signed.Hash())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, b.replay(ctx, msg, receipt)
	}
	return receipt, nil
}

// replay re-executes a failed transaction as a call on the state its block started from
// to recover the revert reason.
func (b *Backend) replay(ctx context.Context, msg ethereum.CallMsg, receipt *types.Receipt) error {
	var parent *big.Int
	if receipt.BlockNumber != nil && receipt.BlockNumber.Sign() > 0 {
		parent = new(big.Int).Sub(receipt.BlockNumber, big.NewInt(1))
	}
	err := b.do(ctx, "eth_call", func(ctx context.Context) error {
		_, err := b.client.CallContract(ctx, msg, parent)
		return err
	})
	var revert *core.RevertError
	if errors.As(err, &revert) {
		return revert
	}
	return &core.RevertError{}
}

// Fork resets the node through the configured reset method.
func (b *Backend) Fork(ctx context.Context, url string, block uint64) error {
	var params []interface{}
	if url != "" {
		forking := map[string]interface{}{"jsonRpcUrl": url}
		if block > 0 {
			forking["blockNumber"] = block
		}
		params = append(params, map[string]interface{}{"forking": forking})
	}
	err := b.do(ctx, b.forkMethod, func(ctx context.Context) error {
		return b.rpc.CallContext(ctx, nil, b.forkMethod, params...)
	})
	if err != nil {
		return errors.Wrap(err, b.forkMethod)
	}
	b.nonces.Range(func(addr common.Address, _ uint64) bool {
		b.nonces.Delete(addr)
		return true
	})
	b.logger.Info("node reset", zap.String("fork_url", url), zap.Uint64("block", block))
	return nil
}

func (b *Backend) SetNextBlockTimestamp(ctx context.Context, ts uint64) error {
	return b.do(ctx, "evm_setNextBlockTimestamp", func(ctx context.Context) error {
		return b.rpc.CallContext(ctx, nil, "evm_setNextBlockTimestamp", ts)
	})
}

func (b *Backend) Mine(ctx context.Context) error {
	return b.do(ctx, "evm_mine", func(ctx context.Context) error {
		return b.rpc.CallContext(ctx, nil, "evm_mine")
	})
}
