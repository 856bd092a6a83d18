package harness

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arnac-io/safegift/pkg/artifacts"
	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/contracts"
	"github.com/arnac-io/safegift/pkg/core"
	"github.com/arnac-io/safegift/pkg/keys"
	"github.com/arnac-io/safegift/pkg/safe"
	"github.com/arnac-io/safegift/pkg/units"
)

const (
	// DefaultForkBlock is the mainnet block the node is reset to before deployment.
	DefaultForkBlock = 18127149
	// Threshold is the number of owner signatures the Safe requires.
	Threshold = 2
)

var (
	ErrHashMismatch     = errors.New("client side hash differs from the contract hash")
	ErrModuleNotEnabled = errors.New("gift module is not enabled")
	ErrNotEnoughRoles   = errors.New("keyring has fewer than 5 accounts")
	ErrSafeSetup        = errors.New("safe proxy is not set up as requested")
)

// Roles are the accounts the scenarios act as.
type Roles struct {
	Deployer    keys.Account
	Owner1      keys.Account
	Owner2      keys.Account
	Taker       keys.Account
	SecondTaker keys.Account
}

// RolesFrom assigns accounts 0..4 of ring.
func RolesFrom(ring *keys.Keyring) (Roles, error) {
	if ring.Len() < 5 {
		return Roles{}, ErrNotEnoughRoles
	}
	accs := ring.Accounts()
	return Roles{
		Deployer:    accs[0],
		Owner1:      accs[1],
		Owner2:      accs[2],
		Taker:       accs[3],
		SecondTaker: accs[4],
	}, nil
}

// Owners returns the Safe owners in setup order.
func (r Roles) Owners() []common.Address {
	return []common.Address{r.Owner1.Address, r.Owner2.Address}
}

func (r Roles) signers() []safe.Signer {
	return []safe.Signer{r.Owner1.Signer(), r.Owner2.Signer()}
}

type Config struct {
	// ForkURL is the network the node forks, empty keeps the node's current chain.
	ForkURL   string
	ForkBlock uint64
	// Amount is the gift size in whole tokens.
	Amount decimal.Decimal
}

type Options struct {
	logger *zap.Logger
}

type Option func(o *Options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

// Harness deploys the Safe and the gift module and drives them through a backend.
type Harness struct {
	backend chain.Backend
	source  artifacts.Source
	roles   Roles
	cfg     Config
	logger  *zap.Logger
}

func New(backend chain.Backend, source artifacts.Source, ring *keys.Keyring, cfg Config, opts ...Option) (*Harness, error) {
	options := &Options{logger: zap.NewNop()}
	for _, o := range opts {
		o(options)
	}
	roles, err := RolesFrom(ring)
	if err != nil {
		return nil, err
	}
	if !cfg.Amount.IsPositive() {
		return nil, fmt.Errorf("gift amount must be positive, got %s", cfg.Amount)
	}
	return &Harness{
		backend: backend,
		source:  source,
		roles:   roles,
		cfg:     cfg,
		logger:  options.logger,
	}, nil
}

func (h *Harness) Roles() Roles {
	return h.roles
}

// Authorization is a Safe transaction together with the owners' signature blob.
type Authorization struct {
	Tx         core.SafeTransaction
	Hash       common.Hash
	Signatures []byte
}

// Deployment is the state left by Setup.
type Deployment struct {
	ChainID   *big.Int
	Token     *contracts.Token
	Factory   *contracts.Factory
	Singleton common.Address
	Safe      *contracts.Safe
	Module    *contracts.GiftModule
	// Amount is the gift size in token units.
	Amount *big.Int
	// EnableModule is the executed enableModule authorization.
	EnableModule Authorization
}

func (d *Deployment) Domain() safe.Domain {
	return safe.NewDomain(d.ChainID, d.Safe.Address)
}

// Voucher is what the owners sign to let the module pay out Amount.
func (d *Deployment) Voucher() safe.GiftVoucher {
	return safe.GiftVoucher{Module: d.Module.Address, Token: d.Token.Address, Amount: d.Amount}
}

// Authorize signs tx with every owner. A nil nonce is read from the Safe.
// The contract's getTransactionHash must agree with the client side hash.
func (h *Harness) Authorize(ctx context.Context, d *Deployment, tx core.SafeTransaction) (Authorization, error) {
	if tx.Nonce == nil {
		nonce, err := d.Safe.Nonce(ctx)
		if err != nil {
			return Authorization{}, errors.Wrap(err, "get nonce")
		}
		tx = tx.WithNonce(nonce)
	}
	hash, err := d.Safe.GetTransactionHash(ctx, tx)
	if err != nil {
		return Authorization{}, errors.Wrap(err, "get transaction hash")
	}
	if local := d.Domain().TransactionHash(tx); local != hash {
		return Authorization{}, fmt.Errorf("%w: %s != %s", ErrHashMismatch, local, hash)
	}
	blob, err := safe.NewAggregator().SignBlob(hash, h.roles.signers()...)
	if err != nil {
		return Authorization{}, err
	}
	return Authorization{Tx: tx, Hash: hash, Signatures: blob}, nil
}

// SignVoucher returns the owners' signature blob over the deployment's gift voucher.
func (h *Harness) SignVoucher(d *Deployment) ([]byte, error) {
	return safe.NewAggregator().SignBlob(d.Voucher().Hash(d.Domain()), h.roles.signers()...)
}

// Setup forks the chain, deploys all contracts and enables the gift module on a fresh Safe.
func (h *Harness) Setup(ctx context.Context) (*Deployment, error) {
	if forker, ok := h.backend.(chain.Forker); ok && h.cfg.ForkURL != "" {
		if err := forker.Fork(ctx, h.cfg.ForkURL, h.cfg.ForkBlock); err != nil {
			return nil, errors.Wrap(err, "fork")
		}
		h.logger.Info("chain forked", zap.Uint64("block", h.cfg.ForkBlock))
	}
	chainID, err := h.backend.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "chain id")
	}
	d := &Deployment{ChainID: chainID}
	deployer := h.roles.Deployer.Address

	tokenAddr, err := h.deploy(ctx, contracts.TokenName)
	if err != nil {
		return nil, err
	}
	d.Token = contracts.NewToken(tokenAddr, h.backend)
	factoryAddr, err := h.deploy(ctx, contracts.FactoryName)
	if err != nil {
		return nil, err
	}
	d.Factory = contracts.NewFactory(factoryAddr, h.backend)
	if d.Singleton, err = h.deploy(ctx, contracts.SafeName); err != nil {
		return nil, err
	}

	setup, err := contracts.SetupData(h.roles.Owners(), Threshold)
	if err != nil {
		return nil, err
	}
	proxy, _, err := d.Factory.CreateProxy(ctx, deployer, d.Singleton, setup)
	if err != nil {
		return nil, errors.Wrap(err, "create proxy")
	}
	d.Safe = contracts.NewSafe(proxy, h.backend)
	if err := h.checkSafe(ctx, d.Safe); err != nil {
		return nil, err
	}
	h.logger.Info("safe proxy created", zap.Stringer("safe", proxy))

	moduleAddr, err := h.deploy(ctx, contracts.GiftModuleName, tokenAddr, proxy)
	if err != nil {
		return nil, err
	}
	d.Module = contracts.NewGiftModule(moduleAddr, h.backend)

	decimals, err := d.Token.Decimals(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "token decimals")
	}
	if d.Amount, err = units.ParseTokens(h.cfg.Amount.String(), decimals); err != nil {
		return nil, err
	}
	balance, err := d.Token.BalanceOf(ctx, deployer)
	if err != nil {
		return nil, errors.Wrap(err, "deployer balance")
	}
	if _, err := d.Token.Transfer(ctx, deployer, proxy, balance); err != nil {
		return nil, errors.Wrap(err, "fund safe")
	}
	if symbol, err := d.Token.Symbol(ctx); err == nil {
		h.logger.Info("safe funded", zap.String("balance", units.FormatTokens(balance, decimals, symbol)))
	}

	if d.EnableModule, err = h.enableModule(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// checkSafe verifies the proxy holds the owners and threshold it was set up with.
func (h *Harness) checkSafe(ctx context.Context, s *contracts.Safe) error {
	state, err := s.State(ctx)
	if err != nil {
		return errors.Wrap(err, "safe state")
	}
	for _, owner := range h.roles.Owners() {
		if !state.IsOwner(owner) {
			return fmt.Errorf("%w: %s is not an owner", ErrSafeSetup, owner)
		}
	}
	if state.Threshold != Threshold {
		return fmt.Errorf("%w: threshold %d, want %d", ErrSafeSetup, state.Threshold, Threshold)
	}
	return nil
}

func (h *Harness) deploy(ctx context.Context, name string, args ...interface{}) (common.Address, error) {
	addr, _, err := contracts.Deploy(ctx, h.backend, h.source, h.roles.Deployer.Address, name, args...)
	if err != nil {
		return common.Address{}, err
	}
	h.logger.Info("contract deployed", zap.String("contract", name), zap.Stringer("address", addr))
	return addr, nil
}

func (h *Harness) enableModule(ctx context.Context, d *Deployment) (Authorization, error) {
	data, err := contracts.EnableModuleData(d.Module.Address)
	if err != nil {
		return Authorization{}, err
	}
	auth, err := h.Authorize(ctx, d, core.NewCall(d.Safe.Address, data, nil))
	if err != nil {
		return Authorization{}, err
	}
	preimage, err := d.Safe.EncodeTransactionData(ctx, auth.Tx)
	if err != nil {
		return Authorization{}, errors.Wrap(err, "encode transaction data")
	}
	if err := d.Safe.CheckSignatures(ctx, h.roles.Deployer.Address, auth.Hash, preimage, auth.Signatures); err != nil {
		return Authorization{}, errors.Wrap(err, "check signatures")
	}
	if _, err := d.Safe.ExecTransaction(ctx, h.roles.Deployer.Address, auth.Tx, auth.Signatures); err != nil {
		return Authorization{}, errors.Wrap(err, "exec enableModule")
	}
	enabled, err := d.Safe.IsModuleEnabled(ctx, d.Module.Address)
	if err != nil {
		return Authorization{}, err
	}
	if !enabled {
		return Authorization{}, ErrModuleNotEnabled
	}
	h.logger.Info("gift module enabled", zap.Stringer("module", d.Module.Address), zap.Stringer("safeTxHash", auth.Hash))
	return auth, nil
}
