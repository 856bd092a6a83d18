package memchain_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/chain/memchain"
	"github.com/arnac-io/safegift/pkg/contracts"
	"github.com/arnac-io/safegift/pkg/core"
	"github.com/arnac-io/safegift/pkg/keys"
	"github.com/arnac-io/safegift/pkg/safe"
)

type fixture struct {
	chain    *memchain.Chain
	ring     *keys.Keyring
	deployer common.Address
	owner1   keys.Account
	owner2   keys.Account
	taker    common.Address
	token    *contracts.Token
	factory  *contracts.Factory
	safe     *contracts.Safe
	module   *contracts.GiftModule
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	ring, err := keys.Derive(keys.DefaultMnemonic, keys.DefaultPath, 5)
	require.Nil(t, err)
	c := memchain.New(memchain.WithAccounts(ring.Addresses()...))
	f := &fixture{chain: c, ring: ring}
	accs := ring.Accounts()
	f.deployer, f.owner1, f.owner2, f.taker = accs[0].Address, accs[1], accs[2], accs[3].Address

	src := contracts.Builtin()
	tokenAddr, _, err := contracts.Deploy(ctx, c, src, f.deployer, contracts.TokenName)
	require.Nil(t, err)
	factoryAddr, _, err := contracts.Deploy(ctx, c, src, f.deployer, contracts.FactoryName)
	require.Nil(t, err)
	singleton, _, err := contracts.Deploy(ctx, c, src, f.deployer, contracts.SafeName)
	require.Nil(t, err)
	f.token = contracts.NewToken(tokenAddr, c)
	f.factory = contracts.NewFactory(factoryAddr, c)

	setup, err := contracts.SetupData([]common.Address{f.owner1.Address, f.owner2.Address}, 2)
	require.Nil(t, err)
	proxy, _, err := f.factory.CreateProxy(ctx, f.deployer, singleton, setup)
	require.Nil(t, err)
	f.safe = contracts.NewSafe(proxy, c)

	moduleAddr, _, err := contracts.Deploy(ctx, c, src, f.deployer, contracts.GiftModuleName, tokenAddr, proxy)
	require.Nil(t, err)
	f.module = contracts.NewGiftModule(moduleAddr, c)
	return f
}

func (f *fixture) domain() safe.Domain {
	return safe.NewDomain(big.NewInt(memchain.DefaultChainID), f.safe.Address)
}

func (f *fixture) sign(t *testing.T, hash common.Hash) []byte {
	blob, err := safe.NewAggregator().SignBlob(hash, f.owner1.Signer(), f.owner2.Signer())
	require.Nil(t, err)
	return blob
}

func (f *fixture) enableModule(t *testing.T) {
	ctx := context.Background()
	data, err := contracts.EnableModuleData(f.module.Address)
	require.Nil(t, err)
	nonce, err := f.safe.Nonce(ctx)
	require.Nil(t, err)
	tx := core.NewCall(f.safe.Address, data, nonce)
	_, err = f.safe.ExecTransaction(ctx, f.deployer, tx, f.sign(t, f.domain().TransactionHash(tx)))
	require.Nil(t, err)
}

func (f *fixture) fundSafe(t *testing.T) {
	_, err := f.token.Transfer(context.Background(), f.deployer, f.safe.Address, memchain.TokenSupply)
	require.Nil(t, err)
}

func TestChain_DeployAndProxy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	balance, err := f.token.BalanceOf(ctx, f.deployer)
	require.Nil(t, err)
	require.Equal(t, memchain.TokenSupply, balance)
	decimals, err := f.token.Decimals(ctx)
	require.Nil(t, err)
	require.Equal(t, int32(18), decimals)

	state, err := f.safe.State(ctx)
	require.Nil(t, err)
	require.Equal(t, []common.Address{f.owner1.Address, f.owner2.Address}, state.Owners)
	require.Equal(t, uint64(2), state.Threshold)
	require.Equal(t, int64(0), state.Nonce.Int64())
	require.Empty(t, state.Modules)

	version, err := f.safe.Version(ctx)
	require.Nil(t, err)
	require.Equal(t, "1.3.0", version)

	separator, err := f.safe.DomainSeparator(ctx)
	require.Nil(t, err)
	require.Equal(t, f.domain().Separator(), separator)

	gift, err := f.module.State(ctx)
	require.Nil(t, err)
	require.Equal(t, f.safe.Address, gift.Safe)
	require.Equal(t, f.token.Address, gift.Token)
	require.Equal(t, uint64(0), gift.Expiry)
}

func TestChain_ProxyCreationLogs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	singleton, _, err := contracts.Deploy(ctx, f.chain, contracts.Builtin(), f.deployer, contracts.SafeName)
	require.Nil(t, err)
	setup, err := contracts.SetupData([]common.Address{f.owner1.Address}, 1)
	require.Nil(t, err)

	proxy, receipt, err := f.factory.CreateProxy(ctx, f.deployer, singleton, setup)
	require.Nil(t, err)
	require.Len(t, receipt.Logs, 2)
	require.Equal(t, contracts.SafeABI.Events["SafeSetup"].ID, receipt.Logs[0].Topics[0])
	require.Equal(t, contracts.FactoryABI.Events["ProxyCreation"].ID, receipt.Logs[1].Topics[0])
	require.NotEqual(t, f.safe.Address, proxy)

	// the singleton itself can not be set up
	_, err = contracts.NewSafe(singleton, f.chain).Transact(ctx, f.deployer, "setup",
		[]common.Address{f.owner1.Address}, big.NewInt(1), common.Address{}, []byte{},
		common.Address{}, common.Address{}, new(big.Int), common.Address{})
	require.True(t, core.IsRevert(err, safe.CodeOwnersInitialized), "got %v", err)

	// a failing initializer reverts createProxy without a reason
	bad, err := contracts.SetupData([]common.Address{f.owner1.Address}, 2)
	require.Nil(t, err)
	_, _, err = f.factory.CreateProxy(ctx, f.deployer, singleton, bad)
	reason, ok := core.RevertReason(err)
	require.True(t, ok)
	require.Equal(t, "", reason)
}

func TestChain_HashMatchesContract(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	data, err := contracts.EnableModuleData(f.module.Address)
	require.Nil(t, err)
	tx := core.NewCall(f.safe.Address, data, big.NewInt(7))

	onchain, err := f.safe.GetTransactionHash(ctx, tx)
	require.Nil(t, err)
	require.Equal(t, f.domain().TransactionHash(tx), onchain)

	preimage, err := f.safe.EncodeTransactionData(ctx, tx)
	require.Nil(t, err)
	require.Equal(t, f.domain().EncodeTransactionData(tx), preimage)
}

func TestChain_ExecTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	data, err := contracts.EnableModuleData(f.module.Address)
	require.Nil(t, err)
	tx := core.NewCall(f.safe.Address, data, big.NewInt(0))
	hash := f.domain().TransactionHash(tx)
	blob := f.sign(t, hash)
	swapped := append(append([]byte{}, blob[safe.SignatureLength:]...), blob[:safe.SignatureLength]...)

	require.Nil(t, f.safe.CheckSignatures(ctx, f.deployer, hash, f.domain().EncodeTransactionData(tx), blob))
	err = f.safe.CheckSignatures(ctx, f.deployer, hash, nil, swapped)
	require.True(t, core.IsRevert(err, safe.CodeInvalidOwner), "got %v", err)

	// modules can only be enabled through the Safe itself
	_, err = f.safe.Transact(ctx, f.owner1.Address, "enableModule", f.module.Address)
	require.True(t, core.IsRevert(err, safe.CodeOnlySelf), "got %v", err)

	_, err = f.safe.ExecTransaction(ctx, f.deployer, tx, swapped)
	require.True(t, core.IsRevert(err, safe.CodeInvalidOwner), "got %v", err)
	nonce, err := f.safe.Nonce(ctx)
	require.Nil(t, err)
	require.Equal(t, int64(0), nonce.Int64())

	receipt, err := f.safe.ExecTransaction(ctx, f.deployer, tx, blob)
	require.Nil(t, err)
	events, err := f.safe.Events(receipt, "ExecutionSuccess")
	require.Nil(t, err)
	require.Len(t, events, 1)
	require.Equal(t, [32]byte(hash), events[0]["txHash"])

	enabled, err := f.safe.IsModuleEnabled(ctx, f.module.Address)
	require.Nil(t, err)
	require.True(t, enabled)

	// the same signatures are bound to nonce 0
	_, err = f.safe.ExecTransaction(ctx, f.deployer, tx, blob)
	require.True(t, core.IsRevert(err, safe.CodeInvalidOwner), "got %v", err)

	// a failing inner call with safeTxGas 0 reverts the whole transaction
	again := tx.WithNonce(big.NewInt(1))
	_, err = f.safe.ExecTransaction(ctx, f.deployer, again, f.sign(t, f.domain().TransactionHash(again)))
	require.True(t, core.IsRevert(err, safe.CodeTxFailed), "got %v", err)
}

func TestChain_ApproveHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	data, err := contracts.EnableModuleData(f.module.Address)
	require.Nil(t, err)
	tx := core.NewCall(f.safe.Address, data, big.NewInt(0))
	hash := f.domain().TransactionHash(tx)

	_, err = f.safe.ApproveHash(ctx, f.taker, hash)
	require.True(t, core.IsRevert(err, safe.CodeOnlyOwnersApprove), "got %v", err)
	_, err = f.safe.ApproveHash(ctx, f.owner2.Address, hash)
	require.Nil(t, err)

	sig1, err := f.owner1.Signer().SignHash(hash, safe.DigestMode)
	require.Nil(t, err)
	blob := safe.Aggregate(sig1, safe.ApprovedHashSignature(f.owner2.Address))
	_, err = f.safe.ExecTransaction(ctx, f.deployer, tx, blob)
	require.Nil(t, err)
}

func TestChain_DisableModule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enableModule(t)

	modules, err := f.safe.Modules(ctx, 10)
	require.Nil(t, err)
	require.Equal(t, []common.Address{f.module.Address}, modules)

	data, err := contracts.DisableModuleData(common.HexToAddress("0x1"), f.module.Address)
	require.Nil(t, err)
	tx := core.NewCall(f.safe.Address, data, big.NewInt(1))
	_, err = f.safe.ExecTransaction(ctx, f.deployer, tx, f.sign(t, f.domain().TransactionHash(tx)))
	require.Nil(t, err)

	enabled, err := f.safe.IsModuleEnabled(ctx, f.module.Address)
	require.Nil(t, err)
	require.False(t, enabled)
}

func TestChain_Time(t *testing.T) {
	ctx := context.Background()
	c := memchain.New(memchain.WithGenesis(100, 1000))

	number, err := c.BlockNumber(ctx)
	require.Nil(t, err)
	require.Equal(t, uint64(100), number)

	require.NotNil(t, c.SetNextBlockTimestamp(ctx, 1000))
	require.Nil(t, c.SetNextBlockTimestamp(ctx, 5000))
	require.Nil(t, c.Mine(ctx))
	ts, err := c.BlockTime(ctx)
	require.Nil(t, err)
	require.Equal(t, uint64(5000), ts)

	require.Nil(t, c.Mine(ctx))
	ts, err = c.BlockTime(ctx)
	require.Nil(t, err)
	require.Equal(t, uint64(5001), ts)

	require.Nil(t, c.Fork(ctx, "", 42))
	number, err = c.BlockNumber(ctx)
	require.Nil(t, err)
	require.Equal(t, uint64(42), number)
	ts, err = c.BlockTime(ctx)
	require.Nil(t, err)
	require.Equal(t, uint64(1000), ts)
}

func TestChain_EtherTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poor := common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	_, err := f.chain.Transact(ctx, chain.TxRequest{From: f.deployer, To: f.safe.Address, Value: big.NewInt(1)})
	require.Nil(t, err)
	// the token has no receive function
	_, err = f.chain.Transact(ctx, chain.TxRequest{From: f.deployer, To: f.token.Address, Value: big.NewInt(1)})
	require.ErrorIs(t, err, core.ErrReverted)
	_, err = f.chain.Transact(ctx, chain.TxRequest{From: poor, To: f.safe.Address, Value: big.NewInt(1)})
	require.ErrorIs(t, err, core.ErrReverted)
}
