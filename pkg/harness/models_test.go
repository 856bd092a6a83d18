package harness

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/arnac-io/safegift/pkg/artifacts"
	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/chain/memchain"
	"github.com/arnac-io/safegift/pkg/contracts"
	"github.com/arnac-io/safegift/pkg/core"
	"github.com/arnac-io/safegift/pkg/safe"
)

// bareGiftABI is a gift module exposing only expiry, setExpiry and takeTheGift.
const bareGiftABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"_token","type":"address"},{"name":"_safe","type":"address"}]},
	{"type":"function","name":"expiry","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setExpiry","stateMutability":"nonpayable","inputs":[{"name":"timestamp","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"takeTheGift","stateMutability":"nonpayable","inputs":[{"name":"signatures","type":"bytes"},{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

func mustParseABI(t *testing.T, data string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(data))
	require.Nil(t, err)
	return parsed
}

// bareGiftModel enforces the module rules without the hasReceived view.
// With emit unset it emits no events either.
type bareGiftModel struct {
	abi     abi.ABI
	emit    bool
	token   common.Address
	safe    common.Address
	expiry  *big.Int
	claimed map[common.Address]bool
}

func bareGiftModule(contractABI abi.ABI, emit bool) memchain.Constructor {
	return func(env *memchain.Env, args []interface{}) (memchain.Model, error) {
		return &bareGiftModel{
			abi:     contractABI,
			emit:    emit,
			token:   args[0].(common.Address),
			safe:    args[1].(common.Address),
			expiry:  new(big.Int),
			claimed: map[common.Address]bool{},
		}, nil
	}
}

func (g *bareGiftModel) ABI() abi.ABI {
	return g.abi
}

func (g *bareGiftModel) Clone() memchain.Model {
	c := *g
	c.expiry = new(big.Int).Set(g.expiry)
	c.claimed = make(map[common.Address]bool, len(g.claimed))
	for k, v := range g.claimed {
		c.claimed[k] = v
	}
	return &c
}

func (g *bareGiftModel) Restore(snapshot memchain.Model) {
	*g = *snapshot.(*bareGiftModel)
}

func (g *bareGiftModel) Invoke(env *memchain.Env, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "expiry":
		return []interface{}{new(big.Int).Set(g.expiry)}, nil
	case "setExpiry":
		out, err := env.CallMethod(g.safe, contracts.SafeABI, "isOwner", env.Sender)
		if err != nil {
			return nil, err
		}
		if !out[0].(bool) {
			return nil, chain.NewRevert(contracts.ReasonOnlyOwner)
		}
		g.expiry = new(big.Int).Set(args[0].(*big.Int))
		return nil, nil
	case "takeTheGift":
		return nil, g.takeTheGift(env, args[0].([]byte), args[1].(common.Address), args[2].(*big.Int))
	}
	return nil, &core.RevertError{}
}

func (g *bareGiftModel) takeTheGift(env *memchain.Env, signatures []byte, recipient common.Address, amount *big.Int) error {
	if new(big.Int).SetUint64(env.Block.Time).Cmp(g.expiry) >= 0 {
		return chain.NewRevert(contracts.ReasonExpired)
	}
	if g.claimed[recipient] {
		return chain.NewRevert(contracts.ReasonAlreadyReceived)
	}
	voucher := safe.GiftVoucher{Module: env.Self, Token: g.token, Amount: amount}
	domain := safe.NewDomain(env.ChainID(), g.safe)
	if _, err := env.CallMethod(g.safe, contracts.SafeABI, "checkSignatures", voucher.Hash(domain), voucher.Preimage(domain), signatures); err != nil {
		return err
	}
	g.claimed[recipient] = true
	data, err := contracts.TransferData(recipient, amount)
	if err != nil {
		return err
	}
	out, err := env.CallMethod(g.safe, contracts.SafeABI, "execTransactionFromModule", g.token, new(big.Int), data, uint8(core.Call))
	if err != nil || !out[0].(bool) {
		return chain.NewRevert(contracts.ReasonTransferFailed)
	}
	if g.emit {
		return env.Emit(contracts.GiftModuleABI, "GiftTaken", recipient, new(big.Int).Set(amount))
	}
	return nil
}

func TestSuite_ModuleWithoutRecipientView(t *testing.T) {
	bare := mustParseABI(t, bareGiftABI)
	tests := []struct {
		name   string
		source artifacts.Source
		emit   bool
	}{
		{
			name: "artifact without view and event",
			source: artifacts.Chain{
				artifacts.Static{contracts.GiftModuleName: {Format: "builtin", ContractName: contracts.GiftModuleName, ABI: bare}},
				contracts.Builtin(),
			},
		},
		{
			// hasReceived is in the artifact but the deployed code reverts without data
			name:   "contract without view",
			source: contracts.Builtin(),
			emit:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h, c := newHarness(t, tt.source)
			c.Register(contracts.GiftModuleName, bareGiftModule(bare, tt.emit))
			d, err := h.Setup(ctx)
			require.Nil(t, err)
			s := NewSuite(h, d)

			results, err := s.Run(ctx, Scenarios())
			require.Nil(t, err)
			for _, r := range results {
				require.True(t, r.Passed, "%s: %v", r.Name, r.Err)
			}
			for _, addr := range []common.Address{s.Roles().Taker.Address, s.Roles().SecondTaker.Address} {
				balance, err := d.Token.BalanceOf(ctx, addr)
				require.Nil(t, err)
				require.Equal(t, d.Amount, balance)
			}
			_, err = d.Module.HasReceived(ctx, s.Roles().Taker.Address)
			require.True(t, core.IsBareRevert(err), "got %v", err)
		})
	}
}

// patchedSafe rewrites the outputs of the Safe methods named in patch.
type patchedSafe struct {
	memchain.Model
	patch map[string]func(out []interface{}) []interface{}
}

func (s patchedSafe) Instance(singleton common.Address) memchain.Model {
	return patchedSafe{Model: s.Model.(memchain.Template).Instance(singleton), patch: s.patch}
}

func (s patchedSafe) Clone() memchain.Model {
	return patchedSafe{Model: s.Model.Clone(), patch: s.patch}
}

func (s patchedSafe) Restore(snapshot memchain.Model) {
	s.Model.Restore(snapshot.(patchedSafe).Model)
}

func (s patchedSafe) Invoke(env *memchain.Env, method string, args []interface{}) ([]interface{}, error) {
	out, err := s.Model.Invoke(env, method, args)
	if fn, ok := s.patch[method]; ok && err == nil {
		return fn(out), nil
	}
	return out, err
}

func registerPatchedSafe(c *memchain.Chain, patch map[string]func(out []interface{}) []interface{}) {
	c.Register(contracts.SafeName, func(env *memchain.Env, args []interface{}) (memchain.Model, error) {
		m, err := memchain.NewSafeSingleton(env, args)
		if err != nil {
			return nil, err
		}
		return patchedSafe{Model: m, patch: patch}, nil
	})
}

func TestAuthorize_HashMismatch(t *testing.T) {
	ctx := context.Background()
	h, c := newTestHarness(t)
	patch := map[string]func(out []interface{}) []interface{}{}
	registerPatchedSafe(c, patch)
	d, err := h.Setup(ctx)
	require.Nil(t, err)

	patch["getTransactionHash"] = func(out []interface{}) []interface{} {
		hash := out[0].(common.Hash)
		hash[0] ^= 0xff
		return []interface{}{hash}
	}
	data, err := contracts.EnableModuleData(common.HexToAddress("0x1234"))
	require.Nil(t, err)
	auth, err := h.Authorize(ctx, d, core.NewCall(d.Safe.Address, data, nil))
	require.ErrorIs(t, err, ErrHashMismatch)
	require.Empty(t, auth.Signatures)
	require.Equal(t, common.Hash{}, auth.Hash)

	_, err = h.Setup(ctx)
	require.ErrorIs(t, err, ErrHashMismatch)
}

func TestSetup_SafeNotSetUp(t *testing.T) {
	tests := []struct {
		name  string
		patch map[string]func(out []interface{}) []interface{}
	}{
		{
			name: "owner missing",
			patch: map[string]func(out []interface{}) []interface{}{
				"getOwners": func(out []interface{}) []interface{} {
					return []interface{}{out[0].([]common.Address)[:1]}
				},
			},
		},
		{
			name: "threshold",
			patch: map[string]func(out []interface{}) []interface{}{
				"getThreshold": func(out []interface{}) []interface{} {
					return []interface{}{big.NewInt(1)}
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, c := newTestHarness(t)
			registerPatchedSafe(c, tt.patch)
			_, err := h.Setup(context.Background())
			require.ErrorIs(t, err, ErrSafeSetup)
		})
	}
}
