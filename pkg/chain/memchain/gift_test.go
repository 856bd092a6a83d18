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
	"github.com/arnac-io/safegift/pkg/safe"
)

var giftAmount = new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))

func (f *fixture) voucherBlob(t *testing.T, amount *big.Int) []byte {
	v := safe.GiftVoucher{Module: f.module.Address, Token: f.token.Address, Amount: amount}
	return f.sign(t, v.Hash(f.domain()))
}

func (f *fixture) openDeal(t *testing.T) {
	ctx := context.Background()
	now, err := f.chain.BlockTime(ctx)
	require.Nil(t, err)
	_, err = f.module.SetExpiry(ctx, f.owner1.Address, now+86400)
	require.Nil(t, err)
}

func TestGift_SetExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.module.SetExpiry(ctx, f.taker, 1)
	require.True(t, core.IsRevert(err, contracts.ReasonOnlyOwner), "got %v", err)

	receipt, err := f.module.SetExpiry(ctx, f.owner2.Address, 1234)
	require.Nil(t, err)
	require.Len(t, receipt.Logs, 1)
	expiry, err := f.module.Expiry(ctx)
	require.Nil(t, err)
	require.Equal(t, uint64(1234), expiry)
}

func TestGift_Claims(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enableModule(t)
	f.fundSafe(t)
	f.openDeal(t)
	blob := f.voucherBlob(t, giftAmount)
	second := f.ring.Accounts()[4].Address

	receipt, err := f.module.TakeTheGift(ctx, f.taker, blob, f.taker, giftAmount)
	require.Nil(t, err)
	taken, err := f.module.GiftsTaken(receipt)
	require.Nil(t, err)
	require.Equal(t, []contracts.GiftTaken{{Recipient: f.taker, Amount: giftAmount}}, taken)

	balance, err := f.token.BalanceOf(ctx, f.taker)
	require.Nil(t, err)
	require.Equal(t, giftAmount, balance)
	received, err := f.module.HasReceived(ctx, f.taker)
	require.Nil(t, err)
	require.True(t, received)

	_, err = f.module.TakeTheGift(ctx, f.taker, blob, f.taker, giftAmount)
	require.True(t, core.IsRevert(err, contracts.ReasonAlreadyReceived), "got %v", err)

	// claims are keyed by recipient, the voucher does not name one
	_, err = f.module.TakeTheGift(ctx, second, blob, second, giftAmount)
	require.Nil(t, err)
	balance, err = f.token.BalanceOf(ctx, second)
	require.Nil(t, err)
	require.Equal(t, giftAmount, balance)

	safeBalance, err := f.token.BalanceOf(ctx, f.safe.Address)
	require.Nil(t, err)
	require.Equal(t, new(big.Int).Sub(memchain.TokenSupply, new(big.Int).Mul(giftAmount, big.NewInt(2))), safeBalance)
}

func TestGift_Rejections(t *testing.T) {
	ctx := context.Background()
	other := common.HexToAddress("0x00000000000000000000000000000000000000AA")

	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture) []byte
		amount  *big.Int
		want    string
	}{
		{
			name: "never opened",
			prepare: func(t *testing.T, f *fixture) []byte {
				f.enableModule(t)
				f.fundSafe(t)
				return f.voucherBlob(t, giftAmount)
			},
			want: contracts.ReasonExpired,
		},
		{
			name: "expired at latest block",
			prepare: func(t *testing.T, f *fixture) []byte {
				f.enableModule(t)
				f.fundSafe(t)
				now, err := f.chain.BlockTime(ctx)
				require.Nil(t, err)
				_, err = f.module.SetExpiry(ctx, f.owner1.Address, now+1)
				require.Nil(t, err)
				return f.voucherBlob(t, giftAmount)
			},
			want: contracts.ReasonExpired,
		},
		{
			name: "voucher for another amount",
			prepare: func(t *testing.T, f *fixture) []byte {
				f.enableModule(t)
				f.fundSafe(t)
				f.openDeal(t)
				return f.voucherBlob(t, big.NewInt(1))
			},
			want: safe.CodeInvalidOwner,
		},
		{
			name: "module not enabled",
			prepare: func(t *testing.T, f *fixture) []byte {
				f.fundSafe(t)
				f.openDeal(t)
				return f.voucherBlob(t, giftAmount)
			},
			want: contracts.ReasonTransferFailed,
		},
		{
			name: "safe without tokens",
			prepare: func(t *testing.T, f *fixture) []byte {
				f.enableModule(t)
				f.openDeal(t)
				return f.voucherBlob(t, giftAmount)
			},
			want: contracts.ReasonTransferFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			blob := tt.prepare(t, f)
			_, err := f.module.TakeTheGift(ctx, other, blob, other, giftAmount)
			require.True(t, core.IsRevert(err, tt.want), "got %v", err)

			// nothing is recorded for a reverted claim
			received, err := f.module.HasReceived(ctx, other)
			require.Nil(t, err)
			require.False(t, received)
		})
	}
}

func TestGift_CallLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enableModule(t)
	f.fundSafe(t)
	f.openDeal(t)
	blob := f.voucherBlob(t, giftAmount)

	data, err := f.module.Pack("takeTheGift", blob, f.taker, giftAmount)
	require.Nil(t, err)
	_, err = f.chain.Call(ctx, chain.CallMsg{From: f.taker, To: f.module.Address, Data: data})
	require.Nil(t, err)

	received, err := f.module.HasReceived(ctx, f.taker)
	require.Nil(t, err)
	require.False(t, received)
	balance, err := f.token.BalanceOf(ctx, f.taker)
	require.Nil(t, err)
	require.Equal(t, 0, balance.Sign())
}
