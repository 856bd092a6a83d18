package harness

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/arnac-io/safegift/pkg/contracts"
	"github.com/arnac-io/safegift/pkg/core"
	"github.com/arnac-io/safegift/pkg/safe"
)

const day = 24 * 60 * 60

// ErrUnexpected marks a scenario whose observed chain state differs from the expected one.
var ErrUnexpected = errors.New("unexpected outcome")

// Suite is the shared state scenarios run against. Scenarios see each other's chain effects.
type Suite struct {
	*Harness
	Deployment *Deployment

	voucher []byte
}

func NewSuite(h *Harness, d *Deployment) *Suite {
	return &Suite{Harness: h, Deployment: d}
}

// Voucher returns the owners' gift voucher signatures, signed once per suite.
func (s *Suite) Voucher() ([]byte, error) {
	if s.voucher != nil {
		return s.voucher, nil
	}
	blob, err := s.SignVoucher(s.Deployment)
	if err != nil {
		return nil, err
	}
	s.voucher = blob
	return blob, nil
}

type Scenario struct {
	Name string
	Run  func(ctx context.Context, s *Suite) error
}

// Scenarios returns the gift module scenarios in execution order.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "signature-order", Run: signatureOrder},
		{Name: "nonce-replay", Run: nonceReplay},
		{Name: "module-enabled", Run: moduleEnabled},
		{Name: "expiry-owner", Run: expiryOwner},
		{Name: "expiry-non-owner", Run: expiryNonOwner},
		{Name: "claim-once", Run: claimOnce},
		{Name: "claim-repeat", Run: claimRepeat},
		{Name: "claim-distinct-address", Run: claimDistinctAddress},
		{Name: "module-still-enabled", Run: moduleEnabled},
		{Name: "claim-after-expiry", Run: claimAfterExpiry},
	}
}

func expectRevert(err error, reason string) error {
	if err == nil {
		return fmt.Errorf("%w: call succeeded, want revert %q", ErrUnexpected, reason)
	}
	if !core.IsRevert(err, reason) {
		return errors.Wrapf(err, "want revert %q", reason)
	}
	return nil
}

func signatureOrder(ctx context.Context, s *Suite) error {
	d := s.Deployment
	data, err := contracts.EnableModuleData(d.Module.Address)
	if err != nil {
		return err
	}
	auth, err := s.Authorize(ctx, d, core.NewCall(d.Safe.Address, data, nil))
	if err != nil {
		return err
	}
	preimage, err := d.Safe.EncodeTransactionData(ctx, auth.Tx)
	if err != nil {
		return err
	}
	if err := d.Safe.CheckSignatures(ctx, s.roles.Deployer.Address, auth.Hash, preimage, auth.Signatures); err != nil {
		return errors.Wrap(err, "ascending blob")
	}
	sigs, err := safe.SplitSignatures(auth.Signatures)
	if err != nil {
		return err
	}
	swapped := safe.Encode([]safe.Signature{sigs[1], sigs[0]})
	err = d.Safe.CheckSignatures(ctx, s.roles.Deployer.Address, auth.Hash, preimage, swapped)
	return expectRevert(err, safe.CodeInvalidOwner)
}

func nonceReplay(ctx context.Context, s *Suite) error {
	d := s.Deployment
	auth := d.EnableModule
	_, err := d.Safe.ExecTransaction(ctx, s.roles.Deployer.Address, auth.Tx, auth.Signatures)
	return expectRevert(err, safe.CodeInvalidOwner)
}

func moduleEnabled(ctx context.Context, s *Suite) error {
	enabled, err := s.Deployment.Safe.IsModuleEnabled(ctx, s.Deployment.Module.Address)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrModuleNotEnabled
	}
	return nil
}

func expiryOwner(ctx context.Context, s *Suite) error {
	now, err := s.backend.BlockTime(ctx)
	if err != nil {
		return err
	}
	want := now + day
	if _, err := s.Deployment.Module.SetExpiry(ctx, s.roles.Owner1.Address, want); err != nil {
		return errors.Wrap(err, "set expiry")
	}
	got, err := s.Deployment.Module.Expiry(ctx)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: expiry %d, want %d", ErrUnexpected, got, want)
	}
	return nil
}

func expiryNonOwner(ctx context.Context, s *Suite) error {
	now, err := s.backend.BlockTime(ctx)
	if err != nil {
		return err
	}
	_, err = s.Deployment.Module.SetExpiry(ctx, s.roles.Taker.Address, now+2*day)
	return expectRevert(err, contracts.ReasonOnlyOwner)
}

// claim takes the gift for recipient and checks that exactly Amount arrived.
// The GiftTaken event and the hasReceived view are checked only if the deployed module has them.
func (s *Suite) claim(ctx context.Context, sender, recipient common.Address) error {
	d := s.Deployment
	blob, err := s.Voucher()
	if err != nil {
		return err
	}
	before, err := d.Token.BalanceOf(ctx, recipient)
	if err != nil {
		return err
	}
	receipt, err := d.Module.TakeTheGift(ctx, sender, blob, recipient, d.Amount)
	if err != nil {
		return errors.Wrap(err, "take the gift")
	}
	after, err := d.Token.BalanceOf(ctx, recipient)
	if err != nil {
		return err
	}
	if diff := new(big.Int).Sub(after, before); diff.Cmp(d.Amount) != 0 {
		return fmt.Errorf("%w: balance grew by %s, want %s", ErrUnexpected, diff, d.Amount)
	}

	moduleABI := s.moduleABI()
	if _, ok := moduleABI.Events["GiftTaken"]; ok {
		taken, err := d.Module.GiftsTaken(receipt)
		if err != nil {
			return err
		}
		if len(taken) != 1 || taken[0].Recipient != recipient || taken[0].Amount.Cmp(d.Amount) != 0 {
			return fmt.Errorf("%w: GiftTaken events %v", ErrUnexpected, taken)
		}
	}
	if _, ok := moduleABI.Methods["hasReceived"]; !ok {
		return nil
	}
	received, err := d.Module.HasReceived(ctx, recipient)
	switch {
	case core.IsBareRevert(err):
		s.logger.Debug("module has no hasReceived view", zap.Stringer("module", d.Module.Address))
		return nil
	case err != nil:
		return err
	case !received:
		return fmt.Errorf("%w: %s is not recorded as a recipient", ErrUnexpected, recipient)
	}
	return nil
}

// moduleABI is the ABI of the deployed gift module artifact.
func (s *Suite) moduleABI() abi.ABI {
	art, err := s.source.Artifact(contracts.GiftModuleName)
	if err != nil {
		return contracts.GiftModuleABI
	}
	return art.ABI
}

func (s *Suite) rejectClaim(ctx context.Context, sender, recipient common.Address, reason string) error {
	blob, err := s.Voucher()
	if err != nil {
		return err
	}
	_, err = s.Deployment.Module.TakeTheGift(ctx, sender, blob, recipient, s.Deployment.Amount)
	return expectRevert(err, reason)
}

func claimOnce(ctx context.Context, s *Suite) error {
	return s.claim(ctx, s.roles.Taker.Address, s.roles.Taker.Address)
}

func claimRepeat(ctx context.Context, s *Suite) error {
	return s.rejectClaim(ctx, s.roles.Taker.Address, s.roles.Taker.Address, contracts.ReasonAlreadyReceived)
}

func claimDistinctAddress(ctx context.Context, s *Suite) error {
	return s.claim(ctx, s.roles.SecondTaker.Address, s.roles.SecondTaker.Address)
}

func claimAfterExpiry(ctx context.Context, s *Suite) error {
	owner := s.roles.Owner1.Address
	// the deployer never claimed, only the expiry can stop it
	recipient := s.roles.Deployer.Address

	if _, err := s.Deployment.Module.SetExpiry(ctx, owner, 0); err != nil {
		return errors.Wrap(err, "set expiry to zero")
	}
	if err := s.rejectClaim(ctx, recipient, recipient, contracts.ReasonExpired); err != nil {
		return errors.Wrap(err, "zero expiry")
	}

	latest, err := s.backend.BlockTime(ctx)
	if err != nil {
		return err
	}
	if _, err := s.Deployment.Module.SetExpiry(ctx, owner, latest); err != nil {
		return errors.Wrap(err, "set expiry to latest block")
	}
	if err := s.rejectClaim(ctx, recipient, recipient, contracts.ReasonExpired); err != nil {
		return errors.Wrap(err, "expiry at latest block")
	}
	return nil
}
