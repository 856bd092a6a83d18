package keys

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	"github.com/arnac-io/safegift/pkg/core"
	"github.com/arnac-io/safegift/pkg/safe"
)

const (
	// DefaultMnemonic is the mnemonic hardhat and anvil use for their funded dev accounts.
	DefaultMnemonic = "test test test test test test test test test test test junk"
	// DefaultPath is the base derivation path, the account index is appended as the last element.
	DefaultPath = "m/44'/60'/0'/0"
)

// Account is a derived externally owned account.
type Account struct {
	Index   int
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// Signer returns a Safe owner signer backed by the account key.
func (a Account) Signer() *safe.PrivateKeySigner {
	return safe.NewPrivateKeySigner(a.Key)
}

// Keyring holds a fixed number of accounts derived from one mnemonic.
type Keyring struct {
	accounts []Account
	byAddr   map[common.Address]int
}

// Derive builds accounts basePath/0 .. basePath/(count-1).
func Derive(mnemonic, basePath string, count int) (*Keyring, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	ring := &Keyring{byAddr: make(map[common.Address]int, count)}
	for i := 0; i < count; i++ {
		path, err := accounts.ParseDerivationPath(fmt.Sprintf("%s/%d", strings.TrimSuffix(basePath, "/"), i))
		if err != nil {
			return nil, err
		}
		key, err := deriveKey(master, path)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", path, err)
		}
		acc := Account{Index: i, Address: crypto.PubkeyToAddress(key.PublicKey), Key: key}
		ring.accounts = append(ring.accounts, acc)
		ring.byAddr[acc.Address] = i
	}
	return ring, nil
}

func deriveKey(master *hdkeychain.ExtendedKey, path accounts.DerivationPath) (*ecdsa.PrivateKey, error) {
	key := master
	for _, n := range path {
		var err error
		key, err = key.Derive(n)
		if err != nil {
			return nil, err
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return priv.ToECDSA(), nil
}

// FromPrivateKeys builds a keyring from raw hex keys, in the given order.
func FromPrivateKeys(hexKeys ...string) (*Keyring, error) {
	ring := &Keyring{byAddr: make(map[common.Address]int, len(hexKeys))}
	for i, h := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(h, "0x"))
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		acc := Account{Index: i, Address: crypto.PubkeyToAddress(key.PublicKey), Key: key}
		ring.accounts = append(ring.accounts, acc)
		ring.byAddr[acc.Address] = i
	}
	return ring, nil
}

func (r *Keyring) Len() int {
	return len(r.accounts)
}

func (r *Keyring) Account(i int) (Account, error) {
	if i < 0 || i >= len(r.accounts) {
		return Account{}, fmt.Errorf("%w: index %d of %d", core.ErrUnknownAccount, i, len(r.accounts))
	}
	return r.accounts[i], nil
}

func (r *Keyring) Accounts() []Account {
	return append([]Account(nil), r.accounts...)
}

// Key returns the private key of addr.
func (r *Keyring) Key(addr common.Address) (*ecdsa.PrivateKey, error) {
	i, ok := r.byAddr[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAccount, addr)
	}
	return r.accounts[i].Key, nil
}

func (r *Keyring) Addresses() []common.Address {
	out := make([]common.Address, len(r.accounts))
	for i, a := range r.accounts {
		out[i] = a.Address
	}
	return out
}
