package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-faster/errors"

	"github.com/arnac-io/safegift/pkg/artifacts"
	"github.com/arnac-io/safegift/pkg/chain"
)

// Contract binds an ABI to an address on a backend.
type Contract struct {
	Address common.Address
	abi     abi.ABI
	backend chain.Backend
}

func NewContract(address common.Address, contractABI abi.ABI, backend chain.Backend) *Contract {
	return &Contract{Address: address, abi: contractABI, backend: backend}
}

func (c *Contract) ABI() abi.ABI {
	return c.abi
}

func (c *Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	return data, nil
}

// Call runs a view method and returns the unpacked outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	return c.CallFrom(ctx, common.Address{}, method, args...)
}

// CallFrom is Call with msg.sender set to from.
func (c *Contract) CallFrom(ctx context.Context, from common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := c.backend.Call(ctx, chain.CallMsg{From: from, To: c.Address, Data: data})
	if err != nil {
		return nil, err
	}
	res, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", method)
	}
	return res, nil
}

// Transact sends a state changing call from one of the backend accounts.
func (c *Contract) Transact(ctx context.Context, from common.Address, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	return c.backend.Transact(ctx, chain.TxRequest{From: from, To: c.Address, Data: data})
}

// Events returns the logs of receipt emitted by this contract as the named event.
func (c *Contract) Events(receipt *types.Receipt, name string) ([]map[string]interface{}, error) {
	event, ok := c.abi.Events[name]
	if !ok {
		return nil, fmt.Errorf("event %s is not in the abi", name)
	}
	var out []map[string]interface{}
	for _, l := range receipt.Logs {
		if l.Address != c.Address || len(l.Topics) == 0 || l.Topics[0] != event.ID {
			continue
		}
		fields := make(map[string]interface{})
		if err := c.abi.UnpackIntoMap(fields, name, l.Data); err != nil {
			return nil, errors.Wrapf(err, "unpack %s", name)
		}
		var indexed abi.Arguments
		for _, arg := range event.Inputs {
			if arg.Indexed {
				indexed = append(indexed, arg)
			}
		}
		if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
			return nil, errors.Wrapf(err, "topics %s", name)
		}
		out = append(out, fields)
	}
	return out, nil
}

// Deploy deploys the named artifact with constructor args and returns its address.
func Deploy(ctx context.Context, backend chain.Backend, source artifacts.Source, from common.Address, name string, args ...interface{}) (common.Address, *types.Receipt, error) {
	art, err := source.Artifact(name)
	if err != nil {
		return common.Address{}, nil, err
	}
	packed, err := art.ABI.Pack("", args...)
	if err != nil {
		return common.Address{}, nil, errors.Wrapf(err, "pack %s constructor", name)
	}
	addr, receipt, err := backend.Deploy(ctx, from, art, packed)
	if err != nil {
		return common.Address{}, nil, errors.Wrapf(err, "deploy %s", name)
	}
	return addr, receipt, nil
}

// as asserts an unpacked output to the Go type the ABI decoder produces for it.
func as[T any](v interface{}) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected type %T, want %T", v, zero)
	}
	return t, nil
}

func asBig(v interface{}) (*big.Int, error) {
	return as[*big.Int](v)
}

func asBool(v interface{}) (bool, error) {
	return as[bool](v)
}

func asAddress(v interface{}) (common.Address, error) {
	return as[common.Address](v)
}

func asHash(v interface{}) (common.Hash, error) {
	h, err := as[[32]byte](v)
	return common.Hash(h), err
}

func single(out []interface{}, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("got %d outputs, want 1", len(out))
	}
	return out[0], nil
}
