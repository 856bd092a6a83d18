package memchain

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/contracts"
	"github.com/arnac-io/safegift/pkg/core"
)

// Template is implemented by models that proxies can point at.
// A model registered for the Safe singleton must implement it.
type Template interface {
	Instance(singleton common.Address) Model
}

// factoryModel follows GnosisSafeProxyFactory v1.3.0 createProxy.
type factoryModel struct{}

func newFactory(env *Env, args []interface{}) (Model, error) {
	return &factoryModel{}, nil
}

func (f *factoryModel) ABI() abi.ABI {
	return contracts.FactoryABI
}

func (f *factoryModel) Clone() Model {
	return &factoryModel{}
}

func (f *factoryModel) Restore(snapshot Model) {}

func (f *factoryModel) Invoke(env *Env, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "createProxy":
		proxy, err := f.createProxy(env, args[0].(common.Address), args[1].([]byte))
		if err != nil {
			return nil, err
		}
		return []interface{}{proxy}, nil
	}
	return nil, unknownMethod(method)
}

func (f *factoryModel) createProxy(env *Env, singleton common.Address, initializer []byte) (common.Address, error) {
	if singleton == (common.Address{}) {
		return common.Address{}, chain.NewRevert("Invalid singleton address provided")
	}
	m, ok := env.model(singleton)
	if !ok {
		return common.Address{}, &core.RevertError{}
	}
	tmpl, ok := m.(Template)
	if !ok {
		return common.Address{}, &core.RevertError{}
	}
	proxy := env.Create(tmpl.Instance(singleton))
	if len(initializer) > 0 {
		// the factory reverts without data when the initializer call fails
		if _, err := env.Call(proxy, nil, initializer); err != nil {
			return common.Address{}, &core.RevertError{}
		}
	}
	if err := env.Emit(contracts.FactoryABI, "ProxyCreation", proxy, singleton); err != nil {
		return common.Address{}, err
	}
	return proxy, nil
}
