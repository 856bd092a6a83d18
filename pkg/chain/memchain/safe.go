package memchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/contracts"
	"github.com/arnac-io/safegift/pkg/core"
	"github.com/arnac-io/safegift/pkg/safe"
)

const safeVersion = "1.3.0"

var sentinel = contracts.Sentinel

// safeModel follows GnosisSafe v1.3.0. Both the singleton and its proxies are safeModels,
// a proxy owns its storage and runs the singleton logic.
type safeModel struct {
	singleton       common.Address
	owners          []common.Address
	threshold       uint64
	nonce           *big.Int
	modules         []common.Address // newest first, like the linked list
	approved        map[common.Address]map[common.Hash]bool
	fallbackHandler common.Address
}

// NewSafeSingleton is the Constructor of the GnosisSafe singleton model.
func NewSafeSingleton(env *Env, args []interface{}) (Model, error) {
	// the singleton constructor sets threshold to 1 so it can never be set up
	return &safeModel{threshold: 1, nonce: new(big.Int), approved: map[common.Address]map[common.Hash]bool{}}, nil
}

// Instance returns the fresh storage of a proxy pointing at singleton.
func (s *safeModel) Instance(singleton common.Address) Model {
	return &safeModel{singleton: singleton, nonce: new(big.Int), approved: map[common.Address]map[common.Hash]bool{}}
}

func (s *safeModel) ABI() abi.ABI {
	return contracts.SafeABI
}

func (s *safeModel) Clone() Model {
	c := *s
	c.owners = slices.Clone(s.owners)
	c.modules = slices.Clone(s.modules)
	c.nonce = new(big.Int).Set(s.nonce)
	c.approved = make(map[common.Address]map[common.Hash]bool, len(s.approved))
	for owner, hashes := range s.approved {
		c.approved[owner] = make(map[common.Hash]bool, len(hashes))
		for h, ok := range hashes {
			c.approved[owner][h] = ok
		}
	}
	return &c
}

func (s *safeModel) Restore(snapshot Model) {
	*s = *snapshot.(*safeModel)
}

// Receive accepts ether like the Safe receive function.
func (s *safeModel) Receive(env *Env) error {
	return nil
}

func (s *safeModel) domain(env *Env) safe.Domain {
	return safe.NewDomain(env.ChainID(), env.Self)
}

func (s *safeModel) isOwner(addr common.Address) bool {
	return addr != sentinel && slices.Contains(s.owners, addr)
}

func (s *safeModel) isModuleEnabled(addr common.Address) bool {
	return addr != sentinel && slices.Contains(s.modules, addr)
}

func (s *safeModel) verifier(env *Env) *safe.Verifier {
	return safe.NewVerifier(s.owners, s.threshold,
		safe.WithSender(env.Sender),
		safe.WithApprovals(func(owner common.Address, hash common.Hash) bool {
			return s.approved[owner][hash]
		}),
	)
}

func txFromArgs(args []interface{}) core.SafeTransaction {
	return core.SafeTransaction{
		To:             args[0].(common.Address),
		Value:          args[1].(*big.Int),
		Data:           args[2].([]byte),
		Operation:      core.Operation(args[3].(uint8)),
		SafeTxGas:      args[4].(*big.Int),
		BaseGas:        args[5].(*big.Int),
		GasPrice:       args[6].(*big.Int),
		GasToken:       args[7].(common.Address),
		RefundReceiver: args[8].(common.Address),
	}
}

func (s *safeModel) Invoke(env *Env, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "VERSION":
		return []interface{}{safeVersion}, nil
	case "setup":
		return nil, s.setup(env, args)
	case "execTransaction":
		ok, err := s.execTransaction(env, txFromArgs(args), args[9].([]byte))
		return []interface{}{ok}, err
	case "execTransactionFromModule":
		ok, err := s.execTransactionFromModule(env, args)
		return []interface{}{ok}, err
	case "checkSignatures":
		hash := common.Hash(args[0].([32]byte))
		return nil, s.checkSignatures(env, hash, args[2].([]byte))
	case "approveHash":
		return nil, s.approveHash(env, common.Hash(args[0].([32]byte)))
	case "approvedHashes":
		owner, hash := args[0].(common.Address), common.Hash(args[1].([32]byte))
		if s.approved[owner][hash] {
			return []interface{}{big.NewInt(1)}, nil
		}
		return []interface{}{new(big.Int)}, nil
	case "enableModule":
		return nil, s.enableModule(env, args[0].(common.Address))
	case "disableModule":
		return nil, s.disableModule(env, args[0].(common.Address), args[1].(common.Address))
	case "isModuleEnabled":
		return []interface{}{s.isModuleEnabled(args[0].(common.Address))}, nil
	case "getModulesPaginated":
		page, next := s.modulesPaginated(args[0].(common.Address), args[1].(*big.Int))
		return []interface{}{page, next}, nil
	case "getOwners":
		return []interface{}{slices.Clone(s.owners)}, nil
	case "getThreshold":
		return []interface{}{new(big.Int).SetUint64(s.threshold)}, nil
	case "isOwner":
		return []interface{}{s.isOwner(args[0].(common.Address))}, nil
	case "nonce":
		return []interface{}{new(big.Int).Set(s.nonce)}, nil
	case "domainSeparator":
		return []interface{}{s.domain(env).Separator()}, nil
	case "getChainId":
		return []interface{}{env.ChainID()}, nil
	case "encodeTransactionData":
		tx := txFromArgs(args)
		tx.Nonce = args[9].(*big.Int)
		return []interface{}{s.domain(env).EncodeTransactionData(tx)}, nil
	case "getTransactionHash":
		tx := txFromArgs(args)
		tx.Nonce = args[9].(*big.Int)
		return []interface{}{s.domain(env).TransactionHash(tx)}, nil
	}
	return nil, unknownMethod(method)
}

func (s *safeModel) setup(env *Env, args []interface{}) error {
	owners := args[0].([]common.Address)
	threshold := args[1].(*big.Int)
	to := args[2].(common.Address)
	fallbackHandler := args[4].(common.Address)
	paymentToken := args[5].(common.Address)
	payment := args[6].(*big.Int)
	paymentReceiver := args[7].(common.Address)

	if s.threshold > 0 {
		return revert(safe.CodeOwnersInitialized)
	}
	if threshold.Cmp(big.NewInt(int64(len(owners)))) > 0 {
		return revert(safe.CodeThresholdTooHigh)
	}
	if threshold.Sign() == 0 {
		return revert(safe.CodeThresholdZero)
	}
	current := sentinel
	for _, owner := range owners {
		if owner == (common.Address{}) || owner == sentinel || owner == env.Self || owner == current {
			return revert(safe.CodeInvalidOwnerAddress)
		}
		if slices.Contains(s.owners, owner) {
			return revert(safe.CodeDuplicateOwner)
		}
		s.owners = append(s.owners, owner)
		current = owner
	}
	s.threshold = threshold.Uint64()
	s.fallbackHandler = fallbackHandler

	if to != (common.Address{}) {
		// setup delegatecalls into to, which needs real bytecode
		return revert(safe.CodeInitFailed)
	}
	if payment.Sign() > 0 {
		receiver := paymentReceiver
		if receiver == (common.Address{}) {
			receiver = env.Sender
		}
		if err := s.pay(env, paymentToken, receiver, payment); err != nil {
			return err
		}
	}
	return env.Emit(contracts.SafeABI, "SafeSetup", env.Sender, slices.Clone(owners), threshold, to, fallbackHandler)
}

func (s *safeModel) pay(env *Env, token, receiver common.Address, amount *big.Int) error {
	if token == (common.Address{}) {
		if err := env.transfer(env.Self, receiver, amount); err != nil {
			return revert(safe.CodeEtherPaymentFailed)
		}
		return nil
	}
	out, err := env.CallMethod(token, contracts.TokenABI, "transfer", receiver, amount)
	if err != nil || len(out) != 1 || out[0] != true {
		return revert(safe.CodeTokenPaymentFailed)
	}
	return nil
}

func (s *safeModel) execTransaction(env *Env, tx core.SafeTransaction, signatures []byte) (bool, error) {
	tx.Nonce = new(big.Int).Set(s.nonce)
	txHashData := s.domain(env).EncodeTransactionData(tx)
	s.nonce.Add(s.nonce, big.NewInt(1))
	txHash := crypto.Keccak256Hash(txHashData)
	if err := s.checkSignatures(env, txHash, signatures); err != nil {
		return false, err
	}
	success := s.execute(env, tx.To, tx.Value, tx.Data, tx.Operation)
	if !success && tx.SafeTxGasOrZero().Sign() == 0 && tx.GasPriceOrZero().Sign() == 0 {
		return false, revert(safe.CodeTxFailed)
	}
	// gas is not metered, so refunds are always zero
	payment := new(big.Int)
	event := "ExecutionSuccess"
	if !success {
		event = "ExecutionFailure"
	}
	if err := env.Emit(contracts.SafeABI, event, txHash, payment); err != nil {
		return false, err
	}
	return success, nil
}

func (s *safeModel) execTransactionFromModule(env *Env, args []interface{}) (bool, error) {
	module := env.Sender
	if !s.isModuleEnabled(module) {
		return false, revert(safe.CodeOnlyModule)
	}
	success := s.execute(env, args[0].(common.Address), args[1].(*big.Int), args[2].([]byte), core.Operation(args[3].(uint8)))
	event := "ExecutionFromModuleSuccess"
	if !success {
		event = "ExecutionFromModuleFailure"
	}
	return success, env.Emit(contracts.SafeABI, event, module)
}

// execute performs the inner call of a Safe transaction. Delegate calls need bytecode
// and always fail here.
func (s *safeModel) execute(env *Env, to common.Address, value *big.Int, data []byte, op core.Operation) bool {
	if op != core.Call {
		return false
	}
	_, err := env.Call(to, value, data)
	return err == nil
}

func (s *safeModel) checkSignatures(env *Env, hash common.Hash, signatures []byte) error {
	return s.verifier(env).CheckSignatures(hash, signatures)
}

func (s *safeModel) approveHash(env *Env, hash common.Hash) error {
	if !s.isOwner(env.Sender) {
		return revert(safe.CodeOnlyOwnersApprove)
	}
	if s.approved[env.Sender] == nil {
		s.approved[env.Sender] = map[common.Hash]bool{}
	}
	s.approved[env.Sender][hash] = true
	return env.Emit(contracts.SafeABI, "ApproveHash", hash, env.Sender)
}

func (s *safeModel) authorized(env *Env) error {
	if env.Sender != env.Self {
		return revert(safe.CodeOnlySelf)
	}
	return nil
}

func (s *safeModel) enableModule(env *Env, module common.Address) error {
	if err := s.authorized(env); err != nil {
		return err
	}
	if module == (common.Address{}) || module == sentinel {
		return revert(safe.CodeInvalidModule)
	}
	if slices.Contains(s.modules, module) {
		return revert(safe.CodeModuleAlreadyAdded)
	}
	s.modules = append([]common.Address{module}, s.modules...)
	return env.Emit(contracts.SafeABI, "EnabledModule", module)
}

func (s *safeModel) disableModule(env *Env, prev, module common.Address) error {
	if err := s.authorized(env); err != nil {
		return err
	}
	if module == (common.Address{}) || module == sentinel {
		return revert(safe.CodeInvalidModule)
	}
	i := slices.Index(s.modules, module)
	linked := i == 0 && prev == sentinel || i > 0 && s.modules[i-1] == prev
	if i < 0 || !linked {
		return revert(safe.CodeInvalidModulePair)
	}
	s.modules = slices.Delete(s.modules, i, i+1)
	return env.Emit(contracts.SafeABI, "DisabledModule", module)
}

func (s *safeModel) modulesPaginated(start common.Address, pageSize *big.Int) ([]common.Address, common.Address) {
	from := 0
	if start != sentinel {
		i := slices.Index(s.modules, start)
		if i < 0 {
			return []common.Address{}, common.Address{}
		}
		from = i + 1
	}
	size := int(pageSize.Int64())
	page := []common.Address{}
	for i := from; i < len(s.modules) && len(page) < size; i++ {
		page = append(page, s.modules[i])
	}
	next := sentinel
	if end := from + len(page); end < len(s.modules) {
		next = s.modules[end]
	}
	return page, next
}

func revert(code string) error {
	return chain.NewRevert(code)
}
