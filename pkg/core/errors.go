package core

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrEntityNotFound = errors.New("entity not found")
var ErrReverted = errors.New("execution reverted")
var ErrUnknownAccount = errors.New("no key for account")

// RevertError is returned when a contract call or transaction reverts.
// Reason is the decoded revert string, Data the raw revert payload if the node returned one.
type RevertError struct {
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		if len(e.Data) > 0 {
			return fmt.Sprintf("execution reverted: %s", hexutil.Encode(e.Data))
		}
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

func (e *RevertError) Is(target error) bool {
	return target == ErrReverted
}

// IsRevert reports whether err is a revert carrying the given reason.
func IsRevert(err error, reason string) bool {
	var revert *RevertError
	if !errors.As(err, &revert) {
		return false
	}
	return revert.Reason == reason
}

// RevertReason extracts the revert reason from err, if any.
func RevertReason(err error) (string, bool) {
	var revert *RevertError
	if !errors.As(err, &revert) {
		return "", false
	}
	return revert.Reason, true
}

// IsBareRevert reports whether err is a revert without reason or payload,
// which is what calling a selector the contract does not implement produces.
func IsBareRevert(err error) bool {
	var revert *RevertError
	if !errors.As(err, &revert) {
		return false
	}
	return revert.Reason == "" && len(revert.Data) == 0
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
