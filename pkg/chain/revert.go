package chain

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/arnac-io/safegift/pkg/core"
)

var (
	errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	panicSelector = crypto.Keccak256([]byte("Panic(uint256)"))[:4]

	stringArgs  = abi.Arguments{{Type: mustType("string")}}
	uint256Args = abi.Arguments{{Type: mustType("uint256")}}

	// hardhat and anvil put the reason in the message when no data is attached
	reasonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`reverted with reason string '(.*)'`),
		regexp.MustCompile(`reverted with custom error '(.*)'`),
		regexp.MustCompile(`execution reverted: (.+)$`),
	}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// EncodeRevert builds the Error(string) payload solidity emits for require(cond, reason).
func EncodeRevert(reason string) []byte {
	packed, err := stringArgs.Pack(reason)
	if err != nil {
		panic(err)
	}
	return append(append([]byte{}, errorSelector...), packed...)
}

// NewRevert returns the revert error a contract produces for reason.
func NewRevert(reason string) *core.RevertError {
	if reason == "" {
		return &core.RevertError{}
	}
	return &core.RevertError{Reason: reason, Data: EncodeRevert(reason)}
}

// DecodeRevertData turns a raw revert payload into a RevertError.
func DecodeRevertData(data []byte) *core.RevertError {
	out := &core.RevertError{Data: data}
	if len(data) < 4 {
		return out
	}
	switch {
	case string(data[:4]) == string(errorSelector):
		if reason, err := abi.UnpackRevert(data); err == nil {
			out.Reason = reason
		}
	case string(data[:4]) == string(panicSelector):
		if vals, err := uint256Args.Unpack(data[4:]); err == nil && len(vals) == 1 {
			if code, ok := vals[0].(*big.Int); ok {
				out.Reason = fmt.Sprintf("panic: 0x%x", code)
			}
		}
	}
	return out
}

// DecodeRevert converts node errors that describe a revert into *core.RevertError.
// Other errors are returned unchanged.
func DecodeRevert(err error) error {
	if err == nil {
		return nil
	}
	var revert *core.RevertError
	if errors.As(err, &revert) {
		return err
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := revertData(dataErr.ErrorData()); ok {
			decoded := DecodeRevertData(data)
			if decoded.Reason == "" {
				decoded.Reason = reasonFromMessage(err.Error())
			}
			return decoded
		}
	}
	msg := err.Error()
	if !strings.Contains(msg, "revert") {
		return err
	}
	return &core.RevertError{Reason: reasonFromMessage(msg)}
}

func revertData(v interface{}) ([]byte, bool) {
	switch d := v.(type) {
	case string:
		data, err := hexutil.Decode(d)
		return data, err == nil
	case map[string]interface{}:
		// hardhat nests the payload as {"message": ..., "data": "0x..."}
		if inner, ok := d["data"]; ok {
			return revertData(inner)
		}
	}
	return nil, false
}

func reasonFromMessage(msg string) string {
	for _, re := range reasonPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
	}
	return ""
}
