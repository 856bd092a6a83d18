package contracts

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/arnac-io/safegift/pkg/artifacts"
)

const (
	SafeName       = "GnosisSafe"
	FactoryName    = "GnosisSafeProxyFactory"
	GiftModuleName = "SafeGiftModule"
	TokenName      = "TestToken"
)

//go:embed abi/*.json
var abiFiles embed.FS

var (
	SafeABI       = mustABI(SafeName)
	FactoryABI    = mustABI(FactoryName)
	GiftModuleABI = mustABI(GiftModuleName)
	TokenABI      = mustABI(TokenName)
)

func mustABI(name string) abi.ABI {
	data, err := abiFiles.ReadFile(fmt.Sprintf("abi/%s.json", name))
	if err != nil {
		panic(err)
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("abi %s: %v", name, err))
	}
	return parsed
}

// Builtin returns bytecode-less artifacts for the harness contracts.
// They are enough for the model chain, a real node needs compiled artifacts.
func Builtin() artifacts.Static {
	return artifacts.Static{
		SafeName:       {Format: "builtin", ContractName: SafeName, ABI: SafeABI},
		FactoryName:    {Format: "builtin", ContractName: FactoryName, ABI: FactoryABI},
		GiftModuleName: {Format: "builtin", ContractName: GiftModuleName, ABI: GiftModuleABI},
		TokenName:      {Format: "builtin", ContractName: TokenName, ABI: TokenABI},
	}
}
