package safe

import (
	"github.com/arnac-io/safegift/pkg/core"
)

// Revert codes used by Safe v1.3.0 contracts.
const (
	CodeInitFailed            = "GS000"
	CodeThresholdNotDefined   = "GS001"
	CodeNotEnoughGas          = "GS010"
	CodeEtherPaymentFailed    = "GS011"
	CodeTokenPaymentFailed    = "GS012"
	CodeTxFailed              = "GS013"
	CodeSignaturesTooShort    = "GS020"
	CodeContractSigInside     = "GS021"
	CodeContractSigOutOfRange = "GS022"
	CodeContractSigDataOut    = "GS023"
	CodeInvalidContractSig    = "GS024"
	CodeHashNotApproved       = "GS025"
	CodeInvalidOwner          = "GS026"
	CodeOnlyOwnersApprove     = "GS030"
	CodeOnlySelf              = "GS031"
	CodeModulesInitialized    = "GS100"
	CodeInvalidModule         = "GS101"
	CodeModuleAlreadyAdded    = "GS102"
	CodeInvalidModulePair     = "GS103"
	CodeOnlyModule            = "GS104"
	CodeOwnersInitialized     = "GS200"
	CodeThresholdTooHigh      = "GS201"
	CodeThresholdZero         = "GS202"
	CodeInvalidOwnerAddress   = "GS203"
	CodeDuplicateOwner        = "GS204"
	CodeInvalidOwnerPair      = "GS205"
	CodeGuardNotERC165        = "GS300"
)

var codeDescriptions = map[string]string{
	CodeInitFailed:            "Could not finish initialization",
	CodeThresholdNotDefined:   "Threshold needs to be defined",
	CodeNotEnoughGas:          "Not enough gas to execute Safe transaction",
	CodeEtherPaymentFailed:    "Could not pay gas costs with ether",
	CodeTokenPaymentFailed:    "Could not pay gas costs with token",
	CodeTxFailed:              "Safe transaction failed when gasPrice and safeTxGas were 0",
	CodeSignaturesTooShort:    "Signatures data too short",
	CodeContractSigInside:     "Invalid contract signature location: inside static part",
	CodeContractSigOutOfRange: "Invalid contract signature location: length not present",
	CodeContractSigDataOut:    "Invalid contract signature location: data not complete",
	CodeInvalidContractSig:    "Invalid contract signature provided",
	CodeHashNotApproved:       "Hash has not been approved",
	CodeInvalidOwner:          "Invalid owner provided",
	CodeOnlyOwnersApprove:     "Only owners can approve a hash",
	CodeOnlySelf:              "Method can only be called from this contract",
	CodeModulesInitialized:    "Modules have already been initialized",
	CodeInvalidModule:         "Invalid module address provided",
	CodeModuleAlreadyAdded:    "Module has already been added",
	CodeInvalidModulePair:     "Invalid prevModule, module pair provided",
	CodeOnlyModule:            "Method can only be called from an enabled module",
	CodeOwnersInitialized:     "Owners have already been setup",
	CodeThresholdTooHigh:      "Threshold cannot exceed owner count",
	CodeThresholdZero:         "Threshold needs to be greater than 0",
	CodeInvalidOwnerAddress:   "Invalid owner address provided",
	CodeDuplicateOwner:        "Address is already an owner",
	CodeInvalidOwnerPair:      "Invalid prevOwner, owner pair provided",
	CodeGuardNotERC165:        "Guard does not implement IERC165",
}

// DescribeCode returns the human readable meaning of a Safe revert code.
func DescribeCode(code string) (string, bool) {
	d, ok := codeDescriptions[code]
	return d, ok
}

func revert(code string) *core.RevertError {
	return &core.RevertError{Reason: code}
}
