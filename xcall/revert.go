package xcall

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	revertSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	stringType, _  = abi.NewType("string", "", nil)
	revertArgs     = abi.Arguments{{Type: stringType}}
)

// EncodeRevertReason ABI-encodes reason the way Solidity's revert(string)
// does: the Error(string) selector followed by the packed string. Native
// contracts return this alongside vm.ErrExecutionReverted to surface a
// reason to the caller.
func EncodeRevertReason(reason string) []byte {
	packed, err := revertArgs.Pack(reason)
	if err != nil {
		// A bare string argument cannot fail to pack.
		panic(err)
	}
	return append(append([]byte{}, revertSelector...), packed...)
}

// RevertReason decodes an ABI-encoded Error(string) payload. ok is false
// when ret does not carry a decodable reason.
func RevertReason(ret []byte) (reason string, ok bool) {
	reason, err := abi.UnpackRevert(ret)
	if err != nil {
		return "", false
	}
	return reason, true
}
