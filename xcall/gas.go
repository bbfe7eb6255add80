package xcall

import (
	"math"

	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/xaccount/params"
)

// dataGas returns the intrinsic gas for call data on the plain transfer path.
func dataGas(input []byte) (uint64, error) {
	if len(input) == 0 {
		return 0, nil
	}
	var nonZero uint64
	for _, b := range input {
		if b != 0 {
			nonZero++
		}
	}
	if math.MaxUint64/params.PayloadDataNonZeroGas < nonZero {
		return 0, vm.ErrGasUintOverflow
	}
	gas := nonZero * params.PayloadDataNonZeroGas
	zero := uint64(len(input)) - nonZero
	if (math.MaxUint64-gas)/params.PayloadDataZeroGas < zero {
		return 0, vm.ErrGasUintOverflow
	}
	gas += zero * params.PayloadDataZeroGas
	return gas, nil
}
