package account

import (
	"math"

	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/xaccount/params"
)

// EstimatePayloadGas returns the deterministic intrinsic gas for executing
// p: the engine base cost, the verification surcharge, per-byte data gas
// and the value transfer surcharge. Sub-call execution gas comes on top
// and is bounded by p.GasLimit.
func EstimatePayloadGas(p *Payload) (uint64, error) {
	if err := ValidatePayload(p); err != nil {
		return 0, err
	}
	gas := uint64(params.PayloadBaseGas + params.PayloadVerifyGas)

	if len(p.Data) > 0 {
		var nonZero uint64
		for _, b := range p.Data {
			if b != 0 {
				nonZero++
			}
		}
		if (math.MaxUint64-gas)/params.PayloadDataNonZeroGas < nonZero {
			return 0, vm.ErrGasUintOverflow
		}
		gas += nonZero * params.PayloadDataNonZeroGas
		zero := uint64(len(p.Data)) - nonZero
		if (math.MaxUint64-gas)/params.PayloadDataZeroGas < zero {
			return 0, vm.ErrGasUintOverflow
		}
		gas += zero * params.PayloadDataZeroGas
	}

	if p.Value != nil && p.Value.Sign() > 0 {
		if gas > math.MaxUint64-params.CallValueTransferGas {
			return 0, vm.ErrGasUintOverflow
		}
		gas += params.CallValueTransferGas
	}
	return gas, nil
}
