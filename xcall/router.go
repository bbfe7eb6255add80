// Package xcall routes outbound account calls. The EVM interpreter is not
// part of this module; a call target is either a registered native contract
// (precompile-style) or an ordinary balance recipient, in which case the
// call is a plain value transfer.
package xcall

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/tos-network/xaccount/params"
)

// Contract is a native contract mounted at a fixed address. It follows the
// precompiled contract call convention: a Run error aborts the call, and a
// vm.ErrExecutionReverted error may be accompanied by ABI-encoded revert
// data in ret.
type Contract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// Caller abstracts outbound call execution. Account engines depend on this
// interface rather than on Router so tests can substitute call targets.
type Caller interface {
	Call(caller common.Address, to common.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error)
}

// Router implements Caller over a StateDB. Registered native contracts run
// in-process; every other target receives a plain value transfer.
type Router struct {
	mu        sync.RWMutex
	statedb   vm.StateDB
	contracts map[common.Address]Contract
}

// NewRouter returns a Router with no mounted contracts.
func NewRouter(db vm.StateDB) *Router {
	return &Router{
		statedb:   db,
		contracts: make(map[common.Address]Contract),
	}
}

// Register mounts c at addr. Re-registering an address replaces the previous
// contract.
func (r *Router) Register(addr common.Address, c Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[addr] = c
}

// ContractAt returns the native contract at addr, checking the router's own
// registrations first and the process-level mounts second.
func (r *Router) ContractAt(addr common.Address) (Contract, bool) {
	r.mu.RLock()
	c, ok := r.contracts[addr]
	r.mu.RUnlock()
	if ok {
		return c, true
	}
	return mountedAt(addr)
}

// CanTransfer reports whether addr holds at least amount.
func CanTransfer(db vm.StateDB, addr common.Address, amount *big.Int) bool {
	return db.GetBalance(addr).Cmp(amount) >= 0
}

// Transfer moves amount from sender to recipient.
func Transfer(db vm.StateDB, sender, recipient common.Address, amount *big.Int) {
	db.SubBalance(sender, amount)
	db.AddBalance(recipient, amount)
}

// Call executes a call from caller to to. Contract targets are charged their
// RequiredGas and run; plain targets are charged intrinsic data gas plus the
// value transfer surcharge. The caller's balance must cover value in either
// case.
func (r *Router) Call(caller common.Address, to common.Address, input []byte, gas uint64, value *big.Int) ([]byte, uint64, error) {
	if c, ok := r.ContractAt(to); ok {
		return r.runContract(c, caller, to, input, gas, value)
	}

	cost, err := dataGas(input)
	if err != nil {
		return nil, 0, err
	}
	hasValue := value != nil && value.Sign() > 0
	if hasValue {
		cost += params.CallValueTransferGas
	}
	if gas < cost {
		return nil, 0, vm.ErrOutOfGas
	}
	gas -= cost
	if hasValue {
		if !CanTransfer(r.statedb, caller, value) {
			return nil, gas, vm.ErrInsufficientBalance
		}
		Transfer(r.statedb, caller, to, value)
	}
	return nil, gas, nil
}

func (r *Router) runContract(c Contract, caller, to common.Address, input []byte, gas uint64, value *big.Int) ([]byte, uint64, error) {
	required := c.RequiredGas(input)
	if gas < required {
		return nil, 0, vm.ErrOutOfGas
	}
	gas -= required
	if value != nil && value.Sign() > 0 {
		if !CanTransfer(r.statedb, caller, value) {
			return nil, gas, vm.ErrInsufficientBalance
		}
		Transfer(r.statedb, caller, to, value)
	}
	ret, err := c.Run(input)
	return ret, gas, err
}
