package xcall

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Process-level contract mounts. Every Router consults these after its own
// registrations, so contracts living at fixed protocol addresses are
// reachable without per-router wiring.
var (
	mountMu sync.RWMutex
	mounts  = make(map[common.Address]Contract)
)

// Mount binds c at addr for all routers in the process. Remounting an
// address replaces the previous contract.
func Mount(addr common.Address, c Contract) {
	mountMu.Lock()
	defer mountMu.Unlock()
	mounts[addr] = c
}

func mountedAt(addr common.Address) (Contract, bool) {
	mountMu.RLock()
	defer mountMu.RUnlock()
	c, ok := mounts[addr]
	return c, ok
}
