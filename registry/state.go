package registry

import (
	"encoding/binary"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tos-network/xaccount/oracle"
	"github.com/tos-network/xaccount/params"
)

const chainKeyChunkSize = 32

// chainSlot hashes (keccak(chainKey) || 0x00 || field) for a per-chain-type
// storage slot. Chain keys are variable length, so they enter pre-hashed to
// keep slot derivation unambiguous.
func chainSlot(chainKey, field string) common.Hash {
	keyHash := crypto.Keccak256([]byte(chainKey))
	buf := make([]byte, 0, len(keyHash)+1+len(field))
	buf = append(buf, keyHash...)
	buf = append(buf, 0x00)
	buf = append(buf, field...)
	return common.BytesToHash(crypto.Keccak256(buf))
}

// chainCountSlot stores the total count of registered chain keys (uint64).
var chainCountSlot = common.BytesToHash(
	crypto.Keccak256([]byte("xa.registry\x00chainCount")))

// chainListSlot returns the base slot for the i-th registered chain key
// (0-based). The list is append-only; the key string is chunked from the
// base slot, its length at the base slot itself.
func chainListSlot(i uint64) common.Hash {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], i)
	return common.BytesToHash(
		crypto.Keccak256(append([]byte("xa.registry\x00chainList\x00"), idx[:]...)))
}

func chainListChunkSlot(base common.Hash, index uint64) common.Hash {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	buf := make([]byte, 0, len(base)+1+len("chunk")+8)
	buf = append(buf, base[:]...)
	buf = append(buf, 0x00)
	buf = append(buf, []byte("chunk")...)
	buf = append(buf, idx[:]...)
	return common.BytesToHash(crypto.Keccak256(buf))
}

func readRegistryBool(db vm.StateDB, slot common.Hash) bool {
	return db.GetState(params.AccountRegistryAddress, slot)[31] != 0
}

func writeRegistryBool(db vm.StateDB, slot common.Hash, v bool) {
	var word common.Hash
	if v {
		word[31] = 1
	}
	db.SetState(params.AccountRegistryAddress, slot, word)
}

func readRegistryUint64(db vm.StateDB, slot common.Hash) uint64 {
	raw := db.GetState(params.AccountRegistryAddress, slot)
	return binary.BigEndian.Uint64(raw[24:])
}

func writeRegistryUint64(db vm.StateDB, slot common.Hash, n uint64) {
	var word common.Hash
	binary.BigEndian.PutUint64(word[24:], n)
	db.SetState(params.AccountRegistryAddress, slot, word)
}

func readChainKeyAt(db vm.StateDB, i uint64) string {
	base := chainListSlot(i)
	n := readRegistryUint64(db, base)
	if n == 0 {
		return ""
	}
	out := make([]byte, n)
	chunks := (n + chainKeyChunkSize - 1) / chainKeyChunkSize
	for c := uint64(0); c < chunks; c++ {
		word := db.GetState(params.AccountRegistryAddress, chainListChunkSlot(base, c))
		start := c * chainKeyChunkSize
		end := start + chainKeyChunkSize
		if end > n {
			end = n
		}
		copy(out[start:end], word[:end-start])
	}
	return string(out)
}

func appendChainKey(db vm.StateDB, chainKey string) {
	n := readRegistryUint64(db, chainCountSlot)
	base := chainListSlot(n)
	key := []byte(chainKey)
	writeRegistryUint64(db, base, uint64(len(key)))
	chunks := (uint64(len(key)) + chainKeyChunkSize - 1) / chainKeyChunkSize
	for c := uint64(0); c < chunks; c++ {
		start := c * chainKeyChunkSize
		end := start + chainKeyChunkSize
		if end > uint64(len(key)) {
			end = uint64(len(key))
		}
		var word common.Hash
		copy(word[:], key[start:end])
		db.SetState(params.AccountRegistryAddress, chainListChunkSlot(base, c), word)
	}
	writeRegistryUint64(db, chainCountSlot, n+1)
}

func validateChainKey(chainKey string) error {
	if strings.TrimSpace(chainKey) == "" || len(chainKey) > params.MaxChainTagLen {
		return ErrInvalidChainKey
	}
	return nil
}

// RegisterChainType binds chainKey to typeHash. Registering an existing key
// with the identical hash is a no-op; a different hash fails without
// touching state.
func RegisterChainType(db vm.StateDB, chainKey string, typeHash common.Hash) error {
	if err := validateChainKey(chainKey); err != nil {
		return err
	}
	if typeHash == (common.Hash{}) {
		return ErrInvalidTypeHash
	}
	if readRegistryBool(db, chainSlot(chainKey, "registered")) {
		cur := db.GetState(params.AccountRegistryAddress, chainSlot(chainKey, "typeHash"))
		if cur != typeHash {
			return ErrChainTypeMismatch
		}
		return nil
	}
	db.SetState(params.AccountRegistryAddress, chainSlot(chainKey, "typeHash"), typeHash)
	writeRegistryBool(db, chainSlot(chainKey, "registered"), true)
	appendChainKey(db, chainKey)
	return nil
}

// LookupChainType returns the VM type hash registered for chainKey.
func LookupChainType(db vm.StateDB, chainKey string) (common.Hash, bool) {
	if !readRegistryBool(db, chainSlot(chainKey, "registered")) {
		return common.Hash{}, false
	}
	return db.GetState(params.AccountRegistryAddress, chainSlot(chainKey, "typeHash")), true
}

// RegisterImplementation binds impl as the verifier behind chainKey's
// verification class. The chain type must already be registered and
// typeHash must match its registered hash.
func RegisterImplementation(db vm.StateDB, chainKey string, typeHash common.Hash, impl oracle.Verifier) error {
	registered, ok := LookupChainType(db, chainKey)
	if !ok {
		return ErrChainTypeUnregistered
	}
	if registered != typeHash {
		return ErrChainTypeMismatch
	}
	if err := oracle.RegisterImplementation(typeHash, impl); err != nil {
		return err
	}
	writeRegistryBool(db, chainSlot(chainKey, "bound"), true)
	return nil
}

// ImplementationBound reports whether chainKey's verification class has a
// bound implementation.
func ImplementationBound(db vm.StateDB, chainKey string) bool {
	return readRegistryBool(db, chainSlot(chainKey, "bound"))
}

// ChainKeys returns every registered chain key in registration order.
func ChainKeys(db vm.StateDB) []string {
	n := readRegistryUint64(db, chainCountSlot)
	keys := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		keys = append(keys, readChainKeyAt(db, i))
	}
	return keys
}
