package account

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
)

const identityChunkSize = 32

// Account state lives in the account's own storage under labeled slots.
var (
	acctExistsSlot      = crypto.Keccak256Hash([]byte("xa.account.exists"))
	acctNonceSlot       = crypto.Keccak256Hash([]byte("xa.account.nonce"))
	acctIdentityLenSlot = crypto.Keccak256Hash([]byte("xa.account.identityLen"))
	acctIdentityBase    = crypto.Keccak256Hash([]byte("xa.account.identity"))
	acctImplClassSlot   = crypto.Keccak256Hash([]byte("xa.account.implClass"))
)

func identityChunkSlot(base common.Hash, index uint64) common.Hash {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	buf := make([]byte, 0, len(base)+1+len("chunk")+8)
	buf = append(buf, base[:]...)
	buf = append(buf, 0x00)
	buf = append(buf, []byte("chunk")...)
	buf = append(buf, idx[:]...)
	return common.BytesToHash(crypto.Keccak256(buf))
}

func readBool(db vm.StateDB, addr common.Address, slot common.Hash) bool {
	return db.GetState(addr, slot)[31] != 0
}

func writeBool(db vm.StateDB, addr common.Address, slot common.Hash, v bool) {
	var word common.Hash
	if v {
		word[31] = 1
	}
	db.SetState(addr, slot, word)
}

func readUint64(db vm.StateDB, addr common.Address, slot common.Hash) uint64 {
	raw := db.GetState(addr, slot)
	return binary.BigEndian.Uint64(raw[24:])
}

func writeUint64(db vm.StateDB, addr common.Address, slot common.Hash, n uint64) {
	var word common.Hash
	binary.BigEndian.PutUint64(word[24:], n)
	db.SetState(addr, slot, word)
}

func chunkCount(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return (n + identityChunkSize - 1) / identityChunkSize
}

func readChunkedBytes(db vm.StateDB, addr common.Address, base common.Hash, n uint64) []byte {
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	chunks := chunkCount(n)
	for i := uint64(0); i < chunks; i++ {
		word := db.GetState(addr, identityChunkSlot(base, i))
		start := i * identityChunkSize
		end := start + identityChunkSize
		if end > n {
			end = n
		}
		copy(out[start:end], word[:end-start])
	}
	return out
}

func writeChunkedBytes(db vm.StateDB, addr common.Address, base common.Hash, value []byte) {
	chunks := chunkCount(uint64(len(value)))
	for i := uint64(0); i < chunks; i++ {
		start := i * identityChunkSize
		end := start + identityChunkSize
		if end > uint64(len(value)) {
			end = uint64(len(value))
		}
		var word common.Hash
		copy(word[:], value[start:end])
		db.SetState(addr, identityChunkSlot(base, i), word)
	}
}

// Exists reports whether addr carries initialized account state.
func Exists(db vm.StateDB, addr common.Address) bool {
	return readBool(db, addr, acctExistsSlot)
}

// ReadNonce returns the account's stored payload nonce.
func ReadNonce(db vm.StateDB, addr common.Address) uint64 {
	return readUint64(db, addr, acctNonceSlot)
}

func writeNonce(db vm.StateDB, addr common.Address, n uint64) {
	writeUint64(db, addr, acctNonceSlot, n)
}

// ReadImplementationClass returns the VM type hash recorded at deploy time.
func ReadImplementationClass(db vm.StateDB, addr common.Address) common.Hash {
	return db.GetState(addr, acctImplClassSlot)
}

// WriteImplementationClass records the VM type hash for addr. The registry
// factory writes it once during deployment.
func WriteImplementationClass(db vm.StateDB, addr common.Address, typeHash common.Hash) {
	db.SetState(addr, acctImplClassSlot, typeHash)
}

func readIdentityBytes(db vm.StateDB, addr common.Address) []byte {
	n := readUint64(db, addr, acctIdentityLenSlot)
	return readChunkedBytes(db, addr, acctIdentityBase, n)
}

// ReadIdentity decodes the controlling identity stored at addr.
func ReadIdentity(db vm.StateDB, addr common.Address) (*Identity, error) {
	if !Exists(db, addr) {
		return nil, ErrAccountNotInitialized
	}
	return DecodeIdentity(readIdentityBytes(db, addr))
}

// Initialize binds id to addr and sets the nonce to zero. The binding is
// permanent: a second call fails without touching state, whatever identity
// it carries.
func Initialize(db vm.StateDB, addr common.Address, id Identity) error {
	if Exists(db, addr) {
		return ErrAccountAlreadyExists
	}
	canonical, err := EncodeIdentity(id)
	if err != nil {
		return err
	}
	writeChunkedBytes(db, addr, acctIdentityBase, canonical)
	writeUint64(db, addr, acctIdentityLenSlot, uint64(len(canonical)))
	writeNonce(db, addr, 0)
	writeBool(db, addr, acctExistsSlot, true)
	return nil
}
