package account

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/tos-network/xaccount/params"
)

// Typed-data definitions bound into every payload digest. Changing either
// string is a protocol break: existing proofs stop verifying.
const (
	domainTypeDef  = "XADomain(string version,string chainId,address account)"
	payloadTypeDef = "XAPayload(address to,uint256 value,bytes32 dataHash,uint64 gasLimit,uint256 maxFeePerGas,uint256 maxPriorityFeePerGas,uint64 nonce,uint64 deadline,uint8 verificationType)"
)

var (
	// DomainTypeHash labels the domain separator structure.
	DomainTypeHash = crypto.Keccak256Hash([]byte(domainTypeDef))

	// PayloadTypeHash labels the payload structure.
	PayloadTypeHash = crypto.Keccak256Hash([]byte(payloadTypeDef))

	versionHash = crypto.Keccak256Hash([]byte(params.ProtocolVersion))
)

// DomainSeparatorFor binds the protocol version, the owner's chain id and
// the account address into one digest. Two accounts never share a
// separator, and neither do deployments of the same identity on different
// chains.
func DomainSeparatorFor(chainID string, addr common.Address) common.Hash {
	return crypto.Keccak256Hash(
		DomainTypeHash[:],
		versionHash[:],
		crypto.Keccak256([]byte(chainID)),
		addressWord(addr),
	)
}

func addressWord(addr common.Address) []byte {
	var word [common.HashLength]byte
	copy(word[common.HashLength-common.AddressLength:], addr[:])
	return word[:]
}

func uintWord(n uint64) []byte {
	var word [common.HashLength]byte
	binary.BigEndian.PutUint64(word[24:], n)
	return word[:]
}

func bigWord(x *big.Int) []byte {
	var u uint256.Int
	if x != nil {
		u.SetFromBig(x)
	}
	word := u.Bytes32()
	return word[:]
}

func wordInRange(x *big.Int) bool {
	if x == nil {
		return true
	}
	if x.Sign() < 0 {
		return false
	}
	var u uint256.Int
	return !u.SetFromBig(x)
}

// ValidatePayload checks payload field bounds. The deadline is a liveness
// property, not a shape property, and is checked separately.
func ValidatePayload(p *Payload) error {
	if p == nil {
		return ErrInvalidPayload
	}
	if !wordInRange(p.Value) {
		return fmt.Errorf("%w: value out of range", ErrInvalidPayload)
	}
	if !wordInRange(p.MaxFeePerGas) {
		return fmt.Errorf("%w: max fee out of range", ErrInvalidPayload)
	}
	if !wordInRange(p.MaxPriorityFeePerGas) {
		return fmt.Errorf("%w: max priority fee out of range", ErrInvalidPayload)
	}
	if p.VerificationType > TxHashBased {
		return fmt.Errorf("%w: unknown verification type %d", ErrInvalidPayload, p.VerificationType)
	}
	return nil
}

// structHash folds every payload field into one digest. Data enters as its
// keccak hash, and the nonce word is the account's current stored nonce,
// not the payload's informational Nonce field.
func structHash(p *Payload, accountNonce uint64) common.Hash {
	return crypto.Keccak256Hash(
		PayloadTypeHash[:],
		addressWord(p.To),
		bigWord(p.Value),
		crypto.Keccak256(p.Data),
		uintWord(p.GasLimit),
		bigWord(p.MaxFeePerGas),
		bigWord(p.MaxPriorityFeePerGas),
		uintWord(accountNonce),
		uintWord(p.Deadline),
		uintWord(uint64(p.VerificationType)),
	)
}

// hashPayload produces the digest owners sign: a 0x19 0x01 envelope over
// the domain separator and the payload struct hash.
func hashPayload(domain common.Hash, p *Payload, accountNonce uint64) common.Hash {
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain[:], structHash(p, accountNonce).Bytes())
}

// HashPayloadAt is the stateless form of Engine.ComputePayloadHash for
// offline signers: the caller supplies the identity chain id and the
// account nonce instead of reading them from state. The deadline is a
// liveness check and is not applied here.
func HashPayloadAt(chainID string, addr common.Address, p *Payload, accountNonce uint64) (common.Hash, error) {
	if err := ValidatePayload(p); err != nil {
		return common.Hash{}, err
	}
	return hashPayload(DomainSeparatorFor(chainID, addr), p, accountNonce), nil
}
