// Package oracle defines the external verification capability consumed by
// account engines: checking a raw signature against an owner key, and
// checking that a claimed native-chain transaction corresponds to a payload
// hash. Implementations are untrusted collaborators; a failed call is
// always distinguished from a negative verdict.
package oracle

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrBackendUnavailable indicates the verification call itself failed.
	// It is never a verdict on the proof.
	ErrBackendUnavailable = errors.New("oracle: backend unavailable")

	// ErrInvalidInput indicates a malformed verification request.
	ErrInvalidInput = errors.New("oracle: invalid input")

	// ErrMalformedResult indicates an undecodable verification response.
	ErrMalformedResult = errors.New("oracle: malformed result")

	// ErrNilImplementation rejects binding a nil verifier.
	ErrNilImplementation = errors.New("oracle: nil implementation")

	// ErrImplementationExists rejects rebinding a VM type hash to a
	// different verifier implementation.
	ErrImplementationExists = errors.New("oracle: implementation already bound")

	// ErrAttestationNotFound is returned by Store lookups for unknown
	// native transactions.
	ErrAttestationNotFound = errors.New("oracle: attestation not found")
)

// Verifier is the oracle call contract. Both operations return a verdict
// and an error; (false, nil) is a clean negative verdict, while a non-nil
// error means the call failed and carries no verdict at all.
type Verifier interface {
	VerifySignature(ownerKey []byte, msgHash common.Hash, sig []byte) (bool, error)
	VerifyNativeTxHash(namespace, chainID string, ownerKey []byte, payloadHash common.Hash, txHash []byte) (bool, error)
}

// implRegistry maps VM type hashes to their bound verifier implementations.
// Implementations are Go objects, so the binding is process-level; the
// chain-type registry persists only the hash and the bound flag.
type implRegistry struct {
	mu    sync.RWMutex
	impls map[common.Hash]Verifier
}

var implementations = &implRegistry{impls: make(map[common.Hash]Verifier)}

// RegisterImplementation binds v as the implementation for typeHash.
// Rebinding the identical implementation is a no-op; binding a different
// one fails with ErrImplementationExists.
func RegisterImplementation(typeHash common.Hash, v Verifier) error {
	if v == nil {
		return ErrNilImplementation
	}
	implementations.mu.Lock()
	defer implementations.mu.Unlock()
	if cur, ok := implementations.impls[typeHash]; ok {
		if cur == v {
			return nil
		}
		return ErrImplementationExists
	}
	implementations.impls[typeHash] = v
	return nil
}

// ImplementationFor returns the verifier bound to typeHash.
func ImplementationFor(typeHash common.Hash) (Verifier, bool) {
	implementations.mu.RLock()
	defer implementations.mu.RUnlock()
	v, ok := implementations.impls[typeHash]
	return v, ok
}

// VMTypeHash returns the canonical verification class hash for a signature
// scheme tag. Chain types backed by LocalVerifier schemes register under
// these hashes.
func VMTypeHash(scheme string) common.Hash {
	return crypto.Keccak256Hash([]byte("xa.vmtype." + scheme))
}
