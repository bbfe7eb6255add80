// Package registry maintains the chain-type catalog and deploys proxy
// accounts at deterministic addresses. Chain types map a chain key to the
// verification class (VM type hash) its accounts use; the factory derives
// addresses from canonical identity bytes and initializes account state.
package registry

import "errors"

var (
	// ErrInvalidChainKey indicates a chain key failing validation.
	ErrInvalidChainKey = errors.New("registry: invalid chain key")

	// ErrInvalidTypeHash rejects a zero VM type hash.
	ErrInvalidTypeHash = errors.New("registry: invalid vm type hash")

	// ErrChainTypeMismatch rejects re-registering a chain key under a
	// different VM type hash.
	ErrChainTypeMismatch = errors.New("registry: chain type hash mismatch")

	// ErrChainTypeUnregistered indicates an unknown chain key.
	ErrChainTypeUnregistered = errors.New("registry: chain type not registered")

	// ErrImplementationNotBound blocks deployment for chain types whose
	// verification class has no bound implementation.
	ErrImplementationNotBound = errors.New("registry: implementation not bound")
)
