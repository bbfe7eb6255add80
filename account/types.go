// Package account implements the verification-and-execution engine behind
// every cross-chain proxy account. An account is controlled by a foreign
// chain identity rather than a local private key: payloads execute only
// after the verification oracle confirms either an owner signature over the
// payload hash or a native-chain transaction attesting to it.
package account

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// VerificationType selects how a payload proof is checked.
type VerificationType uint8

const (
	// SignatureBased proofs are raw owner-key signatures over the payload hash.
	SignatureBased VerificationType = iota
	// TxHashBased proofs reference a transaction on the owner's native chain.
	TxHashBased
)

// Identity is the foreign-chain controller of a proxy account. Owner holds
// the native-chain public key or address bytes, opaque to this module.
type Identity struct {
	ChainNamespace string
	ChainID        string
	Owner          []byte
}

// Payload is a single action an owner asks their account to perform.
//
// Nonce carries the account nonce the submitter observed and is
// informational: the payload hash always binds the account's current
// stored nonce, so a stale Nonce field surfaces as a verification
// failure rather than a silent replay.
type Payload struct {
	To                   common.Address
	Value                *big.Int
	Data                 []byte
	GasLimit             uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Nonce                uint64
	Deadline             uint64 // unix seconds; payload valid through this instant
	VerificationType     VerificationType
}

var (
	// ErrAccountAlreadyExists rejects re-initialization of an account.
	ErrAccountAlreadyExists = errors.New("account: already initialized")

	// ErrAccountNotInitialized rejects engine operations against an
	// address without account state.
	ErrAccountNotInitialized = errors.New("account: not initialized")

	// ErrInvalidIdentity indicates identity fields failing validation.
	ErrInvalidIdentity = errors.New("account: invalid identity")

	// ErrInvalidPayload indicates payload fields failing validation.
	ErrInvalidPayload = errors.New("account: invalid payload")

	// ErrExpiredDeadline indicates a payload past its deadline.
	ErrExpiredDeadline = errors.New("account: payload deadline expired")

	// ErrInvalidSignature is the negative signature verdict.
	ErrInvalidSignature = errors.New("account: invalid signature")

	// ErrInvalidTxHash is the negative native tx hash verdict.
	ErrInvalidTxHash = errors.New("account: invalid native tx proof")

	// ErrPrecompileCallFailed indicates the oracle call itself failed.
	// It carries no verdict on the proof.
	ErrPrecompileCallFailed = errors.New("account: verification call failed")

	// ErrExecutionFailed indicates a failed sub-call without a revert reason.
	ErrExecutionFailed = errors.New("account: execution failed")

	// ErrNonceOverflow rejects execution that would wrap the account nonce.
	ErrNonceOverflow = errors.New("account: nonce overflow")
)

// RevertError surfaces a sub-call revert reason verbatim.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string { return e.Reason }

// Unwrap lets errors.Is match RevertError as an execution failure.
func (e *RevertError) Unwrap() error { return ErrExecutionFailed }
