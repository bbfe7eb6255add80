package account

import (
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tos-network/xaccount/oracle"
	"github.com/tos-network/xaccount/xcall"
)

// PayloadExecutedTopic identifies PayloadExecuted logs. The log is emitted
// against the account address with the owner key digest and target address
// as indexed topics.
var PayloadExecutedTopic = crypto.Keccak256Hash([]byte("PayloadExecuted(bytes,address,bytes)"))

// PayloadExecutedEvent is the decoded body of a PayloadExecuted log.
type PayloadExecutedEvent struct {
	Owner []byte
	To    common.Address
	Data  []byte
}

// Engine drives the verification-and-execution state machine of one
// account. It holds no state of its own; everything lives in the StateDB
// under the account address.
type Engine struct {
	db       vm.StateDB
	address  common.Address
	verifier oracle.Verifier
	caller   xcall.Caller
}

// NewEngine returns an engine over the account at address. verifier and
// caller may be nil for read-only use; execution then fails cleanly.
func NewEngine(db vm.StateDB, address common.Address, verifier oracle.Verifier, caller xcall.Caller) *Engine {
	return &Engine{db: db, address: address, verifier: verifier, caller: caller}
}

// Address returns the account address the engine operates on.
func (e *Engine) Address() common.Address { return e.address }

// Initialized reports whether the account carries bound identity state.
func (e *Engine) Initialized() bool { return Exists(e.db, e.address) }

// Initialize binds id to the account. Exactly one call ever succeeds.
func (e *Engine) Initialize(id Identity) error {
	return Initialize(e.db, e.address, id)
}

// Identity returns the identity controlling the account.
func (e *Engine) Identity() (*Identity, error) {
	return ReadIdentity(e.db, e.address)
}

// Nonce returns the account's current payload nonce.
func (e *Engine) Nonce() uint64 { return ReadNonce(e.db, e.address) }

// ImplementationClass returns the VM type hash recorded at deploy time.
func (e *Engine) ImplementationClass() common.Hash {
	return ReadImplementationClass(e.db, e.address)
}

// DomainSeparator returns the digest domain of this account.
func (e *Engine) DomainSeparator() (common.Hash, error) {
	id, err := e.Identity()
	if err != nil {
		return common.Hash{}, err
	}
	return DomainSeparatorFor(id.ChainID, e.address), nil
}

// ComputePayloadHash returns the digest an owner must authorize for p to
// execute at time now. The digest binds the account's current stored
// nonce; p.Nonce never enters it. A payload past its deadline has no
// digest: now strictly greater than Deadline fails, equality is valid.
func (e *Engine) ComputePayloadHash(now uint64, p *Payload) (common.Hash, error) {
	if err := ValidatePayload(p); err != nil {
		return common.Hash{}, err
	}
	if now > p.Deadline {
		return common.Hash{}, ErrExpiredDeadline
	}
	id, err := e.Identity()
	if err != nil {
		return common.Hash{}, err
	}
	return HashPayloadAt(id.ChainID, e.address, p, e.Nonce())
}

// VerifyBySignature asks the oracle whether sig is the owner's signature
// over msgHash. (false, nil) is a clean negative verdict; an error means
// the oracle call failed and no verdict exists.
func (e *Engine) VerifyBySignature(msgHash common.Hash, sig []byte) (bool, error) {
	id, err := e.Identity()
	if err != nil {
		return false, err
	}
	if e.verifier == nil {
		return false, fmt.Errorf("%w: no verifier bound", ErrPrecompileCallFailed)
	}
	ok, err := e.verifier.VerifySignature(id.Owner, msgHash, sig)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPrecompileCallFailed, err)
	}
	return ok, nil
}

// VerifyByTxHash asks the oracle whether txProof references a native-chain
// transaction authorizing payloadHash. An empty proof is rejected before
// any oracle call.
func (e *Engine) VerifyByTxHash(payloadHash common.Hash, txProof []byte) (bool, error) {
	if len(txProof) == 0 {
		return false, ErrInvalidTxHash
	}
	id, err := e.Identity()
	if err != nil {
		return false, err
	}
	if e.verifier == nil {
		return false, fmt.Errorf("%w: no verifier bound", ErrPrecompileCallFailed)
	}
	ok, err := e.verifier.VerifyNativeTxHash(id.ChainNamespace, id.ChainID, id.Owner, payloadHash, txProof)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPrecompileCallFailed, err)
	}
	return ok, nil
}

// ExecutePayload verifies proof for p and, on a positive verdict, performs
// the requested call from the account address. The sub-call runs against a
// snapshot: any failure rolls back every state change it made, leaves the
// nonce untouched, and surfaces the revert reason verbatim when one was
// returned. On success the nonce increments by exactly one and a
// PayloadExecuted log is emitted.
func (e *Engine) ExecutePayload(now uint64, p *Payload, proof []byte) error {
	start := time.Now()
	defer executeTimer.UpdateSince(start)

	payloadHash, err := e.ComputePayloadHash(now, p)
	if err != nil {
		return err
	}

	switch p.VerificationType {
	case SignatureBased:
		ok, err := e.VerifyBySignature(payloadHash, proof)
		if err != nil {
			return err
		}
		if !ok {
			verifyRejectMeter.Mark(1)
			return ErrInvalidSignature
		}
	case TxHashBased:
		ok, err := e.VerifyByTxHash(payloadHash, proof)
		if err != nil {
			return err
		}
		if !ok {
			verifyRejectMeter.Mark(1)
			return ErrInvalidTxHash
		}
	default:
		return fmt.Errorf("%w: unknown verification type %d", ErrInvalidPayload, p.VerificationType)
	}

	nonce := e.Nonce()
	if nonce == math.MaxUint64 {
		return ErrNonceOverflow
	}
	if e.caller == nil {
		return fmt.Errorf("%w: no call router", ErrExecutionFailed)
	}
	id, err := e.Identity()
	if err != nil {
		return err
	}

	snap := e.db.Snapshot()
	ret, _, callErr := e.caller.Call(e.address, p.To, p.Data, p.GasLimit, p.Value)
	if callErr != nil {
		e.db.RevertToSnapshot(snap)
		executeFailMeter.Mark(1)
		if reason, ok := xcall.RevertReason(ret); ok {
			return &RevertError{Reason: reason}
		}
		return fmt.Errorf("%w: %v", ErrExecutionFailed, callErr)
	}

	writeNonce(e.db, e.address, nonce+1)
	e.db.AddLog(payloadExecutedLog(e.address, id.Owner, p.To, p.Data))
	executeSuccessMeter.Mark(1)
	return nil
}

func payloadExecutedLog(account common.Address, owner []byte, to common.Address, data []byte) *types.Log {
	body, _ := rlp.EncodeToBytes(&PayloadExecutedEvent{Owner: owner, To: to, Data: data})
	return &types.Log{
		Address: account,
		Topics: []common.Hash{
			PayloadExecutedTopic,
			crypto.Keccak256Hash(owner),
			common.BytesToHash(to.Bytes()),
		},
		Data: body,
	}
}

// DecodePayloadExecuted parses a PayloadExecuted log body.
func DecodePayloadExecuted(l *types.Log) (*PayloadExecutedEvent, error) {
	if len(l.Topics) == 0 || l.Topics[0] != PayloadExecutedTopic {
		return nil, fmt.Errorf("not a PayloadExecuted log")
	}
	var ev PayloadExecutedEvent
	if err := rlp.DecodeBytes(l.Data, &ev); err != nil {
		return nil, fmt.Errorf("corrupt PayloadExecuted log: %v", err)
	}
	return &ev, nil
}
