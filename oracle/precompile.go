package oracle

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/xaccount/params"
)

// Wire format of the oracle call contract.
//
// Request layout:
//
//	op byte || field || field || ...
//
// where each field is u16(len) || bytes. String fields are UTF-8 bytes.
//
//	opVerifySignature:    ownerKey, msgHash, sig
//	opVerifyNativeTxHash: namespace, chainID, ownerKey, payloadHash, txHash
//
// Response layout: exactly one byte, 0x01 for a positive verdict and 0x00
// for a negative one. Anything else is a malformed result. A contract
// error is a failed call, never a verdict.
const (
	opVerifySignature    = byte(0x01)
	opVerifyNativeTxHash = byte(0x02)
)

var (
	resultValid   = []byte{0x01}
	resultInvalid = []byte{0x00}
)

func appendField(buf, field []byte) []byte {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(field)))
	buf = append(buf, l[:]...)
	return append(buf, field...)
}

func splitField(buf []byte) (field, rest []byte, err error) {
	if len(buf) < 2 {
		return nil, nil, fmt.Errorf("%w: truncated field length", ErrInvalidInput)
	}
	n := int(binary.BigEndian.Uint16(buf))
	buf = buf[2:]
	if len(buf) < n {
		return nil, nil, fmt.Errorf("%w: truncated field body", ErrInvalidInput)
	}
	return buf[:n], buf[n:], nil
}

// PackVerifySignature builds the request input for a signature check.
func PackVerifySignature(ownerKey []byte, msgHash common.Hash, sig []byte) ([]byte, error) {
	if len(ownerKey) == 0 || len(ownerKey) > params.MaxOwnerKeyLen {
		return nil, ErrInvalidInput
	}
	buf := []byte{opVerifySignature}
	buf = appendField(buf, ownerKey)
	buf = appendField(buf, msgHash[:])
	buf = appendField(buf, sig)
	return buf, nil
}

// PackVerifyNativeTxHash builds the request input for a native tx hash check.
func PackVerifyNativeTxHash(namespace, chainID string, ownerKey []byte, payloadHash common.Hash, txHash []byte) ([]byte, error) {
	if namespace == "" || len(namespace) > params.MaxChainTagLen {
		return nil, ErrInvalidInput
	}
	if chainID == "" || len(chainID) > params.MaxChainTagLen {
		return nil, ErrInvalidInput
	}
	if len(ownerKey) == 0 || len(ownerKey) > params.MaxOwnerKeyLen {
		return nil, ErrInvalidInput
	}
	buf := []byte{opVerifyNativeTxHash}
	buf = appendField(buf, []byte(namespace))
	buf = appendField(buf, []byte(chainID))
	buf = appendField(buf, ownerKey)
	buf = appendField(buf, payloadHash[:])
	buf = appendField(buf, txHash)
	return buf, nil
}

func unpackHash(field []byte) (common.Hash, error) {
	if len(field) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: hash field must be %d bytes", ErrInvalidInput, common.HashLength)
	}
	return common.BytesToHash(field), nil
}

// CallBackend executes a raw call against the deployed oracle contract.
type CallBackend func(addr common.Address, input []byte, gas uint64) ([]byte, error)

// CallVerifier implements Verifier over a deployed oracle contract. Call
// failures and undecodable responses surface as errors, never as verdicts.
type CallVerifier struct {
	backend CallBackend
	addr    common.Address
}

// NewCallVerifier returns a Verifier that calls the contract at addr.
func NewCallVerifier(backend CallBackend, addr common.Address) *CallVerifier {
	return &CallVerifier{backend: backend, addr: addr}
}

func (c *CallVerifier) call(input []byte) (bool, error) {
	ret, err := c.backend(c.addr, input, params.PayloadVerifyGas)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(ret) != 1 || ret[0] > 1 {
		return false, fmt.Errorf("%w: %x", ErrMalformedResult, ret)
	}
	return ret[0] == 1, nil
}

// VerifySignature implements Verifier.
func (c *CallVerifier) VerifySignature(ownerKey []byte, msgHash common.Hash, sig []byte) (bool, error) {
	input, err := PackVerifySignature(ownerKey, msgHash, sig)
	if err != nil {
		return false, err
	}
	return c.call(input)
}

// VerifyNativeTxHash implements Verifier.
func (c *CallVerifier) VerifyNativeTxHash(namespace, chainID string, ownerKey []byte, payloadHash common.Hash, txHash []byte) (bool, error) {
	input, err := PackVerifyNativeTxHash(namespace, chainID, ownerKey, payloadHash, txHash)
	if err != nil {
		return false, err
	}
	return c.call(input)
}

// Contract adapts a Verifier to the native contract call convention so it
// can be mounted at params.VerifyOracleAddress. Malformed input and backend
// failures are contract errors; verdicts are single result bytes.
type Contract struct {
	v Verifier
}

// NewContract wraps v as a mountable native contract.
func NewContract(v Verifier) *Contract {
	return &Contract{v: v}
}

// RequiredGas implements the native contract convention.
func (c *Contract) RequiredGas(input []byte) uint64 {
	return params.PayloadVerifyGas
}

// Run decodes the request, dispatches to the wrapped verifier and encodes
// the verdict.
func (c *Contract) Run(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidInput)
	}
	op, body := input[0], input[1:]
	switch op {
	case opVerifySignature:
		return c.runVerifySignature(body)
	case opVerifyNativeTxHash:
		return c.runVerifyNativeTxHash(body)
	default:
		return nil, fmt.Errorf("%w: unknown op %#x", ErrInvalidInput, op)
	}
}

func (c *Contract) runVerifySignature(body []byte) ([]byte, error) {
	ownerKey, rest, err := splitField(body)
	if err != nil {
		return nil, err
	}
	hashField, rest, err := splitField(rest)
	if err != nil {
		return nil, err
	}
	sig, rest, err := splitField(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrInvalidInput)
	}
	msgHash, err := unpackHash(hashField)
	if err != nil {
		return nil, err
	}
	verdict, err := c.v.VerifySignature(ownerKey, msgHash, sig)
	if err != nil {
		return nil, err
	}
	if verdict {
		return resultValid, nil
	}
	return resultInvalid, nil
}

func (c *Contract) runVerifyNativeTxHash(body []byte) ([]byte, error) {
	namespace, rest, err := splitField(body)
	if err != nil {
		return nil, err
	}
	chainID, rest, err := splitField(rest)
	if err != nil {
		return nil, err
	}
	ownerKey, rest, err := splitField(rest)
	if err != nil {
		return nil, err
	}
	hashField, rest, err := splitField(rest)
	if err != nil {
		return nil, err
	}
	txHash, rest, err := splitField(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrInvalidInput)
	}
	payloadHash, err := unpackHash(hashField)
	if err != nil {
		return nil, err
	}
	verdict, err := c.v.VerifyNativeTxHash(string(namespace), string(chainID), ownerKey, payloadHash, txHash)
	if err != nil {
		return nil, err
	}
	if verdict {
		return resultValid, nil
	}
	return resultInvalid, nil
}
