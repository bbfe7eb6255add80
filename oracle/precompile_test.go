package oracle

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/xaccount/params"
)

func TestContractSignatureRoundTrip(t *testing.T) {
	stub := &stubVerifier{sigVerdict: true}
	c := NewContract(stub)

	owner := bytes.Repeat([]byte{0xab}, 33)
	digest := testDigest("contract sig")
	sig := []byte{0x01, 0x02, 0x03, 0x04}
	input, err := PackVerifySignature(owner, digest, sig)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Equal(out, []byte{0x01}) {
		t.Fatalf("result = %x, want 01", out)
	}
	if !bytes.Equal(stub.lastOwner, owner) || stub.lastHash != digest || !bytes.Equal(stub.lastSig, sig) {
		t.Fatalf("decoded request mismatch: %x %x %x", stub.lastOwner, stub.lastHash, stub.lastSig)
	}

	stub.sigVerdict = false
	out, err = c.Run(input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Equal(out, []byte{0x00}) {
		t.Fatalf("result = %x, want 00", out)
	}
}

func TestContractTxHashRoundTrip(t *testing.T) {
	stub := &stubVerifier{txVerdict: true}
	c := NewContract(stub)

	owner := bytes.Repeat([]byte{0xcd}, 32)
	digest := testDigest("contract tx")
	txHash := []byte{0xaa, 0xbb}
	input, err := PackVerifyNativeTxHash("cosmos", "cosmoshub-4", owner, digest, txHash)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Equal(out, []byte{0x01}) {
		t.Fatalf("result = %x, want 01", out)
	}
	if stub.lastNamespace != "cosmos" || stub.lastChainID != "cosmoshub-4" {
		t.Fatalf("decoded chain tuple = %q %q", stub.lastNamespace, stub.lastChainID)
	}
	if !bytes.Equal(stub.lastOwner, owner) || stub.lastHash != digest || !bytes.Equal(stub.lastTxHash, txHash) {
		t.Fatalf("decoded request mismatch")
	}
}

func TestContractRejectsMalformed(t *testing.T) {
	c := NewContract(&stubVerifier{})

	valid, err := PackVerifySignature([]byte{0x01}, testDigest("x"), []byte{0x02})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	// A hash field of the wrong width decodes but fails the width check.
	badHash := []byte{opVerifySignature}
	badHash = appendField(badHash, []byte{0x01})
	badHash = appendField(badHash, make([]byte, 31))
	badHash = appendField(badHash, nil)

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown op", []byte{0x7f, 0x00, 0x00}},
		{"truncated length", []byte{opVerifySignature, 0x00}},
		{"truncated body", []byte{opVerifySignature, 0x00, 0x05, 0x01}},
		{"trailing bytes", append(append([]byte{}, valid...), 0x00)},
		{"short hash field", badHash},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Run(tc.data); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestContractPropagatesVerifierFailure(t *testing.T) {
	boom := errors.New("backend down")
	c := NewContract(&stubVerifier{sigErr: boom})
	input, err := PackVerifySignature([]byte{0x01}, testDigest("x"), nil)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if _, err := c.Run(input); !errors.Is(err, boom) {
		t.Fatalf("got %v, want verifier error", err)
	}
}

func TestCallVerifierRoundTrip(t *testing.T) {
	stub := &stubVerifier{sigVerdict: true, txVerdict: false}
	contract := NewContract(stub)
	backend := func(addr common.Address, input []byte, gas uint64) ([]byte, error) {
		if addr != params.VerifyOracleAddress {
			t.Fatalf("call routed to %v", addr)
		}
		return contract.Run(input)
	}
	cv := NewCallVerifier(backend, params.VerifyOracleAddress)

	owner := bytes.Repeat([]byte{0xab}, 33)
	digest := testDigest("call verifier")
	if ok, err := cv.VerifySignature(owner, digest, []byte{0x01}); err != nil || !ok {
		t.Fatalf("signature: %v, %v", ok, err)
	}
	if ok, err := cv.VerifyNativeTxHash("cosmos", "cosmoshub-4", owner, digest, []byte{0xaa}); err != nil || ok {
		t.Fatalf("tx hash: %v, %v", ok, err)
	}
}

func TestCallVerifierBackendFailure(t *testing.T) {
	cv := NewCallVerifier(func(common.Address, []byte, uint64) ([]byte, error) {
		return nil, errors.New("connection refused")
	}, params.VerifyOracleAddress)
	_, err := cv.VerifySignature([]byte{0x01}, testDigest("x"), nil)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("got %v, want ErrBackendUnavailable", err)
	}
}

func TestCallVerifierMalformedResult(t *testing.T) {
	for _, ret := range [][]byte{nil, {0x02}, {0x01, 0x00}} {
		cv := NewCallVerifier(func(common.Address, []byte, uint64) ([]byte, error) {
			return ret, nil
		}, params.VerifyOracleAddress)
		_, err := cv.VerifySignature([]byte{0x01}, testDigest("x"), nil)
		if !errors.Is(err, ErrMalformedResult) {
			t.Fatalf("result %x: got %v, want ErrMalformedResult", ret, err)
		}
	}
}

func TestPackValidation(t *testing.T) {
	digest := testDigest("x")
	owner := []byte{0x01}

	if _, err := PackVerifySignature(nil, digest, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty owner: %v", err)
	}
	if _, err := PackVerifySignature(make([]byte, params.MaxOwnerKeyLen+1), digest, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("oversized owner: %v", err)
	}
	if _, err := PackVerifyNativeTxHash("", "1", owner, digest, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty namespace: %v", err)
	}
	if _, err := PackVerifyNativeTxHash("cosmos", "", owner, digest, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty chain id: %v", err)
	}
	long := string(bytes.Repeat([]byte{'n'}, params.MaxChainTagLen+1))
	if _, err := PackVerifyNativeTxHash(long, "1", owner, digest, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("oversized namespace: %v", err)
	}
}

func FuzzContractRunNoPanic(f *testing.F) {
	sigInput, _ := PackVerifySignature(bytes.Repeat([]byte{0xab}, 33), testDigest("fuzz sig"), []byte{0x01, 0x02})
	txInput, _ := PackVerifyNativeTxHash("cosmos", "cosmoshub-4", []byte{0x01}, testDigest("fuzz tx"), []byte{0xaa})
	f.Add(sigInput)
	f.Add(txInput)
	f.Add([]byte{})
	f.Add([]byte{opVerifyNativeTxHash, 0x00})

	c := NewContract(&stubVerifier{sigVerdict: true, txVerdict: true})
	f.Fuzz(func(t *testing.T, data []byte) {
		out, err := c.Run(data)
		if err == nil && len(out) != 1 {
			t.Fatalf("verdict must be one byte, got %x", out)
		}
	})
}
