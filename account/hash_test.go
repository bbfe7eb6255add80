package account

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func basePayload() *Payload {
	return &Payload{
		To:                   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Value:                big.NewInt(42),
		Data:                 []byte{0xde, 0xad, 0xbe, 0xef},
		GasLimit:             90_000,
		MaxFeePerGas:         big.NewInt(2_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(100_000_000),
		Nonce:                0,
		Deadline:             2_000,
		VerificationType:     SignatureBased,
	}
}

func newInitializedEngine(t *testing.T) *Engine {
	t.Helper()
	st := newTestState(t)
	addr := common.HexToAddress("0x00000000000000000000000000000000cafe0001")
	if err := Initialize(st, addr, testIdentity()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return NewEngine(st, addr, nil, nil)
}

func TestComputePayloadHashDeterministic(t *testing.T) {
	eng := newInitializedEngine(t)
	h1, err := eng.ComputePayloadHash(1_000, basePayload())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := eng.ComputePayloadHash(1_500, basePayload())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s != %s", h1, h2)
	}
	if h1 == (common.Hash{}) {
		t.Fatalf("zero digest")
	}
}

func TestPayloadHashFieldSensitivity(t *testing.T) {
	eng := newInitializedEngine(t)
	base, err := eng.ComputePayloadHash(1_000, basePayload())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(p *Payload)
	}{
		{"to", func(p *Payload) { p.To = common.HexToAddress("0x2222222222222222222222222222222222222222") }},
		{"value", func(p *Payload) { p.Value = big.NewInt(43) }},
		{"data", func(p *Payload) { p.Data = []byte{0xde, 0xad, 0xbe, 0xee} }},
		{"gas limit", func(p *Payload) { p.GasLimit = 90_001 }},
		{"max fee", func(p *Payload) { p.MaxFeePerGas = big.NewInt(2_000_000_001) }},
		{"max priority fee", func(p *Payload) { p.MaxPriorityFeePerGas = big.NewInt(100_000_001) }},
		{"deadline", func(p *Payload) { p.Deadline = 2_001 }},
		{"verification type", func(p *Payload) { p.VerificationType = TxHashBased }},
	}
	for _, tc := range cases {
		p := basePayload()
		tc.mutate(p)
		h, err := eng.ComputePayloadHash(1_000, p)
		if err != nil {
			t.Fatalf("%s: hash: %v", tc.name, err)
		}
		if h == base {
			t.Errorf("%s: digest unchanged after field mutation", tc.name)
		}
	}
}

func TestPayloadHashIgnoresPayloadNonce(t *testing.T) {
	eng := newInitializedEngine(t)
	p1 := basePayload()
	p1.Nonce = 5
	p2 := basePayload()
	p2.Nonce = 6
	h1, err := eng.ComputePayloadHash(1_000, p1)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := eng.ComputePayloadHash(1_000, p2)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("payload nonce field entered the digest")
	}
}

func TestPayloadHashBindsAccountNonce(t *testing.T) {
	eng := newInitializedEngine(t)
	before, err := eng.ComputePayloadHash(1_000, basePayload())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	writeNonce(eng.db, eng.address, 1)
	after, err := eng.ComputePayloadHash(1_000, basePayload())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if before == after {
		t.Fatalf("digest does not bind the stored account nonce")
	}
}

func TestDomainSeparatorDistinct(t *testing.T) {
	addrA := common.HexToAddress("0x00000000000000000000000000000000cafe0001")
	addrB := common.HexToAddress("0x00000000000000000000000000000000cafe0002")

	if DomainSeparatorFor("1", addrA) == DomainSeparatorFor("1", addrB) {
		t.Fatalf("separator shared across addresses")
	}
	if DomainSeparatorFor("1", addrA) == DomainSeparatorFor("2", addrA) {
		t.Fatalf("separator shared across chain ids")
	}
}

func TestDomainSeparatorOperation(t *testing.T) {
	eng := newInitializedEngine(t)
	sep, err := eng.DomainSeparator()
	if err != nil {
		t.Fatalf("domain separator: %v", err)
	}
	want := DomainSeparatorFor(testIdentity().ChainID, eng.Address())
	if sep != want {
		t.Fatalf("separator mismatch: %s != %s", sep, want)
	}
}

func TestComputePayloadHashDeadline(t *testing.T) {
	eng := newInitializedEngine(t)
	p := basePayload()
	p.Deadline = 1_000

	if _, err := eng.ComputePayloadHash(999, p); err != nil {
		t.Fatalf("before deadline: %v", err)
	}
	if _, err := eng.ComputePayloadHash(1_000, p); err != nil {
		t.Fatalf("at deadline: %v", err)
	}
	if _, err := eng.ComputePayloadHash(1_001, p); !errors.Is(err, ErrExpiredDeadline) {
		t.Fatalf("past deadline: got %v, want ErrExpiredDeadline", err)
	}
}

func TestComputePayloadHashUninitialized(t *testing.T) {
	st := newTestState(t)
	eng := NewEngine(st, common.HexToAddress("0x00000000000000000000000000000000dead0001"), nil, nil)
	if _, err := eng.ComputePayloadHash(1_000, basePayload()); !errors.Is(err, ErrAccountNotInitialized) {
		t.Fatalf("got %v, want ErrAccountNotInitialized", err)
	}
}

func TestValidatePayload(t *testing.T) {
	if err := ValidatePayload(nil); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("nil payload: got %v", err)
	}

	neg := basePayload()
	neg.Value = big.NewInt(-1)
	if err := ValidatePayload(neg); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("negative value: got %v", err)
	}

	wide := basePayload()
	wide.MaxFeePerGas = new(big.Int).Lsh(big.NewInt(1), 256)
	if err := ValidatePayload(wide); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("overwide fee: got %v", err)
	}

	unknown := basePayload()
	unknown.VerificationType = VerificationType(7)
	if err := ValidatePayload(unknown); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("unknown verification type: got %v", err)
	}

	if err := ValidatePayload(basePayload()); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
}

func TestHashPayloadAtMatchesEngine(t *testing.T) {
	eng := newInitializedEngine(t)
	want, err := eng.ComputePayloadHash(1_000, basePayload())
	if err != nil {
		t.Fatalf("engine hash: %v", err)
	}
	got, err := HashPayloadAt(testIdentity().ChainID, eng.Address(), basePayload(), 0)
	if err != nil {
		t.Fatalf("stateless hash: %v", err)
	}
	if got != want {
		t.Fatalf("stateless digest %x differs from engine digest %x", got, want)
	}

	if _, err := HashPayloadAt("1", eng.Address(), nil, 0); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("nil payload: got %v", err)
	}
}
