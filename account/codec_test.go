package account

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func testIdentity() Identity {
	return Identity{
		ChainNamespace: "eip155",
		ChainID:        "1",
		Owner:          bytes.Repeat([]byte{0xab}, 33),
	}
}

func TestIdentityCodecRoundTrip(t *testing.T) {
	id := testIdentity()
	enc, err := EncodeIdentity(id)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(enc, []byte("TOSXA1")) {
		t.Fatalf("missing canonical prefix: %x", enc[:8])
	}
	dec, err := DecodeIdentity(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.ChainNamespace != id.ChainNamespace || dec.ChainID != id.ChainID || !bytes.Equal(dec.Owner, id.Owner) {
		t.Fatalf("round trip mismatch: %+v != %+v", dec, id)
	}
}

func TestIdentityCodecDeterministic(t *testing.T) {
	a, err := EncodeIdentity(testIdentity())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := EncodeIdentity(testIdentity())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("canonical encoding not deterministic: %x != %x", a, b)
	}
}

func TestIdentityValidation(t *testing.T) {
	cases := []struct {
		name string
		id   Identity
	}{
		{"empty namespace", Identity{ChainNamespace: "", ChainID: "1", Owner: []byte{1}}},
		{"blank namespace", Identity{ChainNamespace: "   ", ChainID: "1", Owner: []byte{1}}},
		{"long namespace", Identity{ChainNamespace: strings.Repeat("x", 65), ChainID: "1", Owner: []byte{1}}},
		{"empty chain id", Identity{ChainNamespace: "eip155", ChainID: "", Owner: []byte{1}}},
		{"long chain id", Identity{ChainNamespace: "eip155", ChainID: strings.Repeat("9", 65), Owner: []byte{1}}},
		{"empty owner", Identity{ChainNamespace: "eip155", ChainID: "1", Owner: nil}},
		{"long owner", Identity{ChainNamespace: "eip155", ChainID: "1", Owner: make([]byte, 129)}},
	}
	for _, tc := range cases {
		if _, err := EncodeIdentity(tc.id); !errors.Is(err, ErrInvalidIdentity) {
			t.Errorf("%s: got %v, want ErrInvalidIdentity", tc.name, err)
		}
	}
}

func TestDecodeIdentityRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("TOSXA1"),
		[]byte("NOTXA1somebytes"),
		append([]byte("TOSXA1"), 0xff, 0xfe, 0xfd),
	}
	for i, data := range cases {
		if _, err := DecodeIdentity(data); !errors.Is(err, ErrInvalidIdentity) {
			t.Errorf("case %d: got %v, want ErrInvalidIdentity", i, err)
		}
	}
}

func TestDecodeIdentityRejectsWrongVersion(t *testing.T) {
	enc, err := EncodeIdentity(testIdentity())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// The version byte is the first RLP list element after the prefix.
	// Flipping it must fail decoding regardless of an otherwise valid body.
	tampered := append([]byte{}, enc...)
	tampered[len("TOSXA1")+1] = 0x02
	if _, err := DecodeIdentity(tampered); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("got %v, want ErrInvalidIdentity", err)
	}
}
