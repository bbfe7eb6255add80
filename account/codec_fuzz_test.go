package account

import (
	"bytes"
	"testing"
)

func FuzzDecodeIdentityNoPanic(f *testing.F) {
	valid, _ := EncodeIdentity(Identity{ChainNamespace: "eip155", ChainID: "1", Owner: []byte{0x02, 0x01}})
	f.Add(valid)
	f.Add([]byte("TOSXA1"))
	f.Add([]byte("TOSXA1\xc3\x01\x80\x80"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 4096 {
			return
		}
		id, err := DecodeIdentity(data)
		if err != nil {
			return
		}
		reenc, err := EncodeIdentity(*id)
		if err != nil {
			t.Fatalf("decoded identity does not re-encode: %v", err)
		}
		again, err := DecodeIdentity(reenc)
		if err != nil {
			t.Fatalf("canonical bytes do not decode: %v", err)
		}
		if again.ChainNamespace != id.ChainNamespace || again.ChainID != id.ChainID || !bytes.Equal(again.Owner, id.Owner) {
			t.Fatalf("identity round-trip mismatch")
		}
	})
}
