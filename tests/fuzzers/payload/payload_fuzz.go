package payload

import (
	"bytes"

	fuzz "github.com/google/gofuzz"

	"github.com/tos-network/xaccount/account"
	"github.com/tos-network/xaccount/sysaction"
)

// Fuzz implements a go-fuzz fuzzer method exercising the canonical
// identity codec and the system action decoder.
func Fuzz(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	switch data[0] % 3 {
	case 0:
		return fuzzIdentityRoundTrip(data[1:])
	case 1:
		return fuzzIdentityDecode(data[1:])
	default:
		return fuzzSysActionDecode(data[1:])
	}
}

// fuzzIdentityRoundTrip builds a structured identity from the fuzz input
// and checks that the canonical codec round trips it exactly.
func fuzzIdentityRoundTrip(data []byte) int {
	var id account.Identity
	fuzz.NewFromGoFuzz(data).Fuzz(&id)
	canonical, err := account.EncodeIdentity(id)
	if err != nil {
		// Field bounds rejected the generated identity.
		return 0
	}
	decoded, err := account.DecodeIdentity(canonical)
	if err != nil {
		panic(err)
	}
	if decoded.ChainNamespace != id.ChainNamespace || decoded.ChainID != id.ChainID || !bytes.Equal(decoded.Owner, id.Owner) {
		panic("identity round trip mismatch")
	}
	reencoded, err := account.EncodeIdentity(*decoded)
	if err != nil {
		panic(err)
	}
	if !bytes.Equal(canonical, reencoded) {
		panic("canonical form not stable")
	}
	return 1
}

// fuzzIdentityDecode feeds raw bytes to the decoder. Anything it accepts
// must already be in canonical form.
func fuzzIdentityDecode(data []byte) int {
	id, err := account.DecodeIdentity(data)
	if err != nil {
		return 0
	}
	reencoded, err := account.EncodeIdentity(*id)
	if err != nil {
		panic(err)
	}
	if !bytes.Equal(data, reencoded) {
		panic("decoded identity bytes not canonical")
	}
	return 1
}

func fuzzSysActionDecode(data []byte) int {
	sa, err := sysaction.Decode(data)
	if err != nil {
		return 0
	}
	if sa.Action == "" {
		panic("decoder accepted an action-less payload")
	}
	return 1
}
