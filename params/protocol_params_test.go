package params

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSystemAddressesDistinct(t *testing.T) {
	addrs := map[string]common.Address{
		"SystemActionAddress":    SystemActionAddress,
		"AccountRegistryAddress": AccountRegistryAddress,
		"VerifyOracleAddress":    VerifyOracleAddress,
	}
	seen := make(map[common.Address]string)
	for name, addr := range addrs {
		if prev, ok := seen[addr]; ok {
			t.Fatalf("system address collision: %s == %s", name, prev)
		}
		seen[addr] = name
	}
}

func TestSystemAddressTags(t *testing.T) {
	// The last four bytes spell the protocol tag; the remaining prefix is zero.
	tests := []struct {
		addr common.Address
		tag  string
	}{
		{SystemActionAddress, "XAC1"},
		{AccountRegistryAddress, "XAC2"},
		{VerifyOracleAddress, "XAC3"},
	}
	for _, tt := range tests {
		if got := string(tt.addr[16:]); got != tt.tag {
			t.Fatalf("address tag mismatch: got %q want %q", got, tt.tag)
		}
		if !bytes.Equal(tt.addr[:16], make([]byte, 16)) {
			t.Fatalf("address %x has non-zero prefix", tt.addr)
		}
	}
}
