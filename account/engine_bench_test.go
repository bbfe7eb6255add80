package account

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"

	"github.com/tos-network/xaccount/xcall"
)

func newBenchState(b *testing.B) *state.StateDB {
	b.Helper()
	st, err := state.New(common.Hash{}, state.NewDatabase(rawdb.NewMemoryDatabase()), nil)
	if err != nil {
		b.Fatalf("create statedb: %v", err)
	}
	return st
}

func BenchmarkComputePayloadHash(b *testing.B) {
	st := newBenchState(b)
	addr := common.HexToAddress("0x00000000000000000000000000000000bece0001")
	if err := Initialize(st, addr, testIdentity()); err != nil {
		b.Fatalf("initialize: %v", err)
	}
	eng := NewEngine(st, addr, nil, nil)
	p := basePayload()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.ComputePayloadHash(1_000, p); err != nil {
			b.Fatalf("hash: %v", err)
		}
	}
}

func BenchmarkExecutePayloadTransfer(b *testing.B) {
	st := newBenchState(b)
	addr := common.HexToAddress("0x00000000000000000000000000000000bece0002")
	if err := Initialize(st, addr, testIdentity()); err != nil {
		b.Fatalf("initialize: %v", err)
	}
	st.AddBalance(addr, new(big.Int).Lsh(big.NewInt(1), 62))
	eng := NewEngine(st, addr, &scriptVerifier{sigVerdict: true}, xcall.NewRouter(st))

	p := basePayload()
	p.Data = nil
	p.Value = big.NewInt(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := eng.ExecutePayload(1_000, p, []byte("sig")); err != nil {
			b.Fatalf("execute: %v", err)
		}
	}
}
