// Package acctidx maintains an in-memory index of deployed cross-chain
// accounts and their execution activity by consuming engine logs.
//
// It lives in a separate package (not account/ or registry/) so node-side
// consumers can depend on it without pulling the action handlers into a
// cycle:
//
//	account/, registry/ ← state + handlers (no event dependency)
//	acctidx/ ← imports account, registry, event
package acctidx

import (
	"bytes"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/xaccount/account"
	"github.com/tos-network/xaccount/registry"
)

// AccountInfo is one indexed account. OwnerDigest is the keccak hash of the
// raw foreign owner key, matching the indexed log topic.
type AccountInfo struct {
	Address        common.Address
	ChainNamespace string
	ChainID        string
	OwnerDigest    common.Hash
	Executions     uint64
	LastTo         common.Address
}

// Index maps owner key digests to their deployed account sets and tracks
// per-account execution counts. Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	byOwner  map[common.Hash]mapset.Set
	accounts map[common.Address]*AccountInfo
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byOwner:  make(map[common.Hash]mapset.Set),
		accounts: make(map[common.Address]*AccountInfo),
	}
}

// ProcessLogs folds a batch of logs into the index. Logs that are not
// account engine events are ignored.
func (ix *Index) ProcessLogs(logs []*types.Log) {
	for _, lg := range logs {
		if len(lg.Topics) == 0 {
			continue
		}
		switch lg.Topics[0] {
		case registry.AccountDeployedTopic:
			ix.applyDeploy(lg)
		case account.PayloadExecutedTopic:
			ix.applyExecute(lg)
		}
	}
}

func (ix *Index) applyDeploy(lg *types.Log) {
	ev, err := registry.DecodeAccountDeployed(lg)
	if err != nil {
		log.Debug("Account indexer: bad deploy log", "err", err)
		return
	}
	digest := crypto.Keccak256Hash(ev.Owner)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	set, ok := ix.byOwner[digest]
	if !ok {
		set = mapset.NewSet()
		ix.byOwner[digest] = set
	}
	set.Add(ev.Account)
	if _, ok := ix.accounts[ev.Account]; !ok {
		ix.accounts[ev.Account] = &AccountInfo{
			Address:        ev.Account,
			ChainNamespace: ev.ChainNamespace,
			ChainID:        ev.ChainID,
			OwnerDigest:    digest,
		}
	}
}

func (ix *Index) applyExecute(lg *types.Log) {
	ev, err := account.DecodePayloadExecuted(lg)
	if err != nil {
		log.Debug("Account indexer: bad execute log", "err", err)
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	// The engine emits from the account address; executions against
	// accounts we never saw deployed are skipped.
	info, ok := ix.accounts[lg.Address]
	if !ok {
		return
	}
	info.Executions++
	info.LastTo = ev.To
}

// AccountsOf returns the accounts deployed for ownerKey, sorted by address.
func (ix *Index) AccountsOf(ownerKey []byte) []common.Address {
	digest := crypto.Keccak256Hash(ownerKey)

	ix.mu.RLock()
	set, ok := ix.byOwner[digest]
	if !ok {
		ix.mu.RUnlock()
		return nil
	}
	raw := set.ToSlice()
	ix.mu.RUnlock()

	out := make([]common.Address, 0, len(raw))
	for _, v := range raw {
		out = append(out, v.(common.Address))
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// InfoOf returns a copy of the indexed record for addr.
func (ix *Index) InfoOf(addr common.Address) (AccountInfo, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	info, ok := ix.accounts[addr]
	if !ok {
		return AccountInfo{}, false
	}
	return *info, true
}

// Len returns the number of indexed accounts.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.accounts)
}

// Reset drops all indexed state, for reindexing after a reorg.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byOwner = make(map[common.Hash]mapset.Set)
	ix.accounts = make(map[common.Address]*AccountInfo)
}

// LogSource is the minimal log feed consumed by Indexer. Satisfied by the
// node's filter system.
type LogSource interface {
	SubscribeLogs(ch chan<- []*types.Log) event.Subscription
}

// Indexer subscribes to a log feed and keeps an Index up to date in a
// background goroutine.
type Indexer struct {
	source LogSource
	index  *Index
	quit   chan struct{}
}

// NewIndexer creates an Indexer feeding index from source.
func NewIndexer(source LogSource, index *Index) *Indexer {
	return &Indexer{
		source: source,
		index:  index,
		quit:   make(chan struct{}),
	}
}

// Start begins consuming logs in a background goroutine.
func (idx *Indexer) Start() {
	go idx.loop()
}

// Stop shuts down the indexer.
func (idx *Indexer) Stop() {
	close(idx.quit)
}

func (idx *Indexer) loop() {
	ch := make(chan []*types.Log, 64)
	sub := idx.source.SubscribeLogs(ch)
	defer sub.Unsubscribe()

	for {
		select {
		case logs := <-ch:
			idx.index.ProcessLogs(logs)
		case err := <-sub.Err():
			log.Warn("Account indexer log subscription error", "err", err)
			return
		case <-idx.quit:
			return
		}
	}
}
